package engine

import "github.com/termfx/fql/internal/keyval"

// ResultKind discriminates what an Execute call produced.
type ResultKind int

const (
	// RWritten: a Constant query committed a set.
	RWritten ResultKind = iota
	// RCleared: a Clear query committed a delete.
	RCleared
	// RStamped: a VStampKey/VStampVal query committed a versionstamped write.
	RStamped
	// RSingle: a ReadSingle query completed; Pair is nil if absent.
	RSingle
	// RStream: a ReadRange query is streaming; consume Items.
	RStream
	// RListing: a Directory query completed; Listing holds child names.
	RListing
)

// Item is one element of a ReadRange stream: a matched KeyValue, or (with
// Err set) the terminal failure of a scan that already yielded zero or
// more valid items (spec §7: "already-yielded items remain valid
// observations").
type Item struct {
	Pair keyval.KeyValue
	Err  error
}

// Result is the engine's uniform Execute output. Exactly the fields
// matching Kind are meaningful.
type Result struct {
	Kind    ResultKind
	Pair    *keyval.KeyValue
	Items   <-chan Item
	Listing []string
}
