// Package matcher implements the structural comparison of a concrete
// key-tuple against a schema key-tuple (spec §4.3). The teacher's matcher
// package dispatched text/AST engines (regex, tree-sitter) behind a common
// Matcher interface (internal/matcher/matcher.go, tree.go, regex.go); FQL
// keeps that "thin interface over one real implementation" idiom for
// documentation purposes, but there is only one backend: tuples are already
// decoded values, not source text, so Compare is the whole surface.
package matcher

import (
	"math"

	"github.com/termfx/fql/internal/keyval"
)

// Path locates, by element index from the tuple root down into any nested
// tuples, the first point at which schema and candidate diverge.
type Path []int

// floatTolerance bounds the absolute difference admitted between two Float
// leaves once their bit patterns differ (spec §4.3: "ties broken by
// bit-equality is acceptable; the implementation must document which" —
// FQL checks bit-exact equality first, so NaN payloads and signed zeros
// compare the way the codec's round-trip law expects, and only falls back
// to the tolerance check otherwise).
const floatTolerance = 1e-9

// Compare implements spec §4.3. It returns (nil, true) on a match, or
// (path, false) locating the first mismatch.
func Compare(schema, candidate keyval.Tuple) (Path, bool) {
	stripped, hasTail := stripMaybeMore(schema)

	if hasTail {
		if len(candidate) < len(stripped) {
			return Path{len(candidate)}, false
		}
	} else if len(stripped) != len(candidate) {
		if len(candidate) > len(stripped) {
			return Path{len(stripped)}, false
		}
		return Path{len(candidate)}, false
	}

	for i, se := range stripped {
		ce := candidate[i]
		ok, sub := compareElement(se, ce)
		if !ok {
			return append(Path{i}, sub...), false
		}
	}
	return nil, true
}

// stripMaybeMore reports whether schema's last element is MaybeMore and, if
// so, returns schema with that element removed.
func stripMaybeMore(schema keyval.Tuple) (keyval.Tuple, bool) {
	if len(schema) == 0 {
		return schema, false
	}
	if last := schema[len(schema)-1]; last.Kind == keyval.EKMaybeMore {
		return schema[:len(schema)-1], true
	}
	return schema, false
}

// compareElement compares one schema element against one candidate element.
// The returned Path, when ok is false, is the suffix path *below* this
// element (non-empty only when the mismatch is inside a nested tuple).
func compareElement(se, ce keyval.TupElement) (bool, Path) {
	switch se.Kind {
	case keyval.EKMaybeMore:
		// MaybeMore in a non-terminal position is an ill-formed schema
		// (spec §9, open question): treated as an unconditional mismatch.
		// Well-formed schemas never reach this branch because
		// stripMaybeMore only strips a *trailing* MaybeMore; the parser
		// rejects it elsewhere, so only a hand-built schema reaches here.
		return false, nil

	case keyval.EKVariable:
		return se.Variable.Admits(ce.Type()), nil

	case keyval.EKTuple:
		if ce.Kind != keyval.EKTuple {
			return false, nil
		}
		sub, ok := Compare(se.Tuple, ce.Tuple)
		return ok, Path(sub)

	default:
		return equalLeaf(se, ce), nil
	}
}

// equalLeaf compares two concrete (non-hole) leaves for structural
// equality. Candidates are assumed never to contain Variable/MaybeMore
// (spec §4.3: "behavior is undefined" otherwise — callers pass only
// results).
func equalLeaf(a, b keyval.TupElement) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case keyval.EKNil:
		return true
	case keyval.EKInt:
		return a.Int == b.Int
	case keyval.EKUint:
		return a.Uint == b.Uint
	case keyval.EKBool:
		return a.Bool == b.Bool
	case keyval.EKFloat:
		return floatEqual(a.Float, b.Float)
	case keyval.EKString:
		return a.String == b.String
	case keyval.EKBytes:
		return string(a.Bytes) == string(b.Bytes)
	case keyval.EKUuid:
		return a.Uuid == b.Uuid
	case keyval.EKVStamp:
		return a.VStamp == b.VStamp
	case keyval.EKVStampFuture:
		return a.VFuture == b.VFuture
	default:
		return false
	}
}

func floatEqual(a, b float64) bool {
	if math.Float64bits(a) == math.Float64bits(b) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) < floatTolerance
}
