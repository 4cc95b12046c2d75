// Package keyval contains pure, language-agnostic data structures for FQL
// queries and results. This package holds ONLY data and the attribute
// synthesis/classification logic that operates directly on that data — no
// scanning, parsing, storage, or I/O concerns belong here.
package keyval

import "github.com/google/uuid"

// ValueType enumerates the concrete types a Variable may be constrained to.
type ValueType string

const (
	TAny    ValueType = "any"
	TInt    ValueType = "int"
	TUint   ValueType = "uint"
	TBool   ValueType = "bool"
	TFloat  ValueType = "float"
	TString ValueType = "string"
	TBytes  ValueType = "bytes"
	TUuid   ValueType = "uuid"
	TTuple  ValueType = "tuple"
	TVStamp ValueType = "vstamp"
)

// Variable is a typed hole in a query. An empty Types list means "any type".
type Variable struct {
	Types []ValueType
}

// Admits reports whether the variable's type constraint allows t.
func (v Variable) Admits(t ValueType) bool {
	if len(v.Types) == 0 {
		return true
	}
	for _, vt := range v.Types {
		if vt == TAny || vt == t {
			return true
		}
	}
	return false
}

// VStamp is a concrete, already-assigned 12-byte versionstamp: 10 bytes of
// transaction version followed by a little-endian 16-bit user version.
type VStamp struct {
	TxVersion   [10]byte
	UserVersion uint16
}

// VStampFuture is a placeholder for a versionstamp the store assigns at
// commit time. UserVersion is caller-supplied and used to disambiguate
// multiple futures committed within the same transaction by an external
// caller (FQL itself allows at most one per KeyValue, invariant 2).
type VStampFuture struct {
	UserVersion uint16
}

// TupElement is exactly one of the variants below. Exactly one field that
// matches Kind is meaningful; a tagged-struct discriminated union for a
// language without native sum types, keeping the pure-data promise of this
// package (the only method is Type, a Kind-to-ValueType lookup).
type TupElementKind int

const (
	EKNil TupElementKind = iota
	EKInt
	EKUint
	EKBool
	EKFloat
	EKString
	EKBytes
	EKUuid
	EKTuple
	EKVariable
	EKMaybeMore
	EKVStamp
	EKVStampFuture
)

// TupElement is one element of a Tuple. Construct with the New* helpers
// rather than struct literals to keep the Kind/payload pairing consistent.
type TupElement struct {
	Kind TupElementKind

	Int      int64
	Uint     uint64
	Bool     bool
	Float    float64
	String   string
	Bytes    []byte
	Uuid     uuid.UUID
	Tuple    Tuple
	Variable Variable
	VStamp   VStamp
	VFuture  VStampFuture
}

func NewNil() TupElement                 { return TupElement{Kind: EKNil} }
func NewInt(i int64) TupElement          { return TupElement{Kind: EKInt, Int: i} }
func NewUint(u uint64) TupElement        { return TupElement{Kind: EKUint, Uint: u} }
func NewBool(b bool) TupElement          { return TupElement{Kind: EKBool, Bool: b} }
func NewFloat(f float64) TupElement      { return TupElement{Kind: EKFloat, Float: f} }
func NewString(s string) TupElement      { return TupElement{Kind: EKString, String: s} }
func NewBytes(b []byte) TupElement       { return TupElement{Kind: EKBytes, Bytes: b} }
func NewUuid(u uuid.UUID) TupElement     { return TupElement{Kind: EKUuid, Uuid: u} }
func NewTuple(t Tuple) TupElement        { return TupElement{Kind: EKTuple, Tuple: t} }
func NewMaybeMore() TupElement           { return TupElement{Kind: EKMaybeMore} }
func NewVStamp(v VStamp) TupElement      { return TupElement{Kind: EKVStamp, VStamp: v} }

func NewVariable(types ...ValueType) TupElement {
	return TupElement{Kind: EKVariable, Variable: Variable{Types: types}}
}

func NewVStampFuture(userVersion uint16) TupElement {
	return TupElement{Kind: EKVStampFuture, VFuture: VStampFuture{UserVersion: userVersion}}
}

// Type returns the ValueType that a concrete (non-hole) element would report
// to a Variable's Admits check. Holes (Variable, MaybeMore) have no type.
func (e TupElement) Type() ValueType {
	switch e.Kind {
	case EKInt:
		return TInt
	case EKUint:
		return TUint
	case EKBool:
		return TBool
	case EKFloat:
		return TFloat
	case EKString:
		return TString
	case EKBytes:
		return TBytes
	case EKUuid:
		return TUuid
	case EKTuple:
		return TTuple
	case EKVStamp:
		return TVStamp
	default:
		return TAny
	}
}

// Tuple is an ordered sequence of TupElement.
type Tuple []TupElement

// Value is the value-position counterpart of TupElement: the same universe
// minus MaybeMore (invariant 1), plus Clear.
type Value struct {
	TupElement
	IsClear bool
}

func NewClear() Value { return Value{IsClear: true} }
func NewValue(e TupElement) Value {
	return Value{TupElement: e}
}

// DirElementKind discriminates the two DirElement variants.
type DirElementKind int

const (
	DEString DirElementKind = iota
	DEVariable
)

// DirElement is one segment of a Directory path.
type DirElement struct {
	Kind     DirElementKind
	String   string
	Variable Variable
}

func NewDirString(s string) DirElement { return DirElement{Kind: DEString, String: s} }
func NewDirVariable(types ...ValueType) DirElement {
	return DirElement{Kind: DEVariable, Variable: Variable{Types: types}}
}

// Directory is an ordered sequence of DirElement (invariant 5: never
// contains MaybeMore, enforced by DirElement's own variant set).
type Directory []DirElement

// Key is a Directory paired with a Tuple.
type Key struct {
	Directory Directory
	Tuple     Tuple
}

// KeyValue is the full query form: a Key plus a Value.
type KeyValue struct {
	Key   Key
	Value Value
}

// QueryKind discriminates the three Query variants.
type QueryKind int

const (
	QKeyValue QueryKind = iota
	QKey
	QDirectory
)

// Query is the top-level sum type a caller (or the parser) constructs.
type Query struct {
	Kind      QueryKind
	KeyValue  KeyValue
	Key       Key
	Directory Directory
}

// AsKeyValue expands the Query::Key shorthand into its full KeyValue form
// (an unconstrained Variable value) so callers only ever classify
// KeyValues. Query::Directory has no KeyValue expansion; callers must check
// Kind before calling this.
func (q Query) AsKeyValue() KeyValue {
	switch q.Kind {
	case QKeyValue:
		return q.KeyValue
	case QKey:
		return KeyValue{Key: q.Key, Value: NewValue(NewVariable())}
	default:
		panic("keyval: AsKeyValue called on a Directory query")
	}
}
