package keyval

// Attributes is the folded shape of a Directory/Tuple/Value/Key/KeyValue
// subtree, as computed by Synthesize. Merge is pointwise: counts sum, bools
// OR. See spec §4.1.
type Attributes struct {
	VStampFutures int
	HasVariable   bool
	HasClear      bool
	HasNil        bool
}

// Merge folds two Attributes together (used for key_attr ⊕ value_attr, and
// for recursive merges across nested tuples).
func (a Attributes) Merge(b Attributes) Attributes {
	return Attributes{
		VStampFutures: a.VStampFutures + b.VStampFutures,
		HasVariable:   a.HasVariable || b.HasVariable,
		HasClear:      a.HasClear || b.HasClear,
		HasNil:        a.HasNil || b.HasNil,
	}
}

// SynthesizeDir folds a Directory into Attributes. A String segment
// contributes nothing; a Variable segment contributes HasVariable.
func SynthesizeDir(dir Directory) Attributes {
	var out Attributes
	for _, el := range dir {
		if el.Kind == DEVariable {
			out.HasVariable = true
		}
	}
	return out
}

// SynthesizeTuple folds a Tuple into Attributes, recursing into nested
// tuples.
func SynthesizeTuple(t Tuple) Attributes {
	var out Attributes
	for _, el := range t {
		out = out.Merge(synthesizeElement(el))
	}
	return out
}

func synthesizeElement(e TupElement) Attributes {
	switch e.Kind {
	case EKNil:
		return Attributes{HasNil: true}
	case EKVariable, EKMaybeMore:
		return Attributes{HasVariable: true}
	case EKVStampFuture:
		return Attributes{VStampFutures: 1}
	case EKTuple:
		return SynthesizeTuple(e.Tuple)
	default:
		return Attributes{}
	}
}

// SynthesizeValue folds a Value into Attributes.
func SynthesizeValue(v Value) Attributes {
	if v.IsClear {
		return Attributes{HasClear: true}
	}
	return synthesizeElement(v.TupElement)
}

// SynthesizeKey folds a Key (directory ⊕ tuple) into Attributes.
func SynthesizeKey(k Key) Attributes {
	return SynthesizeDir(k.Directory).Merge(SynthesizeTuple(k.Tuple))
}

// SynthesizeKeyValue folds a full KeyValue into Attributes.
func SynthesizeKeyValue(kv KeyValue) Attributes {
	return SynthesizeKey(kv.Key).Merge(SynthesizeValue(kv.Value))
}
