package keyval

import (
	"fmt"
	"strings"
)

// Class is one of the seven labels the classifier assigns to a KeyValue.
// See spec §4.2.
type Class string

const (
	Constant   Class = "constant"
	VStampKey  Class = "vstamp_key"
	VStampVal  Class = "vstamp_val"
	Clear      Class = "clear"
	ReadSingle Class = "read_single"
	ReadRange  Class = "read_range"
	Invalid    Class = "invalid"
)

// Classification is the classifier's full output: the Class plus, for
// Invalid, the reason string (spec scenario F: "vstamps:1,var").
type Classification struct {
	Class  Class
	Reason string
}

func (c Classification) String() string {
	if c.Class == Invalid && c.Reason != "" {
		return fmt.Sprintf("%s(%s)", c.Class, c.Reason)
	}
	return string(c.Class)
}

// Classify implements the priority-ordered decision tree of spec §4.2.
// Exact order matters: key-variable beats value-variable beats
// vstamp-future beats clear beats fully-concrete.
func Classify(kv KeyValue) Classification {
	keyAttr := SynthesizeKey(kv.Key)
	valAttr := SynthesizeValue(kv.Value)
	kvAttr := keyAttr.Merge(valAttr)

	if kvAttr.HasNil {
		return Classification{Class: Invalid, Reason: "nil"}
	}
	if kvAttr.VStampFutures > 1 {
		return Classification{Class: Invalid, Reason: fmt.Sprintf("vstamps:%d", kvAttr.VStampFutures)}
	}

	var flagNames []string
	if kvAttr.VStampFutures > 0 {
		flagNames = append(flagNames, fmt.Sprintf("vstamps:%d", kvAttr.VStampFutures))
	}
	if kvAttr.HasVariable {
		flagNames = append(flagNames, "var")
	}
	if kvAttr.HasClear {
		flagNames = append(flagNames, "clear")
	}
	if len(flagNames) > 1 {
		return Classification{Class: Invalid, Reason: strings.Join(flagNames, ",")}
	}

	switch {
	case keyAttr.HasVariable:
		return Classification{Class: ReadRange}
	case kvAttr.HasVariable:
		// Invariant + the flags check above guarantee the key itself holds
		// no variable here, so any hole lives in the value alone.
		return Classification{Class: ReadSingle}
	case kvAttr.VStampFutures > 0:
		if keyAttr.VStampFutures > 0 {
			return Classification{Class: VStampKey}
		}
		return Classification{Class: VStampVal}
	case kvAttr.HasClear:
		return Classification{Class: Clear}
	default:
		return Classification{Class: Constant}
	}
}

// ClassifyQuery classifies a full Query, expanding Query::Key per spec §4.2
// ("wrap as KeyValue{k, Variable(Any)} then classify"). It panics on
// Query::Directory, which the caller (engine façade) must branch on before
// reaching here — directory listing is an out-of-band operation, not a
// Class.
func ClassifyQuery(q Query) Classification {
	return Classify(q.AsKeyValue())
}
