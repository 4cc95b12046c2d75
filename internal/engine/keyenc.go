// keyenc.go turns a Key (Directory + Tuple) into the single flat element
// sequence the engine stores and scans with. Directory segments and tuple
// elements are encoded through the same tuple layer: a DEString segment
// becomes a tuple String element, a DEVariable segment becomes a tuple
// Variable element. This lets ReadRange reuse the tuple matcher verbatim
// over directory-plus-tuple schemas instead of needing a second, parallel
// path matcher.
package engine

import (
	"github.com/termfx/fql/internal/keyval"
)

// flatten concatenates a Key's directory and tuple into one element
// sequence suitable for tuple-layer packing and matcher.Compare.
func flatten(k keyval.Key) keyval.Tuple {
	out := make(keyval.Tuple, 0, len(k.Directory)+len(k.Tuple))
	for _, d := range k.Directory {
		switch d.Kind {
		case keyval.DEString:
			out = append(out, keyval.NewString(d.String))
		case keyval.DEVariable:
			out = append(out, keyval.TupElement{Kind: keyval.EKVariable, Variable: d.Variable})
		}
	}
	out = append(out, k.Tuple...)
	return out
}

// concretePrefix returns the leading run of elements containing no
// Variable or MaybeMore, i.e. the portion of a schema whose packed bytes
// can be used directly as a range-scan prefix (spec §4.5: "the prefix
// range of the schema's concrete prefix — everything up to the first
// hole").
func concretePrefix(elements keyval.Tuple) keyval.Tuple {
	for i, el := range elements {
		if el.Kind == keyval.EKVariable || el.Kind == keyval.EKMaybeMore {
			return elements[:i]
		}
	}
	return elements
}

// strinc computes the exclusive upper bound of the byte range sharing
// prefix as a prefix: the smallest byte string greater than every string
// beginning with prefix. Standard key-range trick: increment the last byte
// less than 0xFF, dropping any trailing 0xFF bytes first.
func strinc(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	// prefix is all 0xFF bytes (or empty): there is no finite successor,
	// so the range is unbounded above.
	return nil
}

// splitFlat reverses flatten, given the original directory length, so a
// decoded candidate tuple can be reported back as Key{Directory, Tuple}.
func splitFlat(dirLen int, elements keyval.Tuple) keyval.Key {
	dirPart := elements[:dirLen]
	tupPart := elements[dirLen:]
	dir := make(keyval.Directory, len(dirPart))
	for i, el := range dirPart {
		if el.Kind == keyval.EKString {
			dir[i] = keyval.NewDirString(el.String)
		} else {
			dir[i] = keyval.DirElement{Kind: keyval.DEVariable, Variable: el.Variable}
		}
	}
	return keyval.Key{Directory: dir, Tuple: append(keyval.Tuple(nil), tupPart...)}
}
