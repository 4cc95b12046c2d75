package parser

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/termfx/fql/internal/keyval"
)

// Format produces the canonical FQL text for q, the inverse of Parse for
// every query built from literals Parse itself can produce. Grounded on
// original_source/rust/parser/src/format.rs, one function per grammar
// production.
func Format(q keyval.Query) string {
	switch q.Kind {
	case keyval.QKeyValue:
		return formatKey(q.KeyValue.Key) + "=" + formatValue(q.KeyValue.Value)
	case keyval.QKey:
		return formatKey(q.Key)
	case keyval.QDirectory:
		return formatDirectory(q.Directory)
	default:
		return ""
	}
}

func formatKey(k keyval.Key) string {
	return formatDirectory(k.Directory) + formatTuple(k.Tuple)
}

func formatDirectory(dir keyval.Directory) string {
	var b strings.Builder
	for _, d := range dir {
		b.WriteByte('/')
		switch d.Kind {
		case keyval.DEString:
			b.WriteString(d.String)
		case keyval.DEVariable:
			b.WriteByte('<')
			b.WriteString(formatVariable(d.Variable))
			b.WriteByte('>')
		}
	}
	return b.String()
}

func formatTuple(t keyval.Tuple) string {
	parts := make([]string, len(t))
	for i, el := range t {
		parts[i] = formatElement(el)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func formatElement(el keyval.TupElement) string {
	switch el.Kind {
	case keyval.EKNil:
		return "nil"
	case keyval.EKInt:
		return strconv.FormatInt(el.Int, 10)
	case keyval.EKUint:
		return strconv.FormatUint(el.Uint, 10) + "u"
	case keyval.EKBool:
		return strconv.FormatBool(el.Bool)
	case keyval.EKFloat:
		s := strconv.FormatFloat(el.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			// keep an integral float from reading back as an Int literal
			s += ".0"
		}
		return s
	case keyval.EKString:
		return `"` + el.String + `"`
	case keyval.EKBytes:
		return "0x" + fmt.Sprintf("%x", el.Bytes)
	case keyval.EKUuid:
		return el.Uuid.String()
	case keyval.EKTuple:
		return formatTuple(el.Tuple)
	case keyval.EKVariable:
		return "<" + formatVariable(el.Variable) + ">"
	case keyval.EKMaybeMore:
		return "..."
	case keyval.EKVStamp:
		return "#stamp:" + hex.EncodeToString(vstampBytes(el.VStamp))
	case keyval.EKVStampFuture:
		return fmt.Sprintf("#%d", el.VFuture.UserVersion)
	default:
		return ""
	}
}

// vstampBytes serializes a concrete VStamp to its full 12 bytes (10-byte
// TxVersion followed by the 2-byte big-endian UserVersion), so formatting
// it never drops the commit-assigned transaction version.
func vstampBytes(v keyval.VStamp) []byte {
	var buf [12]byte
	copy(buf[:10], v.TxVersion[:])
	binary.BigEndian.PutUint16(buf[10:], v.UserVersion)
	return buf[:]
}

func formatValue(v keyval.Value) string {
	if v.IsClear {
		return "clear"
	}
	return formatElement(v.TupElement)
}

func formatVariable(v keyval.Variable) string {
	if len(v.Types) == 0 {
		return ""
	}
	names := make([]string, len(v.Types))
	for i, t := range v.Types {
		names[i] = string(t)
	}
	return strings.Join(names, "|")
}
