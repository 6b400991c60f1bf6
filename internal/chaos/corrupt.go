package chaos

import "bytes"

// Corruption identifies a payload transform.
type Corruption int

const (
	CorruptNone Corruption = iota
	CorruptTruncate
	CorruptDropLast
	CorruptAppendGarbage
	CorruptStripQuote
)

// corruptionKinds lists the transforms the injector picks from.
var corruptionKinds = [...]Corruption{
	CorruptTruncate,
	CorruptDropLast,
	CorruptAppendGarbage,
	CorruptStripQuote,
}

// garbageSuffix is appended by CorruptAppendGarbage.
const garbageSuffix = "#@!$%^garbage"

func (c Corruption) String() string {
	switch c {
	case CorruptTruncate:
		return "truncate"
	case CorruptDropLast:
		return "drop_last"
	case CorruptAppendGarbage:
		return "append_garbage"
	case CorruptStripQuote:
		return "strip_quote"
	default:
		return "none"
	}
}

// Apply returns a corrupted copy of payload. The input is never modified and
// the result may be empty.
func (c Corruption) Apply(payload []byte) []byte {
	switch c {
	case CorruptTruncate:
		n := len(payload) * 7 / 10
		return bytes.Clone(payload[:n])
	case CorruptDropLast:
		if len(payload) == 0 {
			return []byte{}
		}
		return bytes.Clone(payload[:len(payload)-1])
	case CorruptAppendGarbage:
		out := make([]byte, 0, len(payload)+len(garbageSuffix))
		out = append(out, payload...)
		return append(out, garbageSuffix...)
	case CorruptStripQuote:
		i := bytes.IndexByte(payload, '"')
		if i < 0 {
			return bytes.Clone(payload)
		}
		out := make([]byte, 0, len(payload)-1)
		out = append(out, payload[:i]...)
		return append(out, payload[i+1:]...)
	default:
		return bytes.Clone(payload)
	}
}
