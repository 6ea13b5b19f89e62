package bencode

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Encode returns the canonical encoding of v: integers in minimal decimal,
// dict keys in ascending byte order.
//
// Encode panics if v, or any value nested in it, is nil.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)
	return buf.Bytes()
}

// Write writes the canonical encoding of v to w.
func Write(w io.Writer, v Value) error {
	_, err := w.Write(Encode(v))
	return err
}

func encodeValue(buf *bytes.Buffer, v Value) {
	switch v := v.(type) {
	case Integer:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(int64(v), 10))
		buf.WriteByte('e')

	case ByteString:
		encodeString(buf, string(v))

	case List:
		buf.WriteByte('l')
		for _, item := range v {
			encodeValue(buf, item)
		}
		buf.WriteByte('e')

	case Dict:
		keys := make([]string, 0, len(v.Entries))
		for k := range v.Entries {
			keys = append(keys, k)
		}
		// string comparison in Go is bytewise
		sort.Strings(keys)

		buf.WriteByte('d')
		for _, k := range keys {
			encodeString(buf, k)
			encodeValue(buf, v.Entries[k])
		}
		buf.WriteByte('e')

	default:
		panic(fmt.Sprintf("bencode: cannot encode %T", v))
	}
}

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}
