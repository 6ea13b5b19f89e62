package bencode

import "bytes"

// Value is one of the four bencode kinds:
//   - Integer (i<digits>e)
//   - ByteString (<length>:<bytes>)
//   - List (l<values>e)
//   - Dict (d<key><value>...e)
//
// No other type implements Value, so a type switch over those four is exhaustive.
type Value interface {
	bencode()
}

type Integer int64

// ByteString holds raw bytes. No text encoding is assumed.
type ByteString []byte

type List []Value

// Dict maps raw byte-string keys to values.
//
// Span is filled in by the decoder with the position of the dict's own
// encoding in the source buffer. Values built in code have a zero Span.
type Dict struct {
	Entries map[string]Value
	Span    Span
}

// Span is a [Start, End) byte range in a decoded buffer.
type Span struct {
	Start int
	End   int
}

func (Integer) bencode()    {}
func (ByteString) bencode() {}
func (List) bencode()       {}
func (Dict) bencode()       {}

// Len is the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Bytes returns the part of data covered by the span.
func (s Span) Bytes(data []byte) []byte {
	return data[s.Start:s.End]
}

// Get looks up key in the dict.
func (d Dict) Get(key string) (Value, bool) {
	v, ok := d.Entries[key]
	return v, ok
}

func (b ByteString) String() string {
	return string(b)
}

// Equal reports whether a and b hold the same bencode data.
// Decoder spans are not compared, and nil and empty containers are equal.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Integer:
		b, ok := b.(Integer)
		return ok && a == b
	case ByteString:
		b, ok := b.(ByteString)
		return ok && bytes.Equal(a, b)
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Dict:
		b, ok := b.(Dict)
		if !ok || len(a.Entries) != len(b.Entries) {
			return false
		}
		for k, av := range a.Entries {
			bv, ok := b.Entries[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return a == nil && b == nil
}

// Equal lets go-cmp and friends compare dicts without looking at spans.
func (d Dict) Equal(other Dict) bool {
	return Equal(d, other)
}
