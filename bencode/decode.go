package bencode

import (
	"fmt"
	"strconv"
)

// ParseError describes a grammar violation at a byte offset of the input.
type ParseError struct {
	Offset   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bencode: at offset %d: expected %s, found %s", e.Offset, e.Expected, e.Found)
}

// MaxDepth is how deeply lists and dicts may nest.
const MaxDepth = 512

type decoder struct {
	data  []byte
	pos   int
	depth int
}

// Decode parses the first bencode value in data and returns it together
// with the number of bytes it took up. Bytes after the value are ignored.
func Decode(data []byte) (Value, int, error) {
	d := decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, 0, err
	}
	return v, d.pos, nil
}

// DecodeAll parses data as exactly one bencode value.
func DecodeAll(data []byte) (Value, error) {
	v, n, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &ParseError{Offset: n, Expected: "end of input", Found: describe(data[n])}
	}
	return v, nil
}

func describe(b byte) string {
	return strconv.QuoteRune(rune(b))
}

func (d *decoder) fail(expected string) *ParseError {
	found := "end of input"
	if d.pos < len(d.data) {
		found = describe(d.data[d.pos])
	}
	return &ParseError{Offset: d.pos, Expected: expected, Found: found}
}

// peek returns the next byte without consuming it.
func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.data) {
		return 0, false
	}
	return d.data[d.pos], true
}

func (d *decoder) value() (Value, error) {
	b, ok := d.peek()
	if !ok {
		return nil, d.fail("value")
	}
	switch {
	case b == 'i':
		return d.integer()
	case b >= '0' && b <= '9':
		return d.byteString()
	case b == 'l':
		return d.list()
	case b == 'd':
		return d.dict()
	default:
		return nil, d.fail("'i', 'l', 'd' or string length")
	}
}

// digits consumes a run of ASCII digits and returns it.
func (d *decoder) digits() []byte {
	start := d.pos
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		d.pos++
	}
	return d.data[start:d.pos]
}

// Integers are i<digits>e with an optional minus sign.
// Leading zeros, "-0" and an empty digit run are rejected.
func (d *decoder) integer() (Integer, error) {
	start := d.pos
	d.pos++ // 'i'

	negative := false
	if b, ok := d.peek(); ok && b == '-' {
		negative = true
		d.pos++
	}

	digitsAt := d.pos
	digits := d.digits()
	if len(digits) == 0 {
		return 0, d.fail("digit")
	}
	if digits[0] == '0' && (len(digits) > 1 || negative) {
		return 0, &ParseError{Offset: digitsAt, Expected: "integer without leading zero", Found: strconv.Quote(string(d.data[start:d.pos]))}
	}
	if b, ok := d.peek(); !ok || b != 'e' {
		return 0, d.fail("'e'")
	}

	n, err := strconv.ParseInt(string(d.data[digitsAt-boolToInt(negative):d.pos]), 10, 64)
	if err != nil {
		return 0, &ParseError{Offset: start, Expected: "64-bit integer", Found: strconv.Quote(string(d.data[start : d.pos+1]))}
	}
	d.pos++ // 'e'
	return Integer(n), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Byte strings are <length>:<bytes>. The length has no leading zeros.
func (d *decoder) byteString() (ByteString, error) {
	start := d.pos
	digits := d.digits()
	if len(digits) > 1 && digits[0] == '0' {
		return nil, &ParseError{Offset: start, Expected: "string length without leading zero", Found: strconv.Quote(string(digits))}
	}
	if b, ok := d.peek(); !ok || b != ':' {
		return nil, d.fail("':'")
	}
	length, err := strconv.Atoi(string(digits))
	if err != nil {
		return nil, &ParseError{Offset: start, Expected: "string length", Found: strconv.Quote(string(digits))}
	}
	d.pos++ // ':'

	if length > len(d.data)-d.pos {
		return nil, &ParseError{
			Offset:   d.pos,
			Expected: fmt.Sprintf("%d string bytes", length),
			Found:    fmt.Sprintf("%d bytes", len(d.data)-d.pos),
		}
	}
	s := make(ByteString, length)
	copy(s, d.data[d.pos:d.pos+length])
	d.pos += length
	return s, nil
}

func (d *decoder) enter() error {
	if d.depth == MaxDepth {
		return d.fail(fmt.Sprintf("nesting depth <= %d", MaxDepth))
	}
	d.depth++
	return nil
}

func (d *decoder) list() (List, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	d.pos++ // 'l'
	list := List{}
	for {
		b, ok := d.peek()
		if !ok {
			return nil, d.fail("list value or 'e'")
		}
		if b == 'e' {
			d.pos++
			return list, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
}

// Keys are accepted in any order. Duplicate keys are an error.
func (d *decoder) dict() (Dict, error) {
	if err := d.enter(); err != nil {
		return Dict{}, err
	}
	defer func() { d.depth-- }()
	start := d.pos
	d.pos++ // 'd'
	entries := make(map[string]Value)
	for {
		b, ok := d.peek()
		if !ok {
			return Dict{}, d.fail("dict key or 'e'")
		}
		if b == 'e' {
			d.pos++
			return Dict{Entries: entries, Span: Span{Start: start, End: d.pos}}, nil
		}
		if b < '0' || b > '9' {
			return Dict{}, d.fail("string dict key")
		}

		keyAt := d.pos
		key, err := d.byteString()
		if err != nil {
			return Dict{}, err
		}
		if _, dup := entries[string(key)]; dup {
			return Dict{}, &ParseError{Offset: keyAt, Expected: "unique dict key", Found: strconv.Quote(string(key))}
		}

		v, err := d.value()
		if err != nil {
			return Dict{}, err
		}
		entries[string(key)] = v
	}
}
