package bencode_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/bencode"
)

func decodeAndAssert(t *testing.T, input string, expected bencode.Value) {
	t.Helper()
	decoded, n, err := bencode.Decode([]byte(input))
	require.NoError(t, err, "input %q", input)
	assert.Equal(t, len(input), n, "bytes consumed for %q", input)
	if diff := cmp.Diff(expected, decoded); diff != "" {
		t.Errorf("decode %q mismatch (-want +got):\n%s", input, diff)
	}
}

func decodeAndFail(t *testing.T, input string, offset int) {
	t.Helper()
	_, _, err := bencode.Decode([]byte(input))
	var perr *bencode.ParseError
	require.True(t, errors.As(err, &perr), "input %q: expected ParseError, got %v", input, err)
	assert.Equal(t, offset, perr.Offset, "input %q: %v", input, err)
}

func TestDecodeInteger(t *testing.T) {
	decodeAndAssert(t, "i123e", bencode.Integer(123))
	decodeAndAssert(t, "i-3e", bencode.Integer(-3))
	decodeAndAssert(t, "i0e", bencode.Integer(0))
	decodeAndAssert(t, "i9223372036854775807e", bencode.Integer(9223372036854775807))
	decodeAndAssert(t, "i-9223372036854775808e", bencode.Integer(-9223372036854775808))
}

func TestDecodeMalformedInteger(t *testing.T) {
	decodeAndFail(t, "i03e", 1)
	decodeAndFail(t, "i-0e", 2)
	decodeAndFail(t, "ie", 1)
	decodeAndFail(t, "i-e", 2)
	decodeAndFail(t, "i12", 3)
	decodeAndFail(t, "i1x2e", 2)
	decodeAndFail(t, "i9223372036854775808e", 0)
}

func TestDecodeString(t *testing.T) {
	decodeAndAssert(t, "4:spam", bencode.ByteString("spam"))
	decodeAndAssert(t, "0:", bencode.ByteString{})
	decodeAndAssert(t, "3:\x00\xff\x10", bencode.ByteString{0x00, 0xff, 0x10})
	decodeAndAssert(t, "9:test test", bencode.ByteString("test test"))
}

func TestDecodeMalformedString(t *testing.T) {
	decodeAndFail(t, "5:spam", 2)
	decodeAndFail(t, "04:spam", 0)
	decodeAndFail(t, "4spam", 1)
	decodeAndFail(t, "4", 1)
}

func TestDecodeList(t *testing.T) {
	decodeAndAssert(t, "l4:spam4:eggse", bencode.List{bencode.ByteString("spam"), bencode.ByteString("eggs")})
	decodeAndAssert(t, "le", bencode.List{})
	decodeAndAssert(t, "lli1eel9:test testeleee", bencode.List{
		bencode.List{bencode.Integer(1)},
		bencode.List{bencode.ByteString("test test")},
		bencode.List{},
	})
}

func TestDecodeDictionary(t *testing.T) {
	decodeAndAssert(t, "d3:cow3:moo4:spam4:eggse", bencode.Dict{Entries: map[string]bencode.Value{
		"cow":  bencode.ByteString("moo"),
		"spam": bencode.ByteString("eggs"),
	}})

	decodeAndAssert(t, "d4:dictd9:space keyi4eee", bencode.Dict{Entries: map[string]bencode.Value{
		"dict": bencode.Dict{Entries: map[string]bencode.Value{"space key": bencode.Integer(4)}},
	}})

	decodeAndAssert(t, "de", bencode.Dict{})

	// out-of-order keys are tolerated
	decodeAndAssert(t, "d1:bi2e1:ai1ee", bencode.Dict{Entries: map[string]bencode.Value{
		"a": bencode.Integer(1),
		"b": bencode.Integer(2),
	}})
}

func TestDecodeMalformedContainers(t *testing.T) {
	decodeAndFail(t, "li13i2e", 4)
	decodeAndFail(t, "l4:spam", 7)
	decodeAndFail(t, "d3:cow3:moo", 11)
	decodeAndFail(t, "di1e3:mooe", 1)
	decodeAndFail(t, "dl1:aei1ee", 1)
	decodeAndFail(t, "d1:ai1e1:ai2ee", 7)
	decodeAndFail(t, "d1:ae", 4)
	decodeAndFail(t, "x", 0)
	decodeAndFail(t, "", 0)
}

func TestDecodeNestingLimit(t *testing.T) {
	nested := strings.Repeat("l", bencode.MaxDepth) + strings.Repeat("e", bencode.MaxDepth)
	_, err := bencode.DecodeAll([]byte(nested))
	require.NoError(t, err)

	decodeAndFail(t, "l"+nested, bencode.MaxDepth)
	decodeAndFail(t, strings.Repeat("d1:a", bencode.MaxDepth+1), 4*bencode.MaxDepth)

	_, _, err = bencode.Decode(bytes.Repeat([]byte("l"), 4<<20))
	var perr *bencode.ParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, bencode.MaxDepth, perr.Offset)
}

func TestDecodeSpans(t *testing.T) {
	input := []byte("d8:announce3:url4:infod4:name1:xe5:otherle1:zdee")
	v, n, err := bencode.Decode(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)

	root, ok := v.(bencode.Dict)
	require.True(t, ok)
	assert.Equal(t, bencode.Span{Start: 0, End: len(input)}, root.Span)

	info, ok := root.Entries["info"].(bencode.Dict)
	require.True(t, ok)
	assert.Equal(t, "d4:name1:xe", string(info.Span.Bytes(input)))
	assert.Equal(t, 11, info.Span.Len())

	empty, ok := root.Entries["z"].(bencode.Dict)
	require.True(t, ok)
	assert.Equal(t, "de", string(empty.Span.Bytes(input)))
}

func TestDecodeReportsConsumed(t *testing.T) {
	v, n, err := bencode.Decode([]byte("i42etrailing"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, bencode.Integer(42), v)
}

func TestDecodeAllRejectsTrailingData(t *testing.T) {
	_, err := bencode.DecodeAll([]byte("i42ex"))
	var perr *bencode.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4, perr.Offset)
	assert.Contains(t, perr.Error(), "end of input")

	v, err := bencode.DecodeAll([]byte("4:spam"))
	require.NoError(t, err)
	assert.Equal(t, bencode.ByteString("spam"), v)
}

func TestDecodeCopiesStrings(t *testing.T) {
	input := []byte("4:spam")
	v, err := bencode.DecodeAll(input)
	require.NoError(t, err)
	input[2] = 'S'
	assert.Equal(t, bencode.ByteString("spam"), v)
}

func BenchmarkDecodeTorrent(b *testing.B) {
	files := make(bencode.List, 200)
	for i := range files {
		files[i] = bencode.Dict{Entries: map[string]bencode.Value{
			"length": bencode.Integer(i * 1024),
			"path":   bencode.List{bencode.ByteString("dir"), bencode.ByteString("file.bin")},
		}}
	}
	data := bencode.Encode(bencode.Dict{Entries: map[string]bencode.Value{
		"announce": bencode.ByteString("http://tracker.example/announce"),
		"info": bencode.Dict{Entries: map[string]bencode.Value{
			"files":        files,
			"name":         bencode.ByteString("dir"),
			"piece length": bencode.Integer(262144),
			"pieces":       make(bencode.ByteString, 20*1000),
		}},
	}})

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bencode.DecodeAll(data); err != nil {
			b.Fatal(err)
		}
	}
}
