package helper

import (
	"math/rand"
	"strings"
	"time"
)

// PeerIDPrefix identifies this client in Azureus style: -<client><version>-
const PeerIDPrefix = "-SC0100-"

const symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"

// NewRand returns a clock-seeded source for callers that do not need
// reproducible peer IDs.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GeneratePeerID returns PeerIDPrefix followed by random symbols drawn from
// rng, 20 bytes in total.
func GeneratePeerID(rng *rand.Rand) [20]byte {
	peerID := [20]byte{}
	n := copy(peerID[:], PeerIDPrefix)
	for i := n; i < len(peerID); i++ {
		peerID[i] = symbols[rng.Intn(len(symbols))]
	}
	return peerID
}

// EscapeBytes percent-encodes every byte outside the unreserved set
// A-Za-z0-9-_.~, including spaces, which url.QueryEscape would turn into '+'.
func EscapeBytes(b []byte) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for _, c := range b {
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
