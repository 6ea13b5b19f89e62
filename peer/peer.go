package peer

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"

	"scout/bencode"
)

// Each compact peer is 6 bytes long: 4 for the IPv4 address and 2 for the
// port, both in network byte order.
const compactSize = 6

type Peer struct {
	IP   net.IP
	Port uint16
	ID   []byte // only set by trackers answering in the non-compact format
}

// Unmarshal a compact peers list from the tracker.
//
// The list has to be a multiple of 6 bytes; otherwise a *bencode.ParseError
// points at the start of the trailing partial record.
func Unmarshal(peersBinary []byte) ([]Peer, error) {
	if rem := len(peersBinary) % compactSize; rem != 0 {
		return nil, &bencode.ParseError{
			Offset:   len(peersBinary) - rem,
			Expected: fmt.Sprintf("%d-byte peer record", compactSize),
			Found:    fmt.Sprintf("%d trailing bytes", rem),
		}
	}

	numPeers := len(peersBinary) / compactSize
	peers := make([]Peer, numPeers)
	for i := 0; i < numPeers; i++ {
		offset := i * compactSize
		peers[i].IP = net.IPv4(peersBinary[offset], peersBinary[offset+1], peersBinary[offset+2], peersBinary[offset+3]).To4()
		peers[i].Port = binary.BigEndian.Uint16(peersBinary[offset+4 : offset+6])
	}
	return peers, nil
}

// Marshal peers into the compact format. A peer whose address is not IPv4
// is written as 0.0.0.0.
func Marshal(peers []Peer) []byte {
	buf := make([]byte, len(peers)*compactSize)
	for i, p := range peers {
		offset := i * compactSize
		if ip4 := p.IP.To4(); ip4 != nil {
			copy(buf[offset:offset+4], ip4)
		}
		binary.BigEndian.PutUint16(buf[offset+4:offset+6], p.Port)
	}
	return buf
}

// Return Peer ip and port with suitable format - ip:port
func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(int(p.Port)))
}
