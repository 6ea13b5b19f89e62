package announce

import (
	"fmt"
	"net"

	"scout/bencode"
	"scout/peer"
)

// GET request to tracker URL returns:
//   - interval (seconds to wait before announcing again)
//   - min interval (optional, announces must not be more frequent)
//   - complete, incomplete (seeders and leechers)
//   - peers (compact string or list of dicts)
type Response struct {
	Interval    int64
	MinInterval int64 // zero if the tracker did not send one
	Complete    int64
	Incomplete  int64
	Peers       []peer.Peer
	TrackerID   string
	Warning     string
}

// FailureError is a tracker refusing the announce with a "failure reason".
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("tracker failure: %s", e.Reason)
}

// ResponseError is a tracker answer that is valid bencode but lacks a
// required field or has one of the wrong type.
type ResponseError struct {
	Field  string
	Reason string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("tracker response: %s: %s", e.Field, e.Reason)
}

// Read decodes a tracker response body.
func Read(body []byte) (*Response, error) {
	root, err := bencode.DecodeAll(body)
	if err != nil {
		return nil, err
	}
	dict, ok := root.(bencode.Dict)
	if !ok {
		return nil, &ResponseError{Field: "response", Reason: "not a dict"}
	}

	if v, ok := dict.Get("failure reason"); ok {
		reason, ok := v.(bencode.ByteString)
		if !ok {
			return nil, &ResponseError{Field: "failure reason", Reason: "not a string"}
		}
		return nil, &FailureError{Reason: string(reason)}
	}

	res := Response{}
	var present bool
	if res.Interval, present, err = integer(dict, "interval"); err != nil {
		return nil, err
	}
	if !present {
		return nil, &ResponseError{Field: "interval", Reason: "missing"}
	}
	if res.MinInterval, _, err = integer(dict, "min interval"); err != nil {
		return nil, err
	}
	if res.Complete, _, err = integer(dict, "complete"); err != nil {
		return nil, err
	}
	if res.Incomplete, _, err = integer(dict, "incomplete"); err != nil {
		return nil, err
	}
	if res.TrackerID, err = text(dict, "tracker id"); err != nil {
		return nil, err
	}
	if res.Warning, err = text(dict, "warning message"); err != nil {
		return nil, err
	}

	peers, ok := dict.Get("peers")
	if !ok {
		return nil, &ResponseError{Field: "peers", Reason: "missing"}
	}
	switch peers := peers.(type) {
	case bencode.ByteString:
		if res.Peers, err = peer.Unmarshal(peers); err != nil {
			return nil, err
		}
	case bencode.List:
		if res.Peers, err = readPeerList(peers); err != nil {
			return nil, err
		}
	default:
		return nil, &ResponseError{Field: "peers", Reason: "neither a string nor a list"}
	}
	return &res, nil
}

// Non-compact peers are dicts with "ip", "port" and an optional "peer id".
func readPeerList(list bencode.List) ([]peer.Peer, error) {
	peers := make([]peer.Peer, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("peers[%d]", i)
		entry, ok := item.(bencode.Dict)
		if !ok {
			return nil, &ResponseError{Field: field, Reason: "not a dict"}
		}

		ipValue, ok := entry.Get("ip")
		if !ok {
			return nil, &ResponseError{Field: field + ".ip", Reason: "missing"}
		}
		ipText, ok := ipValue.(bencode.ByteString)
		if !ok {
			return nil, &ResponseError{Field: field + ".ip", Reason: "not a string"}
		}
		ip := net.ParseIP(string(ipText)).To4()
		if ip == nil {
			return nil, &ResponseError{Field: field + ".ip", Reason: fmt.Sprintf("%q is not an IPv4 address", ipText)}
		}

		port, present, err := integer(entry, "port")
		if err != nil {
			return nil, &ResponseError{Field: field + ".port", Reason: "not an integer"}
		}
		if !present {
			return nil, &ResponseError{Field: field + ".port", Reason: "missing"}
		}
		if port < 0 || port > 65535 {
			return nil, &ResponseError{Field: field + ".port", Reason: fmt.Sprintf("%d out of range", port)}
		}

		p := peer.Peer{IP: ip, Port: uint16(port)}
		if idValue, ok := entry.Get("peer id"); ok {
			id, ok := idValue.(bencode.ByteString)
			if !ok {
				return nil, &ResponseError{Field: field + ".peer id", Reason: "not a string"}
			}
			p.ID = []byte(id)
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func integer(d bencode.Dict, key string) (int64, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(bencode.Integer)
	if !ok {
		return 0, false, &ResponseError{Field: key, Reason: "not an integer"}
	}
	return int64(n), true, nil
}

func text(d bencode.Dict, key string) (string, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", nil
	}
	s, ok := v.(bencode.ByteString)
	if !ok {
		return "", &ResponseError{Field: key, Reason: "not a string"}
	}
	return string(s), nil
}
