package announce

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"scout/helper"
)

type Event int

const (
	None Event = iota
	Started
	Stopped
	Completed
)

func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	}
	return ""
}

// Request holds the query parameters of one HTTP announce.
type Request struct {
	InfoHash   [20]byte
	PeerID     [20]byte
	Port       uint16
	Uploaded   int64
	Downloaded int64
	Left       int64
	Compact    bool
	Event      Event
}

func New(infoHash, peerID [20]byte, port uint16, left int64) *Request {
	return &Request{
		InfoHash: infoHash,
		PeerID:   peerID,
		Port:     port,
		Left:     left,
		Compact:  true,
	}
}

// Query renders the request as a URL query string.
//
// Parameters appear in this order:
//   - info_hash, peer_id (raw bytes, percent-encoded one by one)
//   - port, uploaded, downloaded, left (decimal)
//   - compact
//   - event (only when set)
func (r *Request) Query() string {
	var sb strings.Builder
	param := func(key, value string) {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(value)
	}

	param("info_hash", helper.EscapeBytes(r.InfoHash[:]))
	param("peer_id", helper.EscapeBytes(r.PeerID[:]))
	param("port", strconv.Itoa(int(r.Port)))
	param("uploaded", strconv.FormatInt(r.Uploaded, 10))
	param("downloaded", strconv.FormatInt(r.Downloaded, 10))
	param("left", strconv.FormatInt(r.Left, 10))
	if r.Compact {
		param("compact", "1")
	} else {
		param("compact", "0")
	}
	if r.Event != None {
		param("event", r.Event.String())
	}
	return sb.String()
}

// URL appends the request's query to an announce URL. Query parameters
// already on the announce URL, such as a passkey, are kept.
func (r *Request) URL(announce string) (string, error) {
	base, err := url.Parse(announce)
	if err != nil {
		return "", err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("unsupported tracker scheme %q", base.Scheme)
	}
	if base.RawQuery == "" {
		base.RawQuery = r.Query()
	} else {
		base.RawQuery += "&" + r.Query()
	}
	base.Fragment = ""
	return base.String(), nil
}
