package tracker

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	"github.com/golang/glog"

	"scout/announce"
	"scout/bencode"
	"scout/helper"
	"scout/torrentfile"
)

const DefaultPort = 6881

// NetworkError is a tracker that could not be reached or did not produce
// a decodable answer. The client moves on to the next tracker after one.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("tracker %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Session describes this client to the tracker. The peer ID is created once
// per session and reused for every announce.
type Session struct {
	PeerID     [20]byte
	Port       uint16
	Uploaded   int64
	Downloaded int64
	Left       int64
	Event      announce.Event
}

// NewSession starts a session for a download of tf that has not begun yet.
func NewSession(tf *torrentfile.TorrentFile, rng *rand.Rand) Session {
	return Session{
		PeerID: helper.GeneratePeerID(rng),
		Port:   DefaultPort,
		Left:   tf.Length,
		Event:  announce.Started,
	}
}

func (s Session) request(tf *torrentfile.TorrentFile) *announce.Request {
	req := announce.New(tf.InfoHash, s.PeerID, s.Port, s.Left)
	req.Uploaded = s.Uploaded
	req.Downloaded = s.Downloaded
	req.Event = s.Event
	return req
}

type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// Announce asks the torrent's trackers for peers, one at a time in
// tf.Trackers() order, and returns the first usable response.
//
// A tracker that is unreachable or answers with something malformed is
// skipped. A tracker that refuses with a "failure reason" ends the search
// unless Config.FallbackOnFailure is set. When every tracker fails, the last
// error is returned.
func (c *Client) Announce(tf *torrentfile.TorrentFile, s Session) (*announce.Response, error) {
	trackers := tf.Trackers()
	if len(trackers) == 0 {
		return nil, errors.New("torrent has no trackers")
	}

	req := s.request(tf)
	var lastErr error
	for _, trackerURL := range trackers {
		res, err := c.announceTo(trackerURL, req)
		if c.config.OnAttempt != nil {
			c.config.OnAttempt(trackerURL, err)
		}
		if err == nil {
			glog.V(1).Infof("tracker %s: %d peers, interval %ds", trackerURL, len(res.Peers), res.Interval)
			return res, nil
		}
		lastErr = err

		var failure *announce.FailureError
		if errors.As(err, &failure) && !c.config.FallbackOnFailure {
			return nil, err
		}
		glog.Warningf("tracker %s failed, trying next: %v", trackerURL, err)
	}
	return nil, lastErr
}

func (c *Client) announceTo(trackerURL string, req *announce.Request) (*announce.Response, error) {
	u, err := req.URL(trackerURL)
	if err != nil {
		return nil, &NetworkError{URL: trackerURL, Err: err}
	}
	glog.V(1).Infof("announcing to %s", trackerURL)

	body, err := c.get(u)
	if err != nil {
		return nil, &NetworkError{URL: trackerURL, Err: err}
	}

	res, err := announce.Read(body)
	if err != nil {
		var perr *bencode.ParseError
		if errors.As(err, &perr) {
			return nil, &NetworkError{URL: trackerURL, Err: err}
		}
		return nil, fmt.Errorf("tracker %s: %w", trackerURL, err)
	}
	return res, nil
}

func (c *Client) get(u string) ([]byte, error) {
	response, err := c.http.Get(u)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, c.config.MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.config.MaxResponseSize {
		return nil, fmt.Errorf("response larger than %d bytes", c.config.MaxResponseSize)
	}
	return body, nil
}
