package torrentfile

import (
	"crypto/sha1"
	"fmt"
	"time"

	"scout/bencode"
)

// Trackers lists the tracker URLs to try, in order: announce first, then
// every URL of every announce-list tier. Repeated URLs are dropped.
func (tf *TorrentFile) Trackers() []string {
	seen := make(map[string]bool)
	var trackers []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		trackers = append(trackers, u)
	}

	add(tf.Announce)
	for _, tier := range tf.AnnounceList {
		for _, u := range tier {
			add(u)
		}
	}
	return trackers
}

func (tf *TorrentFile) NumPieces() int {
	return len(tf.PieceHashes)
}

// PieceBounds returns the [begin, end) byte range of a piece within the
// concatenated content. The last piece may be short. An index outside
// [0, NumPieces()) yields an empty range.
func (tf *TorrentFile) PieceBounds(index int) (int64, int64) {
	if index < 0 || index >= tf.NumPieces() {
		return 0, 0
	}
	begin := int64(index) * tf.PieceLength
	end := begin + tf.PieceLength
	if end > tf.Length {
		end = tf.Length
	}
	return begin, end
}

func (tf *TorrentFile) PieceSize(index int) int64 {
	begin, end := tf.PieceBounds(index)
	return end - begin
}

// CreateOptions describes a single-file torrent to build.
type CreateOptions struct {
	Announce     string
	AnnounceList [][]string
	Name         string
	PieceLength  int64
	Comment      string
	CreatedBy    string
	CreationDate time.Time
}

// Create builds the bencoded metainfo of a single-file torrent whose
// content is data.
func Create(opts CreateOptions, data []byte) ([]byte, error) {
	if opts.Announce == "" {
		return nil, missing("announce")
	}
	if opts.Name == "" {
		return nil, missing("info.name")
	}
	if opts.PieceLength <= 0 {
		return nil, &MetainfoError{Field: "info.piece length", Reason: fmt.Sprintf("must be positive, got %d", opts.PieceLength)}
	}

	pieces := make([]byte, 0, (int64(len(data))+opts.PieceLength-1)/opts.PieceLength*hashLength)
	for begin := int64(0); begin < int64(len(data)); begin += opts.PieceLength {
		end := begin + opts.PieceLength
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		hash := sha1.Sum(data[begin:end])
		pieces = append(pieces, hash[:]...)
	}

	info := bencode.Dict{Entries: map[string]bencode.Value{
		"name":         bencode.ByteString(opts.Name),
		"piece length": bencode.Integer(opts.PieceLength),
		"pieces":       bencode.ByteString(pieces),
		"length":       bencode.Integer(len(data)),
	}}
	top := bencode.Dict{Entries: map[string]bencode.Value{
		"announce": bencode.ByteString(opts.Announce),
		"info":     info,
	}}
	if len(opts.AnnounceList) > 0 {
		tiers := make(bencode.List, len(opts.AnnounceList))
		for i, tier := range opts.AnnounceList {
			urls := make(bencode.List, len(tier))
			for j, u := range tier {
				urls[j] = bencode.ByteString(u)
			}
			tiers[i] = urls
		}
		top.Entries["announce-list"] = tiers
	}
	if opts.Comment != "" {
		top.Entries["comment"] = bencode.ByteString(opts.Comment)
	}
	if opts.CreatedBy != "" {
		top.Entries["created by"] = bencode.ByteString(opts.CreatedBy)
	}
	if !opts.CreationDate.IsZero() {
		top.Entries["creation date"] = bencode.Integer(opts.CreationDate.Unix())
	}
	return bencode.Encode(top), nil
}
