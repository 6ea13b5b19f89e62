package torrentfile

import (
	"crypto/sha1"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/golang/glog"

	"scout/bencode"
)

const hashLength = 20

type TorrentFile struct {
	Announce     string
	AnnounceList [][]string // tiers of fallback trackers, in priority order
	InfoHash     [20]byte
	Name         string
	PieceLength  int64
	PieceHashes  [][20]byte
	Files        Layout
	Length       int64 // sum of all file lengths
	Comment      string
	CreatedBy    string
	CreationDate time.Time
	Private      bool
	Source       string
}

// Layout is either SingleFile or MultiFile.
type Layout interface {
	layout()
}

type SingleFile struct {
	Length int64
}

type MultiFile struct {
	Files []FileEntry
}

type FileEntry struct {
	Path   []string // path components relative to Name
	Length int64
}

func (SingleFile) layout() {}
func (MultiFile) layout()  {}

// MetainfoError reports a torrent field that is missing or malformed.
type MetainfoError struct {
	Field  string
	Reason string
}

func (e *MetainfoError) Error() string {
	return fmt.Sprintf("metainfo: %s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &MetainfoError{Field: field, Reason: "missing"}
}

func wrongType(field, want string, got bencode.Value) error {
	return &MetainfoError{Field: field, Reason: fmt.Sprintf("expected %s, got %s", want, kindOf(got))}
}

func kindOf(v bencode.Value) string {
	switch v.(type) {
	case bencode.Integer:
		return "integer"
	case bencode.ByteString:
		return "string"
	case bencode.List:
		return "list"
	case bencode.Dict:
		return "dict"
	}
	return "nothing"
}

// Open reads and parses a .torrent file.
func Open(path string) (*TorrentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the raw contents of a .torrent file.
func Parse(data []byte) (*TorrentFile, error) {
	root, err := bencode.DecodeAll(data)
	if err != nil {
		return nil, err
	}
	return FromBencode(root, data)
}

// FromBencode builds a TorrentFile from a decoded tree. raw must be the
// buffer root was decoded from: the info hash is taken over the info dict's
// bytes exactly as they appear there, never over a re-encoding.
func FromBencode(root bencode.Value, raw []byte) (*TorrentFile, error) {
	top, ok := root.(bencode.Dict)
	if !ok {
		return nil, wrongType("torrent", "dict", root)
	}

	infoValue, ok := top.Get("info")
	if !ok {
		return nil, missing("info")
	}
	info, ok := infoValue.(bencode.Dict)
	if !ok {
		return nil, wrongType("info", "dict", infoValue)
	}
	if info.Span.Len() == 0 || info.Span.End > len(raw) {
		return nil, &MetainfoError{Field: "info", Reason: "byte span not found in source"}
	}
	infoHash := sha1.Sum(info.Span.Bytes(raw))

	tf := TorrentFile{InfoHash: infoHash}
	var err error

	if tf.Announce, err = requiredString(top, "announce", "announce"); err != nil {
		return nil, err
	}
	if tf.AnnounceList, err = announceList(top); err != nil {
		return nil, err
	}
	if tf.Comment, _, err = optionalString(top, "comment", "comment"); err != nil {
		return nil, err
	}
	if tf.CreatedBy, _, err = optionalString(top, "created by", "created by"); err != nil {
		return nil, err
	}
	creationDate, ok, err := optionalInt(top, "creation date", "creation date")
	if err != nil {
		return nil, err
	}
	if ok {
		tf.CreationDate = time.Unix(creationDate, 0).UTC()
	}

	if err = tf.readInfo(info); err != nil {
		return nil, err
	}

	glog.V(2).Infof("parsed torrent %q: info hash %x, %d pieces, %d bytes", tf.Name, tf.InfoHash, len(tf.PieceHashes), tf.Length)
	return &tf, nil
}

func (tf *TorrentFile) readInfo(info bencode.Dict) error {
	var err error
	if tf.Name, err = requiredString(info, "name", "info.name"); err != nil {
		return err
	}

	pieceLength, ok, err := optionalInt(info, "piece length", "info.piece length")
	if err != nil {
		return err
	}
	if !ok {
		return missing("info.piece length")
	}
	if pieceLength <= 0 {
		return &MetainfoError{Field: "info.piece length", Reason: fmt.Sprintf("must be positive, got %d", pieceLength)}
	}
	tf.PieceLength = pieceLength

	pieces, ok, err := optionalBytes(info, "pieces", "info.pieces")
	if err != nil {
		return err
	}
	if !ok {
		return missing("info.pieces")
	}
	if tf.PieceHashes, err = splitPieceHashes(pieces); err != nil {
		return err
	}

	private, ok, err := optionalInt(info, "private", "info.private")
	if err != nil {
		return err
	}
	tf.Private = ok && private == 1
	if tf.Source, _, err = optionalString(info, "source", "info.source"); err != nil {
		return err
	}

	_, hasLength := info.Get("length")
	_, hasFiles := info.Get("files")
	switch {
	case hasLength && hasFiles:
		return &MetainfoError{Field: "info", Reason: `both "length" and "files" present`}
	case hasLength:
		length, _, err := optionalInt(info, "length", "info.length")
		if err != nil {
			return err
		}
		if length < 0 {
			return &MetainfoError{Field: "info.length", Reason: fmt.Sprintf("must not be negative, got %d", length)}
		}
		tf.Files = SingleFile{Length: length}
		tf.Length = length
	case hasFiles:
		files, err := readFiles(info)
		if err != nil {
			return err
		}
		tf.Files = MultiFile{Files: files}
		for i, f := range files {
			if f.Length > math.MaxInt64-tf.Length {
				return &MetainfoError{Field: fmt.Sprintf("info.files[%d].length", i), Reason: "total length overflows int64"}
			}
			tf.Length += f.Length
		}
	default:
		return &MetainfoError{Field: "info", Reason: `neither "length" nor "files" present`}
	}
	return nil
}

func readFiles(info bencode.Dict) ([]FileEntry, error) {
	value, _ := info.Get("files")
	list, ok := value.(bencode.List)
	if !ok {
		return nil, wrongType("info.files", "list", value)
	}

	files := make([]FileEntry, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("info.files[%d]", i)
		entry, ok := item.(bencode.Dict)
		if !ok {
			return nil, wrongType(field, "dict", item)
		}

		length, ok, err := optionalInt(entry, "length", field+".length")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, missing(field + ".length")
		}
		if length < 0 {
			return nil, &MetainfoError{Field: field + ".length", Reason: fmt.Sprintf("must not be negative, got %d", length)}
		}

		pathValue, ok := entry.Get("path")
		if !ok {
			return nil, missing(field + ".path")
		}
		path, err := stringList(pathValue, field+".path")
		if err != nil {
			return nil, err
		}
		if len(path) == 0 {
			return nil, &MetainfoError{Field: field + ".path", Reason: "empty"}
		}

		files = append(files, FileEntry{Path: path, Length: length})
	}
	return files, nil
}

// announce-list is a list of tiers, each a list of tracker URLs.
func announceList(top bencode.Dict) ([][]string, error) {
	value, ok := top.Get("announce-list")
	if !ok {
		return nil, nil
	}
	list, ok := value.(bencode.List)
	if !ok {
		return nil, wrongType("announce-list", "list", value)
	}
	tiers := make([][]string, 0, len(list))
	for i, tier := range list {
		urls, err := stringList(tier, fmt.Sprintf("announce-list[%d]", i))
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, urls)
	}
	return tiers, nil
}

func splitPieceHashes(pieces []byte) ([][20]byte, error) {
	if len(pieces)%hashLength != 0 {
		return nil, &MetainfoError{Field: "info.pieces", Reason: fmt.Sprintf("length %d is not a multiple of %d", len(pieces), hashLength)}
	}

	numHashes := len(pieces) / hashLength
	hashes := make([][20]byte, numHashes)
	for i := 0; i < numHashes; i++ {
		copy(hashes[i][:], pieces[i*hashLength:(i+1)*hashLength])
	}
	return hashes, nil
}

func requiredString(d bencode.Dict, key, field string) (string, error) {
	s, ok, err := optionalString(d, key, field)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", missing(field)
	}
	return s, nil
}

func optionalString(d bencode.Dict, key, field string) (string, bool, error) {
	b, ok, err := optionalBytes(d, key, field)
	return string(b), ok, err
}

func optionalBytes(d bencode.Dict, key, field string) ([]byte, bool, error) {
	value, ok := d.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := value.(bencode.ByteString)
	if !ok {
		return nil, false, wrongType(field, "string", value)
	}
	return b, true, nil
}

func optionalInt(d bencode.Dict, key, field string) (int64, bool, error) {
	value, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, ok := value.(bencode.Integer)
	if !ok {
		return 0, false, wrongType(field, "integer", value)
	}
	return int64(n), true, nil
}

func stringList(value bencode.Value, field string) ([]string, error) {
	list, ok := value.(bencode.List)
	if !ok {
		return nil, wrongType(field, "list", value)
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(bencode.ByteString)
		if !ok {
			return nil, wrongType(fmt.Sprintf("%s[%d]", field, i), "string", item)
		}
		out[i] = string(s)
	}
	return out, nil
}
