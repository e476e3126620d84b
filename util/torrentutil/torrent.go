package torrentutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/util"
)

// Canonical identity of a torrent, either parsed from a local .torrent file
// or returned by a site hash api.
type TorrentRecord struct {
	SiteName    string   `json:"site_name,omitempty"`
	TorrentPath string   `json:"torrent_path,omitempty"` // local .torrent file
	FilePath    string   `json:"file_path,omitempty"`    // save path of contents in client
	InfoHash    string   `json:"info_hash,omitempty"`
	PiecesHash  string   `json:"pieces_hash"`
	TorrentId   string   `json:"torrent_id,omitempty"` // id in site
	Announce    string   `json:"announce,omitempty"`
	Trackers    []string `json:"trackers,omitempty"` // all trackers in announce-list order
	Name        string   `json:"name,omitempty"`
	Size        int64    `json:"size,omitempty"`
	Private     bool     `json:"private,omitempty"`
}

type FastresumeFile struct {
	Trackers [][]string `bencode:"trackers,omitempty"`
}

var (
	ErrParse  = errors.New("invalid torrent")
	ErrNoInfo = fmt.Errorf("%w: no info dict", ErrParse)
)

// Parse bencoded torrent contents. info_hash is sha1 of bencoded info dict;
// pieces_hash is sha1 of the whole raw info.pieces string.
// The returned error wraps ErrParse.
func Parse(torrentdata []byte) (*TorrentRecord, error) {
	metaInfo, err := metainfo.Load(bytes.NewReader(torrentdata))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(metaInfo.InfoBytes) == 0 {
		return nil, ErrNoInfo
	}
	info, err := metaInfo.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(info.Pieces) == 0 {
		return nil, fmt.Errorf("%w: no pieces", ErrParse)
	}
	record := &TorrentRecord{
		InfoHash:   metaInfo.HashInfoBytes().HexString(),
		PiecesHash: util.Sha1(info.Pieces),
		Announce:   metaInfo.Announce,
		Name:       info.BestName(),
		Size:       info.TotalLength(),
		Private:    info.Private != nil && *info.Private,
	}
	// [][]string, first index is tier: lower number has higher priority
	for _, tier := range metaInfo.UpvertedAnnounceList() {
		record.Trackers = append(record.Trackers, tier...)
	}
	record.Trackers = util.UniqueSlice(record.Trackers)
	return record, nil
}

// Read and parse a local .torrent file. If the file has no announce,
// trackers are read from the qBittorrent "<hash>.fastresume" file beside it, if exists.
func LoadFromPath(path string) (*TorrentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	record, err := Parse(data)
	if err != nil {
		return nil, err
	}
	record.TorrentPath = path
	if record.Announce == "" {
		resumePath := strings.TrimSuffix(path, constants.TORRENT_FILE_EXT) + constants.FASTRESUME_FILE_EXT
		if util.FileExists(resumePath) {
			if trackers, err := LoadResumeTrackers(resumePath); err != nil {
				log.Debugf("Failed to read trackers from %s: %v", resumePath, err)
			} else if len(trackers) > 0 {
				record.Trackers = util.UniqueSlice(append(record.Trackers, trackers...))
				record.Announce = trackers[0]
			}
		}
	}
	return record, nil
}

// Read trackers of a qBittorrent .fastresume file.
func LoadResumeTrackers(path string) ([]string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	var ff FastresumeFile
	d := bencode.NewDecoder(fd)
	if err = d.Decode(&ff); err != nil {
		return nil, err
	}
	var trackers []string
	for _, tier := range ff.Trackers {
		trackers = append(trackers, tier...)
	}
	return trackers, nil
}

// All trackers of the torrent, announce first.
func (record *TorrentRecord) AllTrackers() []string {
	trackers := []string{}
	if record.Announce != "" {
		trackers = append(trackers, record.Announce)
	}
	return util.UniqueSlice(append(trackers, record.Trackers...))
}

func (record *TorrentRecord) Print(name string, showAll bool) {
	fmt.Printf("%s : infohash = %s ; pieceshash = %s ; size = %s ; name = %q ; tracker = %s\n",
		name, record.InfoHash, record.PiecesHash, humanize.IBytes(uint64(record.Size)), record.Name, record.Announce)
	if showAll {
		fmt.Printf("! RawSize = %d ; Private = %t ; AllTrackers: %s\n",
			record.Size, record.Private, strings.Join(record.AllTrackers(), " | "))
	}
}
