package client

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/util"
)

// Backend independent view of a torrent in client.
// Every client implementation converts it's own torrent type into this struct.
type Torrent struct {
	InfoHash      string
	Name          string
	TrackerDomain string
	Tracker       string   // current (working) tracker url
	Trackers      []string // all tracker urls, if known
	State         string   // simplified state: seeding|downloading|completed|paused|checking|error|unknown
	LowLevelState string   // original state value returned by bt client
	Category      string
	SavePath      string
	Tags          []string
	Progress      float64 // 0 - 1
	Size          int64   // size of torrent files that selected for downloading
	SizeTotal     int64   // Total size of all file in the torrent (including unselected ones)
	SizeCompleted int64
}

type TorrentOption struct {
	Category     string
	SavePath     string
	Tags         []string
	SkipChecking bool
	Pause        bool
}

// The capability surface of a download client required by cross-seeding.
type Client interface {
	GetName() string
	GetClientConfig() *config.ClientConfigStruct
	// Return all fully downloaded torrents.
	GetCompletedTorrents(ctx context.Context) ([]*Torrent, error)
	// Return torrents of infoHashes. Torrents not found in client are omitted.
	GetTorrents(ctx context.Context, infoHashes []string) ([]*Torrent, error)
	// Add a torrent and return it's id (info-hash) in client.
	AddTorrent(ctx context.Context, torrentContent []byte, option *TorrentOption) (string, error)
	ResumeTorrents(ctx context.Context, infoHashes []string) error
	// Export the .torrent file contents of a torrent in client.
	ExportTorrentFile(ctx context.Context, infoHash string) ([]byte, error)
	Close()
}

type RegInfo struct {
	Name    string
	Creator func(string, *config.ClientConfigStruct, *config.ConfigStruct) (Client, error)
}

var (
	Registry = []*RegInfo{}

	ErrUnsupported = errors.New("unsupported by client")
)

func Register(regInfo *RegInfo) {
	Registry = append(Registry, regInfo)
}

func Find(name string) (*RegInfo, error) {
	for _, item := range Registry {
		if item.Name == name {
			return item, nil
		}
	}
	return nil, fmt.Errorf("didn't find client %q", name)
}

func CreateClient(name string) (Client, error) {
	clientConfig := config.GetClientConfig(name)
	if clientConfig == nil {
		return nil, fmt.Errorf("client %s not existed", name)
	}
	return CreateClientFromConfig(clientConfig, config.Get())
}

func CreateClientFromConfig(clientConfig *config.ClientConfigStruct, configData *config.ConfigStruct) (
	Client, error) {
	regInfo, err := Find(clientConfig.Type)
	if err != nil {
		return nil, fmt.Errorf("unsupported client type %s", clientConfig.Type)
	}
	return regInfo.Creator(clientConfig.Name, clientConfig, configData)
}

// All selected files are fully downloaded (or verified).
func (torrent *Torrent) IsComplete() bool {
	return torrent.Progress >= 1 || (torrent.Size > 0 && torrent.SizeCompleted >= torrent.Size)
}

// Paused (stopped) after a hash check that found all data. Such a torrent is safe to start.
func (torrent *Torrent) IsVerifiedPaused() bool {
	return torrent.State == "completed" && torrent.IsComplete()
}

func (torrent *Torrent) IsChecking() bool {
	return torrent.State == "checking"
}

func (torrent *Torrent) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	return slices.IndexFunc(torrent.Tags, func(t string) bool {
		return strings.ToLower(t) == tag
	}) != -1
}

func (torrent *Torrent) HasAnyTag(tags []string) bool {
	return slices.ContainsFunc(tags, torrent.HasTag)
}

// All known tracker urls of the torrent, current tracker first.
func (torrent *Torrent) AllTrackers() []string {
	trackers := []string{}
	if torrent.Tracker != "" {
		trackers = append(trackers, torrent.Tracker)
	}
	return util.UniqueSlice(append(trackers, torrent.Trackers...))
}

var infoHashV1Regex = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
var infoHashV2Regex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

func IsValidInfoHash(infoHash string) bool {
	return infoHashV1Regex.MatchString(infoHash) || infoHashV2Regex.MatchString(infoHash)
}

func PrintTorrents(torrents []*Torrent) {
	fmt.Printf("%-40s  %-40s  %-10s  %-7s  %s\n", "Name", "InfoHash", "State", "Process", "Tracker")
	for _, torrent := range torrents {
		util.PrintStringInWidth(torrent.Name, 40, true)
		fmt.Printf("  %-40s  %-10s  %-7s  %s\n",
			torrent.InfoHash,
			torrent.State,
			fmt.Sprintf("%d%%", int64(torrent.Progress*100)),
			torrent.TrackerDomain,
		)
	}
}
