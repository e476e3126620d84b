package qbittorrent

// qb web API: https://github.com/qbittorrent/qBittorrent/wiki/WebUI-API-(qBittorrent-4.1)

import (
	"context"
	"fmt"
	"strings"
	"sync"

	qbt "github.com/autobrr/go-qbittorrent"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/util/torrentutil"
)

type Client struct {
	Name         string
	ClientConfig *config.ClientConfigStruct
	Config       *config.ConfigStruct
	client       *qbt.Client
	logined      bool
	mu           sync.Mutex
}

func (qbclient *Client) login(ctx context.Context) error {
	qbclient.mu.Lock()
	defer qbclient.mu.Unlock()
	if qbclient.logined {
		return nil
	}
	if err := qbclient.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("failed to login to qbittorrent %s: %w", qbclient.Name, err)
	}
	qbclient.logined = true
	return nil
}

func (qbclient *Client) getTorrents(ctx context.Context, options qbt.TorrentFilterOptions) (
	[]*client.Torrent, error) {
	if err := qbclient.login(ctx); err != nil {
		return nil, err
	}
	options.IncludeTrackers = true
	qbtorrents, err := qbclient.client.GetTorrentsCtx(ctx, options)
	if err != nil {
		return nil, err
	}
	torrents := make([]*client.Torrent, 0, len(qbtorrents))
	for i := range qbtorrents {
		torrents = append(torrents, qb2Torrent(&qbtorrents[i]))
	}
	return torrents, nil
}

func (qbclient *Client) GetCompletedTorrents(ctx context.Context) ([]*client.Torrent, error) {
	return qbclient.getTorrents(ctx, qbt.TorrentFilterOptions{Filter: qbt.TorrentFilterCompleted})
}

func (qbclient *Client) GetTorrents(ctx context.Context, infoHashes []string) ([]*client.Torrent, error) {
	if len(infoHashes) == 0 {
		return nil, nil
	}
	return qbclient.getTorrents(ctx, qbt.TorrentFilterOptions{Hashes: infoHashes})
}

func (qbclient *Client) AddTorrent(ctx context.Context, torrentContent []byte, option *client.TorrentOption) (
	string, error) {
	record, err := torrentutil.Parse(torrentContent)
	if err != nil {
		return "", err
	}
	if err := qbclient.login(ctx); err != nil {
		return "", err
	}
	options := map[string]string{}
	if option.SavePath != "" {
		options["savepath"] = option.SavePath
		options["autoTMM"] = "false"
	}
	if option.Category != "" {
		options["category"] = option.Category
	}
	if len(option.Tags) > 0 {
		options["tags"] = strings.Join(option.Tags, ",")
	}
	// qb 5.0 renamed "paused" to "stopped"
	if option.Pause {
		options["paused"] = "true"
		options["stopped"] = "true"
	} else {
		options["paused"] = "false"
		options["stopped"] = "false"
	}
	if option.SkipChecking {
		options["skip_checking"] = "true"
	}
	log.Tracef("qbittorrent %s add torrent %s options=%v", qbclient.Name, record.InfoHash, options)
	if err := qbclient.client.AddTorrentFromMemoryCtx(ctx, torrentContent, options); err != nil {
		return "", err
	}
	return record.InfoHash, nil
}

func (qbclient *Client) ResumeTorrents(ctx context.Context, infoHashes []string) error {
	if err := qbclient.login(ctx); err != nil {
		return err
	}
	return qbclient.client.ResumeCtx(ctx, infoHashes)
}

func (qbclient *Client) ExportTorrentFile(ctx context.Context, infoHash string) ([]byte, error) {
	if err := qbclient.login(ctx); err != nil {
		return nil, err
	}
	return qbclient.client.ExportTorrentCtx(ctx, infoHash)
}

func (qbclient *Client) GetName() string {
	return qbclient.Name
}

func (qbclient *Client) GetClientConfig() *config.ClientConfigStruct {
	return qbclient.ClientConfig
}

func (qbclient *Client) Close() {
}

func NewClient(name string, clientConfig *config.ClientConfigStruct, config *config.ConfigStruct) (
	client.Client, error) {
	if clientConfig.Url == "" {
		return nil, fmt.Errorf("qbittorrent %s url not set", name)
	}
	qbclient := qbt.NewClient(qbt.Config{
		Host:     strings.TrimSuffix(clientConfig.Url, "/"),
		Username: clientConfig.Username,
		Password: clientConfig.Password,
	})
	return &Client{
		Name:         name,
		ClientConfig: clientConfig,
		Config:       config,
		client:       qbclient,
	}, nil
}

func init() {
	client.Register(&client.RegInfo{
		Name:    "qbittorrent",
		Creator: NewClient,
	})
}

func qbTorrentState(state string) string {
	switch state {
	case "stalledUP", "queuedUP", "forcedUP", "uploading":
		return "seeding"
	case "metaDL", "allocating", "stalledDL", "queuedDL", "forcedDL", "downloading":
		return "downloading"
	case "pausedUP", "stoppedUP":
		return "completed"
	case "pausedDL", "stoppedDL":
		return "paused"
	case "checkingUP", "checkingDL", "checkingResumeData", "moving":
		return "checking"
	case "error", "missingFiles", "unknown":
		return "error"
	default:
		return "unknown"
	}
}

func qb2Torrent(qbtorrent *qbt.Torrent) *client.Torrent {
	trackers := []string{}
	for _, tracker := range qbtorrent.Trackers {
		// skip pseudo trackers
		if strings.HasPrefix(tracker.Url, "** [") {
			continue
		}
		trackers = append(trackers, tracker.Url)
	}
	return &client.Torrent{
		InfoHash:      qbtorrent.Hash,
		Name:          qbtorrent.Name,
		TrackerDomain: util.ParseUrlHostname(qbtorrent.Tracker),
		Tracker:       qbtorrent.Tracker,
		Trackers:      trackers,
		State:         qbTorrentState(string(qbtorrent.State)),
		LowLevelState: string(qbtorrent.State),
		Category:      qbtorrent.Category,
		SavePath:      qbtorrent.SavePath,
		Tags:          util.SplitCsv(qbtorrent.Tags),
		Progress:      qbtorrent.Progress,
		Size:          qbtorrent.Size,
		SizeTotal:     qbtorrent.TotalSize,
		SizeCompleted: qbtorrent.Completed,
	}
}

var (
	_ client.Client = (*Client)(nil)
)
