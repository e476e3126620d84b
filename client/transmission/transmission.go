package transmission

// use https://github.com/hekmon/transmissionrpc
// protocol: https://github.com/transmission/transmission/blob/3.00/extras/rpc-spec.txt

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	transmissionrpc "github.com/hekmon/transmissionrpc/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/util"
)

type Client struct {
	Name         string
	ClientConfig *config.ClientConfigStruct
	Config       *config.ConfigStruct
	client       *transmissionrpc.Client
}

var torrentFields = []string{
	"doneDate", "downloadDir", "hashString", "id", "labels", "leftUntilDone", "name", "percentDone",
	"sizeWhenDone", "status", "totalSize", "trackers",
}

func (trclient *Client) GetCompletedTorrents(ctx context.Context) ([]*client.Torrent, error) {
	trtorrents, err := trclient.client.TorrentGet(ctx, torrentFields, nil)
	if err != nil {
		return nil, err
	}
	torrents := []*client.Torrent{}
	for i := range trtorrents {
		torrent := tr2Torrent(&trtorrents[i])
		if !torrent.IsComplete() || torrent.IsChecking() {
			continue
		}
		torrents = append(torrents, torrent)
	}
	return torrents, nil
}

func (trclient *Client) GetTorrents(ctx context.Context, infoHashes []string) ([]*client.Torrent, error) {
	if len(infoHashes) == 0 {
		return nil, nil
	}
	trtorrents, err := trclient.client.TorrentGetAllForHashes(ctx, infoHashes)
	if err != nil {
		return nil, err
	}
	return util.Map(trtorrents, func(trtorrent transmissionrpc.Torrent) *client.Torrent {
		return tr2Torrent(&trtorrent)
	}), nil
}

func (trclient *Client) AddTorrent(ctx context.Context, torrentContent []byte, option *client.TorrentOption) (
	string, error) {
	var downloadDir *string
	if option.SavePath != "" {
		downloadDir = &option.SavePath
	}
	torrentContentB64 := base64.StdEncoding.EncodeToString(torrentContent)
	payload := transmissionrpc.TorrentAddPayload{
		Paused:      &option.Pause,
		DownloadDir: downloadDir,
		MetaInfo:    &torrentContentB64,
	}
	// returned torrent will only have HashString, ID and Name fields set up.
	torrent, err := trclient.client.TorrentAdd(ctx, payload)
	if err != nil {
		return "", err
	}
	if torrent.HashString == nil || torrent.ID == nil {
		return "", fmt.Errorf("transmission returned invalid torrent")
	}
	// use label to simulate category
	labels := util.CopySlice(option.Tags)
	if option.Category != "" && option.Category != constants.NONE {
		labels = append(labels, "category:"+option.Category)
	}
	if len(labels) > 0 {
		err = trclient.client.TorrentSet(ctx, transmissionrpc.TorrentSetPayload{
			IDs:    []int64{*torrent.ID},
			Labels: labels,
		})
		if err != nil {
			log.Warnf("transmission %s failed to set labels of torrent %s: %v", trclient.Name, *torrent.HashString, err)
		}
	}
	return *torrent.HashString, nil
}

func (trclient *Client) ResumeTorrents(ctx context.Context, infoHashes []string) error {
	return trclient.client.TorrentStartHashes(ctx, infoHashes)
}

// Transmission does not provide an api to export .torrent file. Read it from local torrents dir if exists.
func (trclient *Client) ExportTorrentFile(ctx context.Context, infoHash string) ([]byte, error) {
	if trclient.ClientConfig.TorrentDir != "" {
		filename := filepath.Join(trclient.ClientConfig.TorrentDir, infoHash+constants.TORRENT_FILE_EXT)
		if util.FileExists(filename) {
			return os.ReadFile(filename)
		}
	}
	return nil, client.ErrUnsupported
}

func (trclient *Client) GetName() string {
	return trclient.Name
}

func (trclient *Client) GetClientConfig() *config.ClientConfigStruct {
	return trclient.ClientConfig
}

func (trclient *Client) Close() {
}

func NewClient(name string, clientConfig *config.ClientConfigStruct, config *config.ConfigStruct) (
	client.Client, error) {
	urlObj, err := url.Parse(clientConfig.Url)
	if err != nil {
		return nil, err
	}
	schema := urlObj.Scheme
	hostname := urlObj.Hostname()
	portStr := urlObj.Port()
	port := int64(80)
	isHttps := schema == "https"
	rpcUri := "" // Leave empty to use default "/transmission/rpc"
	if urlObj.Path != "" && urlObj.Path != "/" {
		rpcUri = urlObj.Path
	}
	if portStr != "" {
		port = util.ParseInt(portStr)
	} else if isHttps {
		port = 443
	}
	if (schema != "http" && schema != "https") || hostname == "" || port == 0 {
		return nil, fmt.Errorf("invalid tr url: %s", clientConfig.Url)
	}
	trclient, err := transmissionrpc.New(hostname, clientConfig.Username, clientConfig.Password,
		&transmissionrpc.AdvancedConfig{
			HTTPS:  isHttps,
			Port:   uint16(port),
			RPCURI: rpcUri,
		})
	if err != nil {
		return nil, err
	}
	return &Client{
		Name:         name,
		ClientConfig: clientConfig,
		Config:       config,
		client:       trclient,
	}, nil
}

func init() {
	client.Register(&client.RegInfo{
		Name:    "transmission",
		Creator: NewClient,
	})
}

func tr2State(trtorrent *transmissionrpc.Torrent) string {
	if trtorrent.Status == nil {
		return "unknown"
	}
	done := trtorrent.DoneDate != nil && trtorrent.DoneDate.Unix() > 0 ||
		trtorrent.PercentDone != nil && *trtorrent.PercentDone >= 1
	switch *trtorrent.Status {
	case transmissionrpc.TorrentStatusStopped:
		if done {
			return "completed"
		}
		return "paused"
	case transmissionrpc.TorrentStatusCheckWait, transmissionrpc.TorrentStatusCheck:
		return "checking"
	case transmissionrpc.TorrentStatusDownloadWait, transmissionrpc.TorrentStatusDownload:
		return "downloading"
	case transmissionrpc.TorrentStatusSeedWait, transmissionrpc.TorrentStatusSeed:
		return "seeding"
	case transmissionrpc.TorrentStatusIsolated:
		if done {
			return "seeding"
		}
		return "downloading"
	default:
		return "unknown"
	}
}

func tr2Torrent(trtorrent *transmissionrpc.Torrent) *client.Torrent {
	trackers := []string{}
	for _, tracker := range trtorrent.Trackers {
		trackers = append(trackers, tracker.Announce)
	}
	tracker := ""
	if len(trackers) > 0 {
		tracker = trackers[0]
	}
	torrent := &client.Torrent{
		InfoHash:      deref(trtorrent.HashString),
		Name:          deref(trtorrent.Name),
		TrackerDomain: util.ParseUrlHostname(tracker),
		Tracker:       tracker,
		Trackers:      trackers,
		State:         tr2State(trtorrent),
		SavePath:      deref(trtorrent.DownloadDir),
		Tags:          trtorrent.Labels,
		Progress:      deref(trtorrent.PercentDone),
	}
	if trtorrent.Status != nil {
		torrent.LowLevelState = fmt.Sprint(*trtorrent.Status)
	}
	if trtorrent.SizeWhenDone != nil {
		torrent.Size = int64(*trtorrent.SizeWhenDone / 8)
		torrent.SizeCompleted = int64(float64(*trtorrent.SizeWhenDone) * torrent.Progress / 8)
	}
	if trtorrent.TotalSize != nil {
		torrent.SizeTotal = int64(*trtorrent.TotalSize / 8)
	}
	for _, label := range torrent.Tags {
		if len(label) > 9 && label[:9] == "category:" {
			torrent.Category = label[9:]
		}
	}
	return torrent
}

func deref[T any](p *T) (v T) {
	if p != nil {
		v = *p
	}
	return
}

var (
	_ client.Client = (*Client)(nil)
)
