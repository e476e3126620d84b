package xseed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/require"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/site"
	"github.com/sagan/ptxseed/util/torrentutil"
)

type torrentFixture struct {
	content    []byte
	infoHash   string
	piecesHash string
}

// Make a torrent of a 1 KiB single file. Torrents of same seed share the pieces (content);
// source makes the info hash differ, like torrents of same content from different sites.
func makeTorrent(t *testing.T, seed int, source string, announce string) torrentFixture {
	t.Helper()
	return makeNamedTorrent(t, seed, source, announce, "file.mkv")
}

func makeNamedTorrent(t *testing.T, seed int, source string, announce string, name string) torrentFixture {
	t.Helper()
	pieces := bytes.Repeat([]byte{byte(seed), byte(seed >> 8)}, 20)
	infoBytes, err := bencode.Marshal(metainfo.Info{
		Name:        name,
		Length:      1024,
		PieceLength: 512,
		Pieces:      pieces,
		Source:      source,
	})
	require.NoError(t, err)
	mi := metainfo.MetaInfo{InfoBytes: infoBytes, Announce: announce}
	buf := &bytes.Buffer{}
	require.NoError(t, mi.Write(buf))
	record, err := torrentutil.Parse(buf.Bytes())
	require.NoError(t, err)
	return torrentFixture{content: buf.Bytes(), infoHash: record.InfoHash, piecesHash: record.PiecesHash}
}

type addCall struct {
	infoHash string
	option   client.TorrentOption
}

type fakeClient struct {
	mu          sync.Mutex
	name        string
	config      *config.ClientConfigStruct
	torrents    map[string]*client.Torrent // all torrents in client
	exports     map[string][]byte
	added       []addCall
	resumed     []string
	getErr      error
	resumeErr   error
	getTorrents func() // called on every GetTorrents
}

func newFakeClient(t *testing.T, name string) *fakeClient {
	return &fakeClient{
		name:     name,
		config:   &config.ClientConfigStruct{Name: name, Type: "fake", TorrentDir: t.TempDir()},
		torrents: map[string]*client.Torrent{},
		exports:  map[string][]byte{},
	}
}

// Add a completed (seeding) torrent to client, and save it's .torrent file to client torrent dir.
func (c *fakeClient) addSeeding(t *testing.T, fixture torrentFixture, tracker string, savePath string) *client.Torrent {
	t.Helper()
	torrent := &client.Torrent{
		InfoHash: fixture.infoHash,
		Name:     "file.mkv",
		Tracker:  tracker,
		State:    "seeding",
		SavePath: savePath,
		Progress: 1,
	}
	c.torrents[fixture.infoHash] = torrent
	require.NoError(t, os.WriteFile(filepath.Join(c.config.TorrentDir, fixture.infoHash+constants.TORRENT_FILE_EXT),
		fixture.content, 0600))
	return torrent
}

func (c *fakeClient) setState(infoHash string, state string, progress float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.torrents[infoHash].State = state
	c.torrents[infoHash].Progress = progress
}

func (c *fakeClient) GetName() string {
	return c.name
}

func (c *fakeClient) GetClientConfig() *config.ClientConfigStruct {
	return c.config
}

func (c *fakeClient) GetCompletedTorrents(ctx context.Context) ([]*client.Torrent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	torrents := []*client.Torrent{}
	for _, torrent := range c.torrents {
		if torrent.State == "seeding" && torrent.IsComplete() {
			torrents = append(torrents, torrent)
		}
	}
	slices.SortFunc(torrents, func(a, b *client.Torrent) int {
		return bytes.Compare([]byte(a.InfoHash), []byte(b.InfoHash))
	})
	return torrents, nil
}

func (c *fakeClient) GetTorrents(ctx context.Context, infoHashes []string) ([]*client.Torrent, error) {
	if c.getTorrents != nil {
		c.getTorrents()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	torrents := []*client.Torrent{}
	for _, infoHash := range infoHashes {
		if torrent := c.torrents[infoHash]; torrent != nil {
			copied := *torrent
			torrents = append(torrents, &copied)
		}
	}
	return torrents, nil
}

func (c *fakeClient) AddTorrent(ctx context.Context, content []byte, option *client.TorrentOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, err := torrentutil.Parse(content)
	if err != nil {
		return "", err
	}
	c.added = append(c.added, addCall{infoHash: record.InfoHash, option: *option})
	state := "downloading"
	if option.Pause {
		state = "paused"
	}
	c.torrents[record.InfoHash] = &client.Torrent{
		InfoHash: record.InfoHash,
		Name:     record.Name,
		State:    state,
		SavePath: option.SavePath,
		Tags:     option.Tags,
	}
	return record.InfoHash, nil
}

func (c *fakeClient) ResumeTorrents(ctx context.Context, infoHashes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resumeErr != nil {
		return c.resumeErr
	}
	c.resumed = append(c.resumed, infoHashes...)
	for _, infoHash := range infoHashes {
		if torrent := c.torrents[infoHash]; torrent != nil {
			torrent.State = "seeding"
		}
	}
	return nil
}

func (c *fakeClient) ExportTorrentFile(ctx context.Context, infoHash string) ([]byte, error) {
	if content := c.exports[infoHash]; content != nil {
		return content, nil
	}
	return nil, client.ErrUnsupported
}

func (c *fakeClient) Close() {
}

type fakeSite struct {
	name      string
	config    *config.SiteConfigStruct
	index     map[string]string  // pieces hash => torrent id
	torrents  map[string][]byte  // torrent id => content
	failures  map[string]error   // torrent id => download error
	extra     []site.RemoteMatch // returned by every query besides the indexed matches
	queries   [][]string
	downloads []string
}

func newFakeSite(name string, passkey string, url string) *fakeSite {
	return &fakeSite{
		name:     name,
		config:   &config.SiteConfigStruct{Name: name, Type: "nexusphp", Url: url, Passkey: passkey},
		index:    map[string]string{},
		torrents: map[string][]byte{},
		failures: map[string]error{},
	}
}

// Make the site host a torrent of content fixture under id.
func (s *fakeSite) host(id string, fixture torrentFixture) {
	s.index[fixture.piecesHash] = id
	s.torrents[id] = fixture.content
}

func (s *fakeSite) GetName() string {
	return s.name
}

func (s *fakeSite) GetSiteConfig() *config.SiteConfigStruct {
	return s.config
}

func (s *fakeSite) QueryPiecesHash(ctx context.Context, piecesHashes []string) ([]site.RemoteMatch, error) {
	if len(piecesHashes) > constants.MAX_PIECES_HASH_BATCH {
		return nil, site.ErrBatchTooLarge
	}
	s.queries = append(s.queries, slices.Clone(piecesHashes))
	matches := []site.RemoteMatch{}
	for _, piecesHash := range piecesHashes {
		if id := s.index[piecesHash]; id != "" {
			matches = append(matches, site.RemoteMatch{SiteName: s.name, PiecesHash: piecesHash, TorrentId: id})
		}
	}
	return append(matches, s.extra...), nil
}

func (s *fakeSite) DownloadTorrentById(ctx context.Context, id string) ([]byte, error) {
	s.downloads = append(s.downloads, id)
	if err := s.failures[id]; err != nil {
		return nil, site.NewNetworkError(s.name, err)
	}
	if content := s.torrents[id]; content != nil {
		return content, nil
	}
	return []byte("<html><body>没有该ID的种子</body></html>"),
		site.NewNetworkError(s.name, errors.New("failed to fetch url: status=404"))
}

type memoryQueueStore struct {
	queue map[string][]string
}

func (m *memoryQueueStore) SaveQueue(clientName string, ids []string) error {
	if m.queue == nil {
		m.queue = map[string][]string{}
	}
	m.queue[clientName] = slices.Clone(ids)
	return nil
}

var (
	_ client.Client = (*fakeClient)(nil)
	_ site.Site     = (*fakeSite)(nil)
)
