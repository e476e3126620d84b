package transmission

import (
	"testing"
	"time"

	transmissionrpc "github.com/hekmon/transmissionrpc/v2"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func TestTr2State(t *testing.T) {
	done := time.Unix(1700000000, 0)
	cases := []struct {
		name        string
		status      transmissionrpc.TorrentStatus
		doneDate    *time.Time
		percentDone float64
		want        string
	}{
		{"stopped after verify", transmissionrpc.TorrentStatusStopped, nil, 1, "completed"},
		{"stopped with done date", transmissionrpc.TorrentStatusStopped, &done, 0.5, "completed"},
		{"stopped incomplete", transmissionrpc.TorrentStatusStopped, nil, 0.3, "paused"},
		{"check wait", transmissionrpc.TorrentStatusCheckWait, nil, 0, "checking"},
		{"checking", transmissionrpc.TorrentStatusCheck, nil, 0.2, "checking"},
		{"downloading", transmissionrpc.TorrentStatusDownload, nil, 0.2, "downloading"},
		{"seeding", transmissionrpc.TorrentStatusSeed, nil, 1, "seeding"},
		{"seed wait", transmissionrpc.TorrentStatusSeedWait, nil, 1, "seeding"},
		{"isolated done", transmissionrpc.TorrentStatusIsolated, nil, 1, "seeding"},
		{"isolated incomplete", transmissionrpc.TorrentStatusIsolated, nil, 0.4, "downloading"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			trtorrent := &transmissionrpc.Torrent{
				Status:      ptr(c.status),
				DoneDate:    c.doneDate,
				PercentDone: ptr(c.percentDone),
			}
			assert.Equal(t, c.want, tr2State(trtorrent))
		})
	}
	assert.Equal(t, "unknown", tr2State(&transmissionrpc.Torrent{}))
}

func TestTr2Torrent(t *testing.T) {
	trtorrent := &transmissionrpc.Torrent{
		HashString:  ptr("0123456789abcdef0123456789abcdef01234567"),
		Name:        ptr("Some.Movie.2023.1080p"),
		Status:      ptr(transmissionrpc.TorrentStatusStopped),
		PercentDone: ptr(1.0),
		DownloadDir: ptr("/data/movies"),
		Labels:      []string{"辅种", "category:movie"},
		Trackers: []*transmissionrpc.Tracker{
			{Announce: "https://tracker.example.com/announce.php?passkey=abc"},
			{Announce: "https://backup.example.com/announce.php?passkey=abc"},
		},
	}
	torrent := tr2Torrent(trtorrent)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", torrent.InfoHash)
	assert.Equal(t, "completed", torrent.State)
	assert.True(t, torrent.IsVerifiedPaused())
	assert.Equal(t, "/data/movies", torrent.SavePath)
	assert.Equal(t, "movie", torrent.Category)
	assert.Equal(t, "tracker.example.com", torrent.TrackerDomain)
	assert.Len(t, torrent.AllTrackers(), 2)
	assert.True(t, torrent.HasTag("辅种"))
}
