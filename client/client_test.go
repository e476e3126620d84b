package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTorrentIsVerifiedPaused(t *testing.T) {
	cases := []struct {
		name    string
		torrent Torrent
		want    bool
	}{
		{"paused complete", Torrent{State: "completed", Progress: 1}, true},
		{"paused by size", Torrent{State: "completed", Size: 100, SizeCompleted: 100}, true},
		{"paused partial", Torrent{State: "completed", Progress: 0.99}, false},
		{"checking", Torrent{State: "checking", Progress: 1}, false},
		{"seeding", Torrent{State: "seeding", Progress: 1}, false},
		{"paused incomplete", Torrent{State: "paused", Progress: 0.5}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.torrent.IsVerifiedPaused())
		})
	}
}

func TestTorrentTags(t *testing.T) {
	torrent := &Torrent{Tags: []string{"Movie", "辅种"}}
	assert.True(t, torrent.HasTag("movie"))
	assert.True(t, torrent.HasAnyTag([]string{"tv", "辅种"}))
	assert.False(t, torrent.HasAnyTag([]string{"tv"}))
	assert.False(t, torrent.HasAnyTag(nil))
}

func TestTorrentAllTrackers(t *testing.T) {
	torrent := &Torrent{
		Tracker:  "https://a.example.com/announce",
		Trackers: []string{"https://b.example.com/announce", "https://a.example.com/announce"},
	}
	assert.Equal(t, []string{"https://a.example.com/announce", "https://b.example.com/announce"},
		torrent.AllTrackers())
	assert.Empty(t, (&Torrent{}).AllTrackers())
}

func TestIsValidInfoHash(t *testing.T) {
	assert.True(t, IsValidInfoHash("0123456789abcdef0123456789ABCDEF01234567"))
	assert.False(t, IsValidInfoHash("0123"))
	assert.False(t, IsValidInfoHash("zz23456789abcdef0123456789abcdef01234567"))
}
