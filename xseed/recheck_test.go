package xseed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagan/ptxseed/client"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
)

func newRecheckEnv(t *testing.T) (*fakeClient, *Scheduler, *memoryQueueStore) {
	fc := newFakeClient(t, "D1")
	fc.torrents[hashA] = &client.Torrent{InfoHash: hashA, State: "completed", Progress: 1}
	fc.torrents[hashB] = &client.Torrent{InfoHash: hashB, State: "checking", Progress: 0.4}
	store := &memoryQueueStore{}
	scheduler := NewScheduler([]client.Client{fc}, nil, store)
	scheduler.Enqueue("D1", hashA)
	scheduler.Enqueue("D1", hashB)
	return fc, scheduler, store
}

func TestPollPromotesVerified(t *testing.T) {
	fc, scheduler, store := newRecheckEnv(t)

	assert.True(t, scheduler.Poll(context.Background()))
	assert.Equal(t, []string{hashA}, fc.resumed)
	assert.Equal(t, []string{hashB}, scheduler.Pending("D1"))
	assert.Equal(t, []string{hashB}, store.queue["D1"])

	// still checking: no start call
	assert.True(t, scheduler.Poll(context.Background()))
	assert.Equal(t, []string{hashA}, fc.resumed)

	fc.setState(hashB, "completed", 1)
	assert.True(t, scheduler.Poll(context.Background()))
	assert.Equal(t, []string{hashA, hashB}, fc.resumed)
	assert.Empty(t, scheduler.Pending("D1"))
	assert.Empty(t, store.queue["D1"])
}

func TestPollKeepsIncomplete(t *testing.T) {
	fc, scheduler, _ := newRecheckEnv(t)
	fc.setState(hashA, "paused", 0.7) // verified, data incomplete

	scheduler.Poll(context.Background())
	assert.Empty(t, fc.resumed)
	assert.Equal(t, []string{hashA, hashB}, scheduler.Pending("D1"))
}

func TestPollDropsStartedTorrent(t *testing.T) {
	fc, scheduler, _ := newRecheckEnv(t)
	fc.setState(hashA, "seeding", 1)

	scheduler.Poll(context.Background())
	assert.Empty(t, fc.resumed)
	assert.Equal(t, []string{hashB}, scheduler.Pending("D1"))
}

func TestPollClientError(t *testing.T) {
	fc, scheduler, _ := newRecheckEnv(t)
	fc.getErr = errors.New("connection refused")

	assert.True(t, scheduler.Poll(context.Background()))
	assert.Equal(t, []string{hashA, hashB}, scheduler.Pending("D1"))

	fc.getErr = nil
	fc.resumeErr = errors.New("forbidden")
	scheduler.Poll(context.Background())
	assert.Equal(t, []string{hashA, hashB}, scheduler.Pending("D1"))
}

func TestPollAllRemoved(t *testing.T) {
	fc, scheduler, store := newRecheckEnv(t)
	scheduler.Enqueue("D1", hashC)
	delete(fc.torrents, hashA)
	delete(fc.torrents, hashB)

	scheduler.Poll(context.Background())
	assert.Empty(t, scheduler.Pending("D1"))
	assert.Empty(t, store.queue["D1"])
}

func TestPollUnknownClient(t *testing.T) {
	_, scheduler, _ := newRecheckEnv(t)
	scheduler.Enqueue("gone", hashC)

	assert.True(t, scheduler.Poll(context.Background()))
	assert.Equal(t, []string{hashC}, scheduler.Pending("gone"))
}

func TestPollSingleFlight(t *testing.T) {
	fc, scheduler, _ := newRecheckEnv(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fc.getTorrents = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	done := make(chan bool)
	go func() {
		done <- scheduler.Poll(context.Background())
	}()
	<-entered
	assert.False(t, scheduler.Poll(context.Background()))
	close(release)
	assert.True(t, <-done)
	assert.Equal(t, []string{hashA}, fc.resumed)
}

func TestEnqueueAndRemove(t *testing.T) {
	_, scheduler, store := newRecheckEnv(t)
	scheduler.Enqueue("D1", hashA)
	assert.Equal(t, []string{hashA, hashB}, scheduler.Pending("D1"))

	assert.Equal(t, 1, scheduler.Remove("D1", "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"))
	assert.Equal(t, []string{hashA}, scheduler.Pending("D1"))
	assert.Equal(t, []string{hashA}, store.queue["D1"])
	assert.Equal(t, 0, scheduler.Remove("D1", hashC))

	restored := NewScheduler(nil, map[string][]string{"D1": {hashA, hashA, hashC}}, nil)
	assert.Equal(t, map[string][]string{"D1": {hashA, hashC}}, restored.Queue())
}
