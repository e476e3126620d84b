package xseed

import (
	"context"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/util"
)

// Tracks newly added (paused) cross-seed torrents of each client,
// and starts them once the client has verified their data.
type Scheduler struct {
	clients map[string]client.Client
	store   QueueStore
	mu      sync.Mutex // protects queue
	polling sync.Mutex
	queue   map[string][]string // client name => pending info hashes
}

// Create a scheduler of clients. queue is the initially pending ids (eg. loaded from store).
// store may be nil, in which case the queue is only kept in memory.
func NewScheduler(clients []client.Client, queue map[string][]string, store QueueStore) *Scheduler {
	scheduler := &Scheduler{
		clients: map[string]client.Client{},
		store:   store,
		queue:   map[string][]string{},
	}
	for _, clientInstance := range clients {
		scheduler.clients[clientInstance.GetName()] = clientInstance
	}
	for clientName, ids := range queue {
		scheduler.queue[clientName] = util.UniqueSlice(util.CopySlice(ids))
	}
	return scheduler
}

func (scheduler *Scheduler) Enqueue(clientName string, id string) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if slices.Contains(scheduler.queue[clientName], id) {
		return
	}
	scheduler.queue[clientName] = append(scheduler.queue[clientName], id)
	scheduler.persist(clientName)
}

// Remove ids from the pending list of client. Return the number of removed ids.
func (scheduler *Scheduler) Remove(clientName string, ids ...string) int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.remove(clientName, ids...)
}

func (scheduler *Scheduler) remove(clientName string, ids ...string) int {
	pending := scheduler.queue[clientName]
	remaining := util.Filter(pending, func(id string) bool {
		return !slices.ContainsFunc(ids, func(removed string) bool {
			return strings.EqualFold(removed, id)
		})
	})
	removed := len(pending) - len(remaining)
	if removed > 0 {
		scheduler.setPending(clientName, remaining)
	}
	return removed
}

func (scheduler *Scheduler) setPending(clientName string, ids []string) {
	if len(ids) == 0 {
		delete(scheduler.queue, clientName)
	} else {
		scheduler.queue[clientName] = ids
	}
	scheduler.persist(clientName)
}

func (scheduler *Scheduler) persist(clientName string) {
	if scheduler.store == nil {
		return
	}
	if err := scheduler.store.SaveQueue(clientName, scheduler.queue[clientName]); err != nil {
		log.Errorf("Failed to save recheck queue of client %s: %v", clientName, err)
	}
}

// Pending ids of client.
func (scheduler *Scheduler) Pending(clientName string) []string {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return util.CopySlice(scheduler.queue[clientName])
}

// Copy of the whole queue.
func (scheduler *Scheduler) Queue() map[string][]string {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	queue := map[string][]string{}
	for clientName, ids := range scheduler.queue {
		queue[clientName] = util.CopySlice(ids)
	}
	return queue
}

// Check state of every pending torrent and start the verified ones.
// Return false without doing anything if another poll is in progress.
func (scheduler *Scheduler) Poll(ctx context.Context) bool {
	if !scheduler.polling.TryLock() {
		log.Debugf("Recheck poll already in progress")
		return false
	}
	defer scheduler.polling.Unlock()
	queue := scheduler.Queue()
	for _, clientName := range util.MapKeys(queue) {
		if ctx.Err() != nil {
			break
		}
		scheduler.pollClient(ctx, clientName, queue[clientName])
	}
	return true
}

func (scheduler *Scheduler) pollClient(ctx context.Context, clientName string, ids []string) {
	clientInstance := scheduler.clients[clientName]
	if clientInstance == nil {
		log.Debugf("Recheck: client %s not active, %d torrents kept pending", clientName, len(ids))
		return
	}
	logger := log.WithFields(log.Fields{"client": clientName})
	torrents, err := clientInstance.GetTorrents(ctx, ids)
	if err != nil {
		logger.Warnf("Recheck: failed to get torrents: %v", err)
		return
	}
	if len(torrents) == 0 {
		logger.Infof("Recheck: none of %d pending torrents exists in client, clear queue", len(ids))
		scheduler.Remove(clientName, ids...)
		return
	}
	done := []string{}
	for _, torrent := range torrents {
		id := torrent.InfoHash
		switch {
		case torrent.IsVerifiedPaused():
			if err := clientInstance.ResumeTorrents(ctx, []string{id}); err != nil {
				logger.Warnf("Recheck: failed to start torrent %s: %v", id, err)
				continue
			}
			logger.Infof("Recheck: started verified torrent %s (%s)", id, torrent.Name)
			recheckStartedTotal.WithLabelValues(clientName).Inc()
			done = append(done, id)
		case torrent.IsChecking() || !torrent.IsComplete():
			logger.Debugf("Recheck: torrent %s state=%s progress=%.2f, keep pending",
				id, torrent.State, torrent.Progress)
		default:
			logger.Debugf("Recheck: torrent %s already %s, drop from queue", id, torrent.State)
			done = append(done, id)
		}
	}
	if len(done) > 0 {
		scheduler.Remove(clientName, done...)
	}
}
