package xseed

import (
	"sync"

	"github.com/sagan/ptxseed/util"
)

type CacheSet string

const (
	CacheSuccess        CacheSet = "success"
	CacheError          CacheSet = "error"
	CachePermanentError CacheSet = "permanentError"
)

var CacheSets = []CacheSet{CacheSuccess, CacheError, CachePermanentError}

// Identity tag of a concrete remote torrent.
func IdTag(siteName string, torrentId string) string {
	return siteName + ":" + torrentId
}

// Identity tag of a content in a site, independent of the torrent id.
func ContentTag(siteName string, piecesHash string) string {
	return siteName + ":" + piecesHash
}

// Three disjoint sets of identity tags: success, error (retryable) and permanentError.
// Adding a tag to a set removes it from the other two.
type CacheStore struct {
	mu   sync.Mutex
	sets map[CacheSet]map[string]int64 // tag => added time (unix)
}

// A single tag of a CacheStore set.
type CacheEntry struct {
	Kind      CacheSet `gorm:"primaryKey"`
	Tag       string   `gorm:"primaryKey"`
	CreatedAt int64    `gorm:"autoCreateTime:false"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

func NewCacheStore() *CacheStore {
	cache := &CacheStore{}
	cache.reset()
	return cache
}

func (cache *CacheStore) reset() {
	cache.sets = map[CacheSet]map[string]int64{}
	for _, set := range CacheSets {
		cache.sets[set] = map[string]int64{}
	}
}

func (cache *CacheStore) Contains(set CacheSet, tag string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, ok := cache.sets[set][tag]
	return ok
}

// Return the set that contains tag, if any.
func (cache *CacheStore) Find(tag string) (CacheSet, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	for _, set := range CacheSets {
		if _, ok := cache.sets[set][tag]; ok {
			return set, true
		}
	}
	return "", false
}

func (cache *CacheStore) Add(set CacheSet, tag string) {
	cache.add(set, tag, util.Now())
}

func (cache *CacheStore) add(set CacheSet, tag string, createdAt int64) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if _, ok := cache.sets[set][tag]; ok {
		return
	}
	for _, other := range CacheSets {
		delete(cache.sets[other], tag)
	}
	cache.sets[set][tag] = createdAt
}

// Empty all three sets.
func (cache *CacheStore) ClearAll() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.reset()
}

func (cache *CacheStore) Len(set CacheSet) int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.sets[set])
}

// Sorted tags of set.
func (cache *CacheStore) Tags(set CacheSet) []string {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return util.MapKeys(cache.sets[set])
}

// Snapshot of all entries, ordered by set then tag.
func (cache *CacheStore) Entries() []CacheEntry {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	entries := []CacheEntry{}
	for _, set := range CacheSets {
		for _, tag := range util.MapKeys(cache.sets[set]) {
			entries = append(entries, CacheEntry{Kind: set, Tag: tag, CreatedAt: cache.sets[set][tag]})
		}
	}
	return entries
}

func (cache *CacheStore) load(entries []CacheEntry) {
	for _, entry := range entries {
		cache.add(entry.Kind, entry.Tag, entry.CreatedAt)
	}
}
