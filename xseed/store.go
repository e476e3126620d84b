package xseed

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sagan/ptxseed/util"
)

// gorm "recheck_queue" table
type QueueEntry struct {
	Client    string `gorm:"primaryKey"`
	InfoHash  string `gorm:"primaryKey"`
	Seq       int64
	CreatedAt int64 `gorm:"autoCreateTime:false"`
}

func (QueueEntry) TableName() string {
	return "recheck_queue"
}

// Persists the cache sets and the recheck queue in a sqlite database.
type Store struct {
	db *gorm.DB
}

// Persistence of the recheck queue.
type QueueStore interface {
	SaveQueue(clientName string, ids []string) error
}

// Persistence of the cache.
type CachePersister interface {
	SaveCache(cache *CacheStore) error
}

// Writers (scan and recheck poll in daemon) share a single connection,
// and wait up to 5s on a lock held by another process.
func OpenStore(dbfile string) (*Store, error) {
	dsn := dbfile
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbfile)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database connection")
	}
	sqlDB.SetMaxOpenConns(1)
	if err = db.AutoMigrate(&CacheEntry{}, &QueueEntry{}); err != nil {
		return nil, errors.Wrap(err, "database schema init error")
	}
	return &Store{db: db}, nil
}

// Load the persisted cache. Error (retryable) tags older than retryAfter are dropped,
// so they will be retried. If retryAfter is 0, all error tags are dropped.
func (store *Store) LoadCache(retryAfter time.Duration) (*CacheStore, error) {
	var entries []CacheEntry
	if err := store.db.Order("kind, tag").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load cache")
	}
	deadline := util.Now() - int64(retryAfter/time.Second)
	expired := 0
	entries = util.Filter(entries, func(entry CacheEntry) bool {
		if entry.Kind == CacheError && (retryAfter <= 0 || entry.CreatedAt <= deadline) {
			expired++
			return false
		}
		return true
	})
	if expired > 0 {
		log.Debugf("Dropped %d expired error cache tags", expired)
	}
	cache := NewCacheStore()
	cache.load(entries)
	return cache, nil
}

// Replace the persisted cache with a snapshot of cache, in one transaction.
func (store *Store) SaveCache(cache *CacheStore) error {
	entries := cache.Entries()
	return store.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CacheEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 500).Error
	})
}

func (store *Store) ClearCache() error {
	return store.db.Where("1 = 1").Delete(&CacheEntry{}).Error
}

// Return pending ids of every client, in enqueue order.
func (store *Store) LoadQueue() (map[string][]string, error) {
	var entries []QueueEntry
	if err := store.db.Order("client, seq").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load recheck queue")
	}
	queue := map[string][]string{}
	for _, entry := range entries {
		queue[entry.Client] = append(queue[entry.Client], entry.InfoHash)
	}
	return queue, nil
}

// Replace the persisted pending ids of a client.
func (store *Store) SaveQueue(clientName string, ids []string) error {
	now := util.Now()
	return store.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client = ?", clientName).Delete(&QueueEntry{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		entries := []QueueEntry{}
		for i, id := range ids {
			entries = append(entries, QueueEntry{Client: clientName, InfoHash: id, Seq: int64(i), CreatedAt: now})
		}
		return tx.Create(&entries).Error
	})
}

func (store *Store) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ QueueStore     = (*Store)(nil)
	_ CachePersister = (*Store)(nil)
)
