package xseed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	pathspec "github.com/shibumi/go-pathspec"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/site"
	"github.com/sagan/ptxseed/site/tpl"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/util/torrentutil"
)

var (
	ErrNoActiveClients = errors.New("no active clients")
	ErrNoActiveSites   = errors.New("no active sites")
)

type Options struct {
	Tags           []string // tags of added torrents, besides the run tag
	Tag            string   // run tag. If empty, a random "xseed-xxxxxxxx" tag is used
	ExcludedLabels []string
	ExcludedPaths  []string // path prefixes or gitignore style patterns
	SaveTorrentDir string
	DryRun         bool
}

// Counters of a scan, for reporting.
type Summary struct {
	RunId       string
	Tag         string
	DryRun      bool
	StartTime   time.Time
	Duration    time.Duration
	Sources     int64 // client torrents whose pieces hash were queried
	Total       int64 // matches returned by sites
	New         int64 // matches neither present in client nor cached
	Existing    int64 // matches already present in client
	Success     int64 // torrents added to client
	Failed      int64
	Cached      int64 // matches skipped because of cache
	QueryErrors int64
}

// Drives a cross-seed scan of clients against sites.
type Orchestrator struct {
	Clients []client.Client
	Sites   []site.Site
	Recheck *Scheduler     // may be nil
	Store   CachePersister // may be nil
	Options Options
}

// A client torrent whose pieces hash is queried.
type source struct {
	torrent *client.Torrent
	record  *torrentutil.TorrentRecord
	origin  string
}

// Create an orchestrator. Sites without passkey are dropped with a warning.
func NewOrchestrator(clients []client.Client, sites []site.Site, recheck *Scheduler,
	store CachePersister, options Options) *Orchestrator {
	activeSites := util.Filter(sites, func(siteInstance site.Site) bool {
		if siteInstance.GetSiteConfig().Passkey == "" {
			log.Warnf("Site %s skipped: %v", siteInstance.GetName(), site.ErrSiteNoPasskey)
			return false
		}
		return true
	})
	return &Orchestrator{
		Clients: clients,
		Sites:   activeSites,
		Recheck: recheck,
		Store:   store,
		Options: options,
	}
}

// Scan all clients once. The cache is mutated in place and persisted once at the end.
// Per torrent, site and candidate errors are logged and never abort the scan.
func (o *Orchestrator) RunScan(ctx context.Context, cache *CacheStore) (*Summary, error) {
	if len(o.Clients) == 0 {
		return nil, ErrNoActiveClients
	}
	if len(o.Sites) == 0 {
		return nil, ErrNoActiveSites
	}
	summary := &Summary{
		RunId:     uuid.NewString(),
		Tag:       o.Options.Tag,
		DryRun:    o.Options.DryRun,
		StartTime: time.Now(),
	}
	if summary.Tag == "" {
		summary.Tag = "xseed-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	logger := log.WithFields(log.Fields{"runId": summary.RunId})
	logger.Infof("Start cross-seed scan of %d clients against %d sites (tag=%s, dryRun=%t)",
		len(o.Clients), len(o.Sites), summary.Tag, o.Options.DryRun)

	var err error
	for _, clientInstance := range o.Clients {
		if err = ctx.Err(); err != nil {
			break
		}
		o.scanClient(ctx, clientInstance, cache, summary)
		if o.Recheck != nil && !o.Options.DryRun {
			o.Recheck.Poll(ctx)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	if o.Store != nil && !o.Options.DryRun {
		if saveErr := o.Store.SaveCache(cache); saveErr != nil {
			logger.Errorf("Failed to save cache: %v", saveErr)
			if err == nil {
				err = errors.Wrap(saveErr, "failed to save cache")
			}
		}
	}
	summary.Duration = time.Since(summary.StartTime)
	scanDuration.Observe(summary.Duration.Seconds())
	logger.Infof("Cross-seed scan finished in %s: total=%d, new=%d, existing=%d, success=%d, failed=%d, cached=%d",
		summary.Duration.Round(time.Millisecond), summary.Total, summary.New, summary.Existing,
		summary.Success, summary.Failed, summary.Cached)
	return summary, err
}

func (o *Orchestrator) scanClient(ctx context.Context, clientInstance client.Client,
	cache *CacheStore, summary *Summary) {
	logger := log.WithFields(log.Fields{"runId": summary.RunId, "client": clientInstance.GetName()})
	torrents, err := clientInstance.GetCompletedTorrents(ctx)
	if err != nil {
		logger.Errorf("Failed to get client completed torrents: %v", err)
		return
	}
	if len(torrents) == 0 {
		logger.Infof("Client has no completed torrents")
		return
	}
	hashes, sources, present := o.collectSources(ctx, clientInstance, torrents, cache)
	summary.Sources += int64(len(hashes))
	logger.Infof("Client has %d completed torrents, %d unique pieces hashes to query", len(torrents), len(hashes))
	if len(hashes) == 0 {
		return
	}
	for _, siteInstance := range o.Sites {
		if ctx.Err() != nil {
			return
		}
		matches := o.querySite(ctx, siteInstance, hashes, summary)
		summary.Total += int64(len(matches))
		for _, match := range matches {
			if ctx.Err() != nil {
				return
			}
			o.processCandidate(ctx, clientInstance, siteInstance, match, sources, present, cache, summary)
		}
	}
}

// Collect pieces hashes (deduplicated, in order) of client torrents, the source torrent of every hash,
// and the locally present "{site}:{pieces_hash}" tags.
func (o *Orchestrator) collectSources(ctx context.Context, clientInstance client.Client,
	torrents []*client.Torrent, cache *CacheStore) (hashes []string, sources map[string]*source,
	present map[string]bool) {
	sources = map[string]*source{}
	present = map[string]bool{}
	clientConfig := clientInstance.GetClientConfig()
	logger := log.WithFields(log.Fields{"client": clientInstance.GetName()})
	for _, torrent := range torrents {
		if ctx.Err() != nil {
			break
		}
		if cache.Contains(CacheError, torrent.InfoHash) || cache.Contains(CachePermanentError, torrent.InfoHash) {
			logger.Tracef("Skip torrent %s: cached error", torrent.InfoHash)
			continue
		}
		if o.isExcluded(torrent) {
			logger.Tracef("Skip torrent %s (%s): excluded", torrent.InfoHash, torrent.Name)
			continue
		}
		record, err := loadTorrent(ctx, clientInstance, clientConfig, torrent.InfoHash)
		if err != nil {
			if errors.Is(err, torrentutil.ErrParse) {
				cache.Add(CachePermanentError, torrent.InfoHash)
			} else {
				cache.Add(CacheError, torrent.InfoHash)
			}
			logger.Debugf("Skip torrent %s (%s): %v", torrent.InfoHash, torrent.Name, err)
			continue
		}
		trackers := util.UniqueSlice(append(torrent.AllTrackers(), record.AllTrackers()...))
		origin := o.resolveOrigin(trackers)
		if origin == "" {
			logger.Debugf("Skip torrent %s (%s): no tracker", torrent.InfoHash, torrent.Name)
			continue
		}
		present[ContentTag(origin, record.PiecesHash)] = true
		if sources[record.PiecesHash] == nil {
			sources[record.PiecesHash] = &source{torrent: torrent, record: record, origin: origin}
			hashes = append(hashes, record.PiecesHash)
		}
	}
	return hashes, sources, present
}

func loadTorrent(ctx context.Context, clientInstance client.Client, clientConfig *config.ClientConfigStruct,
	infoHash string) (*torrentutil.TorrentRecord, error) {
	var err error
	if clientConfig != nil && clientConfig.TorrentDir != "" {
		var record *torrentutil.TorrentRecord
		filename := filepath.Join(clientConfig.TorrentDir, infoHash+constants.TORRENT_FILE_EXT)
		if record, err = torrentutil.LoadFromPath(filename); err == nil || !os.IsNotExist(err) {
			return record, err
		}
	} else {
		err = fmt.Errorf("torrent file of %s not found: torrentDir not configured", infoHash)
	}
	if clientConfig == nil || !clientConfig.ExportFallback {
		return nil, err
	}
	content, exportErr := clientInstance.ExportTorrentFile(ctx, infoHash)
	if exportErr != nil {
		return nil, errors.Wrapf(exportErr, "failed to export torrent (%v)", err)
	}
	return torrentutil.Parse(content)
}

func (o *Orchestrator) isExcluded(torrent *client.Torrent) bool {
	if len(o.Options.ExcludedLabels) > 0 {
		if torrent.HasAnyTag(o.Options.ExcludedLabels) ||
			torrent.Category != "" && util.FindInSlice(o.Options.ExcludedLabels, func(label string) bool {
				return strings.EqualFold(label, torrent.Category)
			}) != nil {
			return true
		}
	}
	if torrent.SavePath == "" || len(o.Options.ExcludedPaths) == 0 {
		return false
	}
	savePath := filepath.ToSlash(torrent.SavePath)
	patterns := []string{}
	for _, excludedPath := range o.Options.ExcludedPaths {
		excludedPath = filepath.ToSlash(excludedPath)
		if strings.ContainsAny(excludedPath, "*?[") {
			patterns = append(patterns, strings.TrimPrefix(excludedPath, "/"))
		} else if strings.HasPrefix(savePath, excludedPath) {
			return true
		}
	}
	if len(patterns) > 0 {
		excluded, err := pathspec.GitIgnore(patterns, strings.TrimPrefix(savePath, "/"))
		if err != nil {
			log.Warnf("Invalid excluded path patterns %v: %v", patterns, err)
			return false
		}
		return excluded
	}
	return false
}

// Resolve name of the site a torrent comes from by it's trackers.
// Prefer a site whose passkey is contained in any tracker url; then a site that the tracker domain belongs to.
// Otherwise the tracker domain itself is returned.
func (o *Orchestrator) resolveOrigin(trackers []string) string {
	if len(trackers) == 0 {
		return ""
	}
	for _, siteInstance := range o.Sites {
		passkey := siteInstance.GetSiteConfig().Passkey
		if passkey == "" {
			continue
		}
		for _, tracker := range trackers {
			if strings.Contains(tracker, passkey) {
				return siteInstance.GetName()
			}
		}
	}
	siteConfigs := util.Map(o.Sites, func(siteInstance site.Site) *config.SiteConfigStruct {
		return siteInstance.GetSiteConfig()
	})
	if sitename := tpl.GuessSiteByTrackers(trackers, siteConfigs); sitename != "" {
		return sitename
	}
	for _, tracker := range trackers {
		if domain := util.GetUrlDomain(tracker); domain != "" {
			return domain
		}
		if hostname := util.ParseUrlHostname(tracker); hostname != "" {
			return hostname
		}
	}
	return ""
}

// Query all hashes in chunks. A failed chunk is logged and skipped.
func (o *Orchestrator) querySite(ctx context.Context, siteInstance site.Site, hashes []string,
	summary *Summary) (matches []site.RemoteMatch) {
	logger := log.WithFields(log.Fields{"runId": summary.RunId, "site": siteInstance.GetName()})
	for i, chunk := range util.Chunk(hashes, constants.MAX_PIECES_HASH_BATCH) {
		if ctx.Err() != nil {
			break
		}
		chunkMatches, err := siteInstance.QueryPiecesHash(ctx, chunk)
		if err != nil {
			logger.Warnf("Failed to query pieces hash (chunk %d, %d hashes): %v", i, len(chunk), err)
			summary.QueryErrors++
			queryErrorsTotal.WithLabelValues(siteInstance.GetName()).Inc()
			continue
		}
		matches = append(matches, chunkMatches...)
	}
	logger.Debugf("Site returned %d matches of %d hashes", len(matches), len(hashes))
	return matches
}

func (o *Orchestrator) processCandidate(ctx context.Context, clientInstance client.Client, siteInstance site.Site,
	match site.RemoteMatch, sources map[string]*source, present map[string]bool,
	cache *CacheStore, summary *Summary) {
	sitename := siteInstance.GetName()
	if match.TorrentId == "" || match.PiecesHash == "" {
		return
	}
	logger := log.WithFields(log.Fields{
		"runId":  summary.RunId,
		"client": clientInstance.GetName(),
		"site":   sitename,
		"id":     match.TorrentId,
	})
	contentTag := ContentTag(sitename, match.PiecesHash)
	if present[contentTag] {
		logger.Tracef("Already seeding content %s from this site", match.PiecesHash)
		summary.Existing++
		matchesTotal.WithLabelValues(sitename, ResultExisting).Inc()
		return
	}
	idTag := IdTag(sitename, match.TorrentId)
	if set, ok := cache.Find(idTag); ok {
		logger.Tracef("Skip candidate: cached as %s", set)
		summary.Cached++
		matchesTotal.WithLabelValues(sitename, ResultCached).Inc()
		return
	}
	src := sources[match.PiecesHash]
	if src == nil {
		logger.Warnf("Site returned unknown pieces hash %s", match.PiecesHash)
		return
	}
	summary.New++
	fail := func(set CacheSet, format string, args ...any) {
		logger.Warnf(format, args...)
		cache.Add(set, idTag)
		summary.Failed++
		matchesTotal.WithLabelValues(sitename, ResultFailed).Inc()
	}

	content, err := siteInstance.DownloadTorrentById(ctx, match.TorrentId)
	record, err := ClassifyDownload(content, err)
	if err != nil {
		var failure *DownloadFailure
		if errors.As(err, &failure) {
			fail(failure.Set, "Failed to download torrent: %s", failure.Message)
		} else {
			fail(CacheError, "Failed to download torrent: %v", err)
		}
		return
	}
	if !strings.EqualFold(record.PiecesHash, match.PiecesHash) {
		fail(CachePermanentError, "Downloaded torrent %s has pieces hash %s, expected %s",
			record.InfoHash, record.PiecesHash, match.PiecesHash)
		return
	}
	existing, err := clientInstance.GetTorrents(ctx, []string{record.InfoHash})
	if err != nil {
		fail(CacheError, "Failed to check torrent %s in client: %v", record.InfoHash, err)
		return
	}
	if len(existing) > 0 {
		logger.Debugf("Torrent %s already exists in client", record.InfoHash)
		cache.Add(CacheSuccess, idTag)
		present[contentTag] = true
		summary.Existing++
		matchesTotal.WithLabelValues(sitename, ResultExisting).Inc()
		return
	}
	if o.Options.DryRun {
		logger.Infof("Dry run: would add torrent %s (%s) to %s", record.InfoHash, record.Name, src.torrent.SavePath)
		summary.Success++
		return
	}
	tags := append(util.CopySlice(o.Options.Tags), summary.Tag)
	id, err := clientInstance.AddTorrent(ctx, content, &client.TorrentOption{
		SavePath: src.torrent.SavePath,
		Tags:     tags,
		Pause:    true,
	})
	if err != nil {
		fail(CacheError, "Failed to add torrent %s to client: %v", record.InfoHash, err)
		return
	}
	logger.Infof("Added cross-seed torrent %s (%s) of %s, pending recheck", id, record.Name, src.torrent.InfoHash)
	cache.Add(CacheSuccess, idTag)
	present[contentTag] = true
	summary.Success++
	matchesTotal.WithLabelValues(sitename, ResultNew).Inc()
	if o.Recheck != nil {
		o.Recheck.Enqueue(clientInstance.GetName(), id)
	}
	if o.Options.SaveTorrentDir != "" {
		filename := filepath.Join(o.Options.SaveTorrentDir,
			fmt.Sprintf("%s.%s%s", sitename, match.TorrentId, constants.TORRENT_FILE_EXT))
		if err := atomic.WriteFile(filename, bytes.NewReader(content)); err != nil {
			logger.Warnf("Failed to save torrent file %s: %v", filename, err)
		}
	}
}
