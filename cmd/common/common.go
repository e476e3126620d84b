package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/client"
	"github.com/sagan/ptxseed/cmd"
	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/flags"
	"github.com/sagan/ptxseed/notify"
	"github.com/sagan/ptxseed/site"
	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/xseed"
)

// Everything a cross-seed command needs, created from config.
type Engine struct {
	Config       *config.ConfigStruct
	Clients      []client.Client
	Sites        []site.Site
	Store        *xseed.Store
	Recheck      *xseed.Scheduler
	Orchestrator *xseed.Orchestrator
	Senders      []notify.Sender
}

type EngineOptions struct {
	ClientNames []string // if empty, use xseed.clients config, or all clients
	SiteNames   []string // if empty, use xseed.sites config, or all sites
	NoSites     bool     // do not create sites (eg. for recheck only commands)
	DryRun      bool
}

func OpenStore() (*xseed.Store, error) {
	return xseed.OpenStore(config.Get().Xseed.Database)
}

func NewEngine(options EngineOptions) (*Engine, error) {
	configData := config.Get()
	if flags.LogFile == "" && configData.LogFile != "" {
		cmd.SetLogFile(configData.LogFile)
	}
	engine := &Engine{Config: configData}

	clientNames := options.ClientNames
	if len(clientNames) == 0 {
		clientNames = configData.Xseed.Clients
	}
	if len(clientNames) == 0 {
		for _, clientConfig := range configData.Clients {
			clientNames = append(clientNames, clientConfig.Name)
		}
	}
	for _, name := range clientNames {
		clientInstance, err := client.CreateClient(name)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to create client %s: %w", name, err)
		}
		engine.Clients = append(engine.Clients, clientInstance)
	}

	if !options.NoSites {
		siteNames := options.SiteNames
		if len(siteNames) == 0 {
			siteNames = configData.Xseed.Sites
		}
		if len(siteNames) == 0 {
			for _, siteConfig := range configData.Sites {
				siteNames = append(siteNames, siteConfig.GetName())
			}
		}
		for _, name := range siteNames {
			siteInstance, err := site.CreateSite(name)
			if err != nil {
				engine.Close()
				return nil, fmt.Errorf("failed to create site %s: %w", name, err)
			}
			engine.Sites = append(engine.Sites, siteInstance)
		}
	}

	if dir := configData.Xseed.SaveTorrentDir; dir != "" && !options.DryRun && !util.DirExists(dir) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to create saveTorrentDir %s: %w", dir, err)
		}
	}

	store, err := OpenStore()
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.Store = store
	queue, err := store.LoadQueue()
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.Recheck = xseed.NewScheduler(engine.Clients, queue, store)
	engine.Orchestrator = xseed.NewOrchestrator(engine.Clients, engine.Sites, engine.Recheck, store, xseed.Options{
		Tags:           configData.Xseed.Tags,
		Tag:            configData.Xseed.Tag,
		ExcludedLabels: configData.Xseed.ExcludedLabels,
		ExcludedPaths:  configData.Xseed.ExcludedPaths,
		SaveTorrentDir: configData.Xseed.SaveTorrentDir,
		DryRun:         options.DryRun,
	})
	engine.Senders = notify.Senders(configData.Xseed.WebhookUrl)
	return engine, nil
}

// Load the cache, run a scan and send the summary.
func (engine *Engine) RunScan(ctx context.Context, clearCache bool) (*xseed.Summary, error) {
	cache, err := engine.Store.LoadCache(engine.Config.Xseed.ErrorRetryIntervalValue)
	if err != nil {
		return nil, err
	}
	if clearCache {
		log.Warnf("Clear cache before scan")
		cache.ClearAll()
	}
	summary, err := engine.Orchestrator.RunScan(ctx, cache)
	if summary != nil {
		body, renderErr := notify.Render(engine.Config.Xseed.SummaryTemplate, summary)
		if renderErr != nil {
			log.Errorf("%v", renderErr)
		} else {
			notify.SendAll(context.WithoutCancel(ctx), engine.Senders, notify.DEFAULT_TITLE, body)
		}
	}
	return summary, err
}

func (engine *Engine) Close() {
	for _, clientInstance := range engine.Clients {
		clientInstance.Close()
	}
	if engine.Store != nil {
		if err := engine.Store.Close(); err != nil {
			log.Debugf("Failed to close store: %v", err)
		}
	}
	site.Exit()
}

// Context cancelled on SIGINT / SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Whether err is caused by cancellation via SignalContext.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
