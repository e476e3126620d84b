package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sagan/ptxseed/util"
)

const (
	DEFAULT_SITE_QUERY_GAP      = int64(1)
	DEFAULT_SITE_API_PATH       = "api/pieces-hash"
	DEFAULT_XSEED_SCAN_INTERVAL = 12 * time.Hour
	DEFAULT_RECHECK_INTERVAL    = 5 * time.Minute
	DEFAULT_DATABASE_FILE       = "ptxseed.db"
	PROXY_NONE                  = "none"
)

var ErrUnsupportedFormat = errors.New("unsupported config file format. Neither toml nor yaml")

// Tags applied to every added cross-seed torrent, besides the per-run tag.
var DEFAULT_XSEED_TAGS = []string{"已整理", "辅种"}

type ClientConfigStruct struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Disabled bool   `yaml:"disabled"`
	Url      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Dir of "<info-hash>.torrent" files of this client. E.g. qBittorrent "BT_backup" dir.
	TorrentDir string `yaml:"torrentDir"`
	// If true, export .torrent from client when it's not found in TorrentDir.
	ExportFallback bool `yaml:"exportFallback"`
}

type SiteConfigStruct struct {
	Type      string   `yaml:"type"`
	Name      string   `yaml:"name"`
	Comment   string   `yaml:"comment"`
	Aliases   []string `yaml:"aliases"`
	Disabled  bool     `yaml:"disabled"`
	Url       string   `yaml:"url"`
	Domains   []string `yaml:"domains"`
	Passkey   string   `yaml:"passkey"`
	Cookie    string   `yaml:"cookie"`
	UserAgent string   `yaml:"userAgent"`
	UseProxy  bool     `yaml:"useProxy"`
	Proxy     string   `yaml:"proxy"`
	QueryGap  int64    `yaml:"queryGap"` // seconds
	ApiPath   string   `yaml:"apiPath"`
}

type XseedConfigStruct struct {
	Tags               []string `yaml:"tags"`
	Tag                string   `yaml:"tag"`
	ExcludedLabels     []string `yaml:"excludedLabels"`
	ExcludedPaths      []string `yaml:"excludedPaths"`
	Sites              []string `yaml:"sites"`
	Clients            []string `yaml:"clients"`
	ErrorRetryInterval string   `yaml:"errorRetryInterval"`
	ScanInterval       string   `yaml:"scanInterval"`
	RecheckInterval    string   `yaml:"recheckInterval"`
	Database           string   `yaml:"database"`
	SaveTorrentDir     string   `yaml:"saveTorrentDir"`
	WebhookUrl         string   `yaml:"webhookUrl"`
	SummaryTemplate    string   `yaml:"summaryTemplate"`
	MetricsListen      string   `yaml:"metricsListen"`

	ErrorRetryIntervalValue time.Duration `yaml:"-"`
	ScanIntervalValue       time.Duration `yaml:"-"`
	RecheckIntervalValue    time.Duration `yaml:"-"`
}

type ConfigStruct struct {
	SiteProxy string                `yaml:"siteProxy"`
	UserAgent string                `yaml:"userAgent"`
	LogFile   string                `yaml:"logFile"`
	Xseed     XseedConfigStruct     `yaml:"xseed"`
	Clients   []*ClientConfigStruct `yaml:"clients"`
	Sites     []*SiteConfigStruct   `yaml:"sites"`
}

var (
	VerboseLevel               = 0
	ConfigDir                  = ""
	ConfigFile                 = ""
	LockFile                   = ""
	configLoaded               = false
	configData   *ConfigStruct = &ConfigStruct{}
	mu           sync.Mutex

	// Fill empty fields of a site config from a built-in site template. Set by site/tpl.
	SiteTemplateResolver func(siteConfig *SiteConfigStruct)
)

func Get() *ConfigStruct {
	if !configLoaded {
		mu.Lock()
		if !configLoaded {
			log.Debugf("Read config file %s", ConfigFile)
			file, err := os.ReadFile(ConfigFile)
			if err == nil {
				if err = Parse(ConfigFile, file, configData); err != nil {
					log.Fatalf("Error parsing config file: %v", err)
				}
			}
			if err = configData.Normalize(); err != nil {
				log.Fatalf("Invalid config: %v", err)
			}
			configLoaded = true
		}
		mu.Unlock()
	}
	return configData
}

// Parse config file contents by it's extension (.toml or .yaml).
func Parse(filename string, contents []byte, configData *ConfigStruct) error {
	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return yaml.Unmarshal(contents, configData)
	} else if strings.HasSuffix(filename, ".toml") {
		return toml.Unmarshal(contents, configData)
	}
	return ErrUnsupportedFormat
}

// Apply default values, expand env variables and remove disabled clients and sites.
func (configData *ConfigStruct) Normalize() error {
	for _, client := range configData.Clients {
		if client.Name == "" {
			client.Name = client.Type
		}
		client.Password = os.ExpandEnv(client.Password)
		if client.Url != "" {
			urlObj, err := url.Parse(client.Url)
			if err != nil {
				return fmt.Errorf("client %s url: %w", client.Name, err)
			}
			client.Url = urlObj.String()
		}
	}
	for _, site := range configData.Sites {
		if SiteTemplateResolver != nil {
			SiteTemplateResolver(site)
		}
		if site.Name == "" {
			site.Name = site.Type
		}
		site.Passkey = os.ExpandEnv(site.Passkey)
		site.Cookie = os.ExpandEnv(site.Cookie)
		if site.UserAgent == "" {
			site.UserAgent = configData.UserAgent
		}
		if site.QueryGap <= 0 {
			site.QueryGap = DEFAULT_SITE_QUERY_GAP
		}
		if site.ApiPath == "" {
			site.ApiPath = DEFAULT_SITE_API_PATH
		}
		if site.Url != "" {
			urlObj, err := url.Parse(site.Url)
			if err != nil {
				return fmt.Errorf("site %s url: %w", site.Name, err)
			}
			site.Url = urlObj.String()
			if !strings.HasSuffix(site.Url, "/") {
				site.Url += "/"
			}
		}
	}
	configData.Clients = util.Filter(configData.Clients, func(c *ClientConfigStruct) bool {
		return !c.Disabled
	})
	configData.Sites = util.Filter(configData.Sites, func(s *SiteConfigStruct) bool {
		return !s.Disabled
	})

	xseed := &configData.Xseed
	if xseed.Tags == nil {
		xseed.Tags = util.CopySlice(DEFAULT_XSEED_TAGS)
	}
	var err error
	if xseed.ErrorRetryIntervalValue, err = parseDuration(xseed.ErrorRetryInterval, 0); err != nil {
		return fmt.Errorf("errorRetryInterval: %w", err)
	}
	if xseed.ScanIntervalValue, err = parseDuration(xseed.ScanInterval, DEFAULT_XSEED_SCAN_INTERVAL); err != nil {
		return fmt.Errorf("scanInterval: %w", err)
	}
	if xseed.RecheckIntervalValue, err = parseDuration(xseed.RecheckInterval,
		DEFAULT_RECHECK_INTERVAL); err != nil {
		return fmt.Errorf("recheckInterval: %w", err)
	}
	if xseed.ScanIntervalValue <= 0 {
		xseed.ScanIntervalValue = DEFAULT_XSEED_SCAN_INTERVAL
	}
	if xseed.RecheckIntervalValue <= 0 {
		xseed.RecheckIntervalValue = DEFAULT_RECHECK_INTERVAL
	}
	if xseed.Database == "" {
		xseed.Database = filepath.Join(ConfigDir, DEFAULT_DATABASE_FILE)
	}
	return nil
}

func parseDuration(value string, defaultValue time.Duration) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	if value == "0" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

func GetClientConfig(name string) *ClientConfigStruct {
	for _, client := range Get().Clients {
		if client.Name == name {
			return client
		}
	}
	return nil
}

func GetSiteConfig(name string) *SiteConfigStruct {
	for _, site := range Get().Sites {
		if site.GetName() == name {
			return site
		}
	}
	return nil
}

func (siteConfig *SiteConfigStruct) GetName() string {
	id := siteConfig.Name
	if id == "" {
		id = siteConfig.Type
	}
	return id
}

// Return the proxy actually used by this site. Empty if no proxy.
func (siteConfig *SiteConfigStruct) GetProxy(globalProxy string) string {
	if siteConfig.Proxy == PROXY_NONE {
		return ""
	}
	if siteConfig.Proxy != "" {
		return siteConfig.Proxy
	}
	if siteConfig.UseProxy {
		return globalProxy
	}
	return ""
}

// Parse a site internal url (eg. download.php), return absolute url.
func (siteConfig *SiteConfigStruct) ParseSiteUrl(siteUrl string) string {
	if siteUrl == "" || util.IsUrl(siteUrl) {
		return siteUrl
	}
	return siteConfig.Url + strings.TrimPrefix(siteUrl, "/")
}

// Check whether the (top-level) domain belongs to the site.
func MatchSite(domain string, siteConfig *SiteConfigStruct) bool {
	if domain == "" {
		return false
	}
	if siteConfig.Url != "" && util.GetUrlDomain(siteConfig.Url) == domain {
		return true
	}
	for _, d := range siteConfig.Domains {
		if d == domain {
			return true
		}
	}
	return false
}
