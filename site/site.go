package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
)

const (
	DEFAULT_TIMEOUT    = 10 * time.Second
	DOWNLOAD_TIMEOUT   = 30 * time.Second
	DOWNLOAD_RETRY_MAX = 2
)

// A torrent found in site by it's pieces hash.
type RemoteMatch struct {
	SiteName   string `json:"site_name"`
	PiecesHash string `json:"pieces_hash"`
	TorrentId  string `json:"torrent_id"`
}

type Site interface {
	GetName() string
	GetSiteConfig() *config.SiteConfigStruct
	// Query site torrents by pieces hash. At most 100 hashes per call.
	QueryPiecesHash(ctx context.Context, piecesHashes []string) ([]RemoteMatch, error)
	// Download torrent by torrent id (eg. 12345).
	// On failure, the response body (if any) is returned along with the error.
	DownloadTorrentById(ctx context.Context, id string) ([]byte, error)
}

// Site query or download failure.
type NetworkError struct {
	Site    string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("site %s: %s", e.Site, e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func NewNetworkError(siteName string, err error) *NetworkError {
	return &NetworkError{Site: siteName, Message: err.Error(), Err: err}
}

type RegInfo struct {
	Name    string
	Aliases []string
	Creator func(string, *config.SiteConfigStruct, *config.ConfigStruct) (Site, error)
}

var (
	ErrSiteNoPasskey  = errors.New("site passkey not configured")
	ErrBatchTooLarge  = fmt.Errorf("at most %d pieces hashes can be queried at once", constants.MAX_PIECES_HASH_BATCH)
	DEFAULT_SITE_TYPE = "nexusphp"
	registryMap       = map[string](*RegInfo){}
	sites             = map[string](Site){}
	mu                sync.Mutex
)

func Register(regInfo *RegInfo) {
	registryMap[regInfo.Name] = regInfo
	for _, alias := range regInfo.Aliases {
		registryMap[alias] = regInfo
	}
}

func CreateSiteInternal(name string,
	siteConfig *config.SiteConfigStruct, config *config.ConfigStruct) (Site, error) {
	siteType := siteConfig.Type
	if siteType == "" {
		siteType = DEFAULT_SITE_TYPE
	}
	regInfo := registryMap[siteType]
	if regInfo == nil {
		return nil, fmt.Errorf("unsupported site type %s", siteType)
	}
	return regInfo.Creator(name, siteConfig, config)
}

// Create (or get the cached) site instance of name in config.
func CreateSite(name string) (Site, error) {
	mu.Lock()
	defer mu.Unlock()
	if sites[name] != nil {
		return sites[name], nil
	}
	siteConfig := config.GetSiteConfig(name)
	if siteConfig == nil {
		return nil, fmt.Errorf("site %s not found", name)
	}
	siteInstance, err := CreateSiteInternal(name, siteConfig, config.Get())
	if err == nil {
		sites[name] = siteInstance
	}
	return siteInstance, err
}

func GetConfigSiteNameByDomain(siteConfigs []*config.SiteConfigStruct, domain string) string {
	for _, siteConfig := range siteConfigs {
		if config.MatchSite(domain, siteConfig) {
			return siteConfig.GetName()
		}
	}
	return ""
}

func GetConfigSiteNameByTypes(siteConfigs []*config.SiteConfigStruct, types ...string) string {
	for _, siteConfig := range siteConfigs {
		for _, t := range types {
			if siteConfig.Type == t || siteConfig.GetName() == t {
				return siteConfig.GetName()
			}
		}
	}
	return ""
}

func CreateSiteHttpClient(siteConfig *config.SiteConfigStruct, config *config.ConfigStruct) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Jar:     jar,
		Timeout: DEFAULT_TIMEOUT,
	}
	transport := &http.Transport{}
	if proxy := siteConfig.GetProxy(config.SiteProxy); proxy != "" {
		proxyUrl, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse siteProxy %s: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyUrl)
	}
	httpClient.Transport = transport
	return httpClient, nil
}

// called by main codes on program exit. clean resources
func Exit() {
	mu.Lock()
	defer mu.Unlock()
	for siteName := range sites {
		delete(sites, siteName)
	}
}
