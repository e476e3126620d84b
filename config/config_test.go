package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tomlContents := []byte(`
siteProxy = "http://127.0.0.1:1080"

[xseed]
tags = ["xs"]
scanInterval = "6h"

[[clients]]
type = "qbittorrent"
name = "local"
url = "http://localhost:8080"

[[sites]]
type = "nexusphp"
name = "foo"
url = "https://foo.example"
passkey = "abc"
queryGap = 3
`)
	configData := &ConfigStruct{}
	require.NoError(t, Parse("ptxseed.toml", tomlContents, configData))
	assert.Equal(t, "http://127.0.0.1:1080", configData.SiteProxy)
	assert.Equal(t, []string{"xs"}, configData.Xseed.Tags)
	require.Len(t, configData.Clients, 1)
	assert.Equal(t, "local", configData.Clients[0].Name)
	require.Len(t, configData.Sites, 1)
	assert.Equal(t, int64(3), configData.Sites[0].QueryGap)

	yamlContents := []byte(`
xseed:
  excludedLabels: [nocross]
clients:
  - type: transmission
    url: http://localhost:9091
sites:
  - name: bar
    url: https://bar.example/
    aliases: [b]
`)
	configData = &ConfigStruct{}
	require.NoError(t, Parse("ptxseed.yaml", yamlContents, configData))
	assert.Equal(t, []string{"nocross"}, configData.Xseed.ExcludedLabels)
	assert.Equal(t, "transmission", configData.Clients[0].Type)
	assert.Equal(t, []string{"b"}, configData.Sites[0].Aliases)

	assert.ErrorIs(t, Parse("ptxseed.json", []byte(`{}`), &ConfigStruct{}), ErrUnsupportedFormat)
}

func TestNormalize(t *testing.T) {
	t.Setenv("PTXSEED_TEST_PASSKEY", "secret")
	configData := &ConfigStruct{
		UserAgent: "ua",
		Clients: []*ClientConfigStruct{
			{Type: "qbittorrent", Url: "http://localhost:8080"},
			{Type: "transmission", Name: "off", Disabled: true},
		},
		Sites: []*SiteConfigStruct{
			{Type: "nexusphp", Name: "foo", Url: "https://foo.example", Passkey: "${PTXSEED_TEST_PASSKEY}"},
			{Name: "off", Url: "https://off.example/", Disabled: true},
		},
		Xseed: XseedConfigStruct{
			ErrorRetryInterval: "1h",
			RecheckInterval:    "0",
		},
	}
	require.NoError(t, configData.Normalize())

	require.Len(t, configData.Clients, 1)
	assert.Equal(t, "qbittorrent", configData.Clients[0].Name)
	require.Len(t, configData.Sites, 1)
	siteConfig := configData.Sites[0]
	assert.Equal(t, "secret", siteConfig.Passkey)
	assert.Equal(t, "https://foo.example/", siteConfig.Url)
	assert.Equal(t, "ua", siteConfig.UserAgent)
	assert.Equal(t, DEFAULT_SITE_QUERY_GAP, siteConfig.QueryGap)
	assert.Equal(t, DEFAULT_SITE_API_PATH, siteConfig.ApiPath)
	assert.Equal(t, "https://foo.example/api/pieces-hash", siteConfig.ParseSiteUrl(siteConfig.ApiPath))

	xseed := configData.Xseed
	assert.Equal(t, DEFAULT_XSEED_TAGS, xseed.Tags)
	assert.Equal(t, time.Hour, xseed.ErrorRetryIntervalValue)
	assert.Equal(t, DEFAULT_XSEED_SCAN_INTERVAL, xseed.ScanIntervalValue)
	assert.Equal(t, DEFAULT_RECHECK_INTERVAL, xseed.RecheckIntervalValue)
	assert.NotEmpty(t, xseed.Database)

	configData = &ConfigStruct{Xseed: XseedConfigStruct{ScanInterval: "soon"}}
	assert.Error(t, configData.Normalize())
}

func TestGetProxy(t *testing.T) {
	global := "http://127.0.0.1:1080"
	assert.Equal(t, "", (&SiteConfigStruct{}).GetProxy(global))
	assert.Equal(t, global, (&SiteConfigStruct{UseProxy: true}).GetProxy(global))
	assert.Equal(t, "socks5://proxy:1080", (&SiteConfigStruct{Proxy: "socks5://proxy:1080"}).GetProxy(global))
	assert.Equal(t, "", (&SiteConfigStruct{UseProxy: true, Proxy: PROXY_NONE}).GetProxy(global))
}

func TestMatchSite(t *testing.T) {
	siteConfig := &SiteConfigStruct{
		Url:     "https://www.foo.com/",
		Domains: []string{"foo-tracker.example"},
	}
	assert.True(t, MatchSite("foo.com", siteConfig))
	assert.True(t, MatchSite("foo-tracker.example", siteConfig))
	assert.False(t, MatchSite("bar.example", siteConfig))
	assert.False(t, MatchSite("", siteConfig))
}
