package nexusphp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/site"
	"github.com/sagan/ptxseed/util"
)

type Site struct {
	Name           string
	SiteConfig     *config.SiteConfigStruct
	Config         *config.ConfigStruct
	HttpClient     *http.Client
	DownloadClient *http.Client
	limiter        ratelimit.Limiter
}

type piecesHashRequest struct {
	Passkey    string   `json:"passkey"`
	PiecesHash []string `json:"pieces_hash"`
}

type piecesHashResponse struct {
	Ret  int             `json:"ret"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (npclient *Site) GetName() string {
	return npclient.Name
}

func (npclient *Site) GetSiteConfig() *config.SiteConfigStruct {
	return npclient.SiteConfig
}

func (npclient *Site) QueryPiecesHash(ctx context.Context, piecesHashes []string) ([]site.RemoteMatch, error) {
	if len(piecesHashes) > constants.MAX_PIECES_HASH_BATCH {
		return nil, site.ErrBatchTooLarge
	}
	if npclient.SiteConfig.Passkey == "" {
		return nil, site.ErrSiteNoPasskey
	}
	if len(piecesHashes) == 0 {
		return nil, nil
	}
	npclient.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	apiUrl := npclient.SiteConfig.ParseSiteUrl(npclient.SiteConfig.ApiPath)
	headers := map[string]string{}
	if npclient.SiteConfig.UserAgent != "" {
		headers["User-Agent"] = npclient.SiteConfig.UserAgent
	}
	var res piecesHashResponse
	err := util.PostJson(ctx, apiUrl, &piecesHashRequest{
		Passkey:    npclient.SiteConfig.Passkey,
		PiecesHash: piecesHashes,
	}, &res, npclient.HttpClient, headers)
	if err != nil {
		return nil, site.NewNetworkError(npclient.Name, err)
	}
	if res.Ret != 0 {
		return nil, &site.NetworkError{
			Site:    npclient.Name,
			Message: fmt.Sprintf("api error: ret=%d, msg=%s", res.Ret, res.Msg),
		}
	}
	data, err := parseMatchData(res.Data)
	if err != nil {
		return nil, site.NewNetworkError(npclient.Name, err)
	}
	matches := []site.RemoteMatch{}
	for _, piecesHash := range piecesHashes {
		id := data[strings.ToLower(piecesHash)]
		if id == "" {
			continue
		}
		matches = append(matches, site.RemoteMatch{
			SiteName:   npclient.Name,
			PiecesHash: piecesHash,
			TorrentId:  id,
		})
	}
	log.Debugf("site %s pieces hash query: %d hashes, %d matches", npclient.Name, len(piecesHashes), len(matches))
	return matches, nil
}

// Server returns {hash: id} object, or an empty array if nothing matched. Id may be string or number.
func parseMatchData(raw json.RawMessage) (map[string]string, error) {
	data := map[string]string{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return data, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	values := map[string]any{}
	if err := decoder.Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	for hash, value := range values {
		if !util.IsSha1Hex(hash) {
			continue
		}
		switch v := value.(type) {
		case string:
			data[strings.ToLower(hash)] = v
		case json.Number:
			data[strings.ToLower(hash)] = v.String()
		}
	}
	return data, nil
}

func (npclient *Site) DownloadTorrentById(ctx context.Context, id string) ([]byte, error) {
	if npclient.SiteConfig.Passkey == "" {
		return nil, site.ErrSiteNoPasskey
	}
	downloadUrl := npclient.SiteConfig.Url + "download.php?id=" + url.QueryEscape(id) +
		"&passkey=" + url.QueryEscape(npclient.SiteConfig.Passkey)
	body, _, err := util.FetchUrl(ctx, downloadUrl, npclient.DownloadClient,
		npclient.SiteConfig.Cookie, npclient.SiteConfig.UserAgent, nil)
	if err != nil {
		return body, site.NewNetworkError(npclient.Name, err)
	}
	return body, nil
}

func NewSite(name string, siteConfig *config.SiteConfigStruct, config *config.ConfigStruct) (site.Site, error) {
	if siteConfig.Url == "" {
		return nil, fmt.Errorf("cann't create site %s: no url provided", name)
	}
	httpClient, err := site.CreateSiteHttpClient(siteConfig, config)
	if err != nil {
		return nil, err
	}
	downloadHttpClient, err := site.CreateSiteHttpClient(siteConfig, config)
	if err != nil {
		return nil, err
	}
	downloadHttpClient.Timeout = site.DOWNLOAD_TIMEOUT
	var limiter ratelimit.Limiter
	if siteConfig.QueryGap > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(time.Duration(siteConfig.QueryGap)*time.Second),
			ratelimit.WithoutSlack)
	} else {
		limiter = ratelimit.NewUnlimited()
	}
	client := &Site{
		Name:           name,
		SiteConfig:     siteConfig,
		Config:         config,
		HttpClient:     httpClient,
		DownloadClient: util.NewRetryableHttpClient(downloadHttpClient, site.DOWNLOAD_RETRY_MAX),
		limiter:        limiter,
	}
	return client, nil
}

func init() {
	site.Register(&site.RegInfo{
		Name:    "nexusphp",
		Creator: NewSite,
	})
}

var (
	_ site.Site = (*Site)(nil)
)
