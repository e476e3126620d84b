package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

var (
	// 最新稳定版 Chrome (en-US) 在 Windows 11 x64 环境下访问网页的默认请求 headers
	CHROME_HTTP_REQUEST_HEADERS = map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
)

// Fetch a url and return the full response body. A non-200 status is an error.
// The returned error for a non-200 status contains "status=<code>".
func FetchUrl(ctx context.Context, url string, client *http.Client,
	cookie string, ua string, otherHeaders map[string]string) ([]byte, http.Header, error) {
	log.Tracef("FetchUrl url=%s hasCookie=%t", url, cookie != "")
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	SetHttpRequestBrowserHeaders(req, ua)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	for header, value := range otherHeaders {
		req.Header.Set(header, value)
	}
	LogHttpRequest(req)
	res, err := client.Do(req)
	LogHttpResponse(res, err)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.Header, fmt.Errorf("failed to read body: %w", err)
	}
	LogHttpResponseBody(res, body)
	if res.StatusCode != 200 {
		return body, res.Header, fmt.Errorf("failed to fetch url: status=%d", res.StatusCode)
	}
	return body, res.Header, nil
}

// Post data as json to url and decode json response into v.
func PostJson(ctx context.Context, url string, data any, v any, client *http.Client,
	otherHeaders map[string]string) error {
	if client == nil {
		client = http.DefaultClient
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for header, value := range otherHeaders {
		req.Header.Set(header, value)
	}
	LogHttpRequest(req)
	LogHttpRequestBody(req, payload)
	res, err := client.Do(req)
	LogHttpResponse(res, err)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	LogHttpResponseBody(res, body)
	if res.StatusCode != 200 {
		return fmt.Errorf("PostJson response error: status=%d", res.StatusCode)
	}
	if v == nil {
		return nil
	}
	if err = json.Unmarshal(body, v); err != nil {
		log.Tracef("PostJson failed to unmarshal, response body: %s", string(body))
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func SetHttpRequestBrowserHeaders(req *http.Request, ua string) {
	for key, value := range CHROME_HTTP_REQUEST_HEADERS {
		req.Header.Set(key, value)
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
}

// Wrap client into a http client which retries on connection errors and 429 / 5xx responses.
// The last response is returned as is after all retries failed.
func NewRetryableHttpClient(client *http.Client, retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if client != nil {
		retryClient.HTTPClient = client
	}
	retryClient.Logger = nil
	return retryClient.StandardClient()
}
