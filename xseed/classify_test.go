package xseed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDownload(t *testing.T) {
	valid := makeTorrent(t, 3, "A", "https://a.example.com/announce")
	cases := []struct {
		name    string
		content []byte
		err     error
		set     CacheSet
	}{
		{"empty body", nil, nil, CachePermanentError},
		{"permission denied", []byte("<html><body>你没有该权限下载此种子</body></html>"), nil, CachePermanentError},
		{"not found", []byte("<html><body><p>种子不存在</p></body></html>"),
			errors.New("failed to fetch url: status=404"), CachePermanentError},
		{"garbage", []byte("not a torrent"), nil, CachePermanentError},
		{"connection refused", nil, errors.New("dial tcp 1.2.3.4:443: connect: connection refused"), CacheError},
		{"timeout", nil, errors.New("context deadline exceeded (Client.Timeout exceeded)"), CacheError},
		{"server error", []byte("Bad Gateway"), errors.New("failed to fetch url: status=502"), CacheError},
		{"flood control", []byte("<html><body>请求过于频繁，请稍后再试</body></html>"), nil, CacheError},
		{"permission denied overrides transient text", []byte("<html><body>权限不足，请稍后再试</body></html>"),
			nil, CachePermanentError},
		{"unexpected eof", nil, errors.New("read tcp: unexpected EOF"), CacheError},
		{"eof inside word", []byte("<html><body>Geofence blocked</body></html>"), nil, CachePermanentError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			record, err := ClassifyDownload(c.content, c.err)
			assert.Nil(t, record)
			var failure *DownloadFailure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, c.set, failure.Set)
			assert.NotEmpty(t, failure.Message)
		})
	}

	record, err := ClassifyDownload(valid.content, nil)
	require.NoError(t, err)
	assert.Equal(t, valid.infoHash, record.InfoHash)
}

func TestClassifyDownloadMarkerInTorrentName(t *testing.T) {
	valid := makeNamedTorrent(t, 5, "A", "https://a.example.com/announce", "权限不足.Permission denied.mkv")
	record, err := ClassifyDownload(valid.content, nil)
	require.NoError(t, err)
	assert.Equal(t, valid.infoHash, record.InfoHash)
}
