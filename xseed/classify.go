package xseed

import (
	"fmt"
	"regexp"

	"github.com/sagan/ptxseed/util"
	"github.com/sagan/ptxseed/util/torrentutil"
)

var (
	// Body markers of a download.php response telling the user can not download the torrent.
	PermissionDeniedMarkers = []string{
		"你没有该权限",
		"没有下载权限",
		"权限不足",
		"Permission denied",
		"You do not have permission",
	}

	transientErrorRegexp = regexp.MustCompile(`(?i)(connection (refused|reset|closed)|` +
		`timeout|timed out|deadline exceeded|no such host|\bEOF\b|status=(429|5\d\d)|` +
		`too many requests|flood|rate limit|max retries|请求过于频繁|频繁|稍后再试)`)
)

// A failed torrent download, and the cache set it belongs to.
type DownloadFailure struct {
	Set     CacheSet
	Message string
}

func (f *DownloadFailure) Error() string {
	return fmt.Sprintf("download failed (%s): %s", f.Set, f.Message)
}

// Classify a torrent download result. On success the parsed torrent is returned.
// Otherwise the returned error is a *DownloadFailure. A permission denied page is
// CachePermanentError; other failures are CacheError if transient (connection error,
// flood control, server error) and CachePermanentError if not.
func ClassifyDownload(content []byte, err error) (*torrentutil.TorrentRecord, error) {
	message := ""
	if err != nil {
		message = err.Error()
	} else if len(content) > 0 {
		record, parseErr := torrentutil.Parse(content)
		if parseErr == nil {
			return record, nil
		}
		if !util.IsHtml(content) {
			message = parseErr.Error()
		}
	}
	denied := false
	if len(content) > 0 {
		text := util.BodyText(content)
		for _, marker := range PermissionDeniedMarkers {
			if util.ContainsI(text, marker) {
				denied = true
				break
			}
		}
		if text != "" {
			if message != "" {
				message += ": "
			}
			message += truncate(text, 200)
		}
	}
	if message == "" {
		message = "empty response"
	}
	set := CachePermanentError
	if !denied && transientErrorRegexp.MatchString(message) {
		set = CacheError
	}
	return nil, &DownloadFailure{Set: set, Message: message}
}

func truncate(str string, length int) string {
	runes := []rune(str)
	if len(runes) <= length {
		return str
	}
	return string(runes[:length]) + "..."
}
