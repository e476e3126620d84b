package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpillora/go-tld"
	runewidth "github.com/mattn/go-runewidth"
)

var sha1HexRegex = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)

func ContainsI(str string, substr string) bool {
	return strings.Contains(
		strings.ToLower(str),
		strings.ToLower(substr),
	)
}

func IsUrl(str string) bool {
	return strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://")
}

// Check whether str is a 40 chars hex string (sha1 digest). E.g. a info-hash v1 or pieces hash.
func IsSha1Hex(str string) bool {
	return sha1HexRegex.MatchString(str)
}

func ParseInt(str string) int64 {
	str = strings.TrimSpace(strings.ReplaceAll(str, ",", ""))
	v, _ := strconv.ParseInt(str, 10, 0)
	return v
}

// return prefix of string at most width and actual width.
// ASCII char has 1 width. CJK char has 2 width
func StringPrefixInWidth(str string, width int64) (string, int64) {
	strWidth := int64(0)
	sb := &strings.Builder{}
	for _, char := range str {
		runeWidth := int64(runewidth.RuneWidth(char))
		if strWidth+runeWidth > width {
			break
		}
		sb.WriteRune(char)
		strWidth += runeWidth
	}
	return sb.String(), strWidth
}

func PrintStringInWidth(str string, width int64, padRight bool) {
	pstr, strWidth := StringPrefixInWidth(str, width)
	if padRight {
		pstr += strings.Repeat(" ", int(width-strWidth))
	} else {
		pstr = strings.Repeat(" ", int(width-strWidth)) + pstr
	}
	fmt.Print(pstr)
}

func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\u00ad", "")  // &shy;  invisible Soft hyphen
	text = strings.ReplaceAll(text, "\u00a0", " ") // non-breaking space => normal space (U+0020)
	text = strings.Join(strings.Fields(text), " ")
	return text
}

// return (top-level) domain of a url. eg. https://www.google.com/ => google.com
func GetUrlDomain(url string) string {
	u, err := tld.Parse(url)
	if err != nil || u.Domain == "" {
		return ""
	}
	return u.Domain + "." + u.TLD
}

func ParseUrlHostname(urlStr string) string {
	hostname := ""
	url, err := url.Parse(urlStr)
	if err == nil {
		hostname = url.Hostname()
	}
	return hostname
}

// Replace the value of a query parameter in url with "***". Used to hide passkey in logs.
func MaskUrlParam(urlStr string, param string) string {
	urlObj, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	query := urlObj.Query()
	if query.Has(param) {
		query.Set(param, "***")
		urlObj.RawQuery = query.Encode()
	}
	return urlObj.String()
}
