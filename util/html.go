package util

import (
	"bytes"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var htmlTagRegexp = regexp.MustCompile(`(?i)<\s*(html|body|div|p|script|head|title|table|br)\b`)

func DomSanitizedText(el *goquery.Selection) string {
	return SanitizeText(el.First().Text())
}

// Check whether data looks like a html document or fragment.
func IsHtml(data []byte) bool {
	return htmlTagRegexp.Match(data)
}

// Return visible text of a http response body. If body is html,
// the text of <body> (or whole document) is returned, with scripts and styles removed.
// Otherwise the sanitized body itself is returned.
func BodyText(body []byte) string {
	if !IsHtml(body) {
		return SanitizeText(string(body))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return SanitizeText(string(body))
	}
	doc.Find("script,style,noscript").Remove()
	if el := doc.Find("body"); el.Length() > 0 {
		return DomSanitizedText(el)
	}
	return DomSanitizedText(doc.Selection)
}
