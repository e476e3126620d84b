package util

import (
	"mime"
	"net/http"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/flags"
)

var textualMimes = []string{
	"application/json",
	"application/xml",
	"application/x-www-form-urlencoded",
}

func getContentType(header http.Header) (contentType string, isText bool) {
	contentType, _, _ = mime.ParseMediaType(header.Get("Content-Type"))
	isText = slices.Contains(textualMimes, contentType) || strings.HasPrefix(contentType, "text/")
	return
}

// Log http request info if dump-headers flag is set.
func LogHttpRequest(req *http.Request) {
	if flags.DumpHeaders || flags.DumpBodies {
		log.WithFields(log.Fields{
			"header": req.Header,
			"method": req.Method,
			"url":    MaskUrlParam(req.URL.String(), "passkey"),
		}).Errorf("http request")
	}
}

// Log http response info if dump-headers flag is set.
func LogHttpResponse(res *http.Response, err error) {
	if flags.DumpHeaders || flags.DumpBodies {
		if res != nil {
			log.WithFields(log.Fields{
				"header": res.Header,
				"status": res.StatusCode,
				"error":  err,
			}).Errorf("http response")
		} else {
			log.WithFields(log.Fields{
				"error": err,
			}).Errorf("http response")
		}
	}
}

func logBody(title string, header http.Header, body []byte) {
	maxBinaryBody := 1024
	contentType, isText := getContentType(header)
	if isText {
		log.WithFields(log.Fields{
			"body":        string(body),
			"contentType": contentType,
		}).Errorf(title)
	} else if len(body) <= maxBinaryBody {
		log.WithFields(log.Fields{
			"body":        body,
			"contentType": contentType,
		}).Errorf(title)
	} else {
		log.WithFields(log.Fields{
			"body_start":  body[:maxBinaryBody],
			"length":      len(body),
			"contentType": contentType,
		}).Errorf(title)
	}
}

func LogHttpRequestBody(req *http.Request, body []byte) {
	if flags.DumpBodies {
		logBody("http request body", req.Header, body)
	}
}

func LogHttpResponseBody(res *http.Response, body []byte) {
	if flags.DumpBodies {
		logBody("http response body", res.Header, body)
	}
}
