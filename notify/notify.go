package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/sagan/ptxseed/util"
)

const DEFAULT_SUMMARY_TEMPLATE = `{{ if .DryRun }}[dry run] {{ end -}}
辅种完成，用时 {{ duration .Duration }}（{{ .Tag }}）
匹配 {{ .Total }} 个，新种子 {{ .New }} 个，已存在 {{ .Existing }} 个
成功 {{ .Success }} 个，失败 {{ .Failed }} 个，缓存跳过 {{ .Cached }} 个
{{- if gt .QueryErrors 0 }}
站点查询失败 {{ .QueryErrors }} 次
{{- end }}`

const DEFAULT_TITLE = "ptxseed 辅种"

// A notification channel of run summaries.
type Sender interface {
	Name() string
	CanSend() bool
	Send(ctx context.Context, title string, body string) error
}

// Render data (usually a scan summary) with a text/template. Sprig functions are available.
func Render(tpl string, data any) (string, error) {
	if tpl == "" {
		tpl = DEFAULT_SUMMARY_TEMPLATE
	}
	t, err := template.New("summary").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"duration": func(d time.Duration) string {
			return d.Round(time.Second).String()
		},
		"ago": func(t time.Time) string {
			return humanize.Time(t)
		},
	}).Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("invalid summary template: %w", err)
	}
	buf := &bytes.Buffer{}
	if err = t.Execute(buf, data); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}

// Send to all senders that can send. Errors are logged.
func SendAll(ctx context.Context, senders []Sender, title string, body string) {
	for _, sender := range senders {
		if !sender.CanSend() {
			continue
		}
		if err := sender.Send(ctx, title, body); err != nil {
			log.Warnf("Failed to send notification via %s: %v", sender.Name(), err)
		}
	}
}

type LogSender struct{}

func (LogSender) Name() string {
	return "log"
}

func (LogSender) CanSend() bool {
	return true
}

func (LogSender) Send(ctx context.Context, title string, body string) error {
	log.Infof("%s\n%s", title, body)
	return nil
}

// Post {"title","content"} json to a webhook url.
type WebhookSender struct {
	Url        string
	HttpClient *http.Client
}

type webhookPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func NewWebhookSender(url string) *WebhookSender {
	client := &http.Client{Timeout: 15 * time.Second}
	return &WebhookSender{
		Url:        url,
		HttpClient: util.NewRetryableHttpClient(client, 3),
	}
}

func (w *WebhookSender) Name() string {
	return "webhook"
}

func (w *WebhookSender) CanSend() bool {
	return w.Url != ""
}

func (w *WebhookSender) Send(ctx context.Context, title string, body string) error {
	return util.PostJson(ctx, w.Url, &webhookPayload{Title: title, Content: body}, nil, w.HttpClient, nil)
}

// Senders configured by webhookUrl. The log sender is always included.
func Senders(webhookUrl string) []Sender {
	senders := []Sender{LogSender{}}
	if webhookUrl != "" {
		senders = append(senders, NewWebhookSender(webhookUrl))
	}
	return senders
}

var (
	_ Sender = LogSender{}
	_ Sender = (*WebhookSender)(nil)
)
