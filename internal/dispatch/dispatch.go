// Package dispatch delivers rendered reports to recipients through an HTTP
// messaging gateway. Each recipient is retried independently and recipients
// are spaced out to stay under the gateway's rate limits.
package dispatch

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/variance-cli/internal/config"
	"github.com/sells-group/variance-cli/internal/resilience"
)

// Defaults applied by New.
const (
	DefaultRecipientPause = 5 * time.Second
	DefaultTimeout        = 5 * time.Minute
)

// Options configures a Sender.
type Options struct {
	WebhookURL     string
	Retry          resilience.RetryConfig
	RecipientPause time.Duration // negative disables spacing
	Timeout        time.Duration
}

// Sender posts report files to the gateway webhook.
type Sender struct {
	url     string
	client  *http.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// New builds a Sender.
func New(opts Options) *Sender {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RecipientPause == 0 {
		opts.RecipientPause = DefaultRecipientPause
	}

	limit := rate.Inf
	if opts.RecipientPause > 0 {
		limit = rate.Every(opts.RecipientPause)
	}

	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("dispatch", "send report")
	}

	return &Sender{
		url:     opts.WebhookURL,
		client:  &http.Client{Timeout: opts.Timeout},
		retry:   retry,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FromConfig builds a Sender from the dispatch config section.
func FromConfig(cfg config.DispatchConfig) *Sender {
	pause := time.Duration(cfg.RecipientPauseSecs) * time.Second
	if cfg.RecipientPauseSecs <= 0 {
		pause = -1
	}
	return New(Options{
		WebhookURL:     cfg.WebhookURL,
		Retry:          resilience.FromRetryConfig(cfg.MaxAttempts, cfg.InitialBackoffMs),
		RecipientPause: pause,
		Timeout:        time.Duration(cfg.TimeoutSecs) * time.Second,
	})
}

// ParseRecipients splits a comma-separated list, dropping blanks and the
// "whatsapp:" and "+" prefixes some configs carry.
func ParseRecipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		r = strings.TrimSpace(r)
		r = strings.TrimPrefix(r, "whatsapp:")
		r = strings.TrimPrefix(r, "+")
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Result lists which recipients received every file.
type Result struct {
	Sent   []string
	Failed []string
}

// OK reports whether every recipient was served.
func (r Result) OK() bool { return len(r.Failed) == 0 }

// Dispatch sends every file to every recipient. A recipient fails when any
// of its files exhausts the retry budget; the remaining recipients are still
// served.
func (s *Sender) Dispatch(ctx context.Context, recipients, files []string, caption string) (Result, error) {
	var res Result
	if s.url == "" {
		return res, eris.New("dispatch: webhook url is not configured")
	}
	if len(recipients) == 0 {
		zap.L().Warn("dispatch: no recipients configured")
		return res, nil
	}

	for _, to := range recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			res.Failed = append(res.Failed, to)
			return res, eris.Wrap(err, "dispatch: wait for recipient slot")
		}

		log := zap.L().With(zap.String("recipient", to))
		ok := true
		for _, f := range files {
			err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
				return s.Send(ctx, to, f, caption)
			})
			if err != nil {
				log.Error("dispatch: send failed", zap.String("file", filepath.Base(f)), zap.Error(err))
				ok = false
				break
			}
			log.Info("dispatch: sent", zap.String("file", filepath.Base(f)))
		}

		if ok {
			res.Sent = append(res.Sent, to)
		} else {
			res.Failed = append(res.Failed, to)
		}
	}
	return res, nil
}

// Send makes a single delivery attempt of one file to one recipient.
func (s *Sender) Send(ctx context.Context, recipient, path, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "dispatch: read %s", path)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("recipient", recipient); err != nil {
		return eris.Wrap(err, "dispatch: write recipient")
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return eris.Wrap(err, "dispatch: write caption")
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return eris.Wrap(err, "dispatch: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return eris.Wrap(err, "dispatch: write file")
	}
	if err := writer.Close(); err != nil {
		return eris.Wrap(err, "dispatch: close writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &buf)
	if err != nil {
		return eris.Wrap(err, "dispatch: build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "dispatch: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resilience.StatusError("dispatch: gateway", resp.StatusCode, string(body))
	}
	return nil
}
