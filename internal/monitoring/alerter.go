// Package monitoring raises webhook alerts for closed parity gates, failed
// runs and sustained failure rates across recent runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/config"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertParityFailure   AlertType = "parity_failure"
	AlertRunFailure      AlertType = "run_failure"
	AlertRunFailureRate  AlertType = "run_failure_rate"
	AlertDispatchFailure AlertType = "dispatch_failure"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns pipeline outcomes into alerts and posts them to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ParityAlerts returns one critical alert per failed parity report.
func (a *Alerter) ParityAlerts(reports []model.ParityReport) []Alert {
	var alerts []Alert
	for _, r := range reports {
		if r.Passed {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertParityFailure,
			Severity: "critical",
			Message: fmt.Sprintf(
				"[%s] parity check failed: processed %.2f vs meaningful %.2f (difference %.5f); reports withheld",
				r.Metric, r.ProcessedTotal, r.MeaningfulTotal, r.Difference,
			),
			Details: map[string]any{
				"run_id":           r.RunID,
				"metric":           string(r.Metric),
				"raw_total":        r.RawTotal,
				"excluded_total":   r.ExcludedTotal,
				"meaningful_total": r.MeaningfulTotal,
				"processed_total":  r.ProcessedTotal,
				"tolerance":        r.Tolerance,
			},
			Timestamp: a.now(),
		})
	}
	return alerts
}

// RunFailure builds the alert for a run that stopped on err.
func (a *Alerter) RunFailure(runID, source string, err error) Alert {
	return Alert{
		Type:     AlertRunFailure,
		Severity: "high",
		Message:  fmt.Sprintf("variance run failed on %s: %v", source, err),
		Details: map[string]any{
			"run_id": runID,
			"source": source,
		},
		Timestamp: a.now(),
	}
}

// DispatchFailure builds the alert for recipients that never received the
// reports.
func (a *Alerter) DispatchFailure(runID string, failed []string) Alert {
	return Alert{
		Type:     AlertDispatchFailure,
		Severity: "medium",
		Message:  fmt.Sprintf("report dispatch failed for %d recipient(s)", len(failed)),
		Details: map[string]any{
			"run_id":     runID,
			"recipients": failed,
		},
		Timestamp: a.now(),
	}
}

// Evaluate checks a health snapshot against the failure-rate threshold.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	if snap == nil || a.cfg.FailureRateThreshold <= 0 {
		return nil
	}
	finished := snap.Complete + snap.Aborted + snap.Failed
	if finished < 3 || snap.FailureRate <= a.cfg.FailureRateThreshold {
		return nil
	}
	return []Alert{{
		Type:     AlertRunFailureRate,
		Severity: "high",
		Message: fmt.Sprintf(
			"run failure rate %.1f%% exceeds threshold %.1f%% (%d aborted, %d failed of last %d runs)",
			snap.FailureRate*100, a.cfg.FailureRateThreshold*100, snap.Aborted, snap.Failed, finished,
		),
		Details: map[string]any{
			"failure_rate": snap.FailureRate,
			"threshold":    a.cfg.FailureRateThreshold,
			"aborted":      snap.Aborted,
			"failed":       snap.Failed,
			"finished":     finished,
		},
		Timestamp: a.now(),
	}}
}

// SendAlerts delivers alerts to the configured webhook URL and returns the
// number sent. Delivery failures are logged, never returned.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(alerts) == 0 {
		return 0
	}
	if a.cfg.WebhookURL == "" {
		for _, alert := range alerts {
			zap.L().Warn("monitoring: alert not sent, no webhook configured",
				zap.String("type", string(alert.Type)),
				zap.String("message", alert.Message),
			)
		}
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resilience.StatusError("monitoring: webhook", resp.StatusCode, string(body))
	}
	return nil
}
