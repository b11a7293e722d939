package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gestaozabele/lancamentos/internal/config"
)

// Severity classifica o alerta de uma execução.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notifier entrega o resumo de falhas da reconciliação.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Alert resume uma execução com falhas: uma linha por tenant.
type Alert struct {
	Title    string
	Severity Severity
	Lines    []string
}

// SlackNotifier publica alertas num incoming webhook do Slack.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil quando SLACK_WEBHOOK_URL não está configurada.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if strings.TrimSpace(webhookURL) == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifierFor escolhe o canal de alertas configurado; nil quando não há nenhum.
func NotifierFor(cfg config.ReconcileConfig) Notifier {
	if slack := NewSlackNotifier(cfg.SlackWebhookURL); slack != nil {
		return slack
	}
	return nil
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(slackPayload{Text: slackText(alert)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack respondeu %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func slackText(alert Alert) string {
	icon := ":warning:"
	if alert.Severity == SeverityCritical {
		icon = ":rotating_light:"
	}
	var b strings.Builder
	b.WriteString(icon + " *" + alert.Title + "*")
	for _, line := range alert.Lines {
		b.WriteString("\n• " + line)
	}
	return b.String()
}
