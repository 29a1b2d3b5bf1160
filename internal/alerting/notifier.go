package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"procurement-audit/internal/audit"
)

// Notification summarises an audit run that flagged at least one row.
type Notification struct {
	RunAt         time.Time
	FileName      string
	Sensitivity   decimal.Decimal
	Total         int
	RiskCount     int
	MaxVariance   decimal.Decimal
	TopRisks      []audit.AuditedRecord
	AdditionalMsg string
}

// NewNotification builds a notification from a result, listing at most
// maxListed flagged rows ordered by variance.
func NewNotification(fileName string, res audit.Result, maxListed int) Notification {
	risks := res.RiskRecords()
	sortByVarianceDesc(risks)
	if maxListed >= 0 && len(risks) > maxListed {
		risks = risks[:maxListed]
	}

	return Notification{
		RunAt:       time.Now().UTC(),
		FileName:    fileName,
		Sensitivity: res.Sensitivity,
		Total:       res.Total,
		RiskCount:   res.RiskCount,
		MaxVariance: res.MaxVariance.Decimal,
		TopRisks:    risks,
	}
}

// Notifier delivers risk notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered summary.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("file", note.FileName).
		Int("risk_count", note.RiskCount).
		Msg("risk alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Procurement Audit Alert]\n")
	builder.WriteString(fmt.Sprintf("Run: %s UTC\n", note.RunAt.UTC().Format(time.RFC3339)))
	if note.FileName != "" {
		builder.WriteString(fmt.Sprintf("File: %s\n", note.FileName))
	}
	builder.WriteString(fmt.Sprintf("Sensitivity: %s%%\n", note.Sensitivity.StringFixed(0)))
	builder.WriteString(fmt.Sprintf("Flagged: %d of %d rows\n", note.RiskCount, note.Total))
	builder.WriteString(fmt.Sprintf("Max variance: %s%%\n", note.MaxVariance.StringFixed(2)))
	for _, rec := range note.TopRisks {
		builder.WriteString(fmt.Sprintf("- %s / %s: paid %s vs %s (%s%%)\n",
			rec.Item, rec.Vendor,
			rec.PricePaid.StringFixed(2), rec.StandardPrice.StringFixed(2),
			rec.PriceDiffPct.StringFixed(2)))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func sortByVarianceDesc(recs []audit.AuditedRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PriceDiffPct.GreaterThan(recs[j].PriceDiffPct)
	})
}

var _ Notifier = (*TelegramNotifier)(nil)
