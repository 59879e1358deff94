package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domain "stockwatch/pkg/types"
)

const defaultAPIURL = "https://api.telegram.org"

// TelegramNotifier implements Notifier via the Telegram Bot API.
type TelegramNotifier struct {
	apiURL  string
	token   string
	chatID  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegramNotifier creates a new TelegramNotifier for the given bot
// token and chat.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		apiURL:  defaultAPIURL,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) {
		t.client = c
	}
}

// WithAPIURL overrides the Telegram API base URL.
func WithAPIURL(u string) TelegramOption {
	return func(t *TelegramNotifier) {
		t.apiURL = strings.TrimSuffix(u, "/")
	}
}

// WithSendsPerSecond paces outgoing messages. Telegram throttles bots
// that exceed roughly one message per second per chat.
func WithSendsPerSecond(n float64) TelegramOption {
	return func(t *TelegramNotifier) {
		t.limiter = rate.NewLimiter(rate.Limit(n), 1)
	}
}

// sendMessageRequest is the Telegram sendMessage JSON structure.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// sendPhotoRequest is the Telegram sendPhoto JSON structure.
type sendPhotoRequest struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Ping verifies the bot token against the getMe endpoint.
func (t *TelegramNotifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.methodURL("getMe"), nil)
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("reaching telegram: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding getMe response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("telegram getMe failed: %s", body.Description)
	}
	return nil
}

// SendAlert sends a single product alert, as a photo with caption when an
// image is available and a plain message otherwise. A failed photo send
// falls back to text so an alert is never lost to a broken image URL.
func (t *TelegramNotifier) SendAlert(ctx context.Context, alert AlertPayload) error {
	caption := buildAlertText(alert)

	if alert.Product.ImageURL != "" {
		err := t.post(ctx, "sendPhoto", sendPhotoRequest{
			ChatID:    t.chatID,
			Photo:     alert.Product.ImageURL,
			Caption:   caption,
			ParseMode: "HTML",
		})
		if err == nil {
			return nil
		}
	}

	return t.post(ctx, "sendMessage", sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  caption,
		ParseMode:             "HTML",
		DisableWebPagePreview: false,
	})
}

// SendSummary sends a periodic activity summary.
func (t *TelegramNotifier) SendSummary(ctx context.Context, stats domain.Stats) error {
	return t.sendText(ctx, buildSummaryText("📊 <b>Summary</b>", stats))
}

// SendStartup announces that monitoring has begun.
func (t *TelegramNotifier) SendStartup(ctx context.Context) error {
	return t.sendText(ctx, "🟢 <b>Stockwatch started</b>\nMonitoring is active.")
}

// SendShutdown sends a final summary before the process exits.
func (t *TelegramNotifier) SendShutdown(ctx context.Context, stats domain.Stats) error {
	return t.sendText(ctx, buildSummaryText("🔴 <b>Stockwatch stopping</b>", stats))
}

// SendError reports a persistent failure to the chat.
func (t *TelegramNotifier) SendError(ctx context.Context, message string) error {
	return t.sendText(ctx, fmt.Sprintf("⚠️ <b>Error</b>\n%s", html.EscapeString(message)))
}

func (t *TelegramNotifier) sendText(ctx context.Context, text string) error {
	return t.post(ctx, "sendMessage", sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
}

func buildAlertText(alert AlertPayload) string {
	var b strings.Builder

	switch alert.Classification {
	case domain.ClassificationRestocked:
		b.WriteString("🔄 <b>Restocked</b>\n")
	default:
		b.WriteString("🆕 <b>New arrival</b>\n")
	}

	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(alert.Product.Name))
	if alert.Product.Price != "" {
		fmt.Fprintf(&b, "💰 %s\n", html.EscapeString(alert.Product.Price))
	}
	if len(alert.Product.Sizes) > 0 {
		fmt.Fprintf(&b, "📏 %s\n", formatSizes(alert.Product.Sizes))
	} else if alert.Product.StockLevel > 0 {
		fmt.Fprintf(&b, "📦 %d in stock\n", alert.Product.StockLevel)
	}
	if alert.Product.URL != "" {
		fmt.Fprintf(&b, `<a href="%s">View product</a>`, alert.Product.URL)
	}

	return b.String()
}

func buildSummaryText(header string, stats domain.Stats) string {
	var b strings.Builder

	b.WriteString(header)
	fmt.Fprintf(&b, "\nActive products: %d", stats.TotalActiveProducts)
	fmt.Fprintf(&b, "\nNew today: %d", stats.NewToday)
	fmt.Fprintf(&b, "\nRestocks today: %d", stats.RestocksToday)
	fmt.Fprintf(&b, "\nAlerts sent: %d", stats.TotalAlertsSent)
	if stats.LastCheckAt != nil {
		fmt.Fprintf(&b, "\nLast check: %s", stats.LastCheckAt.Format(time.RFC3339))
	}

	return b.String()
}

func formatSizes(sizes map[string]int) string {
	labels := make([]string, 0, len(sizes))
	for label := range sizes {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s(%d)", html.EscapeString(label), sizes[label]))
	}
	return strings.Join(parts, " ")
}

func (t *TelegramNotifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiURL, t.token, method)
}

func (t *TelegramNotifier) post(ctx context.Context, method string, payload any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.methodURL(method),
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("telegram rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("telegram %s returned %d (body unreadable)", method, resp.StatusCode)
		}
		return fmt.Errorf("telegram %s returned %d: %s", method, resp.StatusCode, respBody)
	}

	return nil
}
