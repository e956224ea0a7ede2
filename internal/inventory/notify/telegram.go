// Package notify delivers aggregated scan results to Telegram chats.
package notify

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

const telegramAPI = "https://api.telegram.org"

// sendPause keeps the bot under Telegram's per-chat rate limit when a run
// produces many messages.
const sendPause = 3 * time.Second

// TelegramNotifier posts HTML-formatted messages through the Bot API.
type TelegramNotifier struct {
	client  *resty.Client
	token   string
	baseURL string
}

func NewTelegramNotifier(botToken string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	return &TelegramNotifier{
		client:  resty.New().SetTimeout(15 * time.Second),
		token:   botToken,
		baseURL: telegramAPI,
	}, nil
}

// WithBaseURL points the notifier at a different API host. Used by tests.
func (n *TelegramNotifier) WithBaseURL(url string) *TelegramNotifier {
	n.baseURL = url
	return n
}

type sendMessageReq struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send posts one message. Empty text or chat id is skipped without error so
// callers can pipe FormatMessage output straight in.
func (n *TelegramNotifier) Send(ctx context.Context, chatID, text string) error {
	if chatID == "" || text == "" {
		return nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(sendMessageReq{
			ChatID:                chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token))
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Pause sleeps between consecutive sends, honoring cancellation.
func (n *TelegramNotifier) Pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(sendPause):
	}
}

// FormatMessage renders the aggregated diff of one (agent, project) pair in
// the notification layout operators are used to: added, removed and changed
// blocks with counts, old → new per changed unit. The "Thay đổi" count is
// the number of rendered field lines, not distinct units, so it always
// matches what the operator sees inside the block. Returns "" when the diff
// is empty so no message goes out.
func FormatMessage(res domain.GroupedResult) string {
	if res.Diff.Empty() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏢 <b>Đại lý:</b> %s\n", html.EscapeString(res.AgentName))
	fmt.Fprintf(&b, "📋 <b>Dự án:</b> %s\n\n", html.EscapeString(res.ProjectName))

	added := dedupeSorted(res.Diff.Added)
	removed := dedupeSorted(res.Diff.Removed)

	if len(added) > 0 {
		fmt.Fprintf(&b, "➕ <b>Nhập thêm (%d):</b>\n<blockquote>%s</blockquote>\n\n",
			len(added), boldLines(added))
	} else {
		b.WriteString("➕ <b>Nhập thêm:</b> Không có\n\n")
	}

	if len(removed) > 0 {
		fmt.Fprintf(&b, "✅ <b>Đã bán (%d):</b>\n<blockquote>%s</blockquote>\n\n",
			len(removed), boldLines(removed))
	} else {
		b.WriteString("✅ <b>Đã bán:</b> Không có\n\n")
	}

	if len(res.Diff.Changed) > 0 {
		lines := make([]string, 0, len(res.Diff.Changed))
		for _, kc := range res.Diff.Changed {
			for _, fc := range kc.Fields {
				lines = append(lines, fmt.Sprintf("<b>%s</b>: %s → %s",
					html.EscapeString(kc.Key), escapeValue(fc.Old), escapeValue(fc.New)))
			}
		}
		fmt.Fprintf(&b, "✏️ <b>Thay đổi (%d):</b>\n<blockquote>%s</blockquote>",
			len(lines), strings.Join(lines, "\n"))
	} else {
		b.WriteString("✏️ <b>Thay đổi:</b> Không có")
	}

	return strings.TrimSpace(b.String())
}

func boldLines(keys []string) string {
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = "<b>" + html.EscapeString(k) + "</b>"
	}
	return strings.Join(lines, "\n")
}

func escapeValue(v *string) string {
	if v == nil {
		return "—"
	}
	return html.EscapeString(*v)
}

func dedupeSorted(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
