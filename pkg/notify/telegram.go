package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/tomasfh/compwatch/pkg/comp"
)

const telegramAPI = "https://api.telegram.org"

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Telegram delivers announcements through the Bot API's sendMessage.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	http    *retryablehttp.Client
}

func NewTelegram(token, chatID string, timeout time.Duration) *Telegram {
	return &Telegram{
		apiBase: telegramAPI,
		token:   token,
		chatID:  chatID,
		http:    newHTTPClient(timeout),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) SendNew(ctx context.Context, comps []comp.Competition) error {
	var b strings.Builder
	b.WriteString("🎉 <b>New competitions!</b>\n")
	for _, c := range comps {
		fmt.Fprintf(&b, "\n🏆 <a href=\"%s\">%s</a>\n📍 %s — 📅 %s\n", c.URL, c.Name, c.City, dateLine(c))
	}
	return t.send(ctx, b.String())
}

func (t *Telegram) SendRegistrationUpcoming(ctx context.Context, c comp.Competition) error {
	return t.send(ctx, fmt.Sprintf("🔔 Registration for <a href=\"%s\">%s</a> opens at %s.",
		c.URL, c.Name, c.RegistrationOpen.Format("2006-01-02 15:04 MST")))
}

func (t *Telegram) SendRegistrationOpen(ctx context.Context, c comp.Competition) error {
	return t.send(ctx, fmt.Sprintf("🟢 Registration for <a href=\"%s\">%s</a> is open!", c.URL, c.Name))
}

func (t *Telegram) SendCapacityAlert(ctx context.Context, c comp.Competition, liveCount int) error {
	return t.send(ctx, fmt.Sprintf("⚠️ <a href=\"%s\">%s</a> is nearly full: %d of %d spots taken.",
		c.URL, c.Name, liveCount, c.CompetitorLimit))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(respBody, "ok").Bool() {
		return fmt.Errorf("telegram sendMessage failed: status %d, %s",
			resp.StatusCode, gjson.GetBytes(respBody, "description").String())
	}
	return nil
}
