package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tomasfh/compwatch/pkg/comp"
)

const embedColor = 0x002C99

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

// Discord delivers announcements to a webhook.
type Discord struct {
	webhookURL string
	http       *retryablehttp.Client
}

func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		http:       newHTTPClient(timeout),
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) SendNew(ctx context.Context, comps []comp.Competition) error {
	embeds := make([]discordEmbed, 0, len(comps))
	for _, c := range comps {
		var dates string
		if days := c.Days(); days > 1 {
			dates = fmt.Sprintf("📅 **Dates:** %s (%d days)", dateLine(c), days)
		} else {
			dates = fmt.Sprintf("📅 **Date:** %s", dateLine(c))
		}
		embeds = append(embeds, discordEmbed{
			Title:       "🏆 " + c.Name,
			Description: fmt.Sprintf("📍 **City:** %s\n%s", c.City, dates),
			URL:         c.URL,
			Color:       embedColor,
		})
	}
	return d.post(ctx, discordPayload{
		Content: "🎉 **New competitions!**",
		Embeds:  embeds,
	})
}

func (d *Discord) SendRegistrationUpcoming(ctx context.Context, c comp.Competition) error {
	return d.post(ctx, discordPayload{
		Embeds: []discordEmbed{{
			Title: "🔔 Registration opens soon: " + c.Name,
			Description: fmt.Sprintf("Registration opens at %s.",
				c.RegistrationOpen.Format("2006-01-02 15:04 MST")),
			URL:   c.URL,
			Color: embedColor,
		}},
	})
}

func (d *Discord) SendRegistrationOpen(ctx context.Context, c comp.Competition) error {
	return d.post(ctx, discordPayload{
		Embeds: []discordEmbed{{
			Title:       "🟢 Registration is open: " + c.Name,
			Description: "Registration just opened, spots go fast!",
			URL:         c.URL,
			Color:       embedColor,
		}},
	})
}

func (d *Discord) SendCapacityAlert(ctx context.Context, c comp.Competition, liveCount int) error {
	return d.post(ctx, discordPayload{
		Embeds: []discordEmbed{{
			Title: "⚠️ Nearly full: " + c.Name,
			Description: fmt.Sprintf("%d of %d spots taken.",
				liveCount, c.CompetitorLimit),
			URL:   c.URL,
			Color: embedColor,
		}},
	})
}

func (d *Discord) post(ctx context.Context, payload discordPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
