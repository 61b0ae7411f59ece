package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cagefight/config"
	"cagefight/database"
	"cagefight/fight"
	"cagefight/utils"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const webhookTimeout = 10 * time.Second

// Notifier posts finished bouts to a Discord channel webhook. With no
// webhook configured it does nothing.
type Notifier struct {
	webhookURL    string
	serverBaseURL string
	client        *http.Client
	logger        zerolog.Logger
}

type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp"`
	URL         string              `json:"url,omitempty"`
	Fields      []DiscordEmbedField `json:"fields"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

func NewNotifier(cfg *config.Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		webhookURL:    cfg.DiscordWebhookURL,
		serverBaseURL: strings.TrimRight(cfg.ServerBaseURL, "/"),
		client:        &http.Client{Timeout: webhookTimeout},
		logger:        logger,
	}
}

func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// AnnounceResult sends the result card for a finished match
func (n *Notifier) AnnounceResult(ctx context.Context, m database.Match, res fight.MatchResult) error {
	if !n.Enabled() {
		n.logger.Debug().Str("match_id", m.ID).Msg("no Discord webhook configured, skipping result")
		return nil
	}
	return n.sendViaWebhook(ctx, n.createResultEmbed(m, res))
}

func (n *Notifier) createResultEmbed(m database.Match, res fight.MatchResult) DiscordEmbed {
	red, blue := m.RedName, m.BlueName
	event := m.Event()

	var title, description string
	color := utils.DrawColor
	switch {
	case res.Method == fight.MethodNoContest:
		title = "No Contest"
		description = fmt.Sprintf("**%s** vs **%s** was waved off.", red, blue)
	case res.Winner == nil:
		title = "Draw"
		description = fmt.Sprintf("**%s** and **%s** fought to a draw.", red, blue)
	default:
		winner, loser := red, blue
		color = utils.RedCornerColor
		if *res.Winner == fight.Blue {
			winner, loser = blue, red
			color = utils.BlueCornerColor
		}
		title = fmt.Sprintf("%s wins by %s", winner, res.Method.Label())
		description = fmt.Sprintf("**%s** defeats **%s**", winner, loser)
	}
	if event >= fight.MainEvent {
		title = strings.ToUpper(eventLabel(event)) + ": " + title
	}

	fields := []DiscordEmbedField{
		{
			Name:   "Method",
			Value:  res.Method.Label(),
			Inline: true,
		},
		{
			Name:   "Time",
			Value:  fmt.Sprintf("R%d %s", res.Round, utils.FormatClock(res.Clock)),
			Inline: true,
		},
		{
			Name:   "Final Health",
			Value:  fmt.Sprintf("%s: **%d HP**\n%s: **%d HP**", red, res.RedHP, blue, res.BlueHP),
			Inline: true,
		},
	}
	if card := scorecards(red, blue, res.Rounds); card != "" {
		fields = append(fields, DiscordEmbedField{Name: "Scorecards", Value: card})
	}
	if res.Purse > 0 {
		fields = append(fields, DiscordEmbedField{
			Name:   "Purse",
			Value:  "$" + formatNumber(res.Purse),
			Inline: true,
		})
	}
	if res.Attendance > 0 {
		fields = append(fields, DiscordEmbedField{
			Name:   "Attendance",
			Value:  formatNumber(res.Attendance),
			Inline: true,
		})
	}

	return DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		URL:         fmt.Sprintf("%s/api/matches/%s", n.serverBaseURL, m.ID),
		Fields:      fields,
		Footer: &DiscordEmbedFooter{
			Text: eventLabel(event),
		},
	}
}

// scorecards renders one line per round: strikes, takedowns, control and who took it
func scorecards(red, blue string, rounds []fight.RoundRecord) string {
	var b strings.Builder
	for _, r := range rounds {
		taken := "even"
		if r.Winner != nil {
			taken = red
			if *r.Winner == fight.Blue {
				taken = blue
			}
		}
		if !r.Complete {
			taken += " (stopped)"
		}
		fmt.Fprintf(&b, "R%d: %d-%d strikes, %d-%d takedowns, %s-%s control. **%s**\n",
			r.Round,
			r.Red.SignificantStrikes, r.Blue.SignificantStrikes,
			r.Red.Takedowns, r.Blue.Takedowns,
			utils.FormatClock(r.Red.ControlTime), utils.FormatClock(r.Blue.ControlTime),
			taken)
	}
	return strings.TrimSpace(b.String())
}

func eventLabel(e fight.EventType) string {
	switch e {
	case fight.TitleFight:
		return "Title Fight"
	case fight.MainEvent:
		return "Main Event"
	case fight.CoMainEvent:
		return "Co-Main Event"
	case fight.MainCard:
		return "Main Card"
	case fight.PrelimFight:
		return "Prelims"
	}
	return "Undercard"
}

func (n *Notifier) sendViaWebhook(ctx context.Context, embed DiscordEmbed) error {
	message := DiscordMessage{
		Embeds: []DiscordEmbed{embed},
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug().Str("title", embed.Title).Msg("sent result to Discord")
	return nil
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	return result.String()
}

var Module = fx.Provide(NewNotifier)
