package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/helpers"
	"github.com/nutsandbolts/modcore/automod/spam"
	"github.com/nutsandbolts/modcore/pkg/robusthttp"
)

type SlackNotifier struct {
	SlackWebhookURL string
	Client          *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          robusthttp.NewClient(),
	}
}

func (n *SlackNotifier) SendSpam(ctx context.Context, msg *event.Message, v spam.Verdict) error {
	text := "⚠️ Automod Spam Detected ⚠️\n"
	text += fmt.Sprintf("Scope `%s` / channel `%s` / author `%s` (%s)\n", msg.Scope(), msg.ChannelID, msg.AuthorID, msg.AuthorName)
	text += fmt.Sprintf("Verdict: `%s`\n", v.String())
	if msg.Content != "" {
		text += fmt.Sprintf("> %s\n", helpers.Truncate(msg.Content, 200))
	}
	if err := n.sendSlackMsg(ctx, text); err != nil {
		return err
	}
	notificationCount.WithLabelValues("spam").Inc()
	return nil
}

func (n *SlackNotifier) SendReport(ctx context.Context, scope string, rep *dispatch.Report[string]) error {
	if err := n.sendSlackMsg(ctx, reportBody(scope, rep)); err != nil {
		return err
	}
	notificationCount.WithLabelValues("report").Inc()
	return nil
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(respBody) != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func reportBody(scope string, rep *dispatch.Report[string]) string {
	msg := fmt.Sprintf("🔨 Moderation Action `%s` in `%s`: %s succeeded\n", rep.Action, scope, rep.Summary())
	for _, o := range dispatch.AllOutcomes {
		targets := rep.Targets(o)
		if len(targets) == 0 {
			continue
		}
		msg += fmt.Sprintf("%s: `%s`\n", o, strings.Join(targets, ", "))
	}
	if len(rep.Dropped) > 0 {
		msg += fmt.Sprintf("Dropped (over limit): `%s`\n", strings.Join(rep.Dropped, ", "))
	}
	return msg
}
