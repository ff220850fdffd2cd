package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"

	"github.com/bytedance/sonic"
)

// Slack — вебхук с attachments: цвет по стороне, цена/направление полями.
type Slack struct {
	url  string
	http *http.Client
}

func NewSlack(cfg *config.Config) *Slack {
	return &Slack{
		url:  cfg.Slack.URL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color      string       `json:"color"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
	Fields     []slackField `json:"fields"`
	Footer     string       `json:"footer"`
	FooterIcon string       `json:"footer_icon"`
}

func (s *Slack) post(ctx context.Context, att slackAttachment) error {
	if s.url == "" {
		return nil
	}
	payload, err := sonic.Marshal(map[string]any{
		"attachments": []slackAttachment{att},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack: status=%d", resp.StatusCode)
	}
	return nil
}

func sideColor(side models.Side) string {
	if side == models.SideBuy {
		return "danger"
	}
	return "good"
}

func sideLabel(side models.Side) string {
	if side == models.SideBuy {
		return "покупка"
	}
	return "продажа"
}

func (s *Slack) SendSignal(ctx context.Context, sig *models.Signal) error {
	return s.post(ctx, slackAttachment{
		Color: sideColor(sig.Side),
		Title: "Инструмент: " + sig.Symbol,
		Text:  sig.Notes,
		Fields: []slackField{
			{Title: "Цена", Value: fmt.Sprintf("%.4f", sig.Price), Short: true},
			{Title: "Направление", Value: sideLabel(sig.Side), Short: true},
		},
		Footer:     "KDJ " + time.Now().Format("2006-01-02 15:04:05"),
		FooterIcon: "https://platform.slack-edge.com/img/default_application_icon.png",
	})
}

func (s *Slack) SendOrder(ctx context.Context, order models.Order) error {
	return s.post(ctx, slackAttachment{
		Color: sideColor(models.Side(order.Side)),
		Title: "Ордер: " + order.Symbol,
		Fields: []slackField{
			{Title: "Цена", Value: fmt.Sprintf("%.4f", order.Price), Short: true},
			{Title: "Сторона", Value: string(order.Side), Short: true},
			{Title: "Количество", Value: fmt.Sprintf("%.4f", order.Amount), Short: true},
		},
		Footer: "trader " + time.Now().Format("2006-01-02 15:04:05"),
	})
}
