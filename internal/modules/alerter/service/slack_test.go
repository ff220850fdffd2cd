package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

func captureSlack(t *testing.T, send func(s *Slack) error) slackPayload {
	t.Helper()
	var got slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("content-type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, send(&Slack{url: srv.URL, http: srv.Client()}))
	return got
}

func TestSlack_SignalAttachmentShape(t *testing.T) {
	got := captureSlack(t, func(s *Slack) error {
		return s.SendSignal(context.Background(), &models.Signal{
			Symbol: "6553",
			Side:   models.SideBuy,
			Price:  995,
			Notes:  "k=12.30",
		})
	})

	require.Len(t, got.Attachments, 1)
	att := got.Attachments[0]
	assert.Equal(t, "danger", att.Color, "buy is red")
	assert.Equal(t, "Инструмент: 6553", att.Title)
	assert.Equal(t, "k=12.30", att.Text)
	require.Len(t, att.Fields, 2)
	assert.Equal(t, "Цена", att.Fields[0].Title)
	assert.Equal(t, "995.0000", att.Fields[0].Value)
	assert.Equal(t, "Направление", att.Fields[1].Title)
	assert.Equal(t, "покупка", att.Fields[1].Value)
	assert.Contains(t, att.Footer, "KDJ")
}

func TestSlack_SellSignalIsGreen(t *testing.T) {
	got := captureSlack(t, func(s *Slack) error {
		return s.SendSignal(context.Background(), &models.Signal{
			Symbol: "6553",
			Side:   models.SideSell,
			Price:  1012,
		})
	})

	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "good", got.Attachments[0].Color)
	assert.Equal(t, "продажа", got.Attachments[0].Fields[1].Value)
}

func TestSlack_OrderAttachmentShape(t *testing.T) {
	got := captureSlack(t, func(s *Slack) error {
		return s.SendOrder(context.Background(), models.Order{
			Symbol: "btc_jpy",
			Side:   models.OrderSideBuyClose,
			Price:  900000,
			Amount: 0.5,
		})
	})

	require.Len(t, got.Attachments, 1)
	att := got.Attachments[0]
	assert.Equal(t, "Ордер: btc_jpy", att.Title)
	require.Len(t, att.Fields, 3)
	assert.Equal(t, "900000.0000", att.Fields[0].Value)
	assert.Equal(t, "buyclose", att.Fields[1].Value)
	assert.Equal(t, "0.5000", att.Fields[2].Value)
	assert.Contains(t, att.Footer, "trader")
}

// Пустой вебхук — алерт молча не отправляется, это не ошибка.
func TestSlack_NoURLIsNoop(t *testing.T) {
	s := NewSlack(&config.Config{})
	assert.NoError(t, s.SendSignal(context.Background(), &models.Signal{Symbol: "6553"}))
}
