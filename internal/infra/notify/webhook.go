package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"meeting-scribe/internal/domain/ports/adapter"
)

var _ adapter.NotificationSink = (*Webhook)(nil)

// Webhook posts terminal job statuses from the worker back to the API
// server, which fans them out to connected clients. Deliveries are
// fire-and-forget; a failure is logged and dropped.
type Webhook struct {
	baseURL     string
	internalKey string
	cli         *http.Client
	log         *zerolog.Logger
}

func NewWebhook(baseURL, internalKey string, log *zerolog.Logger) *Webhook {
	return &Webhook{
		baseURL:     baseURL,
		internalKey: internalKey,
		cli:         &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type notifyPayload struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
	Status    string `json:"status"`
}

func (w *Webhook) Notify(ctx context.Context, userID, meetingID, status string) error {
	body, err := json.Marshal(notifyPayload{MeetingID: meetingID, UserID: userID, Status: status})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/internal/notify", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.internalKey)

	resp, err := w.cli.Do(req)
	if err != nil {
		w.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("notify delivery failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.Warn().Int("status", resp.StatusCode).Str("meeting_id", meetingID).Msg("notify rejected")
		return fmt.Errorf("notify: unexpected status %d", resp.StatusCode)
	}
	return nil
}
