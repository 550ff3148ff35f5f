package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

const webhookTokenTTL = 5 * time.Minute

// WebhookSink POSTs every transition as JSON to a single URL. A non-2xx reply
// counts as a failure. When a secret is set each request carries an HS256
// bearer token the receiver can verify.
type WebhookSink struct {
	url    string
	secret []byte
	client *http.Client
	now    func() time.Time
}

// NewWebhookSink returns a sink that is disabled when url is empty. The
// dispatcher bounds each call, so client may be nil.
func NewWebhookSink(url, secret string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{}
	}
	s := &WebhookSink{url: url, client: client, now: time.Now}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

func (s *WebhookSink) Name() string  { return "webhook" }
func (s *WebhookSink) Enabled() bool { return s.url != "" }

func (s *WebhookSink) OnEnter(ctx context.Context, e domain.TransitionEvent) error {
	return s.post(ctx, e)
}

func (s *WebhookSink) OnExit(ctx context.Context, e domain.TransitionEvent) error {
	return s.post(ctx, e)
}

func (s *WebhookSink) post(ctx context.Context, e domain.TransitionEvent) error {
	body, err := json.Marshal(newEventPayload(e))
	if err != nil {
		return fmt.Errorf("webhook: encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Geofence-Event", string(e.Kind))
	if s.secret != nil {
		token, err := s.sign(e)
		if err != nil {
			return fmt.Errorf("webhook: sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *WebhookSink) sign(e domain.TransitionEvent) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss":      "geofence",
		"sub":      e.Key.String(),
		"event_id": e.ID,
		"iat":      now.Unix(),
		"exp":      now.Add(webhookTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
