// Package webhook notifies an HTTP endpoint when a tracking session ends.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Headers set on every delivery.
const (
	SignatureHeader = "X-Vidtrack-Signature"
	EventHeader     = "X-Vidtrack-Event"
	AttemptHeader   = "X-Vidtrack-Attempt"
)

// EventSessionStopped is sent after a session exported its link list.
const EventSessionStopped = "session.stopped"

// SessionStopped describes a finished session.
type SessionStopped struct {
	Profile   string  `json:"profile"`
	Count     int     `json:"count"`
	Path      string  `json:"path"`
	StartedAt int64   `json:"started_at"`
	Duration  float64 `json:"duration_seconds"`
}

// Event is the JSON body posted to the endpoint.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Timestamp int64           `json:"timestamp"`
	Data      *SessionStopped `json:"data"`
}

// NewSessionStopped builds the event for a session that ran from startedAt
// until now.
func NewSessionStopped(sessionID string, startedAt time.Time, data SessionStopped) *Event {
	now := time.Now()
	data.StartedAt = startedAt.Unix()
	data.Duration = now.Sub(startedAt).Seconds()
	return &Event{
		Type:      EventSessionStopped,
		SessionID: sessionID,
		Timestamp: now.Unix(),
		Data:      &data,
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier posts events to one endpoint, signing bodies when it has a secret.
type Notifier struct {
	url    string
	secret string
	client *http.Client

	// delays are the waits before each attempt.
	delays []time.Duration
}

// NewNotifier returns a Notifier for url. Deliveries are retried after 1s,
// 5s and 30s.
func NewNotifier(url, secret string) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Send makes one delivery attempt.
func (n *Notifier) Send(ctx context.Context, event *Event, attempt int) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Vidtrack-Webhook/1.0")
	req.Header.Set(EventHeader, event.Type)
	req.Header.Set(AttemptHeader, fmt.Sprint(attempt))
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers event in the background until an attempt succeeds or the
// retries run out. The returned channel is closed when it gives up or
// succeeds.
func (n *Notifier) Notify(event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		log := slog.With("url", n.url, "event", event.Type, "session", event.SessionID)
		for i, delay := range n.delays {
			if delay > 0 {
				<-time.After(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
			err := n.Send(ctx, event, i+1)
			cancel()
			if err == nil {
				log.Info("webhook delivered", "attempt", i+1)
				return
			}
			log.Warn("webhook delivery failed", "attempt", i+1, "error", err)
		}
		log.Error("webhook delivery gave up", "attempts", len(n.delays))
	}()
	return done
}
