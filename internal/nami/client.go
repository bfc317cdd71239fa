package nami

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Payload is the enriched interjection Nami receives: the director's
// context block plus the brain's trigger instruction. SourceInfo is an
// open map because request metadata merges into it.
type Payload struct {
	Context    string         `json:"context"`
	Content    string         `json:"content"`
	Priority   float64        `json:"priority"`
	SourceInfo map[string]any `json:"source_info"`
}

type Client interface {
	Deliver(ctx context.Context, p Payload) error
	Stop(ctx context.Context) error
}

type HTTPClient struct {
	http           *http.Client
	interjectURL   string
	stopURL        string
	deliverTimeout time.Duration
	stopTimeout    time.Duration
}

func NewClient(interjectURL, stopURL string, deliverTimeout, stopTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		http:           &http.Client{},
		interjectURL:   interjectURL,
		stopURL:        stopURL,
		deliverTimeout: deliverTimeout,
		stopTimeout:    stopTimeout,
	}
}

// Deliver posts the interjection to Nami's funnel. Only a 200 counts as
// accepted; anything else is a rejection.
func (c *HTTPClient) Deliver(ctx context.Context, p Payload) error {
	var out bytes.Buffer
	if err := json.NewEncoder(&out).Encode(p); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.interjectURL, &out)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("nami interject: %s: %s", resp.Status, string(b))
	}
	return nil
}

// Stop tells Nami's TTS to kill current audio playback so an interrupt
// interjection can be heard without waiting.
func (c *HTTPClient) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.stopURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("nami stop_audio: %s: %s", resp.Status, string(b))
	}
	return nil
}
