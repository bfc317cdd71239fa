package director

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Context is the enrichment block the director builds for a speech
// event: the full structured prompt plus auxiliary state for Nami's
// prompt builder. Auxiliary fields are pointers so an absent value
// passes through as null rather than "".
type Context struct {
	Context    string  `json:"context"`
	Mood       *string `json:"mood"`
	Scene      *string `json:"scene"`
	Directive  *string `json:"directive"`
	ActiveUser *string `json:"active_user"`
}

type Client interface {
	FetchContext(ctx context.Context, trigger, eventID string, metadata map[string]any) (*Context, error)
}

type HTTPClient struct {
	http    *http.Client
	base    string
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		http:    &http.Client{},
		base:    baseURL,
		timeout: timeout,
	}
}

// FetchContext asks the director to tailor a context block to this
// speech event. The trigger and metadata are passed back so retrieval
// can differ per event kind (a skill issue vs dead air may pull
// different memories or detail levels).
func (c *HTTPClient) FetchContext(ctx context.Context, trigger, eventID string, metadata map[string]any) (*Context, error) {
	body := map[string]any{
		"trigger":  trigger,
		"event_id": eventID,
		"metadata": metadata,
	}
	var out bytes.Buffer
	if err := json.NewEncoder(&out).Encode(body); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.base+"/context", &out)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("director /context: %s: %s", resp.Status, string(b))
	}

	var parsed Context
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
