package health

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"nami/promptsvc/internal/config"
)

type CheckResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// CheckAll probes both collaborators. Reachability is the bar: the gate
// degrades gracefully when either is down, so a failed check is a
// warning, not an outage.
func CheckAll(ctx context.Context, cfg config.Config) HealthStatus {
	checks := []CheckResult{
		probe(ctx, "director", cfg.Director.URL),
		probe(ctx, "nami", baseOf(cfg.Nami.InterjectURL)),
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

// probe considers any HTTP response proof of life; only transport
// errors count as down.
func probe(ctx context.Context, name, base string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: name}

	if base == "" {
		result.Error = name + " URL not configured"
		result.Latency = time.Since(start).Milliseconds()
		return result
	}

	req, err := http.NewRequestWithContext(ctx, "GET", base+"/health", nil)
	if err != nil {
		result.Error = fmt.Sprintf("request build failed: %v", err)
		result.Latency = time.Since(start).Milliseconds()
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Latency = time.Since(start).Milliseconds()
		return result
	}
	resp.Body.Close()

	result.Latency = time.Since(start).Milliseconds()
	result.OK = true
	return result
}

func baseOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
