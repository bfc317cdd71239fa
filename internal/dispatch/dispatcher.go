package dispatch

import (
	"context"
	"log"

	"github.com/google/uuid"
	"nami/promptsvc/internal/director"
	"nami/promptsvc/internal/events"
	"nami/promptsvc/internal/gate"
	"nami/promptsvc/internal/nami"
	"nami/promptsvc/internal/types"
)

// Dispatcher runs admitted requests through enrichment and delivery.
// Gate bookkeeping is atomic inside the gate; the outbound calls here
// happen with no gate lock held.
type Dispatcher struct {
	gate     *gate.Gate
	director director.Client
	nami     nami.Client
	log      *events.Log
}

func New(g *gate.Gate, d director.Client, n nami.Client, l *events.Log) *Dispatcher {
	return &Dispatcher{gate: g, director: d, nami: n, log: l}
}

// HandleSpeak is the single entry point for speech requests from the
// brain. Interrupts bypass every gate; everything else runs the full
// chain. Collaborator failures never escape — the worst the brain sees
// is delivered=false with a reason code.
func (d *Dispatcher) HandleSpeak(ctx context.Context, req types.SpeakRequest) types.SpeakResult {
	reqID := uuid.New().String()

	d.log.Append("speak_received", map[string]any{
		"request_id": reqID, "trigger": req.Trigger, "event_id": req.EventID, "is_interrupt": req.IsInterrupt,
	})

	// --- INTERRUPT PATH (bypasses normal gates) ---
	if req.IsInterrupt {
		wasSpeaking := d.gate.Interrupt(req.Trigger)
		d.log.Append("interrupt", map[string]any{
			"request_id": reqID, "reason": req.Trigger, "was_speaking": wasSpeaking,
		})

		// If she was speaking, kill the current audio first. Best-effort:
		// a failed stop never blocks the interrupt interjection itself.
		if wasSpeaking {
			if err := d.nami.Stop(ctx); err != nil {
				log.Printf("[dispatch] failed to stop nami audio: %v", err)
			} else {
				log.Printf("[dispatch] audio killed on nami (reason: %s)", req.Trigger)
			}
		}

		delivered := d.forward(ctx, req, reqID)
		return types.SpeakResult{
			Delivered:   delivered,
			GateResult:  gate.ReasonInterruptBypass,
			Interrupted: &wasSpeaking,
			RequestID:   reqID,
		}
	}

	// --- NORMAL PATH (full gate check) ---

	// Dedup is absolute: an already-handled event loses even when every
	// cooldown would allow speech.
	if d.gate.CheckEventReacted(req.EventID) {
		d.log.Append("speak_blocked", map[string]any{
			"request_id": reqID, "reason": gate.ReasonAlreadyReacted, "event_id": req.EventID,
		})
		metricBlocked.WithLabelValues(gate.ReasonAlreadyReacted).Inc()
		return types.SpeakResult{GateResult: gate.ReasonAlreadyReacted, RequestID: reqID}
	}

	dec := d.gate.CanSpeak()
	if !dec.Allowed {
		log.Printf("[dispatch] blocked: %s | %s: %s", dec.Reason, req.Trigger, truncate(req.Content, 40))
		d.log.Append("speak_blocked", map[string]any{
			"request_id": reqID, "reason": dec.Reason, "trigger": req.Trigger,
		})
		metricBlocked.WithLabelValues(dec.Reason).Inc()
		return types.SpeakResult{GateResult: dec.Reason, RequestID: reqID}
	}

	delivered := d.forward(ctx, req, reqID)
	if delivered {
		// Only a confirmed delivery counts as a dispatch; a failed one
		// must not poison the dedup ledger or the interval timer.
		d.gate.RegisterDispatch(req.EventID)
		metricDispatches.Inc()
		return types.SpeakResult{Delivered: true, GateResult: gate.ReasonOK, RequestID: reqID}
	}
	return types.SpeakResult{GateResult: gate.ReasonRejected, RequestID: reqID}
}

// forward fetches context from the director and delivers the enriched
// interjection. A missing context block never stops the utterance.
func (d *Dispatcher) forward(ctx context.Context, req types.SpeakRequest, reqID string) bool {
	dctx, err := d.director.FetchContext(ctx, req.Trigger, req.EventID, req.Metadata)
	if err != nil {
		log.Printf("[dispatch] context fetch failed - sending without context: %v", err)
		metricContextFailures.Inc()
		dctx = nil
	}

	contextBlock := ""
	if dctx != nil {
		contextBlock = dctx.Context
	}
	if contextBlock == "" {
		log.Printf("[dispatch] no context block - nami will use base personality for: %s", req.Trigger)
	}

	payload := buildPayload(req, contextBlock, dctx)

	if err := d.nami.Deliver(ctx, payload); err != nil {
		log.Printf("[dispatch] delivery failed: %v", err)
		metricDeliveryFailures.Inc()
		d.log.Append("delivery_failed", map[string]any{"request_id": reqID, "trigger": req.Trigger})
		return false
	}

	log.Printf("[dispatch] delivered: %s -> %s", req.Trigger, truncate(req.Content, 50))
	d.log.Append("dispatched", map[string]any{"request_id": reqID, "trigger": req.Trigger, "event_id": req.EventID})
	return true
}

// buildPayload assembles what Nami receives. source_info merges the
// fixed shape, the director's auxiliary state, and finally the request
// metadata — metadata wins name collisions.
func buildPayload(req types.SpeakRequest, contextBlock string, dctx *director.Context) nami.Payload {
	priority := req.Priority
	if req.IsInterrupt {
		priority = 0.0
	}

	sourceInfo := map[string]any{
		"source":       req.Source,
		"use_tts":      true,
		"is_interrupt": req.IsInterrupt,
	}
	if dctx != nil {
		sourceInfo["mood"] = dctx.Mood
		sourceInfo["scene"] = dctx.Scene
		sourceInfo["directive"] = dctx.Directive
		sourceInfo["active_user"] = dctx.ActiveUser
	} else {
		sourceInfo["mood"] = nil
		sourceInfo["scene"] = nil
		sourceInfo["directive"] = nil
		sourceInfo["active_user"] = nil
	}
	for k, v := range req.Metadata {
		sourceInfo[k] = v
	}

	return nami.Payload{
		Context:    contextBlock,
		Content:    req.Content,
		Priority:   priority,
		SourceInfo: sourceInfo,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
