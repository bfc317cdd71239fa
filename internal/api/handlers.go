package api

import (
	"encoding/json"
	"io"
	"net/http"

	"nami/promptsvc/internal/dispatch"
	"nami/promptsvc/internal/events"
	"nami/promptsvc/internal/gate"
	"nami/promptsvc/internal/types"
)

type Handlers struct {
	gate *gate.Gate
	disp *dispatch.Dispatcher
	log  *events.Log
}

func NewHandlers(g *gate.Gate, d *dispatch.Dispatcher, l *events.Log) *Handlers {
	return &Handlers{gate: g, disp: d, log: l}
}

// HandleSpeak receives every speech request from the brain.
func (h *Handlers) HandleSpeak(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateSpeakBody(raw); err != nil {
		http.Error(w, "invalid speak request: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := types.Defaults()
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, "decode: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := h.disp.HandleSpeak(r.Context(), req)
	WriteJSON(w, res)
}

// HandleUserResponded clears the awaiting state: the user spoke again.
func (h *Handlers) HandleUserResponded(w http.ResponseWriter, r *http.Request) {
	h.gate.ClearUserAwaiting()
	WriteJSON(w, map[string]any{"status": "ok"})
}

// HandleRegisterBotResponse starts the post-response cooldown.
func (h *Handlers) HandleRegisterBotResponse(w http.ResponseWriter, r *http.Request) {
	h.gate.RegisterUserResponse()
	WriteJSON(w, map[string]any{"status": "ok"})
}

// HandleSpeechStarted is Nami's TTS reporting a start.
func (h *Handlers) HandleSpeechStarted(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Source string `json:"source"`
	}
	// An empty body is fine; source is optional.
	_ = json.NewDecoder(r.Body).Decode(&payload)
	h.gate.SetSpeaking(true, payload.Source)
	h.log.Append("speech_started", map[string]any{"source": payload.Source})
	WriteJSON(w, map[string]any{"status": "ok"})
}

// HandleSpeechFinished is Nami's TTS reporting completion.
func (h *Handlers) HandleSpeechFinished(w http.ResponseWriter, r *http.Request) {
	h.gate.SetSpeaking(false, "")
	h.log.Append("speech_finished", nil)
	WriteJSON(w, map[string]any{"status": "ok"})
}

// HandleGateStatus dumps the full gate state for debugging.
func (h *Handlers) HandleGateStatus(w http.ResponseWriter, r *http.Request) {
	dec := h.gate.CanSpeak()
	stats := h.gate.Stats()

	out := map[string]any{
		"nami_speaking":           stats.NamiSpeaking,
		"awaiting_user_response":  stats.AwaitingUserResponse,
		"in_cooldown":             stats.InCooldown,
		"total_interrupts":        stats.TotalInterrupts,
		"last_interrupt_time":     stats.LastInterruptTime,
		"seconds_since_interrupt": stats.SecondsSinceInterrupt,
		"last_dispatch_time":      stats.LastDispatchTime,
		"speech_source":           stats.SpeechSource,
		"can_speak":               dec.Allowed,
	}
	if dec.Allowed {
		out["block_reason"] = nil
	} else {
		out["block_reason"] = dec.Reason
	}
	WriteJSON(w, out)
}

// HandleSpeechState is the quick is-she-talking check.
func (h *Handlers) HandleSpeechState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, map[string]any{"is_speaking": h.gate.IsSpeaking()})
}

// HandleListEvents returns the recent gate activity log.
func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, map[string]any{"events": h.log.List()})
}

func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
