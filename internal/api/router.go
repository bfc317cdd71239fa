package api

import (
	"net/http"
)

func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"status": "ok", "service": "prompt_service"})
	})

	post := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		})
	}
	get := func(path string, fn http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		})
	}

	// Brain -> prompt service
	post("/speak", h.HandleSpeak)
	post("/user_responded", h.HandleUserResponded)
	post("/register_bot_response", h.HandleRegisterBotResponse)

	// Nami's TTS -> prompt service
	post("/speech_started", h.HandleSpeechStarted)
	post("/speech_finished", h.HandleSpeechFinished)

	// Status / debug
	get("/gate_status", h.HandleGateStatus)
	get("/speech_state", h.HandleSpeechState)
	get("/events", h.HandleListEvents)

	return mux
}
