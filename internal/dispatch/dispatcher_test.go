package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"nami/promptsvc/internal/director"
	"nami/promptsvc/internal/events"
	"nami/promptsvc/internal/gate"
	"nami/promptsvc/internal/nami"
	"nami/promptsvc/internal/types"
)

type stubDirector struct {
	ctx   *director.Context
	err   error
	calls int
}

func (s *stubDirector) FetchContext(_ context.Context, trigger, eventID string, metadata map[string]any) (*director.Context, error) {
	s.calls++
	return s.ctx, s.err
}

type stubNami struct {
	deliverErr error
	stopErr    error
	delivered  []nami.Payload
	stops      int
}

func (s *stubNami) Deliver(_ context.Context, p nami.Payload) error {
	if s.deliverErr != nil {
		return s.deliverErr
	}
	s.delivered = append(s.delivered, p)
	return nil
}

func (s *stubNami) Stop(_ context.Context) error {
	s.stops++
	return s.stopErr
}

func strP(s string) *string { return &s }

func newGate() *gate.Gate {
	return gate.New(gate.Options{
		PostSpeechCooldown:   5 * time.Second,
		SpeechTimeout:        60 * time.Second,
		MinSpeechInterval:    5 * time.Second,
		PostResponseCooldown: 10 * time.Second,
		MaxTrackedEvents:     50,
	})
}

func newDispatcher(g *gate.Gate, dir *stubDirector, n *stubNami) *Dispatcher {
	return New(g, dir, n, events.New(200))
}

func TestSpeakDelivered(t *testing.T) {
	g := newGate()
	dir := &stubDirector{ctx: &director.Context{Context: "X", Mood: strP("calm")}}
	n := &stubNami{}
	d := newDispatcher(g, dir, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{
		Trigger: "dead_air", Content: "say something", Priority: 0.5, Source: "DIRECTOR", EventID: "e1",
	})

	if !res.Delivered || res.GateResult != gate.ReasonOK {
		t.Fatalf("expected ok delivery, got %+v", res)
	}
	if res.RequestID == "" {
		t.Fatal("expected a request id")
	}
	if len(n.delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(n.delivered))
	}
	p := n.delivered[0]
	if p.Context != "X" || p.Content != "say something" || p.Priority != 0.5 {
		t.Fatalf("unexpected payload %+v", p)
	}
	if mood, _ := p.SourceInfo["mood"].(*string); mood == nil || *mood != "calm" {
		t.Fatalf("expected mood passed through, got %v", p.SourceInfo["mood"])
	}
	if p.SourceInfo["use_tts"] != true || p.SourceInfo["is_interrupt"] != false {
		t.Fatalf("unexpected source_info %+v", p.SourceInfo)
	}
	// Successful delivery registers the dispatch and dedups the event.
	if !g.CheckEventReacted("e1") {
		t.Fatal("event should be in the dedup ledger after delivery")
	}
	if g.Stats().LastDispatchTime == 0 {
		t.Fatal("dispatch time should be recorded")
	}
}

func TestSpeakBlockedWhileSpeakingMakesNoCalls(t *testing.T) {
	g := newGate()
	g.SetSpeaking(true, "tts")
	dir := &stubDirector{ctx: &director.Context{Context: "X"}}
	n := &stubNami{}
	d := newDispatcher(g, dir, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "thought", Content: "hm"})

	if res.Delivered || res.GateResult != gate.ReasonSpeaking {
		t.Fatalf("expected nami_speaking block, got %+v", res)
	}
	if dir.calls != 0 || len(n.delivered) != 0 || n.stops != 0 {
		t.Fatal("blocked request must not touch collaborators")
	}
}

func TestInterruptBypass(t *testing.T) {
	g := newGate()
	g.SetSpeaking(true, "tts")
	dir := &stubDirector{ctx: &director.Context{Context: "X"}}
	n := &stubNami{}
	d := newDispatcher(g, dir, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{
		Trigger: "interrupt", Content: "stop", IsInterrupt: true, EventID: "e9",
	})

	if !res.Delivered || res.GateResult != gate.ReasonInterruptBypass {
		t.Fatalf("expected interrupt_bypass delivery, got %+v", res)
	}
	if res.Interrupted == nil || !*res.Interrupted {
		t.Fatalf("expected interrupted=true, got %v", res.Interrupted)
	}
	if n.stops != 1 {
		t.Fatalf("expected 1 stop signal, got %d", n.stops)
	}
	if g.IsSpeaking() {
		t.Fatal("interrupt must clear the speaking lock")
	}
	if n.delivered[0].Priority != 0.0 {
		t.Fatalf("interrupt payload must be max priority, got %v", n.delivered[0].Priority)
	}
	// Interrupts never register a dispatch or dedup entry.
	if g.CheckEventReacted("e9") {
		t.Fatal("interrupt must not enter the dedup ledger")
	}
	if g.Stats().LastDispatchTime != 0 {
		t.Fatal("interrupt must not set the dispatch timer")
	}
}

func TestInterruptWhileIdleSkipsStopSignal(t *testing.T) {
	g := newGate()
	dir := &stubDirector{}
	n := &stubNami{}
	d := newDispatcher(g, dir, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "interrupt", IsInterrupt: true})

	if res.Interrupted == nil || *res.Interrupted {
		t.Fatalf("expected interrupted=false, got %v", res.Interrupted)
	}
	if n.stops != 0 {
		t.Fatal("no stop signal when nami wasn't speaking")
	}
	if len(n.delivered) != 1 {
		t.Fatal("interrupt interjection must still be delivered")
	}
}

func TestInterruptStopFailureDoesNotBlockDelivery(t *testing.T) {
	g := newGate()
	g.SetSpeaking(true, "tts")
	n := &stubNami{stopErr: errors.New("connection refused")}
	d := newDispatcher(g, &stubDirector{}, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "interrupt", IsInterrupt: true})
	if !res.Delivered {
		t.Fatalf("stop failure must not fail the interrupt flow, got %+v", res)
	}
}

func TestContextFailureDegradesToEmpty(t *testing.T) {
	g := newGate()
	dir := &stubDirector{err: errors.New("timeout")}
	n := &stubNami{}
	d := newDispatcher(g, dir, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "dead_air", Content: "go"})

	if !res.Delivered {
		t.Fatalf("missing context must never prevent the utterance, got %+v", res)
	}
	p := n.delivered[0]
	if p.Context != "" {
		t.Fatalf("expected empty context block, got %q", p.Context)
	}
	if p.SourceInfo["mood"] != nil {
		t.Fatalf("auxiliary fields should be null without context, got %v", p.SourceInfo["mood"])
	}
}

func TestDedupSecondSubmission(t *testing.T) {
	g := newGate()
	n := &stubNami{}
	d := newDispatcher(g, &stubDirector{}, n)

	first := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "reactive", Content: "a", EventID: "evt-1"})
	if !first.Delivered {
		t.Fatalf("first submission should deliver, got %+v", first)
	}

	second := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "reactive", Content: "a", EventID: "evt-1"})
	if second.Delivered || second.GateResult != gate.ReasonAlreadyReacted {
		t.Fatalf("expected already_reacted, got %+v", second)
	}
	if len(n.delivered) != 1 {
		t.Fatal("second submission must not be delivered")
	}
}

func TestDeliveryFailureDoesNotRegister(t *testing.T) {
	g := newGate()
	n := &stubNami{deliverErr: errors.New("503")}
	d := newDispatcher(g, &stubDirector{}, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{Trigger: "thought", Content: "x", EventID: "e2"})

	if res.Delivered || res.GateResult != gate.ReasonRejected {
		t.Fatalf("expected nami_rejected, got %+v", res)
	}
	if g.CheckEventReacted("e2") {
		t.Fatal("failed delivery must not poison the dedup ledger")
	}
	if g.Stats().LastDispatchTime != 0 {
		t.Fatal("failed delivery must not set the dispatch timer")
	}
}

func TestMetadataWinsSourceInfoCollisions(t *testing.T) {
	g := newGate()
	n := &stubNami{}
	d := newDispatcher(g, &stubDirector{ctx: &director.Context{Context: "X", Mood: strP("calm")}}, n)

	res := d.HandleSpeak(context.Background(), types.SpeakRequest{
		Trigger: "reactive", Content: "x",
		Metadata: map[string]any{"mood": "hyped", "game": "chess"},
	})
	if !res.Delivered {
		t.Fatalf("expected delivery, got %+v", res)
	}
	si := n.delivered[0].SourceInfo
	if si["mood"] != "hyped" {
		t.Fatalf("metadata must win collisions, got %v", si["mood"])
	}
	if si["game"] != "chess" {
		t.Fatalf("metadata must pass through, got %v", si["game"])
	}
}
