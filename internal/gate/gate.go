package gate

import (
	"log"
	"sync"
	"time"
)

// Reason codes reported to the director engine. These are a stable
// contract; the brain keys its own backoff logic off them.
const (
	ReasonOK                   = "ok"
	ReasonAlreadyReacted       = "already_reacted"
	ReasonSpeaking             = "nami_speaking"
	ReasonPostSpeechCooldown   = "post_speech_cooldown"
	ReasonMinInterval          = "min_interval"
	ReasonPostResponseCooldown = "post_response_cooldown"
	ReasonRejected             = "nami_rejected"
	ReasonInterruptBypass      = "interrupt_bypass"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Options configures the gate's timing windows and dedup capacity.
type Options struct {
	PostSpeechCooldown   time.Duration
	SpeechTimeout        time.Duration
	MinSpeechInterval    time.Duration
	PostResponseCooldown time.Duration
	MaxTrackedEvents     int
}

// Gate owns all speaking state. The brain fires requests freely; the
// gate decides what actually reaches Nami. Every field is guarded by mu
// and mutated only through methods — each method is one atomic logical
// operation. Outbound network calls never happen under this lock.
type Gate struct {
	mu  sync.Mutex
	now func() time.Time

	speaking        bool
	speechStartedAt time.Time
	lastFinishedAt  time.Time
	lastSource      string
	awaitingUser    bool

	lastInterruptAt time.Time
	interruptCount  int

	lastDispatchAt     time.Time
	lastUserResponseAt time.Time

	reacted      map[string]struct{}
	reactedOrder []string
	maxTracked   int

	opts Options
}

func New(opts Options) *Gate {
	if opts.MaxTrackedEvents <= 0 {
		opts.MaxTrackedEvents = 50
	}
	return &Gate{
		now:        time.Now,
		reacted:    make(map[string]struct{}),
		maxTracked: opts.MaxTrackedEvents,
		opts:       opts,
	}
}

// SetSpeaking records a start/stop report from Nami's TTS.
// The start timestamp is only stamped on a genuine false→true edge.
func (g *Gate) SetSpeaking(speaking bool, source string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if speaking {
		if !g.speaking {
			g.speechStartedAt = g.now()
		}
		g.speaking = true
		if source != "" {
			g.lastSource = source
		}
		log.Printf("[gate] nami started speaking (source: %s)", source)
		return
	}

	var dur time.Duration
	if !g.speechStartedAt.IsZero() {
		dur = g.now().Sub(g.speechStartedAt)
	}
	g.speaking = false
	g.lastFinishedAt = g.now()
	metricSpeechDuration.Observe(dur.Seconds())
	log.Printf("[gate] nami finished (%.1fs, was: %s) - %s breather",
		dur.Seconds(), g.lastSource, g.opts.PostSpeechCooldown)
	// A completed utterance fulfils any pending direct exchange.
	if g.awaitingUser {
		g.awaitingUser = false
		log.Printf("[gate] awaiting cleared - replied to user")
	}
}

// IsSpeaking reports whether Nami is currently speaking, applying the
// timeout failsafe: a lost finish signal unsticks after SpeechTimeout
// instead of deadlocking the gate forever.
func (g *Gate) IsSpeaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isSpeakingLocked(g.now())
}

func (g *Gate) isSpeakingLocked(now time.Time) bool {
	if !g.speaking {
		return false
	}
	if !g.speechStartedAt.IsZero() && now.Sub(g.speechStartedAt) > g.opts.SpeechTimeout {
		log.Printf("[gate] speech timeout (%s) - forcing unlock", g.opts.SpeechTimeout)
		g.speaking = false
		g.awaitingUser = false
		metricTimeoutResets.Inc()
		return false
	}
	return true
}

// InCooldown reports whether we are inside the post-speech breather.
func (g *Gate) InCooldown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inCooldownLocked(g.now())
}

func (g *Gate) inCooldownLocked(now time.Time) bool {
	if g.lastFinishedAt.IsZero() {
		return false
	}
	return now.Sub(g.lastFinishedAt) < g.opts.PostSpeechCooldown
}

// CanSpeak runs the gate chain in order; the first failing rule wins.
func (g *Gate) CanSpeak() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// Gate 1: never talk over herself
	if g.isSpeakingLocked(now) {
		return Decision{Reason: ReasonSpeaking}
	}

	// Gate 2: post-speech breather
	if g.inCooldownLocked(now) {
		return Decision{Reason: ReasonPostSpeechCooldown}
	}

	// Gate 3: min interval between dispatches
	if !g.lastDispatchAt.IsZero() && now.Sub(g.lastDispatchAt) < g.opts.MinSpeechInterval {
		return Decision{Reason: ReasonMinInterval}
	}

	// Gate 4: don't yap right after answering the user
	if !g.lastUserResponseAt.IsZero() && now.Sub(g.lastUserResponseAt) < g.opts.PostResponseCooldown {
		return Decision{Reason: ReasonPostResponseCooldown}
	}

	return Decision{Allowed: true, Reason: ReasonOK}
}

// CheckEventReacted reports whether we already handled this event.
// Dedup is absolute: a reacted event stays rejected even when every
// cooldown has elapsed, until it is evicted by capacity.
func (g *Gate) CheckEventReacted(eventID string) bool {
	if eventID == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.reacted[eventID]
	return ok
}

// RegisterDispatch records a confirmed successful forward. Callers must
// only invoke this after delivery succeeded; a failed delivery must not
// poison the dedup ledger or the min-interval timer.
func (g *Gate) RegisterDispatch(eventID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastDispatchAt = g.now()
	if eventID == "" {
		return
	}
	if _, ok := g.reacted[eventID]; !ok {
		g.reacted[eventID] = struct{}{}
		g.reactedOrder = append(g.reactedOrder, eventID)
	}
	// Evict oldest-first once over capacity.
	for len(g.reactedOrder) > g.maxTracked {
		oldest := g.reactedOrder[0]
		g.reactedOrder = g.reactedOrder[1:]
		delete(g.reacted, oldest)
	}
}

// RegisterUserResponse starts the post-response cooldown: Nami just
// finished a direct reply to a user interaction.
func (g *Gate) RegisterUserResponse() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastUserResponseAt = g.now()
	log.Printf("[gate] user response registered - cooldown active for %s", g.opts.PostResponseCooldown)
}

// ClearUserAwaiting drops the awaiting flag: the user spoke again on
// their own. Idempotent.
func (g *Gate) ClearUserAwaiting() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.awaitingUser {
		log.Printf("[gate] user responded - awaiting cleared")
	}
	g.awaitingUser = false
}

// Interrupt force-clears the speaking lock so the interrupt interjection
// can go out, and suppresses proactive speech until the user speaks
// again. Returns whether Nami was actually speaking, so the caller knows
// an audio stop signal is needed downstream.
func (g *Gate) Interrupt(reason string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	wasSpeaking := g.speaking
	g.speaking = false
	g.lastInterruptAt = g.now()
	g.interruptCount++
	g.awaitingUser = true
	metricInterrupts.Inc()

	if wasSpeaking {
		log.Printf("[gate] INTERRUPT! reason: %s", reason)
	} else {
		log.Printf("[gate] interrupt requested but nami wasn't speaking (reason: %s)", reason)
	}
	return wasSpeaking
}

// Stats is the diagnostic snapshot for /gate_status. Timestamps are unix
// seconds, 0 when the event never happened.
type Stats struct {
	NamiSpeaking          bool     `json:"nami_speaking"`
	AwaitingUserResponse  bool     `json:"awaiting_user_response"`
	InCooldown            bool     `json:"in_cooldown"`
	TotalInterrupts       int      `json:"total_interrupts"`
	LastInterruptTime     float64  `json:"last_interrupt_time"`
	SecondsSinceInterrupt *float64 `json:"seconds_since_interrupt"`
	LastDispatchTime      float64  `json:"last_dispatch_time"`
	SpeechSource          string   `json:"speech_source"`
}

func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	s := Stats{
		NamiSpeaking:         g.isSpeakingLocked(now),
		AwaitingUserResponse: g.awaitingUser,
		InCooldown:           g.inCooldownLocked(now),
		TotalInterrupts:      g.interruptCount,
		SpeechSource:         g.lastSource,
	}
	if !g.lastInterruptAt.IsZero() {
		s.LastInterruptTime = unix(g.lastInterruptAt)
		since := now.Sub(g.lastInterruptAt).Seconds()
		s.SecondsSinceInterrupt = &since
	}
	if !g.lastDispatchAt.IsZero() {
		s.LastDispatchTime = unix(g.lastDispatchAt)
	}
	return s
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
