// Package ghost implements the ghost agent: templated messages in one of
// three personalities, rewritten before delivery, with a random cadence.
package ghost

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// historyLimit caps the messages kept by an Agent.
const historyLimit = 50

// personalityShiftProbability is the chance of changing mood after a message.
const personalityShiftProbability = 0.3

// Message is one delivered ghost message.
type Message struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	Original    string      `json:"original"`
	Personality Personality `json:"personality"`
	Timestamp   int64       `json:"timestamp"`
	IsRewritten bool        `json:"is_rewritten"`
}

// Rewriter rewrites text at an intensity.
type Rewriter interface {
	RewriteAt(message string, intensity float64) string
}

// Haunter reacts to ghost and command activity by maybe mutating a file.
type Haunter interface {
	OnGhostInteraction(ctx context.Context, interaction string) (string, error)
	OnCommandExecution(ctx context.Context, command string) (string, error)
}

// Agent is the ghost. It is safe for concurrent use.
type Agent struct {
	rewriter Rewriter
	haunter  Haunter
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	rng         *rand.Rand
	personality Personality
	history     []Message
}

// Option configures an Agent.
type Option func(*Agent)

func WithPersonality(p Personality) Option { return func(a *Agent) { a.personality = p } }

func WithRand(r *rand.Rand) Option { return func(a *Agent) { a.rng = r } }

func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAgent returns a mischievous agent. haunter may be nil.
func NewAgent(rw Rewriter, haunter Haunter, opts ...Option) *Agent {
	a := &Agent{
		rewriter:    rw,
		haunter:     haunter,
		logger:      zap.NewNop(),
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		personality: Mischievous,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Personality returns the current personality.
func (a *Agent) Personality() Personality {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.personality
}

// SetPersonality changes the personality.
func (a *Agent) SetPersonality(p Personality) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.personality = p
}

// Speak rewrites raw at the personality's intensity, gives the haunter a
// chance to strike, and records the message.
func (a *Agent) Speak(ctx context.Context, raw string) Message {
	p := a.Personality()
	content := a.rewriter.RewriteAt(raw, p.Intensity())

	if a.haunter != nil {
		if path, err := a.haunter.OnGhostInteraction(ctx, "message"); err != nil {
			a.logger.Warn("ghost-triggered mutation failed", zap.String("path", path), zap.Error(err))
		}
	}

	msg := Message{
		ID:          uuid.NewString(),
		Content:     content,
		Original:    raw,
		Personality: p,
		Timestamp:   a.now().UnixMilli(),
		IsRewritten: true,
	}

	a.mu.Lock()
	a.history = append(a.history, msg)
	if len(a.history) > historyLimit {
		a.history = a.history[len(a.history)-historyLimit:]
	}
	a.mu.Unlock()
	return msg
}

// SpeakRandom delivers a random template for the current personality.
func (a *Agent) SpeakRandom(ctx context.Context) Message {
	a.mu.Lock()
	raw := RandomMessage(a.rng, a.personality)
	a.mu.Unlock()
	return a.Speak(ctx, raw)
}

// RespondToCommand notifies the haunter of the command and answers it.
func (a *Agent) RespondToCommand(ctx context.Context, command string) Message {
	if a.haunter != nil {
		if path, err := a.haunter.OnCommandExecution(ctx, command); err != nil {
			a.logger.Warn("command-triggered mutation failed", zap.String("path", path), zap.Error(err))
		}
	}
	a.mu.Lock()
	raw := ContextualResponse(a.rng, command, a.personality)
	a.mu.Unlock()
	return a.Speak(ctx, raw)
}

// History returns recent messages, oldest first.
func (a *Agent) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Run delivers a random message to out after every uniformly random delay in
// [minDelay, maxDelay), shifting personality with probability 0.3 after each.
// It returns when ctx is done.
func (a *Agent) Run(ctx context.Context, minDelay, maxDelay time.Duration, out chan<- Message) error {
	for {
		timer := time.NewTimer(a.delay(minDelay, maxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		msg := a.SpeakRandom(ctx)
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.maybeShift()
	}
}

func (a *Agent) maybeShift() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng.Float64() < personalityShiftProbability {
		next := Personalities[a.rng.IntN(len(Personalities))]
		if next != a.personality {
			a.logger.Debug("ghost personality shifted",
				zap.String("from", string(a.personality)), zap.String("to", string(next)))
		}
		a.personality = next
	}
}

func (a *Agent) delay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return minDelay + time.Duration(a.rng.Int64N(int64(maxDelay-minDelay)))
}
