package ghost

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRewriter struct {
	intensities []float64
}

func (r *recordingRewriter) RewriteAt(message string, intensity float64) string {
	r.intensities = append(r.intensities, intensity)
	return strings.ToUpper(message)
}

type recordingHaunter struct {
	interactions []string
	commands     []string
}

func (h *recordingHaunter) OnGhostInteraction(_ context.Context, interaction string) (string, error) {
	h.interactions = append(h.interactions, interaction)
	return "", nil
}

func (h *recordingHaunter) OnCommandExecution(_ context.Context, command string) (string, error) {
	h.commands = append(h.commands, command)
	return "", nil
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(42, 42))
}

func TestPersonalityIntensity(t *testing.T) {
	assert.Equal(t, 0.3, Playful.Intensity())
	assert.Equal(t, 0.6, Mischievous.Intensity())
	assert.Equal(t, 0.9, Ominous.Intensity())
}

func TestParsePersonality(t *testing.T) {
	p, err := ParsePersonality(" Ominous ")
	require.NoError(t, err)
	assert.Equal(t, Ominous, p)

	_, err = ParsePersonality("grumpy")
	assert.Error(t, err)
}

func TestRandomMessage(t *testing.T) {
	rng := seeded()
	for _, p := range Personalities {
		msg := RandomMessage(rng, p)
		assert.Contains(t, templates[p], msg)
	}
	assert.Equal(t, "👻 ...", RandomMessage(rng, Personality("unknown")))
}

func TestContextualResponse(t *testing.T) {
	rng := seeded()
	tests := []struct {
		command string
		p       Personality
		want    string
	}{
		{"HELP me", Mischievous, "👻 Oh, you need help? How... predictable..."},
		{"haunt", Ominous, "👻 You dare invoke my presence..."},
		{"deadmail", Playful, "👻 Ooh, this one is my favorite!"},
		{"ghostpaint --new", Ominous, "👻 The application awakens from its slumber..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContextualResponse(rng, tt.command, tt.p), tt.command)
	}

	// No keyword falls back to a template.
	assert.Contains(t, templates[Playful], ContextualResponse(rng, "ls -la", Playful))
}

func TestSpeak(t *testing.T) {
	rw := &recordingRewriter{}
	h := &recordingHaunter{}
	now := time.UnixMilli(1_700_000_000_000)
	a := NewAgent(rw, h, WithPersonality(Ominous), WithRand(seeded()), WithClock(func() time.Time { return now }))

	msg := a.Speak(context.Background(), "boo")
	assert.Equal(t, "BOO", msg.Content)
	assert.Equal(t, "boo", msg.Original)
	assert.Equal(t, Ominous, msg.Personality)
	assert.True(t, msg.IsRewritten)
	assert.Equal(t, now.UnixMilli(), msg.Timestamp)
	assert.Len(t, msg.ID, 36)

	assert.Equal(t, []float64{0.9}, rw.intensities)
	assert.Equal(t, []string{"message"}, h.interactions)
	assert.Equal(t, []Message{msg}, a.History())
}

func TestRespondToCommand(t *testing.T) {
	rw := &recordingRewriter{}
	h := &recordingHaunter{}
	a := NewAgent(rw, h, WithPersonality(Playful), WithRand(seeded()))

	msg := a.RespondToCommand(context.Background(), "help")
	assert.Equal(t, strings.ToUpper("👻 Happy to help! Let me show you around!"), msg.Content)
	assert.Equal(t, []string{"help"}, h.commands)
	assert.Equal(t, []string{"message"}, h.interactions)
	assert.Equal(t, []float64{0.3}, rw.intensities)
}

func TestNilHaunter(t *testing.T) {
	a := NewAgent(&recordingRewriter{}, nil, WithRand(seeded()))
	msg := a.RespondToCommand(context.Background(), "haunt")
	assert.NotEmpty(t, msg.Content)
}

func TestHistoryLimit(t *testing.T) {
	a := NewAgent(&recordingRewriter{}, nil, WithRand(seeded()))
	for i := 0; i < historyLimit+10; i++ {
		a.SpeakRandom(context.Background())
	}
	assert.Len(t, a.History(), historyLimit)
}

func TestRun(t *testing.T) {
	a := NewAgent(&recordingRewriter{}, &recordingHaunter{}, WithRand(seeded()))
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Message)
	done := make(chan error, 1)

	go func() { done <- a.Run(ctx, time.Millisecond, 2*time.Millisecond, out) }()

	for i := 0; i < 5; i++ {
		select {
		case msg := <-out:
			assert.NotEmpty(t, msg.Content)
		case <-time.After(2 * time.Second):
			t.Fatal("no message delivered")
		}
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMaybeShift(t *testing.T) {
	a := NewAgent(&recordingRewriter{}, nil, WithRand(seeded()))
	seen := map[Personality]bool{}
	for i := 0; i < 200; i++ {
		a.maybeShift()
		seen[a.Personality()] = true
	}
	assert.Len(t, seen, 3)
}
