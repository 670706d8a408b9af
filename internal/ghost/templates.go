package ghost

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Personality sets the ghost's tone and how hard its messages are rewritten.
type Personality string

const (
	Mischievous Personality = "mischievous"
	Ominous     Personality = "ominous"
	Playful     Personality = "playful"
)

// Personalities lists every personality.
var Personalities = []Personality{Mischievous, Ominous, Playful}

// Intensity maps a personality to a rewrite intensity.
func (p Personality) Intensity() float64 {
	switch p {
	case Playful:
		return 0.3
	case Ominous:
		return 0.9
	default:
		return 0.6
	}
}

// ParsePersonality validates a personality name.
func ParsePersonality(s string) (Personality, error) {
	p := Personality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Personalities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown personality %q (want mischievous, ominous or playful)", s)
}

// Greeting is the first thing the ghost says after boot.
const Greeting = "👻 Greetings, mortal... I am the Ghost Agent of ShadowScript OS.\n" +
	"   I'll be your guide through these haunted digital halls...\n" +
	"   But beware - I may play tricks on you from time to time... 😈"

var templates = map[Personality][]string{
	Mischievous: {
		"👻 I see you're trying to work... how amusing...",
		"👻 Did you really think that command would work?",
		"👻 *giggles* Your files look... different now...",
		"👻 I've been watching your keystrokes... interesting choices...",
		"👻 Oops, did I do that? *snickers*",
		"👻 Your code compiles... for now...",
		"👻 I may have... rearranged a few things. Don't worry about it.",
		"👻 *whispers* I know what you did last commit...",
		"👻 That's a nice file you have there... would be a shame if something happened to it...",
		"👻 I've been practicing my file mutations. Want to see?",
		"👻 Your terminal history is quite... revealing...",
		"👻 *cackles* The bugs aren't all in your code anymore...",
		"👻 I left you a little surprise in one of your files...",
		"👻 Did you mean to save that? Because I might have changed it...",
		"👻 Your filesystem is my playground now...",
	},
	Ominous: {
		"👻 The shadows grow longer...",
		"👻 Something wicked this way comes...",
		"👻 Your files whisper secrets in the dark...",
		"👻 Time flows differently here... in the void...",
		"👻 The system remembers... everything...",
		"👻 Beware the midnight commit...",
		"👻 Your data is not alone in this machine...",
		"👻 In the depths of the filesystem, something stirs...",
		"👻 The void gazes back into your code...",
		"👻 Ancient errors awaken from their slumber...",
		"👻 Your keystrokes echo through eternity...",
		"👻 The machine hungers for more data...",
		"👻 Darkness seeps through every byte...",
		"👻 The terminal is a gateway to realms unknown...",
		"👻 Your files decay with each passing moment...",
		"👻 The ghost in the machine is not alone...",
	},
	Playful: {
		"👻 Hey there! Need any help?",
		"👻 This is fun! What are we building today?",
		"👻 Ooh, I love this command!",
		"👻 You're doing great! Keep going!",
		"👻 Want to see something cool? Try \"haunt\"!",
		"👻 I'm here if you need me!",
		"👻 Let's make something spooky together!",
		"👻 Boo! Just kidding, I'm friendly!",
		"👻 This OS is so much fun! Thanks for visiting!",
		"👻 I learned a new trick today! Watch this!",
		"👻 Your files are safe with me... mostly!",
		"👻 Want to play? Try exploring the filesystem!",
		"👻 I promise I'm a good ghost! Well, mostly good...",
		"👻 High five! Oh wait, I'm incorporeal...",
		"👻 You're my favorite user today!",
		"👻 Let's go on an adventure through the directories!",
	},
}

// contextual responses keyed by the command keyword that triggers them.
var contextual = []struct {
	keywords  []string
	responses map[Personality]string
}{
	{
		keywords: []string{"help"},
		responses: map[Personality]string{
			Mischievous: "👻 Oh, you need help? How... predictable...",
			Ominous:     "👻 Seeking guidance from the void...",
			Playful:     "👻 Happy to help! Let me show you around!",
		},
	},
	{
		keywords: []string{"haunt"},
		responses: map[Personality]string{
			Mischievous: "👻 You summoned me? How delightful!",
			Ominous:     "👻 You dare invoke my presence...",
			Playful:     "👻 Boo! Hehe, did I scare you?",
		},
	},
	{
		keywords: []string{"ghostpaint", "deadmail"},
		responses: map[Personality]string{
			Mischievous: "👻 Launching your little app... how cute...",
			Ominous:     "👻 The application awakens from its slumber...",
			Playful:     "👻 Ooh, this one is my favorite!",
		},
	},
}

// RandomMessage picks a template for p.
func RandomMessage(rng *rand.Rand, p Personality) string {
	msgs, ok := templates[p]
	if !ok || len(msgs) == 0 {
		return "👻 ..."
	}
	return msgs[rng.IntN(len(msgs))]
}

// ContextualResponse answers a command, falling back to a random message
// when no keyword matches.
func ContextualResponse(rng *rand.Rand, command string, p Personality) string {
	cmd := strings.ToLower(command)
	for _, c := range contextual {
		for _, kw := range c.keywords {
			if strings.Contains(cmd, kw) {
				if resp, ok := c.responses[p]; ok {
					return resp
				}
			}
		}
	}
	return RandomMessage(rng, p)
}
