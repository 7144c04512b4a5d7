package review

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"hh-coverletter/internal/ai"
	"hh-coverletter/internal/logger"

	"go.uber.org/zap"
)

const critiquePreviewLimit = 200

// Verdict is the parsed result of one gate check.
type Verdict struct {
	Pass bool
	// Critique carries the gate's reasoning for a fail, or the raw
	// response when the verdict token was ambiguous.
	Critique string
}

// Gate runs one boolean-verdict quality check against the generation
// backend. Two instances exist, parameterized with different prompts:
// adequacy and punctuation.
type Gate struct {
	name      string
	generator ai.Generator
	prompt    func(text string) (string, error)
	failOpen  bool
	logger    *zap.Logger
}

// NewGate creates a quality gate. promptFn builds the check prompt for a
// candidate text. When failOpen is false (the default policy), an ambiguous
// verdict counts as a fail so unreviewed content is never silently accepted.
func NewGate(name string, generator ai.Generator, promptFn func(text string) (string, error), failOpen bool, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}

	return &Gate{
		name:      name,
		generator: generator,
		prompt:    promptFn,
		failOpen:  failOpen,
		logger:    log.With(zap.String("gate", name)),
	}
}

// Check sends the candidate text for review and parses the verdict.
// A backend error is returned as an error, distinct from a content fail.
func (g *Gate) Check(ctx context.Context, text string) (Verdict, error) {
	prompt, err := g.prompt(text)
	if err != nil {
		return Verdict{}, fmt.Errorf("%s gate prompt: %w", g.name, err)
	}

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("%s gate check: %w", g.name, err)
	}

	verdict := parseVerdict(raw, g.failOpen)

	g.logger.Debug("gate verdict",
		zap.Bool("pass", verdict.Pass),
		zap.String("critique_preview", logger.TruncateForLog(verdict.Critique, critiquePreviewLimit)),
	)

	return verdict, nil
}

// parseVerdict extracts a pass/fail token from the gate response. The first
// word decides; reasoning on the following lines becomes the critique. A
// response with no recognizable token falls back to the fail-safe default
// and keeps the whole response as the critique.
func parseVerdict(raw string, failOpen bool) Verdict {
	trimmed := strings.TrimSpace(raw)

	token, rest := splitVerdictToken(trimmed)
	switch token {
	case "yes", "да":
		return Verdict{Pass: true}
	case "no", "нет":
		critique := strings.TrimSpace(rest)
		if critique == "" {
			critique = trimmed
		}
		return Verdict{Pass: false, Critique: critique}
	}

	return Verdict{Pass: failOpen, Critique: trimmed}
}

// splitVerdictToken returns the leading word of the response, lowercased and
// stripped of punctuation, plus the remainder.
func splitVerdictToken(s string) (string, string) {
	cut := strings.IndexFunc(s, unicode.IsSpace)
	head, rest := s, ""
	if cut != -1 {
		head, rest = s[:cut], s[cut:]
	}

	head = strings.TrimFunc(head, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	return strings.ToLower(head), rest
}
