package review

import (
	"context"

	"hh-coverletter/internal/ai"
	"hh-coverletter/internal/headhunter"
	"hh-coverletter/internal/letter"
	"hh-coverletter/internal/logger"

	"go.uber.org/zap"
)

// Loop is the self-correction state machine: draft, then adequacy review,
// then punctuation review, each review regenerating with the gate's critique
// up to its round budget. It holds no per-vacancy state, so independent
// vacancies could be processed by independent loops in parallel.
type Loop struct {
	generator ai.Generator
	prompts   *letter.Builder

	// Regeneration budgets per gate. Zero means the gate runs once and a
	// fail is immediately terminal.
	adequacyRounds    int
	punctuationRounds int

	failOpen bool
	logger   *zap.Logger
}

// Config bounds the loop's regeneration budgets and sets the fail-safe
// policy of its gates.
type Config struct {
	AdequacyRounds    int
	PunctuationRounds int
	FailOpenVerdicts  bool
}

// NewLoop wires the loop. prompts must already be validated; generator
// carries its own retry policy.
func NewLoop(generator ai.Generator, prompts *letter.Builder, cfg Config, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.AdequacyRounds < 0 {
		cfg.AdequacyRounds = 0
	}
	if cfg.PunctuationRounds < 0 {
		cfg.PunctuationRounds = 0
	}

	return &Loop{
		generator:         generator,
		prompts:           prompts,
		adequacyRounds:    cfg.AdequacyRounds,
		punctuationRounds: cfg.PunctuationRounds,
		failOpen:          cfg.FailOpenVerdicts,
		logger:            log,
	}
}

// Process runs the loop for one vacancy to a terminal state. Backend calls
// are bounded by 1 + adequacyRounds + punctuationRounds generations plus
// 1 + adequacyRounds + 1 + punctuationRounds gate checks.
func (l *Loop) Process(ctx context.Context, vacancy *headhunter.Vacancy) *Outcome {
	vctx := vacancyContext(vacancy)
	log := l.logger.With(zap.String(logger.FieldVacancyID, vctx.ID))

	adequacy := NewGate("adequacy", l.generator, func(text string) (string, error) {
		return l.prompts.CheckAdequacy(vctx, text)
	}, l.failOpen, log)

	punctuation := NewGate("punctuation", l.generator, func(text string) (string, error) {
		return l.prompts.CheckPunctuation(text)
	}, l.failOpen, log)

	// Drafting. Templates are validated at startup, so a render error here
	// is unexpected; it ends the vacancy the same way a failed backend call
	// does instead of introducing a separate terminal state.
	prompt, err := l.prompts.Draft(vctx)
	if err != nil {
		return &Outcome{State: BackendFailure, Err: err}
	}

	log.Info("generating draft letter")
	text, err := l.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return &Outcome{State: BackendFailure, Err: err}
	}

	// AdequacyReview.
	text, outcome := l.review(ctx, log, adequacy, l.adequacyRounds, text, RejectedAdequacy,
		func(previous, critique string) (string, error) {
			return l.prompts.FixAdequacy(vctx, previous, critique)
		})
	if outcome != nil {
		return outcome
	}

	// PunctuationReview, only on adequacy-accepted text.
	text, outcome = l.review(ctx, log, punctuation, l.punctuationRounds, text, RejectedPunctuation,
		func(previous, critique string) (string, error) {
			return l.prompts.FixPunctuation(previous, critique)
		})
	if outcome != nil {
		return outcome
	}

	log.Info("letter accepted")
	return &Outcome{State: Accepted, Letter: text}
}

// review runs one gate stage: check, regenerate with critique while the
// round budget allows, and produce a terminal outcome on exhaustion or
// backend failure. A nil outcome means the text passed the gate.
func (l *Loop) review(ctx context.Context, log *zap.Logger, gate *Gate, rounds int, text string, rejection State,
	fixPrompt func(previous, critique string) (string, error),
) (string, *Outcome) {
	for attempt := 0; ; attempt++ {
		verdict, err := gate.Check(ctx, text)
		if err != nil {
			return "", &Outcome{State: BackendFailure, Letter: text, Err: err}
		}

		if verdict.Pass {
			return text, nil
		}

		if attempt == rounds {
			log.Info("round budget exhausted",
				zap.String("gate", gate.name),
				zap.Int("rounds", rounds),
			)
			return "", &Outcome{State: rejection, Letter: text, LastCritique: verdict.Critique}
		}

		log.Info("regenerating letter",
			zap.String("gate", gate.name),
			zap.Int("round", attempt+1),
		)

		// Render errors are unexpected after startup validation; see Process.
		prompt, err := fixPrompt(text, verdict.Critique)
		if err != nil {
			return "", &Outcome{State: BackendFailure, Letter: text, Err: err}
		}

		text, err = l.generator.GenerateContent(ctx, prompt)
		if err != nil {
			return "", &Outcome{State: BackendFailure, Err: err}
		}
	}
}

func vacancyContext(v *headhunter.Vacancy) letter.VacancyContext {
	return letter.VacancyContext{
		ID:             v.ID,
		Name:           v.Name,
		Employer:       v.Employer.Name,
		Requirement:    v.Snippet.Requirement,
		Responsibility: v.Snippet.Responsibility,
		Description:    v.Description,
	}
}
