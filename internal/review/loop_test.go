package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hh-coverletter/internal/headhunter"
	"hh-coverletter/internal/letter"

	"go.uber.org/zap"
)

// Prompt markers from the embedded templates, used to classify recorded
// backend calls as generations or gate checks.
const (
	draftMarker          = "Write a short cover letter"
	fixAdequacyMarker    = "found inadequate"
	fixPunctuationMarker = "Fix the grammar"
	checkMarker          = "Answer with a single word"
)

func testBuilder(t *testing.T) *letter.Builder {
	t.Helper()

	b, err := letter.NewBuilder(letter.Profile{
		PersonalData: "Ivan, backend developer",
		Skills:       "Go, PostgreSQL",
	})
	if err != nil {
		t.Fatalf("building prompts: %v", err)
	}
	return b
}

func loopVacancy() *headhunter.Vacancy {
	v := &headhunter.Vacancy{
		ID:          "12345",
		Name:        "Go Developer",
		Description: "We need a Go developer.",
	}
	v.Employer.Name = "Acme"
	v.Snippet.Requirement = "Go, 3+ years"
	v.Snippet.Responsibility = "Build services"
	return v
}

func countCalls(t *testing.T, gen *stubGenerator) (generations, checks int) {
	t.Helper()

	for _, prompt := range gen.prompts {
		switch {
		case strings.Contains(prompt, checkMarker):
			checks++
		case strings.Contains(prompt, draftMarker), strings.Contains(prompt, fixAdequacyMarker), strings.Contains(prompt, fixPunctuationMarker):
			generations++
		default:
			t.Fatalf("unclassified prompt: %s", prompt)
		}
	}
	return generations, checks
}

func newLoop(t *testing.T, gen *stubGenerator, cfg Config) *Loop {
	t.Helper()
	return NewLoop(gen, testBuilder(t), cfg, zap.NewNop())
}

func TestLoopAcceptsOnFirstAttempt(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"yes", // adequacy
		"yes", // punctuation
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 3, PunctuationRounds: 3})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != Accepted {
		t.Fatalf("expected Accepted, got %s", outcome.State)
	}

	if outcome.Letter != "draft letter" {
		t.Fatalf("unexpected letter: %q", outcome.Letter)
	}

	generations, checks := countCalls(t, gen)
	if generations != 1 || checks != 2 {
		t.Fatalf("expected 1 generation and 2 checks, got %d and %d", generations, checks)
	}
}

func TestLoopZeroRoundsRejectsOnFirstFail(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"no\nclaims skills the candidate lacks",
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 0, PunctuationRounds: 3})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != RejectedAdequacy {
		t.Fatalf("expected RejectedAdequacy, got %s", outcome.State)
	}

	if outcome.LastCritique != "claims skills the candidate lacks" {
		t.Fatalf("unexpected critique: %q", outcome.LastCritique)
	}

	if outcome.Letter != "draft letter" {
		t.Fatal("rejected outcome must keep the last draft for manual review")
	}

	generations, checks := countCalls(t, gen)
	if generations != 1 || checks != 1 {
		t.Fatalf("expected exactly 1 generation and 1 gate call, got %d and %d", generations, checks)
	}
}

func TestLoopAdequacyFailFailPassProgresses(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"no\ntoo vague",  // adequacy round 1
		"second attempt", // regeneration
		"no\nstill vague",
		"third attempt",
		"yes", // adequacy pass on 3rd text
		"yes", // punctuation
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 2, PunctuationRounds: 2})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != Accepted {
		t.Fatalf("expected Accepted, got %s", outcome.State)
	}

	if outcome.Letter != "third attempt" {
		t.Fatalf("unexpected letter: %q", outcome.Letter)
	}

	generations, checks := countCalls(t, gen)
	if generations != 3 {
		t.Fatalf("expected 3 generation attempts, got %d", generations)
	}
	if checks != 4 {
		t.Fatalf("expected 4 gate calls, got %d", checks)
	}
}

func TestLoopAdequacyExhaustionNeverGeneratesFourth(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"no\ncritique one",
		"second attempt",
		"no\ncritique two",
		"third attempt",
		"no\nfinal critique",
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 2, PunctuationRounds: 2})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != RejectedAdequacy {
		t.Fatalf("expected RejectedAdequacy, got %s", outcome.State)
	}

	if outcome.LastCritique != "final critique" {
		t.Fatalf("unexpected critique: %q", outcome.LastCritique)
	}

	generations, checks := countCalls(t, gen)
	if generations != 3 {
		t.Fatalf("expected exactly 3 generation attempts, got %d", generations)
	}
	if checks != 3 {
		t.Fatalf("expected 3 gate calls, got %d", checks)
	}
}

func TestLoopPunctuationExhaustion(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"yes", // adequacy
		"no\nmissing commas",
		"polished attempt",
		"no\nstill missing commas",
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 2, PunctuationRounds: 1})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != RejectedPunctuation {
		t.Fatalf("expected RejectedPunctuation, got %s", outcome.State)
	}

	if outcome.Letter != "polished attempt" {
		t.Fatalf("unexpected letter: %q", outcome.Letter)
	}

	if outcome.LastCritique != "still missing commas" {
		t.Fatalf("unexpected critique: %q", outcome.LastCritique)
	}
}

func TestLoopBackendFailureDuringDraft(t *testing.T) {
	gen := &stubGenerator{errs: []error{errors.New("backend down")}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 3, PunctuationRounds: 3})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != BackendFailure {
		t.Fatalf("expected BackendFailure, got %s", outcome.State)
	}

	if outcome.Err == nil {
		t.Fatal("expected error to be recorded")
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected single backend call, got %d", len(gen.prompts))
	}
}

func TestLoopBackendFailureDuringGateCheck(t *testing.T) {
	gen := &stubGenerator{
		responses: []string{"draft letter"},
		errs:      []error{nil, errors.New("backend down")},
	}
	loop := newLoop(t, gen, Config{AdequacyRounds: 3, PunctuationRounds: 3})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != BackendFailure {
		t.Fatalf("expected BackendFailure regardless of remaining budget, got %s", outcome.State)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(gen.prompts))
	}
}

func TestLoopAmbiguousVerdictCountsAsFail(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"the letter seems fine to me",
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 0, PunctuationRounds: 0})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != RejectedAdequacy {
		t.Fatalf("expected RejectedAdequacy for ambiguous verdict, got %s", outcome.State)
	}

	if outcome.LastCritique != "the letter seems fine to me" {
		t.Fatalf("raw response must be kept as critique, got %q", outcome.LastCritique)
	}
}

func TestLoopFailOpenAcceptsAmbiguousVerdict(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"draft letter",
		"the letter seems fine to me",
		"looks good",
	}}
	loop := newLoop(t, gen, Config{AdequacyRounds: 0, PunctuationRounds: 0, FailOpenVerdicts: true})

	outcome := loop.Process(context.Background(), loopVacancy())

	if outcome.State != Accepted {
		t.Fatalf("expected Accepted with fail-open policy, got %s", outcome.State)
	}
}
