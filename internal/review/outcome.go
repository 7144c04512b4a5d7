package review

import (
	"context"

	"hh-coverletter/internal/headhunter"
)

// State is the terminal state of a letter generation loop.
type State string

const (
	// Accepted means the letter passed both gates.
	Accepted State = "accepted"
	// RejectedAdequacy means the adequacy round budget was exhausted.
	RejectedAdequacy State = "rejected_adequacy"
	// RejectedPunctuation means the punctuation round budget was exhausted.
	RejectedPunctuation State = "rejected_punctuation"
	// BackendFailure means the generation backend was unreachable after
	// its own retries, at any step of the loop.
	BackendFailure State = "backend_failure"
)

// Outcome is the terminal result of processing one vacancy. Never mutated
// after creation.
type Outcome struct {
	State State
	// Letter is the accepted text, or the last draft for rejections so it
	// can be kept for manual review.
	Letter string
	// LastCritique is the most recent gate critique, populated for
	// rejections.
	LastCritique string
	// Err is set only for BackendFailure.
	Err error
}

// VacancyProcessor turns one vacancy into a terminal outcome. The letter
// generation loop is the one concrete implementation; future variants
// implement the same interface without touching the handler.
type VacancyProcessor interface {
	Process(ctx context.Context, vacancy *headhunter.Vacancy) *Outcome
}
