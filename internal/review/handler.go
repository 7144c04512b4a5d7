package review

import (
	"context"

	"hh-coverletter/internal/headhunter"
	"hh-coverletter/internal/logger"

	"go.uber.org/zap"
)

// LetterStore persists accepted letters and defective drafts.
type LetterStore interface {
	Write(id, text string) (string, error)
	WriteDefective(id, text string) (string, error)
}

// Cache tracks vacancies that already reached a terminal state.
type Cache interface {
	Contains(id string) bool
	Add(id string)
}

// Handler feeds filtered vacancies into a processor one at a time and
// persists the results. Per-vacancy failures are isolated: one vacancy's
// rejection or backend failure never halts the batch.
type Handler struct {
	processor VacancyProcessor
	store     LetterStore
	cache     Cache
	logger    *zap.Logger
}

// Summary counts terminal states across one batch run.
type Summary struct {
	Accepted            int
	RejectedAdequacy    int
	RejectedPunctuation int
	BackendFailures     int
	Skipped             int
}

func NewHandler(processor VacancyProcessor, store LetterStore, cache Cache, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return &Handler{
		processor: processor,
		store:     store,
		cache:     cache,
		logger:    log,
	}
}

// Handle processes every vacancy in the list sequentially and returns the
// batch summary. The cache entry is written only after the loop reaches a
// terminal state; backend failures stay uncached so the next run retries
// them.
func (h *Handler) Handle(ctx context.Context, vacancies *headhunter.Vacancies) *Summary {
	summary := &Summary{}

	for _, vacancy := range vacancies.Items {
		log := h.logger.With(zap.String(logger.FieldVacancyID, vacancy.ID))

		if h.cache.Contains(vacancy.ID) {
			summary.Skipped++
			log.Debug("vacancy already processed, skipping")
			continue
		}

		outcome := h.processor.Process(ctx, vacancy)

		switch outcome.State {
		case Accepted:
			path, err := h.store.Write(vacancy.ID, outcome.Letter)
			if err != nil {
				log.Error("persisting accepted letter", zap.Error(err))
				continue
			}
			h.cache.Add(vacancy.ID)
			summary.Accepted++
			log.Info("letter saved", zap.String("path", path))

		case RejectedAdequacy, RejectedPunctuation:
			if outcome.Letter != "" {
				if _, err := h.store.WriteDefective(vacancy.ID, outcome.Letter); err != nil {
					log.Error("persisting defective letter", zap.Error(err))
				}
			}
			h.cache.Add(vacancy.ID)
			if outcome.State == RejectedAdequacy {
				summary.RejectedAdequacy++
			} else {
				summary.RejectedPunctuation++
			}
			log.Warn("letter rejected",
				zap.String("terminal_state", string(outcome.State)),
				zap.String("last_critique", outcome.LastCritique),
			)

		case BackendFailure:
			summary.BackendFailures++
			log.Error("generation backend failure", zap.Error(outcome.Err))

		default:
			log.Error("unknown loop outcome", zap.String("state", string(outcome.State)))
		}
	}

	return summary
}
