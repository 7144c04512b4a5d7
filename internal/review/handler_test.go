package review

import (
	"context"
	"errors"
	"testing"

	"hh-coverletter/internal/headhunter"

	"go.uber.org/zap"
)

type fakeProcessor struct {
	outcomes  map[string]*Outcome
	processed []string
}

func (f *fakeProcessor) Process(_ context.Context, vacancy *headhunter.Vacancy) *Outcome {
	f.processed = append(f.processed, vacancy.ID)
	if outcome, ok := f.outcomes[vacancy.ID]; ok {
		return outcome
	}
	return &Outcome{State: Accepted, Letter: "letter"}
}

type memoryStore struct {
	accepted  map[string]string
	defective map[string]string
	failWrite bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accepted: map[string]string{}, defective: map[string]string{}}
}

func (m *memoryStore) Write(id, text string) (string, error) {
	if m.failWrite {
		return "", errors.New("disk full")
	}
	m.accepted[id] = text
	return "letters/" + id + ".txt", nil
}

func (m *memoryStore) WriteDefective(id, text string) (string, error) {
	m.defective[id] = text
	return "letters/defective/" + id + ".txt", nil
}

type memoryCache struct {
	ids map[string]struct{}
}

func newMemoryCache(ids ...string) *memoryCache {
	c := &memoryCache{ids: map[string]struct{}{}}
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
	return c
}

func (c *memoryCache) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

func (c *memoryCache) Add(id string) {
	c.ids[id] = struct{}{}
}

func batch(ids ...string) *headhunter.Vacancies {
	items := make([]*headhunter.Vacancy, 0, len(ids))
	for _, id := range ids {
		items = append(items, &headhunter.Vacancy{ID: id})
	}
	return &headhunter.Vacancies{Items: items}
}

func TestHandlerPersistsAcceptedAndCaches(t *testing.T) {
	processor := &fakeProcessor{outcomes: map[string]*Outcome{
		"1": {State: Accepted, Letter: "dear team"},
	}}
	store := newMemoryStore()
	cache := newMemoryCache()

	handler := NewHandler(processor, store, cache, zap.NewNop())
	summary := handler.Handle(context.Background(), batch("1"))

	if summary.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %+v", summary)
	}

	if store.accepted["1"] != "dear team" {
		t.Fatalf("letter not persisted: %v", store.accepted)
	}

	if !cache.Contains("1") {
		t.Fatal("accepted vacancy must be cached")
	}
}

func TestHandlerSkipsCachedVacancies(t *testing.T) {
	processor := &fakeProcessor{}
	handler := NewHandler(processor, newMemoryStore(), newMemoryCache("1"), zap.NewNop())

	summary := handler.Handle(context.Background(), batch("1", "2"))

	if summary.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %+v", summary)
	}

	for _, id := range processor.processed {
		if id == "1" {
			t.Fatal("cached vacancy must never reach the processor")
		}
	}
}

func TestHandlerRejectionsAreCachedAndKeepDraft(t *testing.T) {
	processor := &fakeProcessor{outcomes: map[string]*Outcome{
		"1": {State: RejectedAdequacy, Letter: "bad draft", LastCritique: "too vague"},
		"2": {State: RejectedPunctuation, Letter: "sloppy draft", LastCritique: "commas"},
	}}
	store := newMemoryStore()
	cache := newMemoryCache()

	handler := NewHandler(processor, store, cache, zap.NewNop())
	summary := handler.Handle(context.Background(), batch("1", "2"))

	if summary.RejectedAdequacy != 1 || summary.RejectedPunctuation != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if store.defective["1"] != "bad draft" || store.defective["2"] != "sloppy draft" {
		t.Fatalf("defective drafts not persisted: %v", store.defective)
	}

	if !cache.Contains("1") || !cache.Contains("2") {
		t.Fatal("rejected vacancies must be marked processed")
	}
}

func TestHandlerBackendFailureIsIsolatedAndNotCached(t *testing.T) {
	processor := &fakeProcessor{outcomes: map[string]*Outcome{
		"1": {State: BackendFailure, Err: errors.New("backend down")},
	}}
	store := newMemoryStore()
	cache := newMemoryCache()

	handler := NewHandler(processor, store, cache, zap.NewNop())
	summary := handler.Handle(context.Background(), batch("1", "2"))

	if summary.BackendFailures != 1 {
		t.Fatalf("expected 1 backend failure, got %+v", summary)
	}

	if cache.Contains("1") {
		t.Fatal("backend failure must not mark the vacancy processed")
	}

	// the batch continues past the failure
	if summary.Accepted != 1 {
		t.Fatalf("expected the second vacancy to be processed, got %+v", summary)
	}
}

func TestHandlerStoreErrorDoesNotCache(t *testing.T) {
	processor := &fakeProcessor{}
	store := newMemoryStore()
	store.failWrite = true
	cache := newMemoryCache()

	handler := NewHandler(processor, store, cache, zap.NewNop())
	summary := handler.Handle(context.Background(), batch("1"))

	if summary.Accepted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if cache.Contains("1") {
		t.Fatal("vacancy must not be cached when the letter was not persisted")
	}
}
