package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the generation backend name.
	FieldProvider = "provider"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "model"
	// FieldVacancyID is the structured log field key for the vacancy identifier.
	FieldVacancyID = "vacancy_id"
)

// GenerationFields returns standard zap fields describing the generation backend.
// Empty values are dropped to keep log entries compact.
func GenerationFields(provider, model string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if v := strings.TrimSpace(provider); v != "" {
		fields = append(fields, zap.String(FieldProvider, v))
	}
	if v := strings.TrimSpace(model); v != "" {
		fields = append(fields, zap.String(FieldModel, v))
	}
	return fields
}

// WithGeneration attaches the generation backend fields to the logger.
// A nil logger is replaced with a no-op logger to avoid panics.
func WithGeneration(logger *zap.Logger, provider, model string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	fields := GenerationFields(provider, model)
	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}
