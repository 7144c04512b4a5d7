package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hh-coverletter/internal/headhunter"
)

type withTestFilter struct {
	disabled bool
	reason   string
}

// NewWithTest creates a filter that removes vacancies requiring tests.
func NewWithTest() Filter {
	return &withTestFilter{}
}

func (f *withTestFilter) Name() string { return "with_test" }

func (f *withTestFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *withTestFilter) IsEnabled() bool { return !f.disabled }

func (f *withTestFilter) Validate(*Config) error { return nil }

func (f *withTestFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	excluded := v.ExcludeWithTest()
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding vacancies with employer tests",
			zap.Strings("excluded_vacancies", excluded),
			zap.Int("vacancies_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *withTestFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type employersFilter struct {
	employers []string
}

// NewEmployers creates a filter that removes vacancies from employers listed in the config.
func NewEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Disable(string) {}

func (f *employersFilter) IsEnabled() bool { return true }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = nil
	if cfg != nil {
		f.employers = append(f.employers, cfg.Employers...)
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if len(f.employers) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Exclude(headhunter.VacancyEmployerIDField, f.employers)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding vacancies by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_vacancies", excluded),
			zap.Int("vacancies_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type processedFilter struct {
	ignore bool
}

// NewProcessed creates a filter that removes vacancies that already have a
// letter in the letters directory, accepted or defective.
func NewProcessed(ignore bool) Filter {
	return &processedFilter{ignore: ignore}
}

func (f *processedFilter) Name() string { return "processed" }

func (f *processedFilter) Disable(string) {}

func (f *processedFilter) IsEnabled() bool { return true }

func (f *processedFilter) Validate(*Config) error { return nil }

func (f *processedFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already processed vacancies", zap.String("reason", "force flag is set"))
		}
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	if deps.Processed == nil {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	var processed []string
	for _, id := range v.IDs() {
		if deps.Processed.Contains(id) {
			processed = append(processed, id)
		}
	}

	excluded := v.Exclude(headhunter.VacancyIDField, processed)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding vacancies with existing letters",
			zap.Strings("excluded_vacancies", excluded),
			zap.Int("vacancies_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *processedFilter) Status() Status {
	details := map[string]string{
		"exclude_processed": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
