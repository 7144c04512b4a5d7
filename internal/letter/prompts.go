package letter

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templateFS embed.FS

// Profile holds the candidate data interpolated into every prompt.
// Loaded once at startup and read-only afterwards.
type Profile struct {
	PersonalData string
	Skills       string
}

// VacancyContext is the slice of a vacancy the prompts need.
type VacancyContext struct {
	ID             string
	Name           string
	Employer       string
	Requirement    string
	Responsibility string
	Description    string
}

// Builder assembles prompts for the draft, fix and check intents.
// Pure: no I/O after construction, safe for reuse across vacancies.
type Builder struct {
	profile   Profile
	templates *template.Template
}

type promptData struct {
	PersonalData string
	Skills       string
	Vacancy      VacancyContext
	Previous     string
	Critique     string
	Text         string
}

// NewBuilder parses the embedded templates and validates the candidate
// profile. Any error here is a configuration error and fatal at startup.
func NewBuilder(profile Profile) (*Builder, error) {
	if strings.TrimSpace(profile.PersonalData) == "" {
		return nil, errors.New("candidate personal data is required")
	}
	if strings.TrimSpace(profile.Skills) == "" {
		return nil, errors.New("candidate skills are required")
	}

	templates, err := template.ParseFS(templateFS, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}

	b := &Builder{profile: profile, templates: templates}

	// Execute every template once with sample data so field mismatches
	// surface before any vacancy is processed.
	sample := VacancyContext{ID: "0", Name: "n", Employer: "e", Requirement: "r", Responsibility: "r", Description: "d"}
	checks := []func() (string, error){
		func() (string, error) { return b.Draft(sample) },
		func() (string, error) { return b.FixAdequacy(sample, "p", "c") },
		func() (string, error) { return b.FixPunctuation("p", "c") },
		func() (string, error) { return b.CheckAdequacy(sample, "t") },
		func() (string, error) { return b.CheckPunctuation("t") },
	}
	for _, check := range checks {
		if _, err := check(); err != nil {
			return nil, fmt.Errorf("validate prompt templates: %w", err)
		}
	}

	return b, nil
}

// Draft builds the initial letter prompt, without any prior critique.
func (b *Builder) Draft(vacancy VacancyContext) (string, error) {
	return b.render("draft.md", promptData{
		PersonalData: b.profile.PersonalData,
		Skills:       b.profile.Skills,
		Vacancy:      vacancy,
	})
}

// FixAdequacy builds the regeneration prompt for a letter that failed the
// adequacy gate, interpolating the previous text and the gate's critique.
func (b *Builder) FixAdequacy(vacancy VacancyContext, previous, critique string) (string, error) {
	return b.render("fix_adequacy.md", promptData{
		Skills:   b.profile.Skills,
		Vacancy:  vacancy,
		Previous: previous,
		Critique: critique,
	})
}

// FixPunctuation builds the regeneration prompt for a letter that failed the
// punctuation gate.
func (b *Builder) FixPunctuation(previous, critique string) (string, error) {
	return b.render("fix_punctuation.md", promptData{
		Previous: previous,
		Critique: critique,
	})
}

// CheckAdequacy builds the adequacy gate prompt for the given letter text.
func (b *Builder) CheckAdequacy(vacancy VacancyContext, text string) (string, error) {
	return b.render("check_adequacy.md", promptData{
		Skills:  b.profile.Skills,
		Vacancy: vacancy,
		Text:    text,
	})
}

// CheckPunctuation builds the punctuation gate prompt for the given letter text.
func (b *Builder) CheckPunctuation(text string) (string, error) {
	return b.render("check_punctuation.md", promptData{
		Text: text,
	})
}

func (b *Builder) render(name string, data promptData) (string, error) {
	var sb strings.Builder
	if err := b.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
