package letter

import (
	"strings"
	"testing"
)

var testProfile = Profile{
	PersonalData: "Ivan, 5 years backend experience",
	Skills:       "Go, PostgreSQL, Docker",
}

var testVacancy = VacancyContext{
	ID:             "12345",
	Name:           "Go Developer",
	Employer:       "Acme",
	Requirement:    "Go, 3+ years",
	Responsibility: "Build services",
	Description:    "Full description here",
}

func TestNewBuilderRequiresProfile(t *testing.T) {
	if _, err := NewBuilder(Profile{Skills: "Go"}); err == nil {
		t.Fatal("expected error for missing personal data")
	}

	if _, err := NewBuilder(Profile{PersonalData: "Ivan"}); err == nil {
		t.Fatal("expected error for missing skills")
	}
}

func TestDraftPrompt(t *testing.T) {
	b, err := NewBuilder(testProfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt, err := b.Draft(testVacancy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{testProfile.PersonalData, testProfile.Skills, testVacancy.Name, testVacancy.Employer, testVacancy.Requirement} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("draft prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestFixAdequacyPromptCarriesCritique(t *testing.T) {
	b, err := NewBuilder(testProfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt, err := b.FixAdequacy(testVacancy, "previous letter text", "claims Java experience the candidate lacks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(prompt, "previous letter text") {
		t.Fatal("fix prompt missing previous text")
	}

	if !strings.Contains(prompt, "claims Java experience the candidate lacks") {
		t.Fatal("fix prompt missing critique")
	}
}

func TestCheckPromptsContainLetterText(t *testing.T) {
	b, err := NewBuilder(testProfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adequacy, err := b.CheckAdequacy(testVacancy, "the letter under review")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(adequacy, "the letter under review") {
		t.Fatal("adequacy check prompt missing letter text")
	}

	punctuation, err := b.CheckPunctuation("the letter under review")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(punctuation, "the letter under review") {
		t.Fatal("punctuation check prompt missing letter text")
	}
	if strings.Contains(punctuation, testProfile.Skills) {
		t.Fatal("punctuation check must be scoped to style, not skills")
	}
}
