package headhunter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

const (
	VacancyIDField         = "ID"
	VacancyEmployerIDField = "EmployerID"

	publishedAtLayout = "2006-01-02T15:04:05-0700"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	HasTest bool   `json:"has_test,omitempty"`
	Salary  struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	} `json:"salary,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Employer struct {
		ID      string `json:"id,omitempty"`
		Name    string `json:"name,omitempty"`
		URL     string `json:"url,omitempty"`
		Trusted bool   `json:"trusted,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Description  string `json:"description,omitempty"`
	Snippet      struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

func (va *Vacancy) GetStringField(name string) string {
	switch name {
	case VacancyIDField:
		return va.ID
	case VacancyEmployerIDField:
		return va.Employer.ID

	default:
		return ""
	}
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) IDs() []string {
	ids := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		ids = append(ids, vacancy.ID)
	}
	return ids
}

// ExcludeWithTest removes vacancies that require an employer test and
// returns their ids.
func (v *Vacancies) ExcludeWithTest() []string {
	var excluded []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		if vacancy.HasTest {
			excluded = append(excluded, vacancy.ID)
			continue
		}
		kept = append(kept, vacancy)
	}
	v.Items = kept
	return excluded
}

// Exclude removes vacancies whose field matches any of the targets and
// returns the removed ids.
func (v *Vacancies) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	lookup := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		lookup[target] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		if _, ok := lookup[vacancy.GetStringField(name)]; ok {
			excluded = append(excluded, vacancy.ID)
			continue
		}
		kept = append(kept, vacancy)
	}
	v.Items = kept
	return excluded
}

// SortByPublished orders vacancies newest first. Entries with an unparseable
// publication date sink to the end.
func (v *Vacancies) SortByPublished() {
	sort.SliceStable(v.Items, func(i, j int) bool {
		ti, erri := time.Parse(publishedAtLayout, v.Items[i].PublishedAt)
		tj, errj := time.Parse(publishedAtLayout, v.Items[j].PublishedAt)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return ti.After(tj)
	})
}

func (v *Vacancies) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "vacancies_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByEmployer groups a short vacancy summary by employer.
func (v *Vacancies) ReportByEmployer() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, vacancy := range v.Items {
		key := fmt.Sprintf("%s (%s)", vacancy.Employer.Name, vacancy.Employer.ID)
		report[key] = append(report[key], map[string]string{
			"name":                 vacancy.Name,
			"url":                  vacancy.AlternateURL,
			"salary":               fmt.Sprintf("%d-%d %s", vacancy.Salary.From, vacancy.Salary.To, vacancy.Salary.Currency),
			"brief requirement":    vacancy.Snippet.Requirement,
			"brief responsibility": vacancy.Snippet.Responsibility,
		})
	}
	return report
}
