package letters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const vacancyURL = "https://hh.ru/vacancy/"

// ExportResult describes one bulk export run.
type ExportResult struct {
	Document string
	Archive  string
	Exported []string
}

// Export collects the accepted letters into a single RTF document and moves
// the exported files into a dated archive subdirectory, so the next export
// picks up only new letters. Defective drafts are left untouched.
func Export(dir, output string) (*ExportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	archive := filepath.Join(dir, time.Now().Format("02-01-06"))
	if err := os.MkdirAll(archive, 0o755); err != nil {
		return nil, err
	}

	doc, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if _, err := doc.WriteString(rtfHeader()); err != nil {
		return nil, err
	}

	result := &ExportResult{Document: output, Archive: archive}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.Contains(strings.ToLower(name), "defective") || name == filepath.Base(output) {
			continue
		}

		path := filepath.Join(dir, name)
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		id, _, _ := strings.Cut(name, "-")
		link := vacancyURL + id

		block := fmt.Sprintf(
			"%s \\b0 %s\\par\n%s \\b0\\par\n%s\\par\n\\line\\par\\par\n",
			rtfEscape("Vacancy:"),
			link,
			rtfEscape("Letter:"),
			rtfEscape(strings.TrimSpace(string(text))),
		)
		if _, err := doc.WriteString(block); err != nil {
			return nil, err
		}

		if err := os.Rename(path, filepath.Join(archive, name)); err != nil {
			return nil, fmt.Errorf("archiving %s: %w", path, err)
		}

		result.Exported = append(result.Exported, name)
	}

	if _, err := doc.WriteString("}"); err != nil {
		return nil, err
	}

	return result, nil
}

func rtfHeader() string {
	return `{\rtf1\ansi\ansicpg1251\deff0` + "\n" +
		`{\fonttbl{\f0\fnil\fcharset204 Calibri;}}` + "\n" +
		`\viewkind4\uc1\pard\f0\fs24` + "\n"
}

// rtfEscape escapes control characters and encodes non-ASCII runes
// (Cyrillic letters in particular) as \uN? sequences.
func rtfEscape(text string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		"{", `\{`,
		"}", `\}`,
		"\n", "\\par\n",
	).Replace(text)

	var sb strings.Builder
	for _, r := range escaped {
		if r < 128 {
			sb.WriteRune(r)
			continue
		}
		fmt.Fprintf(&sb, `\u%d?`, r)
	}
	return sb.String()
}
