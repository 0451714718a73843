// Package questionbank loads the read-only question corpus used to build
// evaluation units. Each subject is a CSV file named <subject>.csv with the
// header: question,choice_a,choice_b,choice_c,choice_d,answer.
package questionbank

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evalbench/evalbench/internal/models"
)

// Bank is an immutable question corpus keyed by subject.
type Bank struct {
	subjects map[string][]models.Question
}

// Load reads every *.csv file in dir into a Bank. The filename (without
// extension) is the subject name.
func Load(dir string) (*Bank, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("questionbank: reading %s: %w", dir, err)
	}

	bank := &Bank{subjects: make(map[string][]models.Question)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		subject := strings.TrimSuffix(e.Name(), ".csv")
		questions, err := loadSubjectFile(filepath.Join(dir, e.Name()), subject)
		if err != nil {
			return nil, err
		}
		bank.subjects[subject] = questions
	}

	if len(bank.subjects) == 0 {
		return nil, fmt.Errorf("questionbank: no subject files found in %s", dir)
	}
	return bank, nil
}

// columns of a subject CSV, in header order.
var wantHeader = []string{"question", "choice_a", "choice_b", "choice_c", "choice_d", "answer"}

func loadSubjectFile(path, subject string) ([]models.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("questionbank: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("questionbank: %s is empty (no header row)", path)
	}

	header := records[0]
	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("questionbank: %s has %d columns, expected %d", path, len(header), len(wantHeader))
	}
	for i, h := range wantHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != h {
			return nil, fmt.Errorf("questionbank: %s column %d is %q, expected %q", path, i+1, header[i], h)
		}
	}

	questions := make([]models.Question, 0, len(records)-1)
	for i, record := range records[1:] {
		answer, err := parseAnswer(record[5])
		if err != nil {
			return nil, fmt.Errorf("questionbank: %s row %d: %w", path, i+2, err)
		}
		q := models.Question{
			Subject: subject,
			Index:   i,
			Text:    record[0],
			Choices: []string{record[1], record[2], record[3], record[4]},
			Answer:  answer,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("questionbank: %s row %d: %w", path, i+2, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// parseAnswer accepts either a choice letter ("A".."D", case-insensitive) or
// a zero-based index ("0".."3").
func parseAnswer(raw string) (int, error) {
	s := strings.TrimSpace(strings.ToUpper(raw))
	if len(s) != 1 {
		return 0, fmt.Errorf("answer %q is not a choice letter or index", raw)
	}
	switch c := s[0]; {
	case c >= 'A' && c <= 'D':
		return int(c - 'A'), nil
	case c >= '0' && c <= '3':
		return int(c - '0'), nil
	}
	return 0, fmt.Errorf("answer %q is not a choice letter or index", raw)
}

// Subjects returns the known subject names, sorted.
func (b *Bank) Subjects() []string {
	subjects := make([]string, 0, len(b.subjects))
	for s := range b.subjects {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

// Has reports whether the bank knows the given subject.
func (b *Bank) Has(subject string) bool {
	_, ok := b.subjects[subject]
	return ok
}

// Size returns the number of questions available for subject.
func (b *Bank) Size(subject string) int {
	return len(b.subjects[subject])
}
