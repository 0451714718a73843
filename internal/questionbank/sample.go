package questionbank

import (
	"hash/fnv"
	"math/rand"

	"github.com/evalbench/evalbench/internal/models"
)

// Sample returns n questions for subject. The selection is a deterministic
// shuffle seeded by the subject name, so two runs with identical inputs
// enumerate the same questions in the same order. Returns an invalid_request
// error when the subject is unknown or n exceeds the bank size — callers are
// never silently under-sampled.
func (b *Bank) Sample(subject string, n int) ([]models.Question, error) {
	questions, ok := b.subjects[subject]
	if !ok {
		return nil, models.NewError(models.KindInvalidRequest, "unknown subject %q", subject)
	}
	if n < 1 {
		return nil, models.NewError(models.KindInvalidRequest, "sample count must be at least 1, got %d", n)
	}
	if n > len(questions) {
		return nil, models.NewError(models.KindInvalidRequest,
			"subject %q has %d questions, cannot sample %d", subject, len(questions), n)
	}

	perm := rand.New(rand.NewSource(subjectSeed(subject))).Perm(len(questions))
	sampled := make([]models.Question, n)
	for i := 0; i < n; i++ {
		sampled[i] = questions[perm[i]]
	}
	return sampled, nil
}

// subjectSeed derives a stable per-subject PRNG seed (FNV-1a).
func subjectSeed(subject string) int64 {
	h := fnv.New64a()
	h.Write([]byte(subject)) //nolint:errcheck
	return int64(h.Sum64())
}
