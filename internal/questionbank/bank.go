// Package questionbank holds the static questions served when generation fails.
package questionbank

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"adaptive-quiz-service/internal/domain"
)

// Entry is a pooled question tagged with the subject it belongs to.
type Entry struct {
	Subject  string
	Question domain.Question
}

type Bank struct {
	entries []Entry

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(entries []Entry, seed *int64) *Bank {
	var src rand.Source
	if seed != nil {
		src = rand.NewSource(*seed)
	} else {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Bank{entries: entries, rnd: rand.New(src)}
}

// Default returns a bank over the built-in pool.
func Default() *Bank {
	return New(defaultEntries, nil)
}

func (b *Bank) Size() int {
	return len(b.entries)
}

// Draw returns count shuffled questions, preferring ones tagged with subject.
// When the pool is smaller than count it is cycled, and repeats get fresh ids
// so every question in a quiz stays uniquely addressable.
func (b *Bank) Draw(count int, subject string) []domain.Question {
	if count <= 0 || len(b.entries) == 0 {
		return []domain.Question{}
	}

	pool := b.filter(subject)
	if len(pool) == 0 {
		pool = make([]domain.Question, 0, len(b.entries))
		for _, e := range b.entries {
			pool = append(pool, e.Question)
		}
	}

	b.mu.Lock()
	b.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	b.mu.Unlock()

	out := make([]domain.Question, 0, count)
	seen := make(map[string]struct{}, count)
	for i := 0; len(out) < count; i++ {
		q := clone(pool[i%len(pool)])
		if _, dup := seen[q.ID]; dup {
			q.ID = q.ID + "-" + uuid.NewString()[:8]
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

func (b *Bank) filter(subject string) []domain.Question {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil
	}
	var out []domain.Question
	for _, e := range b.entries {
		if strings.EqualFold(e.Subject, subject) {
			out = append(out, e.Question)
		}
	}
	return out
}

func clone(q domain.Question) domain.Question {
	c := q
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectAnswerIndex != nil {
		idx := *q.CorrectAnswerIndex
		c.CorrectAnswerIndex = &idx
	}
	return c
}
