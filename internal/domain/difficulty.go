package domain

import (
	"fmt"
	"strings"
)

// Difficulty is a rung on the easy < medium < hard ladder.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	stepUpThreshold   = 80.0
	stepDownThreshold = 40.0
)

var ladder = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty accepts any casing of easy, medium or hard.
func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("parse difficulty %q: %w", raw, ErrInvalidDifficulty)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	return d.rank() >= 0
}

func (d Difficulty) rank() int {
	for i, l := range ladder {
		if l == d {
			return i
		}
	}
	return -1
}

// Harder returns the next rung up, saturating at hard.
func (d Difficulty) Harder() Difficulty {
	r := d.rank()
	if r < 0 {
		return d
	}
	if r < len(ladder)-1 {
		r++
	}
	return ladder[r]
}

// Easier returns the next rung down, saturating at easy.
func (d Difficulty) Easier() Difficulty {
	r := d.rank()
	if r <= 0 {
		return d
	}
	return ladder[r-1]
}

// SuggestDifficulty moves at most one rung based on the last score percentage.
// A nil score means there is no prior attempt and current is returned as is.
func SuggestDifficulty(lastScorePercent *float64, current Difficulty) Difficulty {
	if lastScorePercent == nil {
		return current
	}
	switch p := *lastScorePercent; {
	case p >= stepUpThreshold:
		return current.Harder()
	case p < stepDownThreshold:
		return current.Easier()
	default:
		return current
	}
}
