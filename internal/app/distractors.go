package app

import (
	"fmt"

	"music-quiz-service/internal/domain"
)

// placeholderArtists pad artist options when the pool has too few distinct artists.
var placeholderArtists = []string{
	"Unknown Artist",
	"Mystery Singer",
	"Anonymous Band",
	"The Session Players",
	"Nameless Collective",
}

// PickDistractors returns exactly count distinct wrong options for correct, drawn
// uniformly from values and padded with placeholders when values run short.
func PickDistractors(rnd Rand, correct string, values []string, count int) []string {
	if count <= 0 {
		return []string{}
	}

	seen := map[string]struct{}{domain.AnswerKey(correct): {}}
	eligible := make([]string, 0, len(values))
	for _, v := range values {
		key := domain.AnswerKey(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		eligible = append(eligible, v)
	}

	if len(eligible) >= count {
		return sample(rnd, eligible, count)
	}

	out := eligible
	add := func(v string) {
		key := domain.AnswerKey(v)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	for _, p := range placeholderArtists {
		if len(out) == count {
			break
		}
		add(p)
	}
	for n := 2; len(out) < count; n++ {
		add(fmt.Sprintf("%s %d", placeholderArtists[0], n))
	}
	return out
}
