package models

import (
	"fmt"
	"sort"
	"strings"
)

// OptionLetter identifies one of the five possible answer options.
type OptionLetter string

const (
	OptionA OptionLetter = "A"
	OptionB OptionLetter = "B"
	OptionC OptionLetter = "C"
	OptionD OptionLetter = "D"
	OptionE OptionLetter = "E"
)

// IsValid reports whether the letter is within the A-E range.
func (l OptionLetter) IsValid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD, OptionE:
		return true
	}
	return false
}

// AnswerKey is the set of correct option letters for a question, kept in
// canonical A-E order. It is parsed once when questions are loaded and never
// re-parsed per comparison.
type AnswerKey []OptionLetter

// ParseAnswerKey converts the stored comma-joined key ("A,C") into a
// validated, deduplicated, sorted AnswerKey.
func ParseAnswerKey(raw string) (AnswerKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("answer key is empty")
	}

	seen := make(map[OptionLetter]struct{}, 5)
	key := make(AnswerKey, 0, 5)
	for _, part := range strings.Split(raw, ",") {
		letter := OptionLetter(strings.ToUpper(strings.TrimSpace(part)))
		if letter == "" {
			continue
		}
		if !letter.IsValid() {
			return nil, fmt.Errorf("invalid answer option %q", part)
		}
		if _, dup := seen[letter]; dup {
			continue
		}
		seen[letter] = struct{}{}
		key = append(key, letter)
	}

	if len(key) == 0 {
		return nil, fmt.Errorf("answer key has no valid options")
	}

	sort.Slice(key, func(i, j int) bool { return key[i] < key[j] })
	return key, nil
}

// Contains reports whether the key includes the given letter. The comparison
// is case-insensitive on the student side.
func (k AnswerKey) Contains(selected string) bool {
	letter := OptionLetter(strings.ToUpper(strings.TrimSpace(selected)))
	for _, l := range k {
		if l == letter {
			return true
		}
	}
	return false
}

// EqualsSet reports whether the student's selected letters form exactly the
// same set as the key. Subsets and supersets earn no credit.
func (k AnswerKey) EqualsSet(selected []string) bool {
	normalized := make(map[OptionLetter]struct{}, len(selected))
	for _, s := range selected {
		letter := OptionLetter(strings.ToUpper(strings.TrimSpace(s)))
		if letter == "" {
			continue
		}
		normalized[letter] = struct{}{}
	}

	if len(normalized) != len(k) {
		return false
	}
	for _, l := range k {
		if _, ok := normalized[l]; !ok {
			return false
		}
	}
	return true
}

// String renders the key back to its canonical comma-joined form.
func (k AnswerKey) String() string {
	parts := make([]string, len(k))
	for i, l := range k {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}

// Letters returns the key as plain strings, used by review payloads.
func (k AnswerKey) Letters() []string {
	parts := make([]string, len(k))
	for i, l := range k {
		parts[i] = string(l)
	}
	return parts
}
