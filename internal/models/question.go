package models

import (
	"fmt"
	"time"
)

const (
	// QuestionTypeSingle marks questions with exactly one correct option.
	QuestionTypeSingle = "single"
	// QuestionTypeMultiple marks questions graded by exact set equality.
	QuestionTypeMultiple = "multiple"
)

// Question belongs to one assignment. Options C-E are optional; A and B must
// always be present.
type Question struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AssignmentID   uint      `gorm:"not null;index" json:"assignment_id"`
	QuestionText   string    `gorm:"type:text;not null" json:"question_text"`
	QuestionType   string    `gorm:"size:16;not null;default:single" json:"question_type"`
	OptionA        string    `gorm:"type:text;not null" json:"option_a"`
	OptionB        string    `gorm:"type:text;not null" json:"option_b"`
	OptionC        *string   `gorm:"type:text" json:"option_c"`
	OptionD        *string   `gorm:"type:text" json:"option_d"`
	OptionE        *string   `gorm:"type:text" json:"option_e"`
	CorrectAnswers string    `gorm:"size:16;not null" json:"correct_answers"`
	Marks          int       `gorm:"not null;default:1" json:"marks"`
	Explanation    string    `gorm:"type:text" json:"explanation"`
	QuestionOrder  int       `gorm:"not null;default:0" json:"question_order"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Key is the parsed CorrectAnswers column, populated by the question
	// bank when rows are loaded. Never persisted.
	Key AnswerKey `gorm:"-" json:"-"`
}

// Options returns the non-null options keyed by their letter.
func (q Question) Options() map[OptionLetter]string {
	options := map[OptionLetter]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
	}
	if q.OptionC != nil {
		options[OptionC] = *q.OptionC
	}
	if q.OptionD != nil {
		options[OptionD] = *q.OptionD
	}
	if q.OptionE != nil {
		options[OptionE] = *q.OptionE
	}
	return options
}

// ParseKey validates and caches the answer key. The key must reference only
// options that actually exist on the question.
func (q *Question) ParseKey() error {
	key, err := ParseAnswerKey(q.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("question %d: %w", q.ID, err)
	}

	options := q.Options()
	for _, letter := range key {
		if _, ok := options[letter]; !ok {
			return fmt.Errorf("question %d: answer key references missing option %s", q.ID, letter)
		}
	}

	q.Key = key
	return nil
}
