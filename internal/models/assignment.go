package models

import "time"

// Assignment holds the configuration for a timed multiple-choice assignment.
// The configuration is treated as immutable while any attempt is live.
type Assignment struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	LearningPartID         uint       `gorm:"uniqueIndex;not null" json:"learning_part_id"`
	Title                  string     `gorm:"size:255;not null" json:"title"`
	Description            string     `gorm:"type:text" json:"description"`
	TotalMarks             int        `gorm:"not null" json:"total_marks"`
	PassingMarks           float64    `gorm:"not null" json:"passing_marks"`
	TimeLimitMinutes       int        `gorm:"not null" json:"time_limit_minutes"`
	MaxAttempts            int        `gorm:"not null;default:1" json:"max_attempts"`
	ShuffleQuestions       bool       `gorm:"not null;default:false" json:"shuffle_questions"`
	ShowResultsImmediately bool       `gorm:"not null;default:true" json:"show_results_immediately"`
	AllowReview            bool       `gorm:"not null;default:true" json:"allow_review"`
	AttachmentURL          string     `gorm:"size:512" json:"attachment_url"`
	IsActive               bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedBy              uint       `gorm:"not null" json:"created_by"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	Questions              []Question `json:"questions,omitempty"`
}

// TimeLimitSeconds converts the configured limit into seconds, the unit used
// by attempts and heartbeats.
func (a Assignment) TimeLimitSeconds() int {
	return a.TimeLimitMinutes * 60
}

// IsPassing reports whether a percentage meets the configured passing mark.
func (a Assignment) IsPassing(percentage float64) bool {
	return percentage >= a.PassingMarks
}
