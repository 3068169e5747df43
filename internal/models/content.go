package models

import "time"

const (
	PartTypeReading      = "reading"
	PartTypePresentation = "presentation"
	PartTypeVideo        = "video"
	PartTypeAssignment   = "assignment"
)

// Module is the top level of the learning content hierarchy.
type Module struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Units        []Unit    `json:"units,omitempty"`
}

// Unit groups learning parts inside a module.
type Unit struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ModuleID     uint           `gorm:"not null;index" json:"module_id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Parts        []LearningPart `json:"parts,omitempty"`
}

// LearningPart is a single piece of content inside a unit. A part of type
// assignment references exactly one Assignment.
type LearningPart struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UnitID       uint      `gorm:"not null;index" json:"unit_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	PartType     string    `gorm:"size:16;not null" json:"part_type"`
	ContentURL   string    `gorm:"size:512" json:"content_url"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentProgress records completion of a learning part by a student.
type StudentProgress struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudentID      uint       `gorm:"not null;uniqueIndex:idx_progress_pair" json:"student_id"`
	LearningPartID uint       `gorm:"not null;uniqueIndex:idx_progress_pair" json:"learning_part_id"`
	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
