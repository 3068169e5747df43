package dto

import (
	"time"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// ModuleRequest creates or updates a learning module.
type ModuleRequest struct {
	Title        string `json:"title" validate:"required,min=3"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// UnitRequest creates or updates a unit inside a module.
type UnitRequest struct {
	ModuleID     uint   `json:"module_id" validate:"required"`
	Title        string `json:"title" validate:"required,min=3"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// LearningPartRequest creates or updates a learning part.
type LearningPartRequest struct {
	UnitID       uint   `json:"unit_id" validate:"required"`
	Title        string `json:"title" validate:"required,min=3"`
	PartType     string `json:"part_type" validate:"required,oneof=reading presentation video assignment"`
	ContentURL   string `json:"content_url" validate:"omitempty,url"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// ModuleResponse is the serialized module with nested units.
type ModuleResponse struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	DisplayOrder int            `json:"display_order"`
	IsActive     bool           `json:"is_active"`
	Units        []UnitResponse `json:"units,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UnitResponse is the serialized unit with nested parts.
type UnitResponse struct {
	ID           uint                   `json:"id"`
	ModuleID     uint                   `json:"module_id"`
	Title        string                 `json:"title"`
	DisplayOrder int                    `json:"display_order"`
	IsActive     bool                   `json:"is_active"`
	Parts        []LearningPartResponse `json:"parts,omitempty"`
}

// LearningPartResponse is the serialized learning part.
type LearningPartResponse struct {
	ID           uint   `json:"id"`
	UnitID       uint   `json:"unit_id"`
	Title        string `json:"title"`
	PartType     string `json:"part_type"`
	ContentURL   string `json:"content_url,omitempty"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// NewLearningPartResponse converts a learning part model into a DTO.
func NewLearningPartResponse(part models.LearningPart) LearningPartResponse {
	return LearningPartResponse{
		ID:           part.ID,
		UnitID:       part.UnitID,
		Title:        part.Title,
		PartType:     part.PartType,
		ContentURL:   part.ContentURL,
		DisplayOrder: part.DisplayOrder,
		IsActive:     part.IsActive,
	}
}

// NewUnitResponse converts a unit model into a DTO.
func NewUnitResponse(unit models.Unit) UnitResponse {
	parts := make([]LearningPartResponse, 0, len(unit.Parts))
	for _, part := range unit.Parts {
		parts = append(parts, NewLearningPartResponse(part))
	}

	return UnitResponse{
		ID:           unit.ID,
		ModuleID:     unit.ModuleID,
		Title:        unit.Title,
		DisplayOrder: unit.DisplayOrder,
		IsActive:     unit.IsActive,
		Parts:        parts,
	}
}

// NewModuleResponse converts a module model into a DTO.
func NewModuleResponse(module models.Module) ModuleResponse {
	units := make([]UnitResponse, 0, len(module.Units))
	for _, unit := range module.Units {
		units = append(units, NewUnitResponse(unit))
	}

	return ModuleResponse{
		ID:           module.ID,
		Title:        module.Title,
		Description:  module.Description,
		DisplayOrder: module.DisplayOrder,
		IsActive:     module.IsActive,
		Units:        units,
		CreatedAt:    module.CreatedAt,
	}
}

// ProgressResponse reports a student's completion of a learning part.
type ProgressResponse struct {
	LearningPartID uint       `json:"learning_part_id"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewProgressResponseSlice converts progress rows into DTOs.
func NewProgressResponseSlice(rows []models.StudentProgress) []ProgressResponse {
	responses := make([]ProgressResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, ProgressResponse{
			LearningPartID: row.LearningPartID,
			Completed:      row.Completed,
			CompletedAt:    row.CompletedAt,
		})
	}
	return responses
}
