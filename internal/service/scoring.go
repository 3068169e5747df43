package service

import (
	"fmt"
	"math"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
)

// CalculateScore grades a set of answers against the question bank. It is a
// pure function: no clock, no storage, no randomness. Questions must arrive
// with their answer keys already parsed; a question with a missing key fails
// the whole calculation rather than being silently skipped.
func CalculateScore(questions []models.Question, answers dto.StudentAnswers) (dto.ScoreBreakdown, error) {
	breakdown := dto.ScoreBreakdown{
		ReviewData: make([]dto.ReviewEntry, 0, len(questions)),
	}

	for _, question := range questions {
		if len(question.Key) == 0 {
			return dto.ScoreBreakdown{}, fmt.Errorf("question %d has no parsed answer key", question.ID)
		}

		breakdown.TotalMarks += question.Marks

		selection := answers[question.ID]
		correct := isCorrect(question, selection)

		obtained := 0
		if correct {
			obtained = question.Marks
			breakdown.Score += obtained
		}

		breakdown.ReviewData = append(breakdown.ReviewData, dto.ReviewEntry{
			QuestionID:     question.ID,
			Correct:        correct,
			StudentAnswer:  selection,
			CorrectAnswers: question.Key.Letters(),
			MarksObtained:  obtained,
			TotalMarks:     question.Marks,
			Explanation:    question.Explanation,
		})
	}

	breakdown.Percentage = percentage(breakdown.Score, breakdown.TotalMarks)
	return breakdown, nil
}

func isCorrect(question models.Question, selection dto.AnswerSelection) bool {
	switch question.QuestionType {
	case models.QuestionTypeMultiple:
		// Exact set equality. Subsets and supersets earn nothing.
		return question.Key.EqualsSet(selection)
	default:
		// Single choice: exactly one selected letter, present in the key.
		return len(selection) == 1 && question.Key.Contains(selection[0])
	}
}

// percentage returns score/total as a percentage rounded to 2 decimals.
// Zero total is defined as 0, not NaN.
func percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}
