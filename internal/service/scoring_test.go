package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
)

func strPtr(s string) *string { return &s }

func mustQuestion(t *testing.T, id uint, questionType, key string, marks int) models.Question {
	t.Helper()

	question := models.Question{
		ID:             id,
		QuestionType:   questionType,
		OptionA:        "option a",
		OptionB:        "option b",
		OptionC:        strPtr("option c"),
		OptionD:        strPtr("option d"),
		CorrectAnswers: key,
		Marks:          marks,
	}
	require.NoError(t, question.ParseKey())
	return question
}

func TestCalculateScoreEmptyAnswersScoreZero(t *testing.T) {
	questions := []models.Question{
		mustQuestion(t, 1, models.QuestionTypeSingle, "A", 5),
		mustQuestion(t, 2, models.QuestionTypeMultiple, "B,C", 5),
	}

	breakdown, err := CalculateScore(questions, dto.StudentAnswers{})
	require.NoError(t, err)
	require.Equal(t, 0, breakdown.Score)
	require.Equal(t, 10, breakdown.TotalMarks)
	require.Equal(t, 0.0, breakdown.Percentage)
	require.Len(t, breakdown.ReviewData, 2)
	for _, entry := range breakdown.ReviewData {
		require.False(t, entry.Correct)
	}
}

func TestCalculateScoreSingleChoice(t *testing.T) {
	questions := []models.Question{mustQuestion(t, 1, models.QuestionTypeSingle, "B", 4)}

	breakdown, err := CalculateScore(questions, dto.StudentAnswers{1: {"b"}})
	require.NoError(t, err)
	require.Equal(t, 4, breakdown.Score)
	require.Equal(t, 100.0, breakdown.Percentage)

	// Two selected letters never count, even when one of them is right.
	breakdown, err = CalculateScore(questions, dto.StudentAnswers{1: {"B", "C"}})
	require.NoError(t, err)
	require.Equal(t, 0, breakdown.Score)
}

func TestCalculateScoreMultipleChoiceExactSet(t *testing.T) {
	questions := []models.Question{mustQuestion(t, 1, models.QuestionTypeMultiple, "A,C", 6)}

	cases := []struct {
		name     string
		answers  dto.AnswerSelection
		expected int
	}{
		{"exact match", dto.AnswerSelection{"C", "A"}, 6},
		{"subset", dto.AnswerSelection{"A"}, 0},
		{"superset", dto.AnswerSelection{"A", "C", "D"}, 0},
		{"disjoint", dto.AnswerSelection{"B"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			breakdown, err := CalculateScore(questions, dto.StudentAnswers{1: tc.answers})
			require.NoError(t, err)
			require.Equal(t, tc.expected, breakdown.Score)
		})
	}
}

func TestCalculateScorePercentageRounding(t *testing.T) {
	questions := []models.Question{
		mustQuestion(t, 1, models.QuestionTypeSingle, "A", 1),
		mustQuestion(t, 2, models.QuestionTypeSingle, "A", 1),
		mustQuestion(t, 3, models.QuestionTypeSingle, "A", 1),
	}

	breakdown, err := CalculateScore(questions, dto.StudentAnswers{1: {"A"}})
	require.NoError(t, err)
	require.Equal(t, 33.33, breakdown.Percentage)
}

func TestCalculateScoreZeroQuestions(t *testing.T) {
	breakdown, err := CalculateScore(nil, dto.StudentAnswers{1: {"A"}})
	require.NoError(t, err)
	require.Equal(t, 0, breakdown.Score)
	require.Equal(t, 0.0, breakdown.Percentage)
	require.Empty(t, breakdown.ReviewData)
}

func TestCalculateScoreRejectsUnparsedKey(t *testing.T) {
	questions := []models.Question{{ID: 9, QuestionType: models.QuestionTypeSingle, Marks: 1}}

	_, err := CalculateScore(questions, dto.StudentAnswers{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no parsed answer key")
}

func TestCalculateScoreReviewEntries(t *testing.T) {
	questions := []models.Question{
		mustQuestion(t, 1, models.QuestionTypeSingle, "A", 2),
		mustQuestion(t, 2, models.QuestionTypeMultiple, "B,D", 3),
	}

	breakdown, err := CalculateScore(questions, dto.StudentAnswers{
		1: {"A"},
		2: {"B"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, breakdown.Score)
	require.Equal(t, 5, breakdown.TotalMarks)
	require.Equal(t, 40.0, breakdown.Percentage)

	require.True(t, breakdown.ReviewData[0].Correct)
	require.Equal(t, 2, breakdown.ReviewData[0].MarksObtained)
	require.False(t, breakdown.ReviewData[1].Correct)
	require.Equal(t, []string{"B", "D"}, breakdown.ReviewData[1].CorrectAnswers)
}
