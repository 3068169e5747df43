package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnswerKeyNormalizes(t *testing.T) {
	key, err := ParseAnswerKey(" c, a ,C")
	require.NoError(t, err)
	require.Equal(t, "A,C", key.String())
}

func TestParseAnswerKeyRejectsInvalidLetters(t *testing.T) {
	_, err := ParseAnswerKey("A,F")
	require.Error(t, err)

	_, err = ParseAnswerKey("")
	require.Error(t, err)

	_, err = ParseAnswerKey(" , ,")
	require.Error(t, err)
}

func TestAnswerKeyEqualsSet(t *testing.T) {
	key, err := ParseAnswerKey("A,C")
	require.NoError(t, err)

	require.True(t, key.EqualsSet([]string{"c", "A"}))
	require.False(t, key.EqualsSet([]string{"A"}))
	require.False(t, key.EqualsSet([]string{"A", "C", "D"}))
	require.False(t, key.EqualsSet(nil))
}

func TestAnswerKeyContainsIsCaseInsensitive(t *testing.T) {
	key, err := ParseAnswerKey("B")
	require.NoError(t, err)

	require.True(t, key.Contains("b"))
	require.False(t, key.Contains("a"))
}

func TestParseKeyRejectsMissingOption(t *testing.T) {
	question := Question{
		ID:             7,
		OptionA:        "first",
		OptionB:        "second",
		CorrectAnswers: "A,D",
	}

	err := question.ParseKey()
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing option D")
}
