package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// AnswerSelection holds the option letters a student picked for one
// question. Clients send either a bare string ("A") for single-choice or an
// array (["A","C"]) for multiple-choice; both decode into the same shape.
type AnswerSelection []string

// UnmarshalJSON accepts a string or an array of strings.
func (a *AnswerSelection) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*a = nil
			return nil
		}
		*a = AnswerSelection{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("answer must be a string or array of strings")
	}
	*a = AnswerSelection(many)
	return nil
}

// StudentAnswers maps question IDs to the student's selections.
type StudentAnswers map[uint]AnswerSelection

// AttemptEligibility is the policy gate's structured decision. A negative
// outcome is an expected result, not an error.
type AttemptEligibility struct {
	CanAttempt       bool   `json:"can_attempt"`
	Reason           string `json:"reason,omitempty"`
	HasActiveAttempt bool   `json:"has_active_attempt"`
	AttemptID        *uint  `json:"attempt_id,omitempty"`
	AttemptNumber    *int   `json:"attempt_number,omitempty"`
	NextAttempt      int    `json:"next_attempt,omitempty"`
	AttemptsUsed     int    `json:"attempts_used"`
	MaxAttempts      int    `json:"max_attempts"`
}

// QuestionView is the answer-free projection sent to students during an
// attempt. Answer keys and explanations never appear here.
type QuestionView struct {
	ID            uint              `json:"id"`
	QuestionText  string            `json:"question_text"`
	QuestionType  string            `json:"question_type"`
	Options       map[string]string `json:"options"`
	Marks         int               `json:"marks"`
	QuestionOrder int               `json:"question_order"`
}

// NewQuestionView strips the key fields from a question.
func NewQuestionView(question models.Question) QuestionView {
	options := make(map[string]string, 5)
	for letter, text := range question.Options() {
		options[string(letter)] = text
	}

	return QuestionView{
		ID:            question.ID,
		QuestionText:  question.QuestionText,
		QuestionType:  question.QuestionType,
		Options:       options,
		Marks:         question.Marks,
		QuestionOrder: question.QuestionOrder,
	}
}

// AttemptResponse is the serialized attempt state.
type AttemptResponse struct {
	ID                   uint       `json:"id"`
	AssignmentID         uint       `json:"assignment_id"`
	AttemptNumber        int        `json:"attempt_number"`
	Status               string     `json:"status"`
	TimeRemainingSeconds int        `json:"time_remaining_seconds"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
}

// NewAttemptResponse converts an attempt model into a DTO.
func NewAttemptResponse(attempt models.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:                   attempt.ID,
		AssignmentID:         attempt.AssignmentID,
		AttemptNumber:        attempt.AttemptNumber,
		Status:               string(attempt.Status),
		TimeRemainingSeconds: attempt.TimeRemainingSeconds,
		StartTime:            attempt.StartTime,
		EndTime:              attempt.EndTime,
	}
}

// StartAttemptResponse is returned by the start endpoint for both fresh
// starts and resumes.
type StartAttemptResponse struct {
	Assignment       AssignmentResponse `json:"assignment"`
	Attempt          AttemptResponse    `json:"attempt"`
	Questions        []QuestionView     `json:"questions"`
	TotalQuestions   int                `json:"total_questions"`
	TimeLimitSeconds int                `json:"time_limit_seconds"`
	Resumed          bool               `json:"resumed"`
}

// ProgressRequest is the heartbeat payload.
type ProgressRequest struct {
	TimeRemainingSeconds *int `json:"time_remaining_seconds" validate:"required,gte=0"`
}

// AutoSaveRequest persists the last-known answers alongside the heartbeat so
// a timeout can still score real work.
type AutoSaveRequest struct {
	TimeRemainingSeconds *int           `json:"time_remaining_seconds" validate:"required,gte=0"`
	Answers              StudentAnswers `json:"answers"`
}

// AutoSaveResponse acks the save. When TimedOut is true the server has
// already finalized the attempt and Result carries the scored outcome.
type AutoSaveResponse struct {
	TimedOut             bool            `json:"timed_out"`
	TimeRemainingSeconds int             `json:"time_remaining_seconds"`
	Result               *SubmitResponse `json:"result,omitempty"`
}

// SubmitRequest carries the student's final answers.
type SubmitRequest struct {
	Answers StudentAnswers `json:"answers" validate:"required"`
}

// ReviewEntry is the per-question correctness detail stored on a submission.
type ReviewEntry struct {
	QuestionID     uint     `json:"question_id"`
	Correct        bool     `json:"correct"`
	StudentAnswer  []string `json:"student_answer"`
	CorrectAnswers []string `json:"correct_answers"`
	MarksObtained  int      `json:"marks_obtained"`
	TotalMarks     int      `json:"total_marks"`
	Explanation    string   `json:"explanation,omitempty"`
}

// ScoreBreakdown is the scoring engine's output.
type ScoreBreakdown struct {
	Score      int           `json:"score"`
	TotalMarks int           `json:"total_marks"`
	Percentage float64       `json:"percentage"`
	ReviewData []ReviewEntry `json:"review_data"`
}

// SubmitResponse is returned after a submit or timeout finalization.
// ReviewData is nil unless the assignment shows results immediately.
type SubmitResponse struct {
	SubmissionID     uint          `json:"submission_id"`
	AttemptNumber    int           `json:"attempt_number"`
	Score            int           `json:"score"`
	TotalMarks       int           `json:"total_marks"`
	Percentage       float64       `json:"percentage"`
	Passed           bool          `json:"passed"`
	TimedOut         bool          `json:"timed_out"`
	TimeTakenSeconds int           `json:"time_taken_seconds"`
	ReviewData       []ReviewEntry `json:"review_data"`
	ResultsSummary   ResultSummary `json:"results_summary"`
}

// SubmissionResponse is the serialized submission record.
type SubmissionResponse struct {
	ID               uint            `json:"id"`
	AssignmentID     uint            `json:"assignment_id"`
	StudentID        uint            `json:"student_id"`
	AttemptNumber    int             `json:"attempt_number"`
	Answers          json.RawMessage `json:"answers"`
	Score            int             `json:"score"`
	TotalMarks       int             `json:"total_marks"`
	Percentage       float64         `json:"percentage"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	ReviewData       json.RawMessage `json:"review_data"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewSubmissionResponse converts a submission model into a DTO.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               submission.ID,
		AssignmentID:     submission.AssignmentID,
		StudentID:        submission.StudentID,
		AttemptNumber:    submission.AttemptNumber,
		Answers:          json.RawMessage(submission.Answers),
		Score:            submission.Score,
		TotalMarks:       submission.TotalMarks,
		Percentage:       submission.Percentage,
		TimeTakenSeconds: submission.TimeTakenSeconds,
		ReviewData:       json.RawMessage(submission.ReviewData),
		Status:           submission.Status,
		CreatedAt:        submission.CreatedAt,
	}
}

// ReviewQuestionView includes the answer key and explanation; it is only
// served through the review endpoint when the assignment allows review.
type ReviewQuestionView struct {
	QuestionView
	CorrectAnswers []string `json:"correct_answers"`
	Explanation    string   `json:"explanation,omitempty"`
}

// ReviewResponse pairs a submission with its full question detail.
type ReviewResponse struct {
	Submission SubmissionResponse   `json:"submission"`
	Questions  []ReviewQuestionView `json:"questions"`
}

// AttemptEvent is broadcast to monitoring teachers over the websocket.
type AttemptEvent struct {
	Type          string    `json:"type"`
	AssignmentID  uint      `json:"assignment_id"`
	StudentID     uint      `json:"student_id"`
	AttemptID     uint      `json:"attempt_id"`
	AttemptNumber int       `json:"attempt_number"`
	Status        string    `json:"status"`
	Percentage    *float64  `json:"percentage,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}
