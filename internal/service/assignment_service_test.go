package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
)

type stubUploader struct {
	url      string
	uploaded []string
}

func (s *stubUploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	s.uploaded = append(s.uploaded, name)
	return s.url, nil
}

func newAssignmentFixture(t *testing.T) (*memoryAssignmentRepo, *memoryAttemptRepo, *stubUploader, AssignmentService) {
	t.Helper()

	assignments := newMemoryAssignmentRepo()
	attempts := newMemoryAttemptRepo()
	uploader := &stubUploader{url: "https://cdn.example.com/file.pdf"}
	svc := NewAssignmentService(assignments, attempts, uploader, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	return assignments, attempts, uploader, svc
}

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func TestCreateAssignmentDefaults(t *testing.T) {
	_, _, _, svc := newAssignmentFixture(t)

	created, err := svc.Create(context.Background(), 9, dto.AssignmentCreateRequest{
		LearningPartID:   3,
		Title:            "Chapter quiz",
		TotalMarks:       10,
		PassingMarks:     70,
		TimeLimitMinutes: 15,
		MaxAttempts:      3,
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.Equal(t, uint(3), created.LearningPartID)
}

func TestCreateAssignmentValidation(t *testing.T) {
	_, _, _, svc := newAssignmentFixture(t)

	_, err := svc.Create(context.Background(), 9, dto.AssignmentCreateRequest{
		LearningPartID:   3,
		Title:            "no limit",
		TotalMarks:       10,
		TimeLimitMinutes: 0,
		MaxAttempts:      1,
	})
	require.Error(t, err)
}

func TestUpdateRejectedWhileAttemptsLive(t *testing.T) {
	assignments, attempts, _, svc := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{LearningPartID: 3, Title: "quiz", TimeLimitMinutes: 10, MaxAttempts: 2, IsActive: true}
	require.NoError(t, assignments.Create(ctx, &assignment))

	live := models.Attempt{AssignmentID: assignment.ID, StudentID: 1, Status: models.AttemptInProgress, StartTime: time.Now()}
	require.NoError(t, attempts.CreateNext(ctx, &live))

	limit := 5
	_, err := svc.Update(ctx, assignment.ID, dto.AssignmentUpdateRequest{TimeLimitMinutes: &limit})
	require.ErrorIs(t, err, ErrAssignmentLocked)

	require.ErrorIs(t, svc.Delete(ctx, assignment.ID), ErrAssignmentLocked)

	// Once the attempt closes, updates go through.
	live.Status = models.AttemptCompleted
	require.NoError(t, attempts.Update(ctx, &live))

	updated, err := svc.Update(ctx, assignment.ID, dto.AssignmentUpdateRequest{TimeLimitMinutes: &limit})
	require.NoError(t, err)
	require.Equal(t, 5, updated.TimeLimitMinutes)
}

func TestAttachFileValidatesContentType(t *testing.T) {
	assignments, _, uploader, svc := newAssignmentFixture(t)
	ctx := context.Background()

	assignment := models.Assignment{LearningPartID: 3, Title: "quiz", TimeLimitMinutes: 10, MaxAttempts: 1, IsActive: true}
	require.NoError(t, assignments.Create(ctx, &assignment))

	// Content sniffing decides, not the file name.
	exe := multipartFile(t, "notes.pdf", []byte("MZ\x90\x00\x03"))
	_, err := svc.AttachFile(ctx, assignment.ID, exe)
	require.ErrorIs(t, err, ErrAttachmentTypeNotAllowed)
	require.Empty(t, uploader.uploaded)

	pdf := multipartFile(t, "notes.pdf", []byte("%PDF-1.4 minimal"))
	updated, err := svc.AttachFile(ctx, assignment.ID, pdf)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/file.pdf", updated.AttachmentURL)
	require.Len(t, uploader.uploaded, 1)
}
