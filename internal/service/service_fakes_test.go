package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
)

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[uint]models.Assignment), nextID: 1}
}

func (m *memoryAssignmentRepo) List(ctx context.Context) ([]models.Assignment, error) {
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		results = append(results, assignment)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) GetActiveByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok || !assignment.IsActive {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) GetByLearningPart(ctx context.Context, partID uint) (models.Assignment, error) {
	for _, assignment := range m.assignments {
		if assignment.LearningPartID == partID {
			return assignment, nil
		}
	}
	return models.Assignment{}, gorm.ErrRecordNotFound
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextID
	m.nextID++
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

type memoryQuestionRepo struct {
	questions map[uint]models.Question
	nextID    uint
}

func newMemoryQuestionRepo() *memoryQuestionRepo {
	return &memoryQuestionRepo{questions: make(map[uint]models.Question), nextID: 1}
}

func (m *memoryQuestionRepo) list(assignmentID uint, activeOnly bool) []models.Question {
	results := make([]models.Question, 0, len(m.questions))
	for _, question := range m.questions {
		if question.AssignmentID != assignmentID {
			continue
		}
		if activeOnly && !question.IsActive {
			continue
		}
		results = append(results, question)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].QuestionOrder != results[j].QuestionOrder {
			return results[i].QuestionOrder < results[j].QuestionOrder
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func (m *memoryQuestionRepo) ListActiveByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	return m.list(assignmentID, true), nil
}

func (m *memoryQuestionRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	return m.list(assignmentID, false), nil
}

func (m *memoryQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	question, ok := m.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (m *memoryQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	question.ID = m.nextID
	m.nextID++
	m.questions[question.ID] = *question
	return nil
}

func (m *memoryQuestionRepo) CreateBatch(ctx context.Context, questions []models.Question) error {
	for i := range questions {
		if err := m.Create(ctx, &questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	if _, ok := m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.questions[question.ID] = *question
	return nil
}

func (m *memoryQuestionRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.questions, id)
	return nil
}

type pairKey struct {
	assignmentID uint
	studentID    uint
}

type memoryAttemptRepo struct {
	attempts map[uint]models.Attempt
	nextID   uint
}

func newMemoryAttemptRepo() *memoryAttemptRepo {
	return &memoryAttemptRepo{attempts: make(map[uint]models.Attempt), nextID: 1}
}

func (m *memoryAttemptRepo) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	attempt, ok := m.attempts[id]
	if !ok {
		return models.Attempt{}, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (m *memoryAttemptRepo) GetActive(ctx context.Context, assignmentID, studentID uint) (models.Attempt, error) {
	for _, attempt := range m.attempts {
		if attempt.AssignmentID == assignmentID && attempt.StudentID == studentID && attempt.Status == models.AttemptInProgress {
			return attempt, nil
		}
	}
	return models.Attempt{}, gorm.ErrRecordNotFound
}

func (m *memoryAttemptRepo) CreateNext(ctx context.Context, attempt *models.Attempt) error {
	max := 0
	for _, existing := range m.attempts {
		if existing.AssignmentID == attempt.AssignmentID && existing.StudentID == attempt.StudentID && existing.AttemptNumber > max {
			max = existing.AttemptNumber
		}
	}
	attempt.AttemptNumber = max + 1
	attempt.ID = m.nextID
	m.nextID++
	m.attempts[attempt.ID] = *attempt
	return nil
}

func (m *memoryAttemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	if _, ok := m.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.attempts[attempt.ID] = *attempt
	return nil
}

func (m *memoryAttemptRepo) ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Attempt, error) {
	var results []models.Attempt
	for _, attempt := range m.attempts {
		if attempt.AssignmentID == assignmentID && attempt.StudentID == studentID {
			results = append(results, attempt)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AttemptNumber < results[j].AttemptNumber })
	return results, nil
}

func (m *memoryAttemptRepo) CountActiveByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	for _, attempt := range m.attempts {
		if attempt.AssignmentID == assignmentID && attempt.Status == models.AttemptInProgress {
			count++
		}
	}
	return count, nil
}

type memorySubmissionRepo struct {
	submissions map[uint]models.Submission
	nextID      uint
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{submissions: make(map[uint]models.Submission), nextID: 1}
}

func (m *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	for _, existing := range m.submissions {
		if existing.AssignmentID == submission.AssignmentID &&
			existing.StudentID == submission.StudentID &&
			existing.AttemptNumber == submission.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	submission.ID = m.nextID
	submission.CreatedAt = time.Now()
	m.nextID++
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (m *memorySubmissionRepo) GetByAttempt(ctx context.Context, assignmentID, studentID uint, attemptNumber int) (models.Submission, error) {
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID && submission.AttemptNumber == attemptNumber {
			return submission, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (m *memorySubmissionRepo) CountSubmitted(ctx context.Context, assignmentID, studentID uint) (int64, error) {
	var count int64
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID && submission.Status == models.SubmissionStatusSubmitted {
			count++
		}
	}
	return count, nil
}

func (m *memorySubmissionRepo) ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Submission, error) {
	var results []models.Submission
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID {
			results = append(results, submission)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AttemptNumber < results[j].AttemptNumber })
	return results, nil
}

type memoryResultRepo struct {
	results map[pairKey]models.AssignmentResult
}

func newMemoryResultRepo() *memoryResultRepo {
	return &memoryResultRepo{results: make(map[pairKey]models.AssignmentResult)}
}

func (m *memoryResultRepo) Upsert(ctx context.Context, result *models.AssignmentResult) error {
	key := pairKey{result.AssignmentID, result.StudentID}
	existing, ok := m.results[key]
	if !ok {
		result.AttemptsUsed = 1
		m.results[key] = *result
		return nil
	}

	if result.BestScore > existing.BestScore {
		existing.BestScore = result.BestScore
	}
	if result.BestPercentage > existing.BestPercentage {
		existing.BestPercentage = result.BestPercentage
	}
	existing.Passed = existing.Passed || result.Passed
	existing.AttemptsUsed++
	existing.LastAttemptAt = result.LastAttemptAt
	m.results[key] = existing
	return nil
}

func (m *memoryResultRepo) Get(ctx context.Context, assignmentID, studentID uint) (models.AssignmentResult, error) {
	result, ok := m.results[pairKey{assignmentID, studentID}]
	if !ok {
		return models.AssignmentResult{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (m *memoryResultRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.AssignmentResult, error) {
	var results []models.AssignmentResult
	for key, result := range m.results {
		if key.studentID == studentID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AssignmentID < results[j].AssignmentID })
	return results, nil
}

func (m *memoryResultRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentResult, error) {
	var results []models.AssignmentResult
	for key, result := range m.results {
		if key.assignmentID == assignmentID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].BestPercentage > results[j].BestPercentage })
	return results, nil
}

type memoryStudentRepo struct {
	students map[uint]models.Student
}

func newMemoryStudentRepo() *memoryStudentRepo {
	return &memoryStudentRepo{students: make(map[uint]models.Student)}
}

func (m *memoryStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (m *memoryStudentRepo) ListByIDs(ctx context.Context, ids []uint) ([]models.Student, error) {
	results := make([]models.Student, 0, len(ids))
	for _, id := range ids {
		if student, ok := m.students[id]; ok {
			results = append(results, student)
		}
	}
	return results, nil
}

func (m *memoryStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

type memoryProgressRepo struct {
	completed map[pairKey]time.Time
}

func newMemoryProgressRepo() *memoryProgressRepo {
	return &memoryProgressRepo{completed: make(map[pairKey]time.Time)}
}

func (m *memoryProgressRepo) MarkCompleted(ctx context.Context, studentID, learningPartID uint, at time.Time) error {
	m.completed[pairKey{learningPartID, studentID}] = at
	return nil
}

func (m *memoryProgressRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.StudentProgress, error) {
	var rows []models.StudentProgress
	for key, at := range m.completed {
		if key.studentID == studentID {
			completedAt := at
			rows = append(rows, models.StudentProgress{
				StudentID:      studentID,
				LearningPartID: key.assignmentID,
				Completed:      true,
				CompletedAt:    &completedAt,
			})
		}
	}
	return rows, nil
}

// recordingMonitor collects published events for assertions.
type recordingMonitor struct {
	mu     sync.Mutex
	events []dto.AttemptEvent
}

func (m *recordingMonitor) ServeConnection(conn *websocket.Conn, assignmentID uint) {}

func (m *recordingMonitor) Publish(event dto.AttemptEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *recordingMonitor) Events() []dto.AttemptEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dto.AttemptEvent, len(m.events))
	copy(out, m.events)
	return out
}
