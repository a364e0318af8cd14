package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/voxhire/backend/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepos(t *testing.T) (*GORMRepository, *InterviewRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	gormRepo := NewGORMRepository(db)
	if err := gormRepo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gormRepo, NewInterviewRepository(db)
}

func seedSession(t *testing.T, users *GORMRepository, repo *InterviewRepository, questionCount int) *models.InterviewSession {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Email: "candidate@example.com", Password: "x", FullName: "Test Candidate"}
	if err := users.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	resume := &models.Resume{UserID: user.ID, FileName: "r.pdf", FilePath: "r.pdf", FileSize: 1, RawText: "raw"}
	if err := users.CreateResume(ctx, resume); err != nil {
		t.Fatalf("failed to create resume: %v", err)
	}

	session := &models.InterviewSession{UserID: user.ID, ResumeID: resume.ID, Status: models.SessionInProgress}
	questions := make([]models.InterviewQuestion, questionCount)
	for i := range questions {
		questions[i] = models.InterviewQuestion{
			QuestionText: "question text",
			QuestionType: models.QuestionExperience,
			OrderIndex:   i,
		}
	}
	if err := repo.CreateSessionWithQuestions(ctx, session, questions); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	session.Questions = questions
	return session
}

func TestCreateResponseDuplicate(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 3)
	ctx := context.Background()

	first := &models.InterviewResponse{
		QuestionID:   session.Questions[0].ID,
		ResponseText: "the first answer",
		Score:        7,
	}
	if err := repo.CreateResponse(ctx, first); err != nil {
		t.Fatalf("first response failed: %v", err)
	}

	second := &models.InterviewResponse{
		QuestionID:   session.Questions[0].ID,
		ResponseText: "the second answer",
		Score:        8,
	}
	err := repo.CreateResponse(ctx, second)
	if !errors.Is(err, ErrDuplicateResponse) {
		t.Fatalf("got %v, want ErrDuplicateResponse", err)
	}

	// A different question still accepts its answer
	third := &models.InterviewResponse{
		QuestionID:   session.Questions[1].ID,
		ResponseText: "another answer",
		Score:        6,
	}
	if err := repo.CreateResponse(ctx, third); err != nil {
		t.Errorf("unrelated question should accept a response: %v", err)
	}
}

func TestUpdateSessionStatusGuard(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 1)
	ctx := context.Background()

	ok, err := repo.UpdateSessionStatus(ctx, session.ID,
		[]string{models.SessionPending, models.SessionInProgress}, models.SessionCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("in_progress session should transition to cancelled")
	}

	// Guard no longer matches
	ok, err = repo.UpdateSessionStatus(ctx, session.ID,
		[]string{models.SessionPending, models.SessionInProgress}, models.SessionCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second transition should lose the conditional update")
	}

	stored, err := repo.GetSession(ctx, session.ID, session.UserID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Status != models.SessionCancelled {
		t.Errorf("status = %q, want cancelled", stored.Status)
	}
}

func TestCompleteSessionConditional(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 1)
	ctx := context.Background()

	ok, err := repo.CompleteSession(ctx, session.ID, 7.5, `{"summary":"good"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("first complete should win")
	}

	ok, err = repo.CompleteSession(ctx, session.ID, 9.9, `{"summary":"again"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second complete should lose")
	}

	stored, err := repo.GetSession(ctx, session.ID, session.UserID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if stored.Status != models.SessionCompleted {
		t.Errorf("status = %q, want completed", stored.Status)
	}
	if stored.OverallScore == nil || *stored.OverallScore != 7.5 {
		t.Errorf("overall score = %v, the losing complete must not overwrite it", stored.OverallScore)
	}
	if stored.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
}

func TestSessionProgressCounts(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 5)
	ctx := context.Background()

	for _, question := range session.Questions[:2] {
		response := &models.InterviewResponse{QuestionID: question.ID, ResponseText: "answered", Score: 7}
		if err := repo.CreateResponse(ctx, response); err != nil {
			t.Fatalf("failed to create response: %v", err)
		}
	}

	progress, err := repo.SessionProgress(ctx, []string{session.ID, "no-such-session"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := progress[session.ID]
	if counts.Total != 5 || counts.Answered != 2 {
		t.Errorf("counts = %d/%d, want 2 answered of 5", counts.Answered, counts.Total)
	}
	if _, present := progress["no-such-session"]; present {
		t.Error("unknown sessions should be absent from the result")
	}

	// Empty input short-circuits without touching the database
	empty, err := repo.SessionProgress(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d rows for empty input", len(empty))
	}
}

func TestDeleteSessionRemovesChildren(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 2)
	ctx := context.Background()

	response := &models.InterviewResponse{QuestionID: session.Questions[0].ID, ResponseText: "answered", Score: 7}
	if err := repo.CreateResponse(ctx, response); err != nil {
		t.Fatalf("failed to create response: %v", err)
	}

	if err := repo.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	stored, err := repo.GetSession(ctx, session.ID, session.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != nil {
		t.Error("session should be gone")
	}

	questions, err := repo.GetQuestionsBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("got %d orphaned questions", len(questions))
	}
	responses, err := repo.GetResponsesBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 0 {
		t.Errorf("got %d orphaned responses", len(responses))
	}
}

func TestDeleteResumeCascades(t *testing.T) {
	users, repo := newTestRepos(t)
	session := seedSession(t, users, repo, 2)
	ctx := context.Background()

	if err := users.DeleteResume(ctx, session.ResumeID); err != nil {
		t.Fatalf("failed to delete resume: %v", err)
	}

	resume, err := users.GetResumeByID(ctx, session.ResumeID, session.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resume != nil {
		t.Error("resume should be gone")
	}

	stored, err := repo.GetSession(ctx, session.ID, session.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != nil {
		t.Error("sessions hanging off the resume should be gone")
	}
	questions, err := repo.GetQuestionsBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("got %d orphaned questions", len(questions))
	}
}
