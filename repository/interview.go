package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/voxhire/backend/models"
	"gorm.io/gorm"
)

// ErrDuplicateResponse reports that a question already has a persisted answer.
// It is the translated form of the unique-index violation on
// interview_responses.question_id, so a concurrent double submit surfaces here.
var ErrDuplicateResponse = errors.New("question already has a response")

type InterviewRepository struct {
	db *gorm.DB
}

// ProgressCounts is the per-session aggregation used by the projection layer.
type ProgressCounts struct {
	SessionID string `json:"session_id"`
	Total     int64  `json:"total"`
	Answered  int64  `json:"answered"`
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// CreateSessionWithQuestions persists a session and its full question set in a
// single transaction. Either everything lands or nothing does.
func (r *InterviewRepository) CreateSessionWithQuestions(ctx context.Context, session *models.InterviewSession, questions []models.InterviewQuestion) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].SessionID = session.ID
		}
		return tx.Create(&questions).Error
	})
	if err != nil {
		slog.Error("Failed to create interview session", "error", err, "user_id", session.UserID, "resume_id", session.ResumeID)
		return fmt.Errorf("failed to create interview session: %w", err)
	}

	slog.Info("Interview session created", "session_id", session.ID, "user_id", session.UserID, "questions", len(questions))
	return nil
}

// GetSession retrieves a session scoped to its owner, without children
func (r *InterviewRepository) GetSession(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, fmt.Errorf("failed to get interview session: %w", err)
	}
	return &session, nil
}

// GetSessionWithDetails retrieves a session with its ordered questions and any
// responses attached to them
func (r *InterviewRepository) GetSessionWithDetails(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Questions.Response").
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session with details", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, fmt.Errorf("failed to get interview session with details: %w", err)
	}
	return &session, nil
}

func (r *InterviewRepository) GetSessionsByUser(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get interview sessions", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get interview sessions: %w", err)
	}
	return sessions, nil
}

// GetQuestion retrieves a question with its parent session preloaded so
// callers can check ownership and session state in one read
func (r *InterviewRepository) GetQuestion(ctx context.Context, questionID string) (*models.InterviewQuestion, error) {
	var question models.InterviewQuestion
	err := r.db.WithContext(ctx).
		Where("id = ?", questionID).
		Preload("Session").
		First(&question).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview question", "error", err, "question_id", questionID)
		return nil, fmt.Errorf("failed to get interview question: %w", err)
	}
	return &question, nil
}

func (r *InterviewRepository) GetQuestionsBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	var questions []models.InterviewQuestion
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("order_index ASC").
		Preload("Response").
		Find(&questions).Error
	if err != nil {
		slog.Error("Failed to get interview questions", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to get interview questions: %w", err)
	}
	return questions, nil
}

// CreateResponse persists an answer. A unique-index violation on question_id
// is translated to ErrDuplicateResponse; everything else passes through.
func (r *InterviewRepository) CreateResponse(ctx context.Context, response *models.InterviewResponse) error {
	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateResponse
		}
		slog.Error("Failed to create interview response", "error", err, "question_id", response.QuestionID)
		return fmt.Errorf("failed to create interview response: %w", err)
	}

	slog.Info("Interview response created", "response_id", response.ID, "question_id", response.QuestionID)
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpdateSessionStatus flips status only when the current value is one of from.
// Returns false when the guard did not match, which is how concurrent
// transitions lose.
func (r *InterviewRepository) UpdateSessionStatus(ctx context.Context, sessionID string, from []string, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND status IN ?", sessionID, from).
		Update("status", to)
	if result.Error != nil {
		slog.Error("Failed to update session status", "error", result.Error, "session_id", sessionID, "to", to)
		return false, fmt.Errorf("failed to update session status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CompleteSession finalizes a session atomically: the score, feedback and
// timestamp land only if the session is still in_progress
func (r *InterviewRepository) CompleteSession(ctx context.Context, sessionID string, overallScore float64, feedback string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionInProgress).
		Updates(map[string]interface{}{
			"status":        models.SessionCompleted,
			"overall_score": overallScore,
			"feedback":      feedback,
			"completed_at":  now,
		})
	if result.Error != nil {
		slog.Error("Failed to complete session", "error", result.Error, "session_id", sessionID)
		return false, fmt.Errorf("failed to complete session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteSession removes a session and its questions and responses in one
// transaction
func (r *InterviewRepository) DeleteSession(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSessionChildren(tx, []string{sessionID}); err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&models.InterviewSession{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete session", "error", err, "session_id", sessionID)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("Interview session deleted", "session_id", sessionID)
	return nil
}

// SessionProgress returns answered/total counts for the given sessions in a
// single grouped query, keyed by session id
func (r *InterviewRepository) SessionProgress(ctx context.Context, sessionIDs []string) (map[string]ProgressCounts, error) {
	progress := make(map[string]ProgressCounts, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return progress, nil
	}

	var rows []ProgressCounts
	err := r.db.WithContext(ctx).
		Model(&models.InterviewQuestion{}).
		Select("interview_questions.session_id AS session_id, COUNT(interview_questions.id) AS total, COUNT(interview_responses.id) AS answered").
		Joins("LEFT JOIN interview_responses ON interview_responses.question_id = interview_questions.id AND interview_responses.deleted_at IS NULL").
		Where("interview_questions.session_id IN ?", sessionIDs).
		Group("interview_questions.session_id").
		Scan(&rows).Error
	if err != nil {
		slog.Error("Failed to get session progress", "error", err)
		return nil, fmt.Errorf("failed to get session progress: %w", err)
	}

	for _, row := range rows {
		progress[row.SessionID] = row
	}
	return progress, nil
}

// GetResponsesBySession returns the answered question/response pairs for a
// session in question order
func (r *InterviewRepository) GetResponsesBySession(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	var responses []models.InterviewResponse
	err := r.db.WithContext(ctx).
		Joins("JOIN interview_questions ON interview_questions.id = interview_responses.question_id").
		Where("interview_questions.session_id = ? AND interview_questions.deleted_at IS NULL", sessionID).
		Order("interview_questions.order_index ASC").
		Preload("Question").
		Find(&responses).Error
	if err != nil {
		slog.Error("Failed to get responses by session", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to get responses by session: %w", err)
	}
	return responses, nil
}
