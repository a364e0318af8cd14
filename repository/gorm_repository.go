package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxhire/backend/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Resume{},
		&models.InterviewSession{},
		&models.InterviewQuestion{},
		&models.InterviewResponse{},
		&models.RefreshToken{},
	)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Resume operations
func (r *GORMRepository) CreateResume(ctx context.Context, resume *models.Resume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		slog.Error("Failed to create resume", "error", err, "user_id", resume.UserID)
		return err
	}
	slog.Info("Resume created", "resume_id", resume.ID, "user_id", resume.UserID)
	return nil
}

// GetResumeByID scopes by owner; a resume belonging to another user reads as absent
func (r *GORMRepository) GetResumeByID(ctx context.Context, resumeID string, userID string) (*models.Resume, error) {
	var resume models.Resume
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", resumeID, userID).First(&resume).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get resume by ID", "error", err, "resume_id", resumeID, "user_id", userID)
		return nil, err
	}
	return &resume, nil
}

func (r *GORMRepository) GetResumesByUser(ctx context.Context, userID string) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&resumes).Error
	if err != nil {
		slog.Error("Failed to get resumes", "error", err, "user_id", userID)
		return nil, err
	}
	return resumes, nil
}

func (r *GORMRepository) UpdateResumeParsedData(ctx context.Context, resumeID string, parsed datatypes.JSON) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("id = ?", resumeID).
		Update("parsed_data", parsed).Error; err != nil {
		slog.Error("Failed to update resume parsed data", "error", err, "resume_id", resumeID)
		return err
	}
	return nil
}

// DeleteResume removes the resume and, through it, every session, question and
// response hanging off it. Runs in one transaction so a partial cascade never
// leaks rows.
func (r *GORMRepository) DeleteResume(ctx context.Context, resumeID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessionIDs []string
		if err := tx.Model(&models.InterviewSession{}).
			Where("resume_id = ?", resumeID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := deleteSessionChildren(tx, sessionIDs); err != nil {
				return err
			}
			if err := tx.Where("id IN ?", sessionIDs).Delete(&models.InterviewSession{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", resumeID).Delete(&models.Resume{}).Error
	})
	if err != nil {
		slog.Error("Failed to delete resume", "error", err, "resume_id", resumeID)
		return err
	}
	slog.Info("Resume deleted", "resume_id", resumeID)
	return nil
}

func deleteSessionChildren(tx *gorm.DB, sessionIDs []string) error {
	var questionIDs []string
	if err := tx.Model(&models.InterviewQuestion{}).
		Where("session_id IN ?", sessionIDs).
		Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) > 0 {
		if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.InterviewResponse{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("session_id IN ?", sessionIDs).Delete(&models.InterviewQuestion{}).Error
}
