package services

import (
	"context"

	"github.com/voxhire/backend/models"
	"github.com/voxhire/backend/repository"
)

// SessionProgress is the derived completion view of one session. It is never
// stored; the question and response tables are the only source of truth.
type SessionProgress struct {
	TotalQuestions       int     `json:"total_questions"`
	AnsweredQuestions    int     `json:"answered_questions"`
	CompletionPercentage float64 `json:"completion_percentage"`
	IsComplete           bool    `json:"is_complete"`
}

// Projector computes completion state from the question/response tables
type Projector struct {
	repo *repository.InterviewRepository
}

func NewProjector(repo *repository.InterviewRepository) *Projector {
	return &Projector{repo: repo}
}

// Progress returns the derived completion view for a single session
func (p *Projector) Progress(ctx context.Context, sessionID string) (*SessionProgress, error) {
	counts, err := p.ProgressForSessions(ctx, []string{sessionID})
	if err != nil {
		return nil, err
	}
	progress := counts[sessionID]
	return &progress, nil
}

// ProgressForSessions computes completion for many sessions with one grouped
// query, keyed by session id. Sessions absent from the result have no
// questions and read as zero progress.
func (p *Projector) ProgressForSessions(ctx context.Context, sessionIDs []string) (map[string]SessionProgress, error) {
	counts, err := p.repo.SessionProgress(ctx, sessionIDs)
	if err != nil {
		return nil, ErrStorage("failed to compute session progress", err)
	}

	result := make(map[string]SessionProgress, len(sessionIDs))
	for _, id := range sessionIDs {
		row := counts[id]
		progress := SessionProgress{
			TotalQuestions:    int(row.Total),
			AnsweredQuestions: int(row.Answered),
		}
		if row.Total > 0 {
			progress.CompletionPercentage = float64(row.Answered) / float64(row.Total) * 100
			progress.IsComplete = row.Answered >= row.Total
		}
		result[id] = progress
	}
	return result, nil
}

// NextQuestion returns the lowest-ordered question without a response, or nil
// when every question is answered. Questions must carry their Response
// preload and arrive in order.
func NextQuestion(questions []models.InterviewQuestion) *models.InterviewQuestion {
	for i := range questions {
		if questions[i].Response == nil {
			return &questions[i]
		}
	}
	return nil
}
