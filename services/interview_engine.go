package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/voxhire/backend/models"
	"github.com/voxhire/backend/repository"
	ws "github.com/voxhire/backend/websocket"
)

// AIService is the language-model half of the AI collaborator pair
type AIService interface {
	ParseResume(ctx context.Context, rawText string) (*models.ParsedResume, error)
	GenerateQuestions(ctx context.Context, parsed *models.ParsedResume) ([]GeneratedQuestion, error)
	EvaluateAnswer(ctx context.Context, questionText, questionType, answer string, parsed *models.ParsedResume) (*models.Evaluation, error)
	GenerateAggregateFeedback(ctx context.Context, parsed *models.ParsedResume, answered []AnsweredQuestion) (*AggregateFeedback, error)
}

// EventPublisher pushes progress events to a user's open connections
type EventPublisher interface {
	PublishToUser(userID string, event ws.Event)
}

// InterviewEngine owns the session state machine: start, submit, complete,
// cancel, delete. Status transitions go through conditional updates so
// concurrent calls cannot both win.
type InterviewEngine struct {
	repo      *repository.InterviewRepository
	users     *repository.GORMRepository
	ai        AIService
	pipeline  *EvaluationPipeline
	projector *Projector
	storage   *StorageService
	events    EventPublisher
}

func NewInterviewEngine(
	repo *repository.InterviewRepository,
	users *repository.GORMRepository,
	ai AIService,
	pipeline *EvaluationPipeline,
	projector *Projector,
	storage *StorageService,
	events EventPublisher,
) *InterviewEngine {
	return &InterviewEngine{
		repo:      repo,
		users:     users,
		ai:        ai,
		pipeline:  pipeline,
		projector: projector,
		storage:   storage,
		events:    events,
	}
}

// SubmitInput is one answer submission, text or audio or both
type SubmitInput struct {
	SessionID      string
	QuestionID     string
	ResponseText   string
	ResponseTimeMs int
	AudioData      []byte
	AudioExt       string
}

// SubmitResult reports the persisted response plus where the interview stands
type SubmitResult struct {
	Response       *models.InterviewResponse `json:"response"`
	Evaluation     *models.Evaluation        `json:"evaluation"`
	Progress       *SessionProgress          `json:"progress"`
	NextQuestion   *models.InterviewQuestion `json:"next_question,omitempty"`
	IsLastQuestion bool                      `json:"is_last_question"`
}

// SessionDetail is the hydrated read view of one session
type SessionDetail struct {
	Session  *models.InterviewSession  `json:"session"`
	Progress *SessionProgress          `json:"progress"`
	Next     *models.InterviewQuestion `json:"next_question,omitempty"`
}

// SessionSummary is one row of the session listing
type SessionSummary struct {
	Session  models.InterviewSession `json:"session"`
	Progress SessionProgress         `json:"progress"`
}

// Start creates a session against a parsed resume, generating the full
// question set before anything is persisted. The session is immediately
// in_progress; there is no lobby state between creation and answering.
func (e *InterviewEngine) Start(ctx context.Context, userID, resumeID string) (*models.InterviewSession, error) {
	resume, err := e.users.GetResumeByID(ctx, resumeID, userID)
	if err != nil {
		return nil, ErrStorage("failed to load resume", err)
	}
	if resume == nil {
		return nil, ErrNotFound("resume not found")
	}

	parsed, err := ParsedResumeOf(resume)
	if err != nil {
		return nil, err
	}

	generated, err := e.ai.GenerateQuestions(ctx, parsed)
	if err != nil {
		if errors.Is(err, ErrMalformedOutput) {
			return nil, ErrUpstream("question generation returned malformed output", err)
		}
		return nil, ErrUpstream("question generation unavailable", err)
	}

	session := &models.InterviewSession{
		UserID:    userID,
		ResumeID:  resumeID,
		Status:    models.SessionInProgress,
		StartedAt: time.Now(),
	}
	questions := make([]models.InterviewQuestion, len(generated))
	for i, q := range generated {
		questions[i] = models.InterviewQuestion{
			QuestionText: q.Text,
			QuestionType: q.Type,
			OrderIndex:   i,
		}
	}

	if err := e.repo.CreateSessionWithQuestions(ctx, session, questions); err != nil {
		return nil, ErrStorage("failed to create session", err)
	}

	session.Questions = questions
	slog.Info("Interview started", "session_id", session.ID, "user_id", userID, "resume_id", resumeID)
	return session, nil
}

// SubmitAnswer evaluates and persists one answer. The whole operation is
// fatal past the transcription step: an evaluation failure persists nothing.
func (e *InterviewEngine) SubmitAnswer(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error) {
	question, err := e.repo.GetQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, ErrStorage("failed to load question", err)
	}
	if question == nil || question.Session.UserID != userID {
		return nil, ErrNotFound("question not found")
	}
	if in.SessionID != "" && question.SessionID != in.SessionID {
		return nil, ErrInvalidRequest("question does not belong to session")
	}
	if question.Session.Status != models.SessionInProgress {
		return nil, ErrInvalidState("session is not in progress")
	}

	resume, err := e.users.GetResumeByID(ctx, question.Session.ResumeID, userID)
	if err != nil {
		return nil, ErrStorage("failed to load resume", err)
	}
	if resume == nil {
		return nil, ErrNotFound("resume not found")
	}
	parsed, err := ParsedResumeOf(resume)
	if err != nil {
		return nil, err
	}

	evaluated, err := e.pipeline.Evaluate(ctx, EvaluationInput{
		Question:     question,
		ResponseText: in.ResponseText,
		AudioData:    in.AudioData,
		AudioExt:     in.AudioExt,
		Resume:       parsed,
	})
	if err != nil {
		return nil, err
	}

	evaluationJSON, err := json.Marshal(evaluated.Evaluation)
	if err != nil {
		e.pipeline.cleanup(evaluated.AudioFilePath)
		return nil, ErrStorage("failed to encode evaluation", err)
	}

	response := &models.InterviewResponse{
		QuestionID:     question.ID,
		ResponseText:   evaluated.FinalText,
		AudioFilePath:  evaluated.AudioFilePath,
		ResponseTimeMs: in.ResponseTimeMs,
		Score:          evaluated.Evaluation.OverallScore,
		Feedback:       evaluated.Evaluation.DetailedFeedback,
		Evaluation:     evaluationJSON,
	}

	if err := e.repo.CreateResponse(ctx, response); err != nil {
		e.pipeline.cleanup(evaluated.AudioFilePath)
		if errors.Is(err, repository.ErrDuplicateResponse) {
			return nil, ErrConflict("question already answered")
		}
		return nil, ErrStorage("failed to save response", err)
	}

	questions, err := e.repo.GetQuestionsBySession(ctx, question.SessionID)
	if err != nil {
		return nil, ErrStorage("failed to load questions", err)
	}
	progress, err := e.projector.Progress(ctx, question.SessionID)
	if err != nil {
		return nil, err
	}
	next := NextQuestion(questions)

	e.publish(userID, ws.Event{
		Type:       ws.EventResponseEvaluated,
		SessionID:  question.SessionID,
		QuestionID: question.ID,
		Score:      &response.Score,
		Answered:   progress.AnsweredQuestions,
		Total:      progress.TotalQuestions,
	})

	return &SubmitResult{
		Response:       response,
		Evaluation:     evaluated.Evaluation,
		Progress:       progress,
		NextQuestion:   next,
		IsLastQuestion: next == nil,
	}, nil
}

// Complete finalizes a fully answered session. The overall score is the
// unweighted mean of per-answer scores computed here; the aggregate AI call
// contributes narrative feedback only.
func (e *InterviewEngine) Complete(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	session, err := e.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, ErrStorage("failed to load session", err)
	}
	if session == nil {
		return nil, ErrNotFound("session not found")
	}
	if session.Status != models.SessionInProgress {
		return nil, ErrInvalidState("session is not in progress")
	}

	responses, err := e.repo.GetResponsesBySession(ctx, sessionID)
	if err != nil {
		return nil, ErrStorage("failed to load responses", err)
	}
	progress, err := e.projector.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !progress.IsComplete {
		return nil, ErrInvalidState("interview has unanswered questions")
	}

	var sum float64
	answered := make([]AnsweredQuestion, len(responses))
	for i, resp := range responses {
		sum += resp.Score
		answered[i] = AnsweredQuestion{
			Question: resp.Question.QuestionText,
			Answer:   resp.ResponseText,
			Score:    resp.Score,
		}
	}
	overallScore := sum / float64(len(responses))

	resume, err := e.users.GetResumeByID(ctx, session.ResumeID, userID)
	if err != nil {
		return nil, ErrStorage("failed to load resume", err)
	}
	if resume == nil {
		return nil, ErrNotFound("resume not found")
	}
	parsed, err := ParsedResumeOf(resume)
	if err != nil {
		return nil, err
	}

	feedback, err := e.ai.GenerateAggregateFeedback(ctx, parsed, answered)
	if err != nil {
		if errors.Is(err, ErrMalformedOutput) {
			return nil, ErrUpstream("feedback generation returned malformed output", err)
		}
		return nil, ErrUpstream("feedback generation unavailable", err)
	}

	ok, err := e.repo.CompleteSession(ctx, sessionID, overallScore, renderFeedback(feedback))
	if err != nil {
		return nil, ErrStorage("failed to complete session", err)
	}
	if !ok {
		// A concurrent complete or cancel won the conditional update
		return nil, ErrInvalidState("session is not in progress")
	}

	e.publish(userID, ws.Event{
		Type:         ws.EventSessionCompleted,
		SessionID:    sessionID,
		OverallScore: &overallScore,
	})

	slog.Info("Interview completed", "session_id", sessionID, "user_id", userID, "overall_score", overallScore)
	return e.repo.GetSessionWithDetails(ctx, sessionID, userID)
}

// Cancel abandons a pending or in-progress session
func (e *InterviewEngine) Cancel(ctx context.Context, userID, sessionID string) error {
	session, err := e.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return ErrStorage("failed to load session", err)
	}
	if session == nil {
		return ErrNotFound("session not found")
	}

	ok, err := e.repo.UpdateSessionStatus(ctx, sessionID,
		[]string{models.SessionPending, models.SessionInProgress}, models.SessionCancelled)
	if err != nil {
		return ErrStorage("failed to cancel session", err)
	}
	if !ok {
		return ErrInvalidState("session cannot be cancelled")
	}

	e.publish(userID, ws.Event{
		Type:      ws.EventSessionCancelled,
		SessionID: sessionID,
	})

	slog.Info("Interview cancelled", "session_id", sessionID, "user_id", userID)
	return nil
}

// Delete removes a session in any state, including its stored answer audio
func (e *InterviewEngine) Delete(ctx context.Context, userID, sessionID string) error {
	session, err := e.repo.GetSession(ctx, sessionID, userID)
	if err != nil {
		return ErrStorage("failed to load session", err)
	}
	if session == nil {
		return ErrNotFound("session not found")
	}

	responses, err := e.repo.GetResponsesBySession(ctx, sessionID)
	if err != nil {
		return ErrStorage("failed to load responses", err)
	}

	if err := e.repo.DeleteSession(ctx, sessionID); err != nil {
		return ErrStorage("failed to delete session", err)
	}

	// Rows are gone; audio artifacts go best-effort
	for _, resp := range responses {
		if resp.AudioFilePath != nil {
			if err := e.storage.DeleteFile(*resp.AudioFilePath); err != nil {
				slog.Warn("Failed to remove answer audio", "error", err, "path", *resp.AudioFilePath)
			}
		}
	}

	return nil
}

// Get returns the hydrated session with its derived progress
func (e *InterviewEngine) Get(ctx context.Context, userID, sessionID string) (*SessionDetail, error) {
	session, err := e.repo.GetSessionWithDetails(ctx, sessionID, userID)
	if err != nil {
		return nil, ErrStorage("failed to load session", err)
	}
	if session == nil {
		return nil, ErrNotFound("session not found")
	}

	progress, err := e.projector.Progress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionDetail{
		Session:  session,
		Progress: progress,
		Next:     NextQuestion(session.Questions),
	}, nil
}

// List returns the user's sessions with progress computed in one grouped
// query, not one query per session
func (e *InterviewEngine) List(ctx context.Context, userID string) ([]SessionSummary, error) {
	sessions, err := e.repo.GetSessionsByUser(ctx, userID)
	if err != nil {
		return nil, ErrStorage("failed to load sessions", err)
	}

	sessionIDs := make([]string, len(sessions))
	for i, s := range sessions {
		sessionIDs[i] = s.ID
	}
	progress, err := e.projector.ProgressForSessions(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{Session: s, Progress: progress[s.ID]}
	}
	return summaries, nil
}

// GetQuestionForUser loads a question, enforcing ownership through its session
func (e *InterviewEngine) GetQuestionForUser(ctx context.Context, userID, questionID string) (*models.InterviewQuestion, error) {
	question, err := e.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, ErrStorage("failed to load question", err)
	}
	if question == nil || question.Session.UserID != userID {
		return nil, ErrNotFound("question not found")
	}
	return question, nil
}

func (e *InterviewEngine) publish(userID string, event ws.Event) {
	if e.events == nil {
		return
	}
	e.events.PublishToUser(userID, event)
}

// ParsedResumeOf unmarshals the stored profile and rejects resumes the AI has
// not parsed yet or parsed without any work history
func ParsedResumeOf(resume *models.Resume) (*models.ParsedResume, error) {
	if len(resume.ParsedData) == 0 {
		return nil, ErrInvalidState("resume has not been parsed")
	}
	var parsed models.ParsedResume
	if err := json.Unmarshal(resume.ParsedData, &parsed); err != nil {
		return nil, ErrStorage("failed to decode parsed resume", err)
	}
	if len(parsed.WorkExperience) == 0 {
		return nil, ErrInvalidState("resume has no work experience to interview against")
	}
	return &parsed, nil
}

func renderFeedback(feedback *AggregateFeedback) string {
	data, err := json.Marshal(feedback)
	if err != nil {
		return feedback.Summary
	}
	return string(data)
}
