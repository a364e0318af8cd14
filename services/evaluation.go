package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/voxhire/backend/models"
)

// SpeechToText is the transcription half of the speech pair
type SpeechToText interface {
	TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error)
}

// AnswerEvaluator judges one answer against its question and the candidate
// profile
type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, questionText, questionType, answer string, parsed *models.ParsedResume) (*models.Evaluation, error)
}

// EvaluationInput carries one submitted answer through the pipeline. Audio is
// optional; when present it was already read from the request body.
type EvaluationInput struct {
	Question     *models.InterviewQuestion
	ResponseText string
	AudioData    []byte
	AudioExt     string
	Resume       *models.ParsedResume
}

// EvaluationResult is what the pipeline hands back for persistence
type EvaluationResult struct {
	FinalText     string
	AudioFilePath *string
	Evaluation    *models.Evaluation
}

// EvaluationPipeline turns a raw answer into an evaluated one. Transcription
// is best-effort with the supplied text as fallback; the evaluation call is
// fatal and nothing should be persisted when it fails.
type EvaluationPipeline struct {
	stt       SpeechToText
	evaluator AnswerEvaluator
	storage   *StorageService
}

func NewEvaluationPipeline(stt SpeechToText, evaluator AnswerEvaluator, storage *StorageService) *EvaluationPipeline {
	return &EvaluationPipeline{
		stt:       stt,
		evaluator: evaluator,
		storage:   storage,
	}
}

// Evaluate runs transcription, text resolution and evaluation for one answer.
// On any error the stored audio artifact is cleaned up best-effort so a
// failed submission leaves nothing behind but a log line.
func (p *EvaluationPipeline) Evaluate(ctx context.Context, in EvaluationInput) (*EvaluationResult, error) {
	result := &EvaluationResult{}

	finalText := strings.TrimSpace(in.ResponseText)

	if len(in.AudioData) > 0 {
		stored, err := p.storage.SaveBytes(in.AudioData, in.AudioExt, UploadKindAnswer)
		if err != nil {
			return nil, err
		}
		result.AudioFilePath = &stored.Path

		transcript, err := p.stt.TranscribeAudio(ctx, in.AudioData, mimeForAudioExt(in.AudioExt))
		if err != nil {
			// Degraded mode: keep the supplied text, never fail the submission
			// over transcription
			slog.Warn("Transcription failed, falling back to supplied text", "error", err, "question_id", in.Question.ID)
		} else if trimmed := strings.TrimSpace(transcript); trimmed != "" {
			finalText = trimmed
		}
	}

	if finalText == "" {
		p.cleanup(result.AudioFilePath)
		return nil, ErrInvalidRequest("no usable response text")
	}
	result.FinalText = finalText

	evaluation, err := p.evaluator.EvaluateAnswer(ctx, in.Question.QuestionText, in.Question.QuestionType, finalText, in.Resume)
	if err != nil {
		p.cleanup(result.AudioFilePath)
		if errors.Is(err, ErrMalformedOutput) {
			return nil, ErrUpstream("evaluation returned malformed output", err)
		}
		return nil, ErrUpstream("evaluation unavailable", err)
	}
	result.Evaluation = evaluation

	return result, nil
}

func (p *EvaluationPipeline) cleanup(path *string) {
	if path == nil {
		return
	}
	if err := p.storage.DeleteFile(*path); err != nil {
		slog.Warn("Failed to remove answer audio", "error", err, "path", *path)
	}
}

func mimeForAudioExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return "audio/webm"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "audio/ogg"
	}
}
