package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voxhire/backend/models"

	"google.golang.org/genai"
)

const ModelName = "gemini-2.5-flash"

// Sentinel errors distinguishing the two ways an AI call goes wrong. Callers
// treat ErrMalformedOutput as fatal for the operation (nothing persisted) and
// decide per call site whether ErrUnavailable is fatal or degradable.
var (
	ErrMalformedOutput = errors.New("model returned malformed output")
	ErrUnavailable     = errors.New("model unavailable")
)

// GeneratedQuestion is one entry of a generated question set, before it is
// persisted as an InterviewQuestion
type GeneratedQuestion struct {
	Text string `json:"question"`
	Type string `json:"type"`
}

// AggregateFeedback is the narrative whole-interview judgement. Any score the
// model volunteers here is discarded; the persisted overall score is computed
// locally from the per-answer scores.
type AggregateFeedback struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// AnsweredQuestion pairs a question with its evaluated answer for the
// aggregate feedback prompt
type AnsweredQuestion struct {
	Question string
	Answer   string
	Score    float64
}

// GeminiService handles all Gemini AI operations: resume parsing, question
// generation, answer evaluation, aggregate feedback and audio transcription
type GeminiService struct {
	genaiClient       *genai.Client
	generateTimeout   time.Duration
	transcribeTimeout time.Duration
}

func NewGeminiService(cfg AIConfig) *GeminiService {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}

	return &GeminiService{
		genaiClient:       genaiClient,
		generateTimeout:   cfg.GenerateTimeout,
		transcribeTimeout: cfg.TranscribeTimeout,
	}
}

// ParseResume extracts a structured profile from raw resume text
func (g *GeminiService) ParseResume(ctx context.Context, rawText string) (*models.ParsedResume, error) {
	prompt := fmt.Sprintf(`You are a resume parser. Extract the following information from the resume text below and respond with ONLY a JSON object, no markdown, no commentary.

JSON schema:
{
  "personal_info": {"name": "", "email": "", "phone": "", "location": ""},
  "work_experience": [{"company": "", "position": "", "start_date": "", "end_date": "", "description": "", "highlights": []}],
  "education": [{"institution": "", "degree": "", "field": "", "start_year": "", "end_year": ""}],
  "skills": [],
  "summary": ""
}

Resume text:
%s`, rawText)

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed models.ParsedResume
	if err := decodeModelJSON(raw, &parsed); err != nil {
		return nil, err
	}

	slog.Info("Resume parsed", "experience_entries", len(parsed.WorkExperience), "skills", len(parsed.Skills))
	return &parsed, nil
}

// GenerateQuestions produces the fixed-size interview question set for a
// parsed resume. Fewer usable questions than the set size is malformed
// output; extras are dropped.
func (g *GeminiService) GenerateQuestions(ctx context.Context, parsed *models.ParsedResume) ([]GeneratedQuestion, error) {
	prompt := fmt.Sprintf(`You are an experienced interviewer preparing for a candidate interview. Based on the candidate profile below, generate exactly %d interview questions grounded in the candidate's actual experience.

Respond with ONLY a JSON array, no markdown, no commentary:
[{"question": "...", "type": "experience|technical|behavioral|situational"}]

Mix the question types. Reference specific companies, projects or skills from the profile where possible.

Candidate profile:
%s`, models.TotalInterviewQuestions, profileSummary(parsed))

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var questions []GeneratedQuestion
	if err := decodeModelJSON(raw, &questions); err != nil {
		return nil, err
	}

	return normalizeQuestions(questions)
}

// EvaluateAnswer judges a single answer against its question and the
// candidate profile. Out-of-range scores are malformed output, not clamped.
func (g *GeminiService) EvaluateAnswer(ctx context.Context, questionText, questionType, answer string, parsed *models.ParsedResume) (*models.Evaluation, error) {
	prompt := fmt.Sprintf(`You are an experienced interviewer evaluating a candidate's answer. Score each dimension from 0 to 10. Respond with ONLY a JSON object, no markdown, no commentary.

JSON schema:
{
  "relevance": 0,
  "clarity": 0,
  "completeness": 0,
  "technical_accuracy": 0,
  "overall_score": 0,
  "strengths": [],
  "improvements": [],
  "detailed_feedback": ""
}

Omit technical_accuracy for non-technical questions.

Candidate profile:
%s

Question (%s): %s

Answer: %s`, profileSummary(parsed), questionType, questionText, answer)

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var evaluation models.Evaluation
	if err := decodeModelJSON(raw, &evaluation); err != nil {
		return nil, err
	}
	if err := validateEvaluation(&evaluation); err != nil {
		return nil, err
	}

	return &evaluation, nil
}

// GenerateAggregateFeedback produces the narrative whole-interview feedback
// from the full set of answered questions
func (g *GeminiService) GenerateAggregateFeedback(ctx context.Context, parsed *models.ParsedResume, answered []AnsweredQuestion) (*AggregateFeedback, error) {
	var transcript strings.Builder
	for i, qa := range answered {
		fmt.Fprintf(&transcript, "Q%d: %s\nA%d: %s\nScore: %.1f/10\n\n", i+1, qa.Question, i+1, qa.Answer, qa.Score)
	}

	prompt := fmt.Sprintf(`You are an experienced interviewer writing final feedback after an interview. Based on the candidate profile and the full interview transcript below, respond with ONLY a JSON object, no markdown, no commentary:

{"summary": "...", "strengths": ["..."], "improvements": ["..."]}

Candidate profile:
%s

Interview transcript:
%s`, profileSummary(parsed), transcript.String())

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var feedback AggregateFeedback
	if err := decodeModelJSON(raw, &feedback); err != nil {
		return nil, err
	}
	if strings.TrimSpace(feedback.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrMalformedOutput)
	}

	return &feedback, nil
}

// TranscribeAudio transcribes an answer recording using Gemini
func (g *GeminiService) TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	slog.Info("Transcribing audio with Gemini", "size", len(audioData), "mime_type", mimeType)

	// Add timeout for transcription
	ctx, cancel := context.WithTimeout(ctx, g.transcribeTimeout)
	defer cancel()

	if g.genaiClient == nil {
		return "", fmt.Errorf("%w: genai client not initialized", ErrUnavailable)
	}

	parts := []*genai.Part{
		genai.NewPartFromText("Transcribe this audio to text. Provide only the transcript, no additional commentary."),
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     audioData,
			},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		ModelName,
		contents,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	transcript := result.Text()
	slog.Info("Audio transcribed", "transcript_length", len(transcript))

	return transcript, nil
}

func (g *GeminiService) generateText(ctx context.Context, prompt string) (string, error) {
	if g.genaiClient == nil {
		return "", fmt.Errorf("%w: genai client not initialized", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.generateTimeout)
	defer cancel()

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		ModelName,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return result.Text(), nil
}

// profileSummary renders the parsed resume as prompt context
func profileSummary(parsed *models.ParsedResume) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", parsed.PersonalInfo.Name)
	if parsed.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", parsed.Summary)
	}
	b.WriteString("Work experience:\n")
	for _, exp := range parsed.WorkExperience {
		fmt.Fprintf(&b, "- %s at %s (%s - %s): %s\n", exp.Position, exp.Company, exp.StartDate, exp.EndDate, exp.Description)
	}
	if len(parsed.Education) > 0 {
		b.WriteString("Education:\n")
		for _, edu := range parsed.Education {
			fmt.Fprintf(&b, "- %s, %s %s\n", edu.Institution, edu.Degree, edu.Field)
		}
	}
	if len(parsed.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(parsed.Skills, ", "))
	}
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence, which the model
// emits despite being told not to
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeModelJSON parses a model response into target; anything that does not
// decode is malformed output
func decodeModelJSON(raw string, target interface{}) error {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// normalizeQuestions enforces the fixed set size and defaults unknown types
func normalizeQuestions(questions []GeneratedQuestion) ([]GeneratedQuestion, error) {
	usable := make([]GeneratedQuestion, 0, len(questions))
	for _, q := range questions {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		switch q.Type {
		case models.QuestionExperience, models.QuestionTechnical, models.QuestionBehavioral, models.QuestionSituational:
		default:
			q.Type = models.QuestionExperience
		}
		usable = append(usable, q)
	}

	if len(usable) < models.TotalInterviewQuestions {
		return nil, fmt.Errorf("%w: got %d usable questions, want %d", ErrMalformedOutput, len(usable), models.TotalInterviewQuestions)
	}
	return usable[:models.TotalInterviewQuestions], nil
}

// validateEvaluation rejects out-of-range scores instead of clamping them
func validateEvaluation(e *models.Evaluation) error {
	scores := []float64{e.Relevance, e.Clarity, e.Completeness, e.OverallScore}
	if e.TechnicalAccuracy != nil {
		scores = append(scores, *e.TechnicalAccuracy)
	}
	for _, score := range scores {
		if score < 0 || score > 10 {
			return fmt.Errorf("%w: score %.2f out of range", ErrMalformedOutput, score)
		}
	}
	return nil
}
