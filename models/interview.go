package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session status values
const (
	SessionPending    = "pending"
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionCancelled  = "cancelled"
)

// Question type values
const (
	QuestionExperience  = "experience"
	QuestionTechnical   = "technical"
	QuestionBehavioral  = "behavioral"
	QuestionSituational = "situational"
)

// TotalInterviewQuestions is the fixed size of every generated question set
const TotalInterviewQuestions = 5

// InterviewSession represents one interview attempt against a specific resume.
// Completion state is never stored on the row; it is derived from the
// question/response tables at read time.
type InterviewSession struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string         `gorm:"type:uuid;not null;index" json:"user_id"`
	ResumeID     string         `gorm:"type:uuid;not null;index" json:"resume_id"`
	Status       string         `gorm:"not null;default:'pending';check:status IN ('pending', 'in_progress', 'completed', 'cancelled')" json:"status"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	OverallScore *float64       `gorm:"type:decimal(4,2)" json:"overall_score,omitempty"` // 0.00 to 10.00
	Feedback     string         `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User      User                `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Resume    Resume              `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"resume,omitempty"`
	Questions []InterviewQuestion `gorm:"foreignKey:SessionID" json:"questions,omitempty"`
}

func (s *InterviewSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// InterviewQuestion is one entry of the ordered question set generated when a
// session starts. OrderIndex runs 0..TotalInterviewQuestions-1 per session.
type InterviewQuestion struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    string         `gorm:"type:uuid;not null;index;uniqueIndex:idx_session_order,priority:1" json:"session_id"`
	QuestionText string         `gorm:"type:text;not null" json:"question_text"`
	QuestionType string         `gorm:"size:50;not null;default:'experience';check:question_type IN ('experience', 'technical', 'behavioral', 'situational')" json:"question_type"`
	OrderIndex   int            `gorm:"not null;uniqueIndex:idx_session_order,priority:2" json:"order_index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session  InterviewSession   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
	Response *InterviewResponse `gorm:"foreignKey:QuestionID" json:"response,omitempty"`
}

func (q *InterviewQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// InterviewResponse is the single answer to a question. The unique index on
// QuestionID is what makes a concurrent double submit lose cleanly.
type InterviewResponse struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID     string         `gorm:"type:uuid;not null;uniqueIndex" json:"question_id"`
	ResponseText   string         `gorm:"type:text;not null" json:"response_text"`
	AudioFilePath  *string        `gorm:"size:500" json:"audio_file_path,omitempty"`
	ResponseTimeMs int            `json:"response_time_ms"`
	Score          float64        `gorm:"type:decimal(4,2);not null" json:"score"` // 0.00 to 10.00
	Feedback       string         `gorm:"type:text" json:"feedback,omitempty"`
	Evaluation     datatypes.JSON `json:"evaluation,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Question InterviewQuestion `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"question,omitempty"`
}

func (r *InterviewResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Evaluation is the structured per-answer judgement stored in
// InterviewResponse.Evaluation. All numeric fields are on a 0-10 scale.
type Evaluation struct {
	Relevance         float64  `json:"relevance"`
	Clarity           float64  `json:"clarity"`
	Completeness      float64  `json:"completeness"`
	TechnicalAccuracy *float64 `json:"technical_accuracy,omitempty"`
	OverallScore      float64  `json:"overall_score"`
	Strengths         []string `json:"strengths,omitempty"`
	Improvements      []string `json:"improvements,omitempty"`
	DetailedFeedback  string   `json:"detailed_feedback,omitempty"`
}
