package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxhire/backend/models"
)

func newTestPipeline(t *testing.T, ai *stubAI) (*EvaluationPipeline, *StorageService) {
	t.Helper()
	storage := NewStorageService(StorageConfig{UploadDir: t.TempDir(), MaxUploadMB: 10})
	return NewEvaluationPipeline(ai, ai, storage), storage
}

func testQuestion() *models.InterviewQuestion {
	return &models.InterviewQuestion{
		ID:           "question-1",
		QuestionText: "Tell me about your time at Acme.",
		QuestionType: models.QuestionExperience,
	}
}

func TestPipelineTextOnly(t *testing.T) {
	pipeline, _ := newTestPipeline(t, newStubAI())

	result, err := pipeline.Evaluate(context.Background(), EvaluationInput{
		Question:     testQuestion(),
		ResponseText: "  I built the billing system.  ",
		Resume:       testProfile(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalText != "I built the billing system." {
		t.Errorf("final text = %q, want trimmed input", result.FinalText)
	}
	if result.AudioFilePath != nil {
		t.Error("text-only submission should not record an audio path")
	}
	if result.Evaluation == nil || result.Evaluation.OverallScore != 7.5 {
		t.Errorf("evaluation = %+v", result.Evaluation)
	}
}

func TestPipelineAudioStoredBeforeTranscription(t *testing.T) {
	ai := newStubAI()
	ai.transcript = "the spoken answer"
	pipeline, _ := newTestPipeline(t, ai)

	result, err := pipeline.Evaluate(context.Background(), EvaluationInput{
		Question:  testQuestion(),
		AudioData: []byte("fake audio bytes"),
		AudioExt:  ".ogg",
		Resume:    testProfile(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FinalText != "the spoken answer" {
		t.Errorf("final text = %q, want transcript", result.FinalText)
	}
	if result.AudioFilePath == nil {
		t.Fatal("audio path should be recorded")
	}
	data, err := os.ReadFile(*result.AudioFilePath)
	if err != nil {
		t.Fatalf("stored audio unreadable: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Error("stored audio does not match the upload")
	}
}

func TestPipelineRejectsUnsupportedAudio(t *testing.T) {
	pipeline, _ := newTestPipeline(t, newStubAI())

	_, err := pipeline.Evaluate(context.Background(), EvaluationInput{
		Question:     testQuestion(),
		ResponseText: "text",
		AudioData:    []byte("not really audio"),
		AudioExt:     ".exe",
		Resume:       testProfile(),
	})
	assertKind(t, err, KindInvalidRequest)
}

func TestPipelineEvaluatorFailureCleansUpAudio(t *testing.T) {
	ai := newStubAI()
	ai.transcript = "the spoken answer"
	ai.evaluateErr = ErrUnavailable
	pipeline, storage := newTestPipeline(t, ai)

	_, err := pipeline.Evaluate(context.Background(), EvaluationInput{
		Question:  testQuestion(),
		AudioData: []byte("fake audio bytes"),
		AudioExt:  ".webm",
		Resume:    testProfile(),
	})
	assertKind(t, err, KindUpstream)

	entries, err := os.ReadDir(filepath.Join(storage.baseDir, UploadKindAnswer))
	if err != nil {
		t.Fatalf("failed to read answers dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d leftover audio files, want 0", len(entries))
	}
}

func TestMimeForAudioExt(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
	}{
		{".webm", "audio/webm"},
		{".WAV", "audio/wav"},
		{".mp3", "audio/mpeg"},
		{".ogg", "audio/ogg"},
		{"", "audio/ogg"},
	}

	for _, tt := range tests {
		if got := mimeForAudioExt(tt.ext); got != tt.expected {
			t.Errorf("mimeForAudioExt(%q) = %q, want %q", tt.ext, got, tt.expected)
		}
	}
}
