package services

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// QuestionAudioService renders interview questions to speech. The voice is
// derived from the session so one interview keeps one interviewer voice, and
// generated audio is cached on disk keyed by text and voice.
type QuestionAudioService struct {
	engine *InterviewEngine
	tts    *ElevenLabsService
	cache  *AudioCache
}

func NewQuestionAudioService(engine *InterviewEngine, tts *ElevenLabsService, cache *AudioCache) *QuestionAudioService {
	return &QuestionAudioService{
		engine: engine,
		tts:    tts,
		cache:  cache,
	}
}

// ServeHandler streams the MP3 rendering of one question
func (s *QuestionAudioService) ServeHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	question, err := s.engine.GetQuestionForUser(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	voiceID := PickSessionVoice(question.SessionID)
	audioData, err := s.cache.GetOrGenerate(r.Context(), question.QuestionText, voiceID, func() (io.ReadCloser, error) {
		return s.tts.TextToSpeech(r.Context(), question.QuestionText, voiceID)
	})
	if err != nil {
		WriteError(w, r, ErrUpstream("speech generation failed", err))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audioData)))
	w.WriteHeader(http.StatusOK)
	w.Write(audioData)
}
