package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type InterviewEndpoints struct {
	engine *InterviewEngine
	audio  *QuestionAudioService
}

func NewInterviewEndpoints(engine *InterviewEngine, audio *QuestionAudioService) *InterviewEndpoints {
	return &InterviewEndpoints{
		engine: engine,
		audio:  audio,
	}
}

type StartInterviewRequest struct {
	ResumeID string `json:"resume_id"`
}

type SubmitResponseRequest struct {
	SessionID      string `json:"session_id"`
	QuestionID     string `json:"question_id"`
	ResponseText   string `json:"response_text"`
	ResponseTimeMs int    `json:"response_time_ms"`
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interview", func(r chi.Router) {
		r.Post("/start", e.StartHandler)
		r.Post("/response", e.SubmitResponseHandler)
		r.Get("/user", e.ListHandler)
		r.Get("/questions/{id}/audio", e.audio.ServeHandler)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", e.GetHandler)
			r.Post("/complete", e.CompleteHandler)
			r.Post("/cancel", e.CancelHandler)
			r.Delete("/", e.DeleteHandler)
		})
	})
}

func (e *InterviewEndpoints) StartHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req StartInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, ErrInvalidRequest("invalid request body"))
		return
	}
	if req.ResumeID == "" {
		WriteError(w, r, ErrInvalidRequest("resume_id is required"))
		return
	}

	session, err := e.engine.Start(r.Context(), user.ID, req.ResumeID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusCreated, session)
}

// SubmitResponseHandler accepts either a JSON body or a multipart form with
// an optional audio recording
func (e *InterviewEndpoints) SubmitResponseHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	input, err := e.decodeSubmitInput(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if input.QuestionID == "" {
		WriteError(w, r, ErrInvalidRequest("question_id is required"))
		return
	}

	result, err := e.engine.SubmitAnswer(r.Context(), user.ID, *input)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, result)
}

func (e *InterviewEndpoints) decodeSubmitInput(r *http.Request) (*SubmitInput, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req SubmitResponseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, ErrInvalidRequest("invalid request body")
		}
		return &SubmitInput{
			SessionID:      req.SessionID,
			QuestionID:     req.QuestionID,
			ResponseText:   req.ResponseText,
			ResponseTimeMs: req.ResponseTimeMs,
		}, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, ErrInvalidRequest("invalid multipart form")
	}

	input := &SubmitInput{
		SessionID:    r.FormValue("session_id"),
		QuestionID:   r.FormValue("question_id"),
		ResponseText: r.FormValue("response_text"),
	}
	if ms := r.FormValue("response_time_ms"); ms != "" {
		parsed, err := strconv.Atoi(ms)
		if err != nil {
			return nil, ErrInvalidRequest("invalid response_time_ms")
		}
		input.ResponseTimeMs = parsed
	}

	file, header, err := r.FormFile("audio")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return nil, ErrInvalidRequest("failed to read audio upload")
		}
		input.AudioData = data
		input.AudioExt = strings.ToLower(filepath.Ext(header.Filename))
	}

	return input, nil
}

func (e *InterviewEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	detail, err := e.engine.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, detail)
}

func (e *InterviewEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := e.engine.List(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (e *InterviewEndpoints) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := e.engine.Complete(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, session)
}

func (e *InterviewEndpoints) CancelHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := e.engine.Cancel(r.Context(), user.ID, sessionID); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"message": "session cancelled"})
	slog.Info("Session cancelled via API", "session_id", sessionID, "user_id", user.ID)
}

func (e *InterviewEndpoints) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := e.engine.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"message": "session deleted"})
}
