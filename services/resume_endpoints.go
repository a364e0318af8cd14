package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voxhire/backend/models"
	"github.com/voxhire/backend/repository"
	"gorm.io/datatypes"
)

type ResumeEndpoints struct {
	repo    *repository.GORMRepository
	storage *StorageService
	pdf     *PDFService
	ai      AIService
}

func NewResumeEndpoints(repo *repository.GORMRepository, storage *StorageService, pdf *PDFService, ai AIService) *ResumeEndpoints {
	return &ResumeEndpoints{
		repo:    repo,
		storage: storage,
		pdf:     pdf,
		ai:      ai,
	}
}

func (e *ResumeEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/resumes", func(r chi.Router) {
		r.Post("/", e.UploadHandler)
		r.Get("/", e.ListHandler)
		r.Get("/{id}", e.GetHandler)
		r.Post("/{id}/reparse", e.ReparseHandler)
		r.Delete("/{id}", e.DeleteHandler)
	})
}

// UploadHandler stores the file, extracts its text and parses it in one flow.
// The stored file is rolled back when any later step fails, so a failed
// upload leaves no orphan artifacts.
func (e *ResumeEndpoints) UploadHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, r, ErrInvalidRequest("invalid multipart form"))
		return
	}

	_, header, err := r.FormFile("resume")
	if err != nil {
		WriteError(w, r, ErrInvalidRequest("resume file is required"))
		return
	}

	stored, err := e.storage.SaveUpload(header, UploadKindResume)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	rawText, err := e.pdf.ExtractResumeText(stored.Path)
	if err != nil {
		e.rollbackFile(stored.Path)
		WriteError(w, r, err)
		return
	}
	if rawText == "" {
		e.rollbackFile(stored.Path)
		WriteError(w, r, ErrInvalidRequest("resume contains no extractable text"))
		return
	}

	parsedData, err := e.parseToJSON(r, rawText)
	if err != nil {
		e.rollbackFile(stored.Path)
		WriteError(w, r, err)
		return
	}

	resume := &models.Resume{
		UserID:     user.ID,
		FileName:   stored.FileName,
		FilePath:   stored.Path,
		FileSize:   stored.Size,
		RawText:    rawText,
		ParsedData: parsedData,
	}
	if err := e.repo.CreateResume(r.Context(), resume); err != nil {
		e.rollbackFile(stored.Path)
		WriteError(w, r, ErrStorage("failed to save resume", err))
		return
	}

	WriteData(w, http.StatusCreated, resume)
	slog.Info("Resume uploaded", "resume_id", resume.ID, "user_id", user.ID, "file", resume.FileName)
}

func (e *ResumeEndpoints) ListHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resumes, err := e.repo.GetResumesByUser(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, ErrStorage("failed to load resumes", err))
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"resumes": resumes,
		"count":   len(resumes),
	})
}

func (e *ResumeEndpoints) GetHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resume, err := e.repo.GetResumeByID(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		WriteError(w, r, ErrStorage("failed to load resume", err))
		return
	}
	if resume == nil {
		WriteError(w, r, ErrNotFound("resume not found"))
		return
	}

	WriteData(w, http.StatusOK, resume)
}

// ReparseHandler regenerates ParsedData from the immutable raw text
func (e *ResumeEndpoints) ReparseHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resume, err := e.repo.GetResumeByID(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		WriteError(w, r, ErrStorage("failed to load resume", err))
		return
	}
	if resume == nil {
		WriteError(w, r, ErrNotFound("resume not found"))
		return
	}

	parsedData, err := e.parseToJSON(r, resume.RawText)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := e.repo.UpdateResumeParsedData(r.Context(), resume.ID, parsedData); err != nil {
		WriteError(w, r, ErrStorage("failed to update resume", err))
		return
	}
	resume.ParsedData = parsedData

	WriteData(w, http.StatusOK, resume)
	slog.Info("Resume reparsed", "resume_id", resume.ID, "user_id", user.ID)
}

// DeleteHandler removes the resume and everything hanging off it: sessions,
// questions, responses, and the stored file
func (e *ResumeEndpoints) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resume, err := e.repo.GetResumeByID(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		WriteError(w, r, ErrStorage("failed to load resume", err))
		return
	}
	if resume == nil {
		WriteError(w, r, ErrNotFound("resume not found"))
		return
	}

	if err := e.repo.DeleteResume(r.Context(), resume.ID); err != nil {
		WriteError(w, r, ErrStorage("failed to delete resume", err))
		return
	}

	// Rows are gone; the file goes best-effort
	if err := e.storage.DeleteFile(resume.FilePath); err != nil {
		slog.Warn("Failed to remove resume file", "error", err, "path", resume.FilePath)
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"message": "resume deleted"})
	slog.Info("Resume deleted", "resume_id", resume.ID, "user_id", user.ID)
}

func (e *ResumeEndpoints) parseToJSON(r *http.Request, rawText string) (datatypes.JSON, error) {
	parsed, err := e.ai.ParseResume(r.Context(), rawText)
	if err != nil {
		if IsKind(err, KindInvalidRequest) {
			return nil, err
		}
		return nil, ErrUpstream("resume parsing failed", err)
	}

	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, ErrStorage("failed to encode parsed resume", err)
	}
	return datatypes.JSON(data), nil
}

func (e *ResumeEndpoints) rollbackFile(path string) {
	if err := e.storage.DeleteFile(path); err != nil {
		slog.Warn("Failed to roll back stored file", "error", err, "path", path)
	}
}
