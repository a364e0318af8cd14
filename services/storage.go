package services

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload kinds, each stored in its own subdirectory
const (
	UploadKindResume = "resumes"
	UploadKindAnswer = "answers"
)

var resumeExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
}

var audioExtensions = map[string]bool{
	".webm": true,
	".ogg":  true,
	".wav":  true,
	".mp3":  true,
}

// StoredFile describes a file written by the storage service
type StoredFile struct {
	FileName string // original client-side name, empty for raw byte saves
	Path     string
	Size     int64
}

// StorageService writes uploaded resumes and answer recordings under uuid
// filenames so client-supplied names never touch the filesystem
type StorageService struct {
	baseDir  string
	maxBytes int64
}

func NewStorageService(cfg StorageConfig) *StorageService {
	for _, kind := range []string{UploadKindResume, UploadKindAnswer} {
		if err := os.MkdirAll(filepath.Join(cfg.UploadDir, kind), 0755); err != nil {
			slog.Error("Failed to create upload directory", "dir", kind, "error", err)
		}
	}

	return &StorageService{
		baseDir:  cfg.UploadDir,
		maxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
}

// SaveUpload validates and persists a multipart upload of the given kind
func (s *StorageService) SaveUpload(file *multipart.FileHeader, kind string) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if err := s.validate(ext, file.Size, kind); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(s.baseDir, kind, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	slog.Info("File stored", "kind", kind, "path", path, "size", size)
	return &StoredFile{FileName: file.Filename, Path: path, Size: size}, nil
}

// SaveBytes persists already-buffered data, used for answer audio that has to
// be read into memory for transcription anyway
func (s *StorageService) SaveBytes(data []byte, ext, kind string) (*StoredFile, error) {
	ext = strings.ToLower(ext)
	if err := s.validate(ext, int64(len(data)), kind); err != nil {
		return nil, err
	}

	path := filepath.Join(s.baseDir, kind, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	slog.Info("File stored", "kind", kind, "path", path, "size", len(data))
	return &StoredFile{Path: path, Size: int64(len(data))}, nil
}

// DeleteFile removes a stored file. Callers treat failure as non-fatal and
// log it; rows are the source of truth, files are artifacts.
func (s *StorageService) DeleteFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *StorageService) validate(ext string, size int64, kind string) error {
	allowed := resumeExtensions
	if kind == UploadKindAnswer {
		allowed = audioExtensions
	}
	if !allowed[ext] {
		return ErrInvalidRequest(fmt.Sprintf("unsupported file type %q", ext))
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return ErrInvalidRequest("file too large")
	}
	if size == 0 {
		return ErrInvalidRequest("empty file")
	}
	return nil
}
