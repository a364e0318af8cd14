package services

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T, maxMB int64) *StorageService {
	t.Helper()
	return NewStorageService(StorageConfig{UploadDir: t.TempDir(), MaxUploadMB: maxMB})
}

func TestSaveBytes(t *testing.T) {
	storage := newTestStorage(t, 10)

	stored, err := storage.SaveBytes([]byte("audio payload"), ".webm", UploadKindAnswer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Size != int64(len("audio payload")) {
		t.Errorf("size = %d", stored.Size)
	}

	data, err := os.ReadFile(stored.Path)
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if !bytes.Equal(data, []byte("audio payload")) {
		t.Error("stored data does not match input")
	}
	if filepath.Ext(stored.Path) != ".webm" {
		t.Errorf("stored path %q should keep the extension", stored.Path)
	}
}

func TestSaveBytesValidation(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		ext  string
		kind string
	}{
		{"unsupported extension", []byte("x"), ".exe", UploadKindAnswer},
		{"resume extension rejected for answers", []byte("x"), ".pdf", UploadKindAnswer},
		{"audio extension rejected for resumes", []byte("x"), ".webm", UploadKindResume},
		{"empty file", nil, ".webm", UploadKindAnswer},
	}

	storage := newTestStorage(t, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.SaveBytes(tt.data, tt.ext, tt.kind)
			assertKind(t, err, KindInvalidRequest)
		})
	}

	t.Run("file too large", func(t *testing.T) {
		small := newTestStorage(t, 1)
		_, err := small.SaveBytes(make([]byte, 2*1024*1024), ".webm", UploadKindAnswer)
		assertKind(t, err, KindInvalidRequest)
	})

	t.Run("extension case is normalized", func(t *testing.T) {
		_, err := storage.SaveBytes([]byte("x"), ".WEBM", UploadKindAnswer)
		if err != nil {
			t.Errorf("uppercase extension should be accepted: %v", err)
		}
	})
}

func TestDeleteFile(t *testing.T) {
	storage := newTestStorage(t, 10)

	stored, err := storage.SaveBytes([]byte("audio payload"), ".webm", UploadKindAnswer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := storage.DeleteFile(stored.Path); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, err := os.Stat(stored.Path); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}

	// Missing files and empty paths are not errors
	if err := storage.DeleteFile(stored.Path); err != nil {
		t.Errorf("deleting a missing file should be a no-op: %v", err)
	}
	if err := storage.DeleteFile(""); err != nil {
		t.Errorf("empty path should be a no-op: %v", err)
	}
}
