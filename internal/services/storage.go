package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"learnpath/interview-api/internal/apperrors"
)

// StorageService keeps uploaded course material on local disk until it is indexed.
// Names it hands out are relative to the upload root, e.g. "<course>/<uuid>.pdf".
type StorageService interface {
	SaveMaterial(file *multipart.FileHeader, courseID string) (name string, path string, err error)
	GetFilePath(name string) string
	DeleteFile(name string) error
	EnsureUploadDir() error
}

type storageService struct {
	root string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{root: uploadPath}
}

// EnsureUploadDir implements StorageService.
func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

// SaveMaterial implements StorageService. The file is written under a
// temporary name and renamed, so the worker never sees a partial PDF.
func (s *storageService) SaveMaterial(file *multipart.FileHeader, courseID string) (string, string, error) {
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		return "", "", apperrors.Validation("invalid file extension %q, only .pdf is accepted", ext)
	}

	dir := courseDir(courseID)
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create course upload directory: %w", err)
	}

	name := filepath.Join(dir, uuid.NewString()+".pdf")
	path := s.GetFilePath(name)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("failed to flush upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}

	return name, path, nil
}

// GetFilePath implements StorageService. The name cannot escape the upload root.
func (s *storageService) GetFilePath(name string) string {
	return filepath.Join(s.root, filepath.Clean(string(filepath.Separator)+name))
}

// DeleteFile implements StorageService.
func (s *storageService) DeleteFile(name string) error {
	if err := os.Remove(s.GetFilePath(name)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// courseDir turns a course id from the URL into a single safe path segment.
func courseDir(courseID string) string {
	dir := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', ':', 0:
			return '_'
		}
		return r
	}, courseID)
	if dir == "" {
		return "_"
	}
	return dir
}
