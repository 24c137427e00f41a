package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge         = errors.New("file too large")
	ErrInvalidFileExtension = errors.New("invalid file extension")
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".txt":  {},
}

// UploadReader loads uploaded résumés into memory. Nothing is written to
// disk; the document lives for one run.
type UploadReader interface {
	ReadDocument(file *multipart.FileHeader) (*Document, error)
	MaxFileSize() int64
}

type uploadReader struct {
	maxFileSize int64
}

func NewUploadReader(maxFileSize int64) UploadReader {
	return &uploadReader{maxFileSize: maxFileSize}
}

func (u *uploadReader) MaxFileSize() int64 {
	return u.maxFileSize
}

// ReadDocument implements UploadReader.
func (u *uploadReader) ReadDocument(file *multipart.FileHeader) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %q (allowed: .pdf, .docx, .txt)", ErrInvalidFileExtension, ext)
	}

	if file.Size > u.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d bytes", ErrFileTooLarge, file.Size, u.maxFileSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Read one byte past the limit so a lying Size header is still caught
	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, fmt.Errorf("%w: max %d bytes", ErrFileTooLarge, u.maxFileSize)
	}

	return &Document{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
