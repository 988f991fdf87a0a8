// Package service uploads raw identity-document scans to object storage.
// Uploaded scans are not linked to certificate records.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"civreg/internal/certificate/models"
	"civreg/internal/platform/objectstore"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/requestcontext"
)

type Storage interface {
	Bucket() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (objectstore.Object, error)
}

// File is one uploaded scan.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

type Request struct {
	RegistrationNumber string
	Files              map[models.Role]File
}

// Result reports the stored path or the failure for each submitted file.
// A failed file does not fail the request.
type Result struct {
	RegistrationNumber string
	Paths              map[models.Role]string
	Errors             map[models.Role]string
}

type Service struct {
	storage Storage
	logger  *slog.Logger
	newKey  func(name string) string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithKeyFunc overrides object key generation.
func WithKeyFunc(fn func(name string) string) Option {
	return func(s *Service) {
		s.newKey = fn
	}
}

// New builds the service. A nil storage makes every upload unavailable.
func New(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		logger:  slog.New(slog.DiscardHandler),
		newKey:  ObjectKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if s.storage == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "object storage is not configured")
	}

	res := &Result{
		RegistrationNumber: req.RegistrationNumber,
		Paths:              map[models.Role]string{},
		Errors:             map[models.Role]string{},
	}
	for _, role := range models.Roles() {
		f, ok := req.Files[role]
		if !ok || f.Size <= 0 {
			continue
		}
		key := s.newKey(f.Name)
		obj, err := s.storage.Put(ctx, key, f.Body, f.Size, contentType(f.ContentType))
		if err != nil {
			s.logger.WarnContext(ctx, "identity document upload failed",
				"role", role,
				"key", key,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			res.Errors[role] = err.Error()
			continue
		}
		res.Paths[role] = fmt.Sprintf("%s/%s", s.storage.Bucket(), obj.Key)
	}
	return res, nil
}

// ObjectKey returns a random key that keeps the original file extension.
func ObjectKey(name string) string {
	ext := path.Ext(name)
	if ext == "." {
		ext = ""
	}
	return uuid.NewString() + ext
}

func contentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
