package service

import (
	"context"

	"civreg/internal/certificate/models"
	"civreg/internal/certificate/normalizer"
)

type Normalizer interface {
	Normalize(ctx context.Context, sub normalizer.Submission) (normalizer.Result, error)
}

type Renderer interface {
	Render(record models.Record) ([]byte, error)
}

type Store interface {
	Insert(ctx context.Context, record models.Record, document []byte) (int64, error)
	FindRecord(ctx context.Context, id int64) (models.Record, error)
	FindDocument(ctx context.Context, id int64) ([]byte, error)
	List(ctx context.Context, limit, offset int) ([]models.Summary, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.CreationEvent) error
}

type DocumentCache interface {
	Get(ctx context.Context, id int64) ([]byte, bool, error)
	Put(ctx context.Context, id int64, document []byte) error
}
