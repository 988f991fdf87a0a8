// Package normalizer turns a raw registration submission into a canonical record.
package normalizer

import (
	"context"
	"fmt"
	"time"

	"civreg/internal/certificate/models"
	"civreg/pkg/requestcontext"
)

// FilePart describes an uploaded identity document. Only the name and size are
// read; file bytes never reach the canonical record.
type FilePart struct {
	Name string
	Size int64
}

// Submission is the raw input: a JSON object of fields plus optional file parts.
type Submission struct {
	Fields []byte
	Files  map[models.Role]FilePart
}

// Result is a normalized submission.
type Result struct {
	Record models.Record
	// Reserved lists fields the submitter supplied that only the system may set.
	Reserved []string
	// NormalizedAt is the clock reading used for file references.
	NormalizedAt time.Time
}

// Normalizer is stateless and safe for concurrent use.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize copies the submitted fields verbatim and adds a file reference
// for each non-empty file part. The clock is read from ctx.
func (n *Normalizer) Normalize(ctx context.Context, sub Submission) (Result, error) {
	if len(sub.Fields) == 0 {
		return Result{}, fmt.Errorf("%w: submission has no fields", models.ErrInvalidInput)
	}
	record, err := models.ParseRecord(sub.Fields)
	if err != nil {
		return Result{}, fmt.Errorf("decode submission: %w", err)
	}

	res := Result{NormalizedAt: requestcontext.Now(ctx)}
	for _, key := range reservedFields() {
		if record.Has(key) {
			res.Reserved = append(res.Reserved, key)
		}
	}

	for _, role := range models.Roles() {
		part, ok := sub.Files[role]
		if !ok || part.Size <= 0 || part.Name == "" {
			continue
		}
		record.Set(role.FileField(), models.String(models.FileReference(role, res.NormalizedAt, part.Name)))
	}

	res.Record = record
	return res, nil
}

func reservedFields() []string {
	out := []string{models.FieldID}
	for _, role := range models.Roles() {
		out = append(out, role.FileField())
	}
	return out
}
