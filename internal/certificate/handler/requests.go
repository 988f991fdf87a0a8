package handler

import (
	"strconv"
	"strings"

	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/validation"
)

// ListRequest carries the raw paging query parameters.
type ListRequest struct {
	Limit  string
	Offset string

	limit  int
	offset int
}

func (r *ListRequest) Normalize() {
	r.Limit = strings.TrimSpace(r.Limit)
	r.Offset = strings.TrimSpace(r.Offset)
}

func (r *ListRequest) Validate() error {
	r.limit = validation.DefaultListLimit
	if r.Limit != "" {
		n, err := strconv.Atoi(r.Limit)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "limit must be a number")
		}
		if err := validation.CheckRange("limit", n, 1, validation.MaxListLimit); err != nil {
			return err
		}
		r.limit = n
	}
	if r.Offset != "" {
		n, err := strconv.Atoi(r.Offset)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "offset must be a number")
		}
		if n < 0 {
			return dErrors.New(dErrors.CodeValidation, "offset must not be negative")
		}
		r.offset = n
	}
	return nil
}
