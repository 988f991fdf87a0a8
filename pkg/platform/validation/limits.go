package validation

import (
	"fmt"

	dErrors "civreg/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize bounds JSON request bodies (64 KB).
	MaxBodySize = 64 * 1024

	// MaxMultipartBodySize bounds multipart submissions carrying identity documents (20 MB).
	MaxMultipartBodySize = 20 << 20

	// MaxIdentityFileSize bounds a single uploaded identity document (8 MB).
	MaxIdentityFileSize = 8 << 20

	// MultipartMemory is the in-memory threshold used when parsing multipart forms.
	MultipartMemory = 10 << 20
)

// Submission shape limits
const (
	// MaxFieldCount is the maximum number of top-level fields in a submission.
	MaxFieldCount = 64

	// MaxFieldNameLength is the maximum length of a field name.
	MaxFieldNameLength = 64

	// MaxFileNameLength is the maximum length of an uploaded file name.
	MaxFileNameLength = 255
)

// Listing limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// CheckCount validates that a collection does not exceed the maximum count.
func CheckCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckRange validates that n lies within [min, max].
func CheckRange(fieldName string, n, min, max int) error {
	if n < min || n > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d", fieldName, min, max))
	}
	return nil
}
