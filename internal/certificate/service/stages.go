package service

import "fmt"

// Stage is a pipeline checkpoint. Failures are labelled with the stage that
// was being entered.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageRendered   Stage = "rendered"
	StageStored     Stage = "stored"
	StageNotified   Stage = "notified"
	StageDone       Stage = "done"
)

// RenderPolicy decides when a submission's document is produced.
type RenderPolicy int

const (
	// RenderAtInsert renders before storing and persists the document bytes.
	RenderAtInsert RenderPolicy = iota
	// RenderAtRetrieval stores the record only; documents are rendered on demand.
	RenderAtRetrieval
)

func (p RenderPolicy) String() string {
	if p == RenderAtRetrieval {
		return "render_at_retrieval"
	}
	return "render_at_insert"
}

// ParseRenderPolicy reads a policy name as produced by String. The short
// forms "insert" and "retrieval" are accepted too.
func ParseRenderPolicy(name string) (RenderPolicy, error) {
	switch name {
	case "render_at_insert", "insert":
		return RenderAtInsert, nil
	case "render_at_retrieval", "retrieval":
		return RenderAtRetrieval, nil
	default:
		return RenderAtInsert, fmt.Errorf("unknown render policy %q", name)
	}
}
