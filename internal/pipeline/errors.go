package pipeline

import (
	"fmt"
)

// StageError wraps a failure with the stage it happened in. A stage failure
// aborts the whole run: later stages' prompts assume earlier stages
// succeeded, so there is no safe partial state to continue from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// rawPreviewLimit bounds how much of the offending raw response is carried on
// a malformed-output error for diagnosis.
const rawPreviewLimit = 500

// MalformedOutputError means the normalized response still failed JSON
// parsing, or the parsed payload lacked a required field. Preview holds the
// start of the ORIGINAL raw text, before any normalization.
type MalformedOutputError struct {
	Stage   Stage
	Preview string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed output at %s stage: %v; raw preview: %q", e.Stage, e.Err, e.Preview)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

func newMalformedOutputError(stage Stage, raw string, err error) *MalformedOutputError {
	preview := raw
	if len(preview) > rawPreviewLimit {
		preview = preview[:rawPreviewLimit]
	}
	return &MalformedOutputError{Stage: stage, Preview: preview, Err: err}
}
