package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why a request could not produce a decision.
type Kind int

const (
	// KindInputUnreadable means the uploaded bytes could not be decoded.
	KindInputUnreadable Kind = iota + 1
	// KindNoFace means no angle produced a detection.
	KindNoFace
	// KindDegenerateCrop means the detected box had no area inside the image.
	KindDegenerateCrop
	// KindCapability means a detector, verifier or embedder call failed.
	KindCapability
)

func (k Kind) String() string {
	switch k {
	case KindInputUnreadable:
		return "input unreadable"
	case KindNoFace:
		return "no face"
	case KindDegenerateCrop:
		return "degenerate crop"
	case KindCapability:
		return "capability failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Subject names the input an error is about.
type Subject string

const (
	SubjectID    Subject = "ID"
	SubjectPhoto Subject = "Photo"
)

// ErrNoFace is wrapped by KindNoFace errors.
var ErrNoFace = errors.New("no face detected")

// Error is returned by Run for every failure the caller can explain to a user.
type Error struct {
	Kind    Kind
	Subject Subject // empty when the failure concerns both inputs
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s image: %s: %v", e.Subject, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
