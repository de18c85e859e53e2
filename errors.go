package shellm

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable reports a failed model call (network, auth, bad response).
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelTimeout reports a model call that exceeded its deadline.
	ErrModelTimeout = errors.New("model timed out")
	// ErrUnrecoverableParse is matched by every *UnrecoverableParseError.
	ErrUnrecoverableParse = errors.New("could not get a usable recommendation from the model")
	// ErrNotInTmux is returned when shellm runs outside a tmux session.
	ErrNotInTmux = errors.New("it should be run inside tmux")
)

// TemplateError reports a prompt template that references a variable the
// caller did not supply, or that does not parse.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// ValidationError describes why a model reply is not a valid Answer.
// Its message is embedded verbatim in repair prompts.
type ValidationError struct {
	Expected string
	Found    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("expected %s, but found %s", e.Expected, e.Found)
}

// UnrecoverableParseError is returned once every repair round is spent.
type UnrecoverableParseError struct {
	// Rounds is the number of repair rounds that were attempted.
	Rounds int
	// Last is the validation failure of the final reply. It is kept for
	// callers and debug logs and is not part of Error.
	Last *ValidationError
}

func (e *UnrecoverableParseError) Error() string {
	return fmt.Sprintf("%v after %d repair round(s)", ErrUnrecoverableParse, e.Rounds)
}

func (e *UnrecoverableParseError) Is(target error) bool {
	return target == ErrUnrecoverableParse
}

// MissingCredentialError reports an unset API credential.
type MissingCredentialError struct {
	Env string
}

func (e *MissingCredentialError) Error() string {
	return e.Env + " is not set"
}
