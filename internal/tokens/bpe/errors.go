package bpe

import (
	"errors"
	"fmt"
)

// Errors returned by the tokenizer. Callers match them with errors.Is; the
// typed errors below also satisfy errors.Is against their sentinel.
var (
	// ErrInvalidConfig reports training options that cannot be honoured.
	ErrInvalidConfig = errors.New("invalid tokenizer config")
	// ErrUntrainedState reports use of a tokenizer with no vocabulary or merges.
	ErrUntrainedState = errors.New("tokenizer has not been trained or loaded")
	// ErrArtifactNotFound reports a missing tokenizer artifact.
	ErrArtifactNotFound = errors.New("tokenizer artifact not found")
	// ErrCorruptArtifact reports an artifact that cannot be decoded or is inconsistent.
	ErrCorruptArtifact = errors.New("corrupt tokenizer artifact")
	// ErrUnknownTokenID reports a token id that is not in the vocabulary.
	ErrUnknownTokenID = errors.New("unknown token id")
	// ErrInvalidTokenInput reports a token list that isn't made of token ids.
	ErrInvalidTokenInput = errors.New("invalid token input")
)

// UnknownTokenIDError is returned by Decode for an id outside the vocabulary.
type UnknownTokenIDError struct {
	ID       TokenID
	Position int
}

func (e *UnknownTokenIDError) Error() string {
	return fmt.Sprintf("unknown token id %d at position %d", e.ID, e.Position)
}

func (e *UnknownTokenIDError) Is(target error) bool {
	return target == ErrUnknownTokenID
}

// InvalidTokenInputError is returned by ParseTokenIDs for a field that is not
// an unsigned 32-bit integer.
type InvalidTokenInputError struct {
	Token    string
	Position int
}

func (e *InvalidTokenInputError) Error() string {
	return fmt.Sprintf("invalid token %q at position %d: expected a non-negative integer", e.Token, e.Position)
}

func (e *InvalidTokenInputError) Is(target error) bool {
	return target == ErrInvalidTokenInput
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptArtifact, fmt.Sprintf(format, args...))
}
