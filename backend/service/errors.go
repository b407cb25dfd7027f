package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by repositories when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a write's version precondition fails.
	ErrVersionConflict = errors.New("contract was modified concurrently")
	// ErrArtifactNotFound is returned by artifact storage for unknown keys.
	ErrArtifactNotFound = errors.New("artifact not found")

	ErrContractNotFound = errors.New("contract not found")
	ErrPartyNotFound    = errors.New("party not found")
	ErrNotFinalized     = errors.New("contract not finalized")
	ErrRender           = errors.New("failed to render contract")
	ErrStorage          = errors.New("artifact storage failure")
	ErrDigestMismatch   = errors.New("stored artifact does not match its digest")
)

// ContractError carries the failing operation and contract id.
type ContractError struct {
	Op         string
	ContractID string
	Err        error
}

func (e *ContractError) Error() string {
	if e.ContractID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ContractID, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// ValidationError lists rejected input fields.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

func opError(op, id string, err error) error {
	return &ContractError{Op: op, ContractID: id, Err: err}
}

func invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}
