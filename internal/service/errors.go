package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("invalid reference")
)

// InvalidReferenceError names the foreign ids a caller submitted that do
// not exist. It matches ErrInvalidReference under errors.Is.
type InvalidReferenceError struct {
	Kind string
	IDs  []uint64
}

func (e *InvalidReferenceError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("unknown %s ids: %s", e.Kind, strings.Join(ids, ", "))
}

func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}
