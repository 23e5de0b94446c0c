package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("report not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage unavailable")
)

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
