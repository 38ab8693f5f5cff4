package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Adapters translate them into transport codes; wrap the cause
// with WrapError so both the kind and the cause stay matchable.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTooLarge      = errors.New("payload too large")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
	ErrExtraction    = errors.New("extraction failed")
	ErrUpstream      = errors.New("upstream failure")
	ErrTemporary     = errors.New("temporary failure")
)

var kinds = []error{
	ErrNotFound,
	ErrInvalidInput,
	ErrTooLarge,
	ErrUnauthorized,
	ErrConfiguration,
	ErrExtraction,
	ErrUpstream,
	ErrTemporary,
}

func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func NewError(kind error, operation, message string) error {
	return fmt.Errorf("%s: %w: %s", operation, kind, message)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the outermost kind carried by err, or nil for untyped
// errors. A temporary failure wrapping an upstream one reports temporary.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	best, depth := error(nil), -1
	for _, kind := range kinds {
		if d := kindDepth(err, kind, 0); d >= 0 && (depth < 0 || d < depth) {
			best, depth = kind, d
		}
	}
	return best
}

func kindDepth(err, kind error, depth int) int {
	if err == nil {
		return -1
	}
	if err == kind {
		return depth
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		found := -1
		for _, inner := range x.Unwrap() {
			if d := kindDepth(inner, kind, depth+1); d >= 0 && (found < 0 || d < found) {
				found = d
			}
		}
		return found
	case interface{ Unwrap() error }:
		return kindDepth(x.Unwrap(), kind, depth+1)
	}
	return -1
}
