package epub

import (
	"fmt"
)

//go:generate go tool go-enum --names

// ENUM(InvalidArchive, MissingContainer, MalformedPackage)
type PackageErrorKind int

// PackageError reports why a package could not be loaded. Values with the
// same Kind compare equal under errors.Is, so sentinels below could be used
// for matching.
type PackageError struct {
	Kind PackageErrorKind
	Path string
	Err  error
}

var (
	ErrInvalidArchive   = &PackageError{Kind: PackageErrorKindInvalidArchive}
	ErrMissingContainer = &PackageError{Kind: PackageErrorKindMissingContainer}
	ErrMalformedPackage = &PackageError{Kind: PackageErrorKindMalformedPackage}
)

func (e *PackageError) Error() string {
	msg := "epub package error: " + e.Kind.String()
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PackageError) Unwrap() error {
	return e.Err
}

func (e *PackageError) Is(target error) bool {
	t, ok := target.(*PackageError)
	return ok && t.Kind == e.Kind
}

func newPackageError(kind PackageErrorKind, path string, format string, args ...any) *PackageError {
	return &PackageError{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}
