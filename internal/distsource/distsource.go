// Package distsource materializes source trees that live outside the
// workspace, such as release tarballs of third party packages, and returns
// a local directory holding them.
package distsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrSourceUnavailable is matched by every error returned when a source
// cannot be materialized.
var ErrSourceUnavailable = errors.New("source unavailable")

// DistSource fetches a source tree by identifier and returns its local path.
type DistSource interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// FetchError reports why a source could not be materialized. It matches
// ErrSourceUnavailable with errors.Is.
type FetchError struct {
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %q unavailable: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// validateID rejects identifiers that could escape a cache or root directory.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("identifier is required")
	}
	if path.IsAbs(id) || strings.Contains(id, "\\") {
		return fmt.Errorf("identifier %q must be a relative slash-separated path", id)
	}
	for _, elem := range strings.Split(id, "/") {
		if elem == "" || elem == "." || elem == ".." {
			return fmt.Errorf("identifier %q has an invalid path element", id)
		}
	}
	return nil
}

// Local serves sources already unpacked below Root, one directory per id.
type Local struct {
	Root string
}

// Fetch implements DistSource.
func (l *Local) Fetch(ctx context.Context, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	dir := filepath.Join(l.Root, filepath.FromSlash(id))
	info, err := os.Stat(dir)
	if err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	if !info.IsDir() {
		return "", &FetchError{ID: id, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	return abs, nil
}

// Chain tries each source in order and returns the first success. An error
// other than ErrSourceUnavailable stops the search.
type Chain []DistSource

// Fetch implements DistSource.
func (c Chain) Fetch(ctx context.Context, id string) (string, error) {
	var errs []error
	for _, src := range c {
		dir, err := src.Fetch(ctx, id)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, ErrSourceUnavailable) {
			return "", err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", &FetchError{ID: id, Err: errors.New("no sources configured")}
	}
	return "", &FetchError{ID: id, Err: errors.Join(errs...)}
}
