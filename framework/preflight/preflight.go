// Package preflight validates the descriptor files a devnet needs before any container is touched.
package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Reason describes why a descriptor failed validation.
type Reason string

const (
	ReasonMissing Reason = "missing"
	ReasonInvalid Reason = "invalid"
)

// Descriptor is a required file and a marker it must contain.
type Descriptor struct {
	Path   string
	Marker string
}

// ConfigValidationError is returned when a required descriptor is missing or malformed.
type ConfigValidationError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *ConfigValidationError) Error() string {
	msg := fmt.Sprintf("%s %s file", e.Reason, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigValidationError) Unwrap() error {
	return e.Err
}

// Check validates descriptors relative to dir. Every descriptor is checked for existence
// before any is checked for its marker, so a missing file is always reported first.
func Check(dir string, descriptors ...Descriptor) error {
	contents := make([]string, len(descriptors))
	for i, d := range descriptors {
		path := d.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &ConfigValidationError{Path: d.Path, Reason: ReasonMissing}
			}
			return &ConfigValidationError{Path: d.Path, Reason: ReasonMissing, Err: err}
		}
		contents[i] = string(b)
	}

	for i, d := range descriptors {
		if !strings.Contains(contents[i], d.Marker) {
			return &ConfigValidationError{
				Path:   d.Path,
				Reason: ReasonInvalid,
				Err:    fmt.Errorf("expected to reference %q", d.Marker),
			}
		}
	}
	return nil
}

// Validator checks a fixed set of descriptors in a directory.
type Validator struct {
	Dir         string
	Descriptors []Descriptor
}

// Validate runs Check on the configured descriptors.
func (v Validator) Validate() error {
	return Check(v.Dir, v.Descriptors...)
}
