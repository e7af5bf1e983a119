package errors

import (
	"fmt"
	"strings"
)

// MissingFieldError represents a missing required configuration key.
type MissingFieldError struct {
	Field   string
	Section string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required key %q in section %q", err.Field, err.Section)
}

// MissingSectionError represents a required section that's absent from the
// configuration file.
type MissingSectionError struct {
	Section string
	Path    string
}

func (err MissingSectionError) Error() string {
	return fmt.Sprintf("need a %q section in %s", err.Section, err.Path)
}

// NoConfigFileError represents when no configuration file could be found.
// Candidates holds every path that was examined, in search order.
type NoConfigFileError struct {
	Candidates []string
}

func (err NoConfigFileError) Error() string {
	return fmt.Sprintf("no config file. Places examined: %s",
		strings.Join(err.Candidates, ", "))
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}
