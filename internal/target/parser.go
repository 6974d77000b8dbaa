package target

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// nameRegex matches a single target name or package path element.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+$`)

// isValidName rejects names that match the pattern but are unusable as
// path elements.
func isValidName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return nameRegex.MatchString(name)
}

// Validate checks that both parts of i are well formed.
func (i Info) Validate() error {
	if !isValidName(i.Name) {
		return fmt.Errorf("invalid target name %q", i.Name)
	}
	if i.Package == "" {
		return nil
	}
	for _, elem := range strings.Split(i.Package, "/") {
		if !isValidName(elem) {
			return fmt.Errorf("invalid package path %q", i.Package)
		}
	}
	return nil
}

// ParseRef resolves a dependency reference relative to the package it
// appears in.
func ParseRef(ref, currentPackage string) (Info, error) {
	if ref == "" {
		return Info{}, fmt.Errorf("target reference cannot be empty")
	}

	var info Info
	switch {
	case strings.HasPrefix(ref, "//"):
		rest := strings.TrimPrefix(ref, "//")
		pkg, name, hasName := strings.Cut(rest, ":")
		pkg = strings.TrimSuffix(pkg, "/")
		if !hasName {
			if pkg == "" {
				return Info{}, fmt.Errorf("invalid target reference %q: missing name", ref)
			}
			name = path.Base(pkg)
		}
		info = Info{Package: pkg, Name: name}
	case strings.HasPrefix(ref, ":"):
		info = Info{Package: currentPackage, Name: strings.TrimPrefix(ref, ":")}
	default:
		if strings.ContainsAny(ref, ":/") {
			return Info{}, fmt.Errorf("invalid target reference %q: use //pkg:name for other packages", ref)
		}
		info = Info{Package: currentPackage, Name: ref}
	}

	if err := info.Validate(); err != nil {
		return Info{}, fmt.Errorf("invalid target reference %q: %w", ref, err)
	}
	return info, nil
}
