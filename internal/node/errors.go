package node

import (
	"fmt"

	"github.com/vk/repobuild/internal/target"
)

// ConfigError reports a target description that cannot be turned into a
// node: an unknown kind, a duplicate declaration, or a missing, malformed or
// unsupported attribute.
type ConfigError struct {
	Target    target.Info
	Attribute string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("%s: %s", e.Target, e.Err)
	}
	return fmt.Sprintf("%s: attribute %q: %s", e.Target, e.Attribute, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError returns a ConfigError with a formatted message.
func NewConfigError(info target.Info, attribute, format string, args ...any) *ConfigError {
	return &ConfigError{Target: info, Attribute: attribute, Err: fmt.Errorf(format, args...)}
}
