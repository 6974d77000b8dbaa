package config

import "context"

// Loader is the interface for a format-specific target description loader.
type Loader interface {
	// Load reads every build file under root and translates the declared
	// targets into the format-agnostic model.
	Load(ctx context.Context, root string) (*Model, error)
}
