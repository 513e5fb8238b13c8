package config

import (
	"context"

	"github.com/vk/pbuild/internal/pathid"
)

// Loader reads a project configuration from disk and translates it into the
// format-agnostic ProjectConfig. Concrete implementations (e.g. jsonconfig)
// own the actual on-disk syntax; every other component in pbuild depends
// only on this interface.
type Loader interface {
	// Load parses the configuration file identified by id. When id names a
	// directory, Load reads DefaultConfigFilename inside it; callers pass
	// reference targets through unchanged.
	Load(ctx context.Context, id pathid.ID) (*ProjectConfig, error)
}

// DefaultConfigFilename is appended to a reference target that resolves to
// a directory rather than a file.
const DefaultConfigFilename = "tsconfig.json"
