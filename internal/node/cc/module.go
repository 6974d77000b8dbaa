package cc

import (
	"github.com/vk/repobuild/internal/registry"
)

// Module registers the cc kinds.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.Register(registry.Kind{Name: LibraryKind, New: NewLibrary, WriteMakeHead: writeToolchainHead})
	r.Register(registry.Kind{Name: SharedLibraryKind, New: NewSharedLibrary, WriteMakeHead: WriteSharedLibraryHead})
	r.Register(registry.Kind{Name: BinaryKind, New: NewBinary, WriteMakeHead: writeToolchainHead})
}
