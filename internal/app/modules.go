package app

import (
	"github.com/vk/repobuild/internal/node/autoconf"
	"github.com/vk/repobuild/internal/node/cc"
	"github.com/vk/repobuild/internal/registry"
)

// coreModules is the definitive list of all target kinds compiled into the
// repobuild binary.
var coreModules = []registry.Module{
	cc.Module{},
	autoconf.Module{},
}
