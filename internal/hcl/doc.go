// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It discovers BUILD.hcl files, evaluates every target block's
// attributes and translates them into the format-agnostic config model.
//
// A build file is a sequence of blocks, one per target:
//
//	cc_library "util" {
//	  sources      = glob("*.cc")
//	  dependencies = [":base", "//third_party/zlib"]
//	}
//
// The block type is the target kind and the single label is its name.
package hcl
