// Package config defines the format-agnostic model of a workspace's target
// declarations, along with the Loader interface implemented by concrete
// front-ends such as the HCL loader.
//
// The `config.Model` is the single input of the `dag` resolver. Attribute
// values are carried as cty values so that nodes can decode them into Go
// types with the accessors on Target.
package config
