// Package integrationtests runs the whole generation pipeline, from BUILD.hcl
// files on disk to the written Makefile.
package integrationtests
