package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/ctxlog"
	"github.com/vk/repobuild/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFileName is the build file looked up in every package directory.
const DefaultFileName = "BUILD.hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	fileName string
	skip     []string
}

// NewLoader creates a new HCL loader. Directories in skip (relative to the
// workspace root) are not searched for build files.
func NewLoader(skip ...string) *Loader {
	return &Loader{fileName: DefaultFileName, skip: skip}
}

// Load discovers every build file under root and translates its blocks into
// the model, preserving file and block order.
func (l *Loader) Load(ctx context.Context, root string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "root", root)

	files, err := fsutil.FindFilesByName(root, l.fileName, l.skip...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover build files under %s: %w", root, err)
	}
	logger.Debug("Discovered build files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		pkg, err := packageOf(root, file)
		if err != nil {
			return nil, err
		}

		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		body, ok := hclFile.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("failed to parse HCL file %s: not native syntax", file)
		}

		if len(body.Attributes) > 0 {
			names := make([]string, 0, len(body.Attributes))
			for name := range body.Attributes {
				names = append(names, name)
			}
			slices.Sort(names)
			attr := body.Attributes[names[0]]
			return nil, fmt.Errorf("%s: top-level attribute %q is not allowed, declare targets as blocks", attr.SrcRange, attr.Name)
		}

		for _, block := range body.Blocks {
			tgt, err := l.translateBlock(pkg, file, block)
			if err != nil {
				return nil, err
			}
			model.Targets = append(model.Targets, tgt)
		}
		logger.Debug("Build file loaded.", "file", file, "package", pkg, "targets", len(body.Blocks))
	}

	logger.Debug("HCL loading complete.", "targets", len(model.Targets))
	return model, nil
}

// translateBlock evaluates a target block into the agnostic model.
func (l *Loader) translateBlock(pkg, file string, block *hclsyntax.Block) (*config.Target, error) {
	if len(block.Labels) != 1 {
		return nil, fmt.Errorf("%s: %s block must have exactly one label, the target name", block.TypeRange, block.Type)
	}
	name := block.Labels[0]

	if len(block.Body.Blocks) > 0 {
		nested := block.Body.Blocks[0]
		return nil, fmt.Errorf("%s: target %q: nested %q blocks are not supported", nested.TypeRange, name, nested.Type)
	}

	evalCtx := newEvalContext(pkg, name, filepath.Dir(file))
	tgt := &config.Target{
		Kind:       block.Type,
		Name:       name,
		Package:    pkg,
		File:       file,
		Line:       block.TypeRange.Start.Line,
		Attributes: make(map[string]cty.Value, len(block.Body.Attributes)),
	}

	names := make([]string, 0, len(block.Body.Attributes))
	for attrName := range block.Body.Attributes {
		names = append(names, attrName)
	}
	slices.Sort(names)

	for _, attrName := range names {
		attr := block.Body.Attributes[attrName]
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("target %q: attribute %q: %w", name, attrName, diags)
		}
		tgt.Attributes[attrName] = val
	}
	return tgt, nil
}

// packageOf returns the slash-separated directory of file relative to root.
func packageOf(root, file string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Dir(file))
	if err != nil {
		return "", fmt.Errorf("failed to resolve package of %s: %w", file, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}
