package hcl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/repobuild/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext returns the evaluation context for one target block. dir is
// the directory holding the build file.
func newEvalContext(pkg, name, dir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"package": cty.StringVal(pkg),
			"name":    cty.StringVal(name),
		},
		Functions: map[string]function.Function{
			"upper":    stdlib.UpperFunc,
			"lower":    stdlib.LowerFunc,
			"concat":   stdlib.ConcatFunc,
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"distinct": stdlib.DistinctFunc,
			"glob":     globFunc(dir),
		},
	}
}

// globFunc lists files in dir matching a pattern, sorted.
func globFunc(dir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "pattern", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.List(cty.String)),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			pattern := args[0].AsString()
			if strings.Contains(pattern, "..") {
				return cty.NilVal, fmt.Errorf("glob pattern %q must stay inside the package", pattern)
			}
			files, err := fsutil.Glob(dir, pattern)
			if err != nil {
				return cty.NilVal, err
			}
			if len(files) == 0 {
				return cty.ListValEmpty(cty.String), nil
			}
			vals := make([]cty.Value, len(files))
			for i, f := range files {
				vals[i] = cty.StringVal(f)
			}
			return cty.ListVal(vals), nil
		},
	})
}
