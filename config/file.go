package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/augustoroman/junction/unit"
)

// File is the decoded form of a routes file:
//
//	workers = ["session"]
//
//	route "/user/view/<#id>/" {
//	  destination = "user/show"
//	  priority    = 1
//	}
//
//	hook "404" {
//	  namespace = "hooks"
//	  class     = "NotFound"
//	  method    = "Handle"
//	}
//
// Expressions may refer to the variables passed to LoadFile as var.<name>,
// e.g. destination = "${var.home}/index".
type File struct {
	Workers []string     `hcl:"workers,optional"`
	Routes  []RouteBlock `hcl:"route,block"`
	Hooks   []HookBlock  `hcl:"hook,block"`
}

// RouteBlock is one route.
type RouteBlock struct {
	Source      string `hcl:"source,label"`
	Destination string `hcl:"destination"`
	Priority    *int   `hcl:"priority,optional"`
}

// PriorityOr returns the block's priority, or def when it has none.
func (r RouteBlock) PriorityOr(def int) int {
	if r.Priority == nil {
		return def
	}
	return *r.Priority
}

// HookBlock is one hook. A hook is active unless active = false is given.
type HookBlock struct {
	Name      string `hcl:"name,label"`
	Active    *bool  `hcl:"active,optional"`
	Namespace string `hcl:"namespace,optional"`
	Class     string `hcl:"class"`
	Method    string `hcl:"method"`
}

// LoadFile parses the HCL file at filename.
func LoadFile(filename string, vars map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse routes file %s: %w", filename, diags)
	}
	return decode(hclFile, filename, vars)
}

// ParseFile parses HCL source; filename is only used in error messages.
func ParseFile(src []byte, filename string, vars map[string]string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse routes file %s: %w", filename, diags)
	}
	return decode(hclFile, filename, vars)
}

func decode(hclFile *hcl.File, filename string, vars map[string]string) (*File, error) {
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, evalContext(vars), &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode routes file %s: %w", filename, diags)
	}
	return &f, nil
}

func evalContext(vars map[string]string) *hcl.EvalContext {
	values := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		values[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(values)},
	}
}

// HookSpecs converts the hook blocks.
func (f *File) HookSpecs() []unit.HookSpec {
	specs := make([]unit.HookSpec, 0, len(f.Hooks))
	for _, h := range f.Hooks {
		specs = append(specs, unit.HookSpec{
			Name:      h.Name,
			Active:    h.Active == nil || *h.Active,
			Namespace: h.Namespace,
			Class:     h.Class,
			Method:    h.Method,
		})
	}
	return specs
}
