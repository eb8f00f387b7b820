// Package chainfile loads image chains described in HCL.
//
// A chain file declares named sources and images and picks one image as
// the output:
//
//	source "photo" {
//	  file = "photo.png"
//	}
//
//	source "paper" {
//	  color = rgba(1, 0.98, 0.9)
//	}
//
//	image "soft" {
//	  input = source.photo
//
//	  filter "gaussianBlur" {
//	    radius = 12
//	  }
//	  filter "sourceOverCompositing" {
//	    background = source.paper
//	  }
//	}
//
//	output = image.soft
//
// Filter attributes become operation parameters: numbers are scalars,
// number lists are vectors, rgba() values are colors, strings are text and
// source or image references are image parameters. An image without input
// starts with a generator filter.
package chainfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/gogpu/filtergraph/chain"
	"github.com/gogpu/filtergraph/internal/logx"
)

// Errors reported by Parse and Load, wrapped with the location.
var (
	ErrCycle        = errors.New("chainfile: reference cycle")
	ErrUndefined    = errors.New("chainfile: undefined reference")
	ErrDuplicate    = errors.New("chainfile: duplicate name")
	ErrInvalidValue = errors.New("chainfile: invalid value")
)

// File is a loaded chain file.
type File struct {
	Sources map[string]*chain.Image
	Images  map[string]*chain.Image
	Output  *chain.Image
}

// hclFile is the top-level structure of a chain file for decoding.
type hclFile struct {
	Sources []*hclSource   `hcl:"source,block"`
	Images  []*hclImage    `hcl:"image,block"`
	Output  hcl.Expression `hcl:"output"`
}

type hclSource struct {
	Name   string         `hcl:"name,label"`
	File   *string        `hcl:"file,optional"`
	Text   *string        `hcl:"text,optional"`
	Size   *float64       `hcl:"size,optional"`
	Width  *int           `hcl:"width,optional"`
	Height *int           `hcl:"height,optional"`
	Color  hcl.Expression `hcl:"color,optional"`
}

type hclImage struct {
	Name    string         `hcl:"name,label"`
	Input   hcl.Expression `hcl:"input,optional"`
	Filters []*hclFilter   `hcl:"filter,block"`
}

type hclFilter struct {
	Op     string         `hcl:"op,label"`
	Params hcl.Attributes `hcl:",remain"`
}

// Load reads and evaluates the chain file at path. Relative source file
// paths are resolved against the directory of path.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chainfile: %w", err)
	}
	return Parse(src, path)
}

// Parse evaluates the chain file src. filename is used in diagnostics and
// as the base for relative source file paths.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse chain file %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode chain file %s: %w", filename, diags)
	}

	ev := newEvaluator(filepath.Dir(filename))
	out, err := ev.run(&parsed)
	if err != nil {
		return nil, fmt.Errorf("chain file %s: %w", filename, err)
	}

	logx.Logger().Debug("chain file loaded", "file", filename,
		"sources", len(out.Sources), "images", len(out.Images))
	return out, nil
}
