package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/filtergraph"
	"github.com/gogpu/filtergraph/shaders"
)

func fakeCompile(string) ([]uint32, error) { return []uint32{0x07230203}, nil }

const testChain = `
source "paper" {
  color = rgba(1, 1, 1)
}

source "canvas" {
  width  = 64
  height = 64
}

image "soft" {
  input = source.canvas
  filter "gaussianBlur" {
    radius = 16
  }
  filter "sourceOverCompositing" {
    background = source.paper
  }
}

output = image.soft
`

func writeChain(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.hcl")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunNoop(t *testing.T) {
	path := writeChain(t, testChain)

	var out bytes.Buffer
	err := run(context.Background(), &out, path, 128, 64,
		filtergraph.WithBackends(gputypes.BackendEmpty),
		filtergraph.WithShaderCompiler(fakeCompile))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"device:  Noop Adapter",
		"graph:   4 nodes, 2 sources",
		"128x64",
		"gaussianBlurHorizontal",
		"gaussianBlurVertical",
		"sourceOverCompositing",
		"upload node",
		"16x8x1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	noop := []filtergraph.Option{
		filtergraph.WithBackends(gputypes.BackendEmpty),
		filtergraph.WithShaderCompiler(fakeCompile),
	}

	if err := run(ctx, &bytes.Buffer{}, filepath.Join(t.TempDir(), "none.hcl"), 8, 8, noop...); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}

	path := writeChain(t, testChain)
	if err := run(ctx, &bytes.Buffer{}, path, 0, 8, noop...); err == nil {
		t.Error("zero width: expected an error")
	}
}

func TestCheckAll(t *testing.T) {
	reg := shaders.NewDefault(gputypes.TextureFormatRGBA8Unorm)

	var out bytes.Buffer
	if failed := checkAll(&out, reg, fakeCompile); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if lines := strings.Count(out.String(), "\n"); lines != len(reg.Names()) {
		t.Errorf("lines = %d, want %d", lines, len(reg.Names()))
	}

	out.Reset()
	broken := func(string) ([]uint32, error) { return nil, errors.New("broken") }
	if failed := checkAll(&out, reg, broken); failed != len(reg.Names()) {
		t.Errorf("failed = %d, want %d", failed, len(reg.Names()))
	}
	if !strings.Contains(out.String(), "FAIL") {
		t.Errorf("output = %q", out.String())
	}
}
