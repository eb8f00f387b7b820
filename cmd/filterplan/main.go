// Command filterplan compiles an HCL image chain and prints the GPU plan.
//
// Usage:
//
//	filterplan [flags] chain.hcl
//	filterplan -check-shaders
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop" // register the noop backend

	"github.com/gogpu/filtergraph"
	"github.com/gogpu/filtergraph/compiler"
	"github.com/gogpu/filtergraph/graph"
	"github.com/gogpu/filtergraph/internal/chainfile"
	"github.com/gogpu/filtergraph/shaders"
)

var backends = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"noop":   gputypes.BackendEmpty,
}

func main() {
	var (
		width        = flag.Int("width", 1024, "output width")
		height       = flag.Int("height", 768, "output height")
		backend      = flag.String("backend", "vulkan", "graphics backend: vulkan or noop")
		verbose      = flag.Bool("v", false, "log cache, pool and device activity")
		checkShaders = flag.Bool("check-shaders", false, "compile every built-in shader to SPIR-V and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: filterplan [flags] chain.hcl\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		filtergraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if *checkShaders {
		reg := shaders.NewDefault(gputypes.TextureFormatRGBA8Unorm)
		if failed := checkAll(os.Stdout, reg, shaders.CompileSPIRV); failed > 0 {
			log.Fatalf("%d shaders failed to compile", failed)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	b, ok := backends[*backend]
	if !ok {
		log.Fatalf("unknown backend %q", *backend)
	}

	err := run(context.Background(), os.Stdout, flag.Arg(0), *width, *height,
		filtergraph.WithBackends(b))
	if err != nil {
		log.Fatal(err)
	}
}

// run loads the chain file at path, compiles it at width×height and prints
// the plan to w.
func run(ctx context.Context, w io.Writer, path string, width, height int, opts ...filtergraph.Option) error {
	f, err := chainfile.Load(path)
	if err != nil {
		return err
	}

	e := filtergraph.New(opts...)
	defer e.Close()

	d, err := e.Device(ctx)
	if err != nil {
		return err
	}
	g, err := e.Build(f.Output)
	if err != nil {
		return err
	}
	cg, err := e.CompileGraph(ctx, g, width, height)
	if err != nil {
		return err
	}
	defer e.Release(cg)

	info := d.AdapterInfo()
	fmt.Fprintf(w, "chain:   %s\n", path)
	fmt.Fprintf(w, "device:  %s (%s, %s)\n", info.Name, info.Type, d.Backend())
	fmt.Fprintf(w, "graph:   %d nodes, %d sources\n", g.Len(), len(g.Sources))
	fmt.Fprintf(w, "plan:    %dx%d %s, %d passes, %d textures\n\n",
		cg.Width, cg.Height, cg.Format, len(cg.Nodes), len(cg.Textures))

	printPlan(w, g, cg)
	fmt.Fprintf(w, "\n%s\n", e.Stats())
	return nil
}

// printPlan writes one row per pass. Texture indices are printed as tN,
// sources as the node they are uploaded from.
func printPlan(w io.Writer, g *graph.Graph, cg *compiler.CompiledGraph) {
	uploads := make(map[int]graph.NodeID, len(cg.SourceTextures))
	for id, tex := range cg.SourceTextures {
		uploads[tex] = id
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPASS\tINPUTS\tOUTPUT\tEXTENT\tGROUPS")
	for _, tex := range slices.Sorted(maps.Keys(uploads)) {
		id := uploads[tex]
		fmt.Fprintf(tw, "-\tupload node %d\t\tt%d\t%s\t\n", id, tex, g.Node(id).OutputExtent)
	}
	for i, n := range cg.Nodes {
		inputs := make([]string, 0, len(n.Inputs))
		for _, key := range slices.Sorted(maps.Keys(n.Inputs)) {
			inputs = append(inputs, fmt.Sprintf("%s=t%d", key, n.Inputs[key]))
		}
		out := fmt.Sprintf("t%d", n.Output)
		if n.Output == cg.Output {
			out += "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%dx%dx%d\n", i, n.Operation, strings.Join(inputs, " "),
			out, n.Extent, n.Workgroups[0], n.Workgroups[1], n.Workgroups[2])
	}
	tw.Flush()
}

// checkAll compiles every shader of reg and reports one line per shader.
// It returns the number of failures.
func checkAll(w io.Writer, reg *shaders.Registry, compile shaders.CompileFunc) int {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	failed := 0
	for _, name := range reg.Names() {
		src, err := reg.Source(name)
		if err == nil {
			var words []uint32
			words, err = compile(src)
			if err == nil {
				fmt.Fprintf(tw, "ok\t%s\t%s\t%d words\n", name, reg.Category(name), len(words))
				continue
			}
		}
		failed++
		fmt.Fprintf(tw, "FAIL\t%s\t%s\t%v\n", name, reg.Category(name), err)
	}
	return failed
}
