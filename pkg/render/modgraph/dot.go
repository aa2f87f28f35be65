package modgraph

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/shakify/pkg/bundle"
)

// Options configures module graph rendering.
type Options struct {
	// Title is drawn above the graph, typically "name@version export".
	Title string

	// HideExternal omits external imports.
	HideExternal bool
}

// ToDOT converts a bundle metafile to Graphviz DOT format.
// Nodes and edges are emitted in sorted order, so equal metafiles give equal
// output.
func ToDOT(meta *bundle.Metafile, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [color=\"#666666\"];\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  labelloc=t;\n  label=%q;\n", opts.Title)
	}
	buf.WriteString("\n")

	contrib := meta.Contributions()
	paths := slices.Sorted(maps.Keys(meta.Inputs))
	externals := make(map[string]bool)

	for _, p := range paths {
		in := meta.Inputs[p]
		fmt.Fprintf(&buf, "  %q [%s];\n", p, strings.Join(fmtAttrs(p, in, contrib[p]), ", "))
	}

	buf.WriteString("\n")
	for _, p := range paths {
		for _, imp := range meta.Inputs[p].Imports {
			if imp.External {
				if opts.HideExternal {
					continue
				}
				externals[imp.Path] = true
			}
			attrs := ""
			if imp.Kind == "require-call" {
				attrs = " [style=dashed]"
			}
			fmt.Fprintf(&buf, "  %q -> %q%s;\n", p, imp.Path, attrs)
		}
	}

	if len(externals) > 0 {
		buf.WriteString("\n")
		for _, ext := range slices.Sorted(maps.Keys(externals)) {
			fmt.Fprintf(&buf, "  %q [shape=ellipse, style=filled, fillcolor=\"#eeeeee\", label=%q];\n", ext, ext)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(path string, in bundle.MetafileInput, bytesInOutput int) []string {
	label := fmt.Sprintf("%s\n%s", bundle.DisplayPath(path), fmtBytes(bytesInOutput))
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case bytesInOutput == 0:
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=\"#555555\"")
	case in.Format == "cjs":
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=\"#fff4e0\"")
	}
	return attrs
}

func fmtBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KiB", float64(n)/1024)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
