// Package render groups shakify's visual outputs.
//
// The [modgraph] subpackage draws the module graph esbuild kept for one
// export bundle using Graphviz:
//
//	dot := modgraph.ToDOT(meta, modgraph.Options{Title: "preact@10.19.0 ./hooks"})
//	svg, err := modgraph.RenderSVG(ctx, dot)
//
// [modgraph]: github.com/matzehuels/shakify/pkg/render/modgraph
package render
