// Package modgraph renders the module graph of one bundled export.
//
// The graph comes from the esbuild metafile of a [bundle.Output]: every
// input module is a node labeled with its path and the bytes it contributed
// to the bundle, and every import is an edge. Modules esbuild treated as
// CommonJS are drawn dashed, modules that contributed no bytes (tree-shaken)
// are grey, and external imports are ellipses.
//
//	out, _ := bundler.Bundle(ctx, req)
//	dot := modgraph.ToDOT(out.Metafile, modgraph.Options{})
//	svg, err := modgraph.RenderSVG(ctx, dot)
//
// [bundle.Output]: github.com/matzehuels/shakify/pkg/bundle.Output
package modgraph
