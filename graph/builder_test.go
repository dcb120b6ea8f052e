/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package graph_test

import (
	"testing"

	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/graph"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/mapfs"
	"bungae.dev/bungae/resolve"
)

func newTestBuilder(t *testing.T, fsys *mapfs.MapFileSystem, cfg *config.Config) *graph.Builder {
	t.Helper()
	return &graph.Builder{
		FS:        fsys,
		Resolver:  resolve.New(fsys, cfg.Root, cfg.AssetExtensions, cfg.PreferNativePlatform),
		Config:    cfg,
		AssetExts: map[string]bool{".png": true},
	}
}

func TestBuildWalksDependenciesAndLinksInverseEdges(t *testing.T) {
	fsys := mapfs.New()
	fsys.AddFile("/project/entry.js", `const foo = require("./foo.js");
console.log(foo);
`, 0o644)
	fsys.AddFile("/project/foo.js", `module.exports = 42;
`, 0o644)

	cfg := &config.Config{Platform: config.PlatformWeb, Dev: true, Root: "/project"}
	builder := newTestBuilder(t, fsys, cfg)

	g, err := builder.Build("/project/entry.js", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	entry, ok := g.Modules["/project/entry.js"]
	if !ok {
		t.Fatal("expected entry module in graph")
	}
	if len(entry.Dependencies) != 1 || entry.Dependencies[0] != "/project/foo.js" {
		t.Errorf("expected entry to depend on foo.js, got %v", entry.Dependencies)
	}

	foo, ok := g.Modules["/project/foo.js"]
	if !ok {
		t.Fatal("expected foo.js module in graph")
	}
	if !foo.InverseDependencies["/project/entry.js"] {
		t.Errorf("expected foo.js to list entry.js as an inverse dependency, got %v", foo.InverseDependencies)
	}
}

func TestBuildReportsMissingEntry(t *testing.T) {
	fsys := mapfs.New()
	cfg := &config.Config{Platform: config.PlatformWeb, Dev: true, Root: "/project"}
	builder := newTestBuilder(t, fsys, cfg)

	if _, err := builder.Build("/project/missing.js", nil); err == nil {
		t.Fatal("expected an error for a missing entry point")
	}
}

func TestBuildFiresProgressCallbacks(t *testing.T) {
	fsys := mapfs.New()
	fsys.AddFile("/project/entry.js", `module.exports = 1;
`, 0o644)

	cfg := &config.Config{Platform: config.PlatformWeb, Dev: true, Root: "/project"}
	builder := newTestBuilder(t, fsys, cfg)

	var discovered, processed []string
	progress := &graph.Progress{
		OnDiscovered: func(path string) { discovered = append(discovered, path) },
		OnProcessed:  func(path string) { processed = append(processed, path) },
	}

	if _, err := builder.Build("/project/entry.js", progress); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(discovered) != 1 || discovered[0] != "/project/entry.js" {
		t.Errorf("expected one discovered callback for entry.js, got %v", discovered)
	}
	if len(processed) != 1 || processed[0] != "/project/entry.js" {
		t.Errorf("expected one processed callback for entry.js, got %v", processed)
	}
}

func TestBuildSynthesizesAssetModule(t *testing.T) {
	fsys := mapfs.New()
	fsys.AddFile("/project/entry.js", `const icon = require("./icon.png");
`, 0o644)
	// A 1x1 transparent PNG, just enough for asset.Describe to decode.
	png := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}
	fsys.WriteFile("/project/icon.png", png, 0o644)

	cfg := &config.Config{Platform: config.PlatformWeb, Dev: true, Root: "/project"}
	builder := newTestBuilder(t, fsys, cfg)

	g, err := builder.Build("/project/entry.js", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	icon, ok := g.Modules["/project/icon.png"]
	if !ok {
		t.Fatal("expected icon.png module in graph")
	}
	if icon.Kind != graph.KindAsset {
		t.Errorf("expected icon.png to be KindAsset, got %v", icon.Kind)
	}
}

func TestBuildRoutesMatchedSpecifierThroughExternals(t *testing.T) {
	fsys := mapfs.New()
	fsys.AddFile("/project/entry.js", `const html = require("lit");
`, 0o644)

	cfg := &config.Config{Platform: config.PlatformWeb, Dev: true, Root: "/project", Externals: []string{"lit"}}
	im := &importmap.ImportMap{Imports: map[string]string{"lit": "https://esm.sh/lit@3.0.0"}}
	builder := &graph.Builder{
		FS:        fsys,
		Resolver:  resolve.New(fsys, cfg.Root, cfg.AssetExtensions, cfg.PreferNativePlatform).WithExternals(cfg.Externals, im),
		Config:    cfg,
		AssetExts: map[string]bool{".png": true},
	}

	g, err := builder.Build("/project/entry.js", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	entry := g.Modules["/project/entry.js"]
	if len(entry.Dependencies) != 1 {
		t.Fatalf("expected entry to have one dependency, got %v", entry.Dependencies)
	}

	ext, ok := g.Modules[entry.Dependencies[0]]
	if !ok {
		t.Fatal("expected the externalized lit module in the graph")
	}
	if ext.Kind != graph.KindExternal {
		t.Errorf("expected KindExternal, got %v", ext.Kind)
	}
	if ext.ExternalURL != "https://esm.sh/lit@3.0.0" {
		t.Errorf("ExternalURL = %q, want the CDN URL", ext.ExternalURL)
	}
	if ext.ExternalSpecifier != "lit" {
		t.Errorf("ExternalSpecifier = %q, want %q", ext.ExternalSpecifier, "lit")
	}
	if len(ext.Dependencies) != 0 {
		t.Errorf("external modules must not recurse: got dependencies %v", ext.Dependencies)
	}
}
