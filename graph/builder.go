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
package graph

import (
	"fmt"
	"path/filepath"

	"bungae.dev/bungae/asset"
	"bungae.dev/bungae/cache"
	"bungae.dev/bungae/depscan"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/logging"
	"bungae.dev/bungae/resolve"
	"bungae.dev/bungae/transform"
)

// externalShimTemplate is the factory body given to an externally-resolved
// module: it never reads from disk, it just dynamic-imports the URL the
// externals subsystem resolved for it. Callers therefore see a Promise
// rather than a synchronous export, the same async-interop contract every
// browser-native externalized dependency carries.
const externalShimTemplate = "module.exports = import(%q);"

// assetRegistrySpecifier is the bare specifier every synthesized asset
// module requires to register itself, mirroring Metro's own
// @react-native/assets-registry/registry convention.
const assetRegistrySpecifier = "@react-native/assets-registry/registry"

// Progress receives the two signals the dev server streams to clients:
// onDiscovered fires when a file enters the queue (total++), onProcessed
// fires once a module and all its dependencies have finished processing.
type Progress struct {
	OnDiscovered func(path string)
	OnProcessed  func(path string)
}

// Builder walks a dependency graph from an entry point, resolving and
// transforming each module in turn.
type Builder struct {
	FS        fileReader
	Resolver  *resolve.Resolver
	Cache     *cache.Cache
	Logger    logging.Logger
	Config    *config.Config
	AssetExts map[string]bool
}

type fileReader interface {
	ReadFile(name string) ([]byte, error)
	Exists(path string) bool
}

// Build walks the graph from entryPath, per §4.5's algorithm: visited and
// processing sets gate re-entry, each module's dependencies are resolved
// and recursed into before the module's own "processed" tick fires, and a
// final linking pass recomputes inverse dependencies.
func (b *Builder) Build(entryPath string, progress *Progress) (*Graph, error) {
	g := New(entryPath)

	visited := make(map[string]bool)
	processing := make(map[string]bool)

	if err := b.processModule(g, entryPath, visited, processing, progress); err != nil {
		return nil, err
	}

	g.Link()
	return g, nil
}

func (b *Builder) processModule(g *Graph, path string, visited, processing map[string]bool, progress *Progress) error {
	if visited[path] || processing[path] {
		return nil
	}
	processing[path] = true
	defer delete(processing, path)

	if progress != nil && progress.OnDiscovered != nil {
		progress.OnDiscovered(path)
	}

	if !b.FS.Exists(path) {
		return fmt.Errorf("graph: entry missing: %s", path)
	}

	source, err := b.FS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("graph: reading %s: %w", path, err)
	}

	if b.isAsset(path) {
		return b.finishAsset(g, path, source, visited, progress)
	}

	mod, originalSpecifiers, err := b.transformModule(path, source)
	if err != nil {
		return err
	}
	if mod == nil {
		// A deliberately-skipped kind (.flow, .d.ts): still a leaf module
		// with no dependencies, so the graph stays internally consistent.
		mod = &Module{Path: path, OriginalSource: string(source), Kind: KindModule}
	}

	resolvedDeps := make([]string, 0, len(originalSpecifiers))
	keptSpecifiers := make([]string, 0, len(originalSpecifiers))
	unresolved := make(map[int]string)

	for i, specifier := range originalSpecifiers {
		resolved, rerr := b.Resolver.Resolve(path, specifier, b.Config.Platform, b.Config.Dev)
		if rerr != nil {
			if b.Config.Dev {
				if b.Logger != nil {
					b.Logger.Warning("unresolved specifier %q from %s", specifier, path)
				}
				unresolved[i] = specifier
				continue
			}
			if b.Logger != nil {
				b.Logger.Warning("unresolved specifier %q from %s", specifier, path)
			}
			unresolved[i] = specifier
			continue
		}
		if url, ok := resolve.ExternalURL(resolved); ok {
			b.finishExternal(g, resolved, specifier, url, visited)
		}
		resolvedDeps = append(resolvedDeps, resolved)
		keptSpecifiers = append(keptSpecifiers, specifier)
	}

	mod.Dependencies = resolvedDeps
	mod.OriginalSpecifiers = keptSpecifiers
	mod.Unresolved = unresolved

	g.Modules[path] = mod
	visited[path] = true

	for _, dep := range resolvedDeps {
		if err := b.processModule(g, dep, visited, processing, progress); err != nil {
			return err
		}
	}

	if progress != nil && progress.OnProcessed != nil {
		progress.OnProcessed(path)
	}

	return nil
}

// transformModule reuses a valid cache entry's transformed_code and
// original_specifiers, or invokes the transformer adapter and depscan to
// produce them from scratch, writing a fresh cache entry in that case.
func (b *Builder) transformModule(path string, source []byte) (*Module, []string, error) {
	key := cache.KeyInputs{
		AbsolutePath: path,
		Platform:     b.Config.Platform,
		Dev:          b.Config.Dev,
		ProjectRoot:  b.Config.Root,
		Nonce:        fmt.Sprintf("%d", len(source)),
	}

	if b.Cache != nil {
		if entry, ok := b.Cache.Get(key); ok {
			return &Module{
				Path:            path,
				OriginalSource:  string(source),
				TransformedCode: entry.TransformedCode,
				Kind:            KindModule,
			}, entry.OriginalSpecifiers, nil
		}
	}

	result, err := transform.Transform(path, source, b.Config.Platform, b.Config.Dev)
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, nil
	}

	slots, err := depscan.Extract(source)
	if err != nil {
		return nil, nil, err
	}
	specifiers := depscan.Specifiers(slots)

	if b.Cache != nil {
		_ = b.Cache.Set(key, &cache.Entry{
			TransformedCode:    result.Code,
			OriginalSpecifiers: specifiers,
		})
	}

	kind := KindModule
	if filepath.Ext(path) == ".json" {
		kind = KindJSON
	}

	return &Module{
		Path:            path,
		OriginalSource:  string(source),
		TransformedCode: result.Code,
		RawMappings:     result.RawMappings,
		LineCount:       result.LineCount,
		Kind:            kind,
	}, specifiers, nil
}

// finishExternal registers an externally-resolved dependency as a leaf
// module: no source file is read and nothing is recursed into, since the
// externals subsystem already resolved specifier to a CDN (or other) URL
// instead of a path inside the project.
func (b *Builder) finishExternal(g *Graph, resolvedPath, specifier, url string, visited map[string]bool) {
	if visited[resolvedPath] {
		return
	}
	g.Modules[resolvedPath] = &Module{
		Path:              resolvedPath,
		TransformedCode:   fmt.Sprintf(externalShimTemplate, url),
		Kind:              KindExternal,
		ExternalSpecifier: specifier,
		ExternalURL:       url,
	}
	visited[resolvedPath] = true
}

func (b *Builder) isAsset(path string) bool {
	return b.AssetExts[filepath.Ext(path)]
}

// finishAsset builds the virtual module an image/font/etc. becomes in the
// graph: exactly one dependency, the asset registry module, resolved
// through the normal resolver rules per §4.4.
func (b *Builder) finishAsset(g *Graph, path string, source []byte, visited map[string]bool, progress *Progress) error {
	relPath := path
	if b.Config != nil && b.Config.Root != "" {
		if rel, err := filepath.Rel(b.Config.Root, path); err == nil {
			relPath = filepath.ToSlash(rel)
		}
	}

	descriptor := asset.Describe(relPath, source)

	registryPath, err := b.Resolver.Resolve(path, assetRegistrySpecifier, b.Config.Platform, b.Config.Dev)
	unresolved := make(map[int]string)
	if err != nil {
		if b.Logger != nil {
			b.Logger.Warning("asset registry unresolved from %s: %v", path, err)
		}
		unresolved[0] = assetRegistrySpecifier
	}

	code, err := asset.Synthesize(descriptor, assetRegistrySpecifier)
	if err != nil {
		return fmt.Errorf("graph: synthesizing asset %s: %w", path, err)
	}

	mod := &Module{
		Path:               path,
		OriginalSource:     string(source),
		TransformedCode:    code,
		OriginalSpecifiers: []string{assetRegistrySpecifier},
		Kind:               KindAsset,
		Unresolved:         unresolved,
	}

	if registryPath != "" {
		mod.Dependencies = []string{registryPath}
	}

	g.Modules[path] = mod
	visited[path] = true

	if registryPath != "" {
		if err := b.processModule(g, registryPath, visited, map[string]bool{}, progress); err != nil {
			return err
		}
	}

	if progress != nil && progress.OnProcessed != nil {
		progress.OnProcessed(path)
	}

	return nil
}
