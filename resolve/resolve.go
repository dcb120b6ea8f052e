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

// Package resolve maps a (from_path, specifier) pair to an absolute file
// path, honoring platform-specific extension variants and package lookup
// rules. It never throws for simple absence: a failed lookup returns an
// internal/bungerr Error of kind Unresolved so the graph builder can warn
// and drop the dependency slot in dev, per the engine's error taxonomy.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/internal/bungerr"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/packagejson"
)

// externalPathPrefix marks a Resolve result as an externally-hosted URL
// rather than a file the graph builder should read and recurse into.
// graph.Builder strips it via ExternalURL before building the leaf module.
const externalPathPrefix = "external-url:"

// ExternalURL reports whether a path Resolve returned names an external
// module, and if so the URL the externals subsystem resolved it to.
func ExternalURL(resolved string) (string, bool) {
	if rest, ok := strings.CutPrefix(resolved, externalPathPrefix); ok {
		return rest, true
	}
	return "", false
}

// sourceExtensions is the set of extensions a bare module path is probed
// with, in priority order before platform/native variants are applied.
var sourceExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// DevClientHook lets the resolver promote a well-known platform file to
// the bundler's own development-client module when dev is true, e.g.
// "react-native/Libraries/Core/InitializeCore.js" in Metro. It is a
// resolver-level hook rather than a graph builder concern: the replacement
// module must still be resolved and transformed like any other.
type DevClientHook func(resolvedPath string, platform config.Platform, dev bool) (string, bool)

// Resolver resolves specifiers against a project root plus any extra
// package-root paths (monorepo workspace packages, additional search
// roots), honoring the platform's extension variants.
type Resolver struct {
	fs                   fs.FileSystem
	projectRoot          string
	extraPackageRoots    []string
	assetExtensions      []string
	preferNativePlatform bool
	devClientHook        DevClientHook
	pkgCache             packagejson.Cache

	// externalPatterns and externalMap back WithExternals: bare specifiers
	// matching a pattern are resolved against the import map instead of
	// being read off disk and recursed into.
	externalPatterns []string
	externalMap      *importmap.ImportMap
}

// New creates a Resolver rooted at projectRoot.
func New(fsys fs.FileSystem, projectRoot string, assetExtensions []string, preferNativePlatform bool) *Resolver {
	return &Resolver{
		fs:                   fsys,
		projectRoot:          projectRoot,
		assetExtensions:      assetExtensions,
		preferNativePlatform: preferNativePlatform,
		pkgCache:             packagejson.NewMemoryCache(),
	}
}

// WithExtraPackageRoots returns a copy of the Resolver that also searches
// the given additional package-root directories for bare specifiers.
func (r *Resolver) WithExtraPackageRoots(roots ...string) *Resolver {
	n := *r
	n.extraPackageRoots = append(append([]string{}, r.extraPackageRoots...), roots...)
	return &n
}

// WithDevClientHook returns a copy of the Resolver that passes every
// resolved path to hook and, when hook reports true, resolves and returns
// the replacement path hook gave instead.
func (r *Resolver) WithDevClientHook(hook DevClientHook) *Resolver {
	n := *r
	n.devClientHook = hook
	return &n
}

// WithExternals returns a copy of the Resolver that resolves bare
// specifiers matching any of patterns (exact names, or a "scope/*"-style
// trailing wildcard) to a URL looked up in externalMap instead of bundling
// them. externalMap is normally built by ResolveExternalsImportMap.
func (r *Resolver) WithExternals(patterns []string, externalMap *importmap.ImportMap) *Resolver {
	n := *r
	n.externalPatterns = append([]string{}, patterns...)
	n.externalMap = externalMap
	return &n
}

// Resolve maps (fromPath, specifier) to an absolute file path, or to an
// external-url: pseudo-path (see ExternalURL) when the specifier matches a
// WithExternals pattern and the import map has a URL for it.
func (r *Resolver) Resolve(fromPath, specifier string, platform config.Platform, dev bool) (string, error) {
	var resolved string
	var err error

	if !isRelative(specifier) {
		if url, ok := r.resolveExternal(specifier); ok {
			return externalPathPrefix + url, nil
		}
	}

	if isRelative(specifier) {
		base := filepath.Join(filepath.Dir(fromPath), specifier)
		resolved, err = r.resolveFile(base, platform, dev)
	} else {
		resolved, err = r.resolvePackage(fromPath, specifier, platform, dev)
	}
	if err != nil {
		return "", err
	}

	if r.devClientHook != nil {
		if replacement, ok := r.devClientHook(resolved, platform, dev); ok {
			return r.resolveFile(replacement, platform, dev)
		}
	}

	return resolved, nil
}

func isRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".."
}

// resolveFile applies the extension priority list to a base path that may
// already be relative+absolute-joined but lacks an extension: (1)
// platform-specific, (2) native (if enabled and platform != web), (3) plain,
// then the bare path itself, then asset extensions, then index files under
// the same priority list.
func (r *Resolver) resolveFile(base string, platform config.Platform, dev bool) (string, error) {
	for _, ext := range r.extensionPriority(platform) {
		candidate := base + ext
		if r.fs.Exists(candidate) {
			return candidate, nil
		}
	}

	if r.fs.Exists(base) {
		if stat, err := r.fs.Stat(base); err == nil && !stat.IsDir() {
			return base, nil
		}
	}

	for _, ext := range r.assetExtensions {
		candidate := base + ext
		if r.fs.Exists(candidate) {
			return candidate, nil
		}
	}

	indexBase := filepath.Join(base, "index")
	for _, ext := range r.extensionPriority(platform) {
		candidate := indexBase + ext
		if r.fs.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", bungerr.New(bungerr.Unresolved, base, nil)
}

// extensionPriority builds the ordered extension list for a platform:
// platform-specific variants (omitted for web), then native variants (if
// enabled and not web), then plain extensions.
func (r *Resolver) extensionPriority(platform config.Platform) []string {
	var list []string

	if platform != config.PlatformWeb {
		for _, ext := range sourceExtensions {
			list = append(list, "."+string(platform)+ext)
		}
		if r.preferNativePlatform {
			for _, ext := range sourceExtensions {
				list = append(list, ".native"+ext)
			}
		}
	}

	list = append(list, sourceExtensions...)
	return list
}

// resolvePackage resolves a bare specifier by searching the caller's
// directory upward, then the project root, then every extra package root.
// A package's entry point follows standard manifest resolution (exports
// map first, falling back to "module"/"main"/index.js).
func (r *Resolver) resolvePackage(fromPath, specifier string, platform config.Platform, dev bool) (string, error) {
	name, subpath := splitSpecifier(specifier)

	searchDirs := append(upwardNodeModules(filepath.Dir(fromPath), r.projectRoot), r.projectRoot)
	searchDirs = append(searchDirs, r.extraPackageRoots...)

	for _, dir := range searchDirs {
		pkgDir := filepath.Join(dir, "node_modules", name)
		pkgJSONPath := filepath.Join(pkgDir, "package.json")
		if !r.fs.Exists(pkgJSONPath) {
			continue
		}

		pkg, err := r.pkgCache.GetOrLoad(pkgJSONPath, func() (*packagejson.PackageJSON, error) {
			return packagejson.ParseFile(r.fs, pkgJSONPath)
		})
		if err != nil {
			continue
		}

		entry, resolveErr := pkg.ResolveExport(subpath, nil)
		if resolveErr != nil {
			entry = fallbackMain(pkg, subpath)
		}
		if entry == "" {
			continue
		}

		candidate := filepath.Join(pkgDir, entry)
		resolved, fileErr := r.resolveFile(trimExt(candidate), platform, dev)
		if fileErr == nil {
			return resolved, nil
		}
		// The entry itself may already carry an extension.
		if r.fs.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", bungerr.New(bungerr.Unresolved, specifier, nil)
}

func fallbackMain(pkg *packagejson.PackageJSON, subpath string) string {
	if subpath != "." {
		return strings.TrimPrefix(subpath, "./")
	}
	if pkg.Module != "" {
		return pkg.Module
	}
	if pkg.Main != "" {
		return pkg.Main
	}
	return "index.js"
}

// trimExt strips a trailing known source extension so resolveFile's own
// extension priority list can re-probe platform variants against the base
// name (covers "Foo.js" being promoted to "Foo.ios.js").
func trimExt(path string) string {
	ext := filepath.Ext(path)
	for _, known := range sourceExtensions {
		if ext == known {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

func upwardNodeModules(from, root string) []string {
	var dirs []string
	dir := from
	for {
		dirs = append(dirs, dir)
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// resolveExternal reports whether specifier matches one of the resolver's
// WithExternals patterns (plain names or doublestar globs like "@lit/**")
// and, if so, looks its URL up in the import map by the full specifier
// first (so package subpaths resolve independently) and falls back to the
// package name alone.
func (r *Resolver) resolveExternal(specifier string) (string, bool) {
	if r.externalMap == nil || len(r.externalPatterns) == 0 {
		return "", false
	}
	name, _ := splitSpecifier(specifier)
	matched := false
	for _, pattern := range r.externalPatterns {
		if pattern == name || pattern == specifier {
			matched = true
			break
		}
		if ok, _ := doublestar.Match(pattern, specifier); ok {
			matched = true
			break
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	if url, ok := r.externalMap.Imports[specifier]; ok {
		return url, true
	}
	if url, ok := r.externalMap.Imports[name]; ok {
		return url, true
	}
	return "", false
}

func splitSpecifier(specifier string) (name, subpath string) {
	parts := strings.SplitN(specifier, "/", 2)
	name = parts[0]
	if strings.HasPrefix(specifier, "@") && len(parts) > 1 {
		scopedParts := strings.SplitN(parts[1], "/", 2)
		name = parts[0] + "/" + scopedParts[0]
		if len(scopedParts) > 1 {
			return name, "./" + scopedParts[1]
		}
		return name, "."
	}
	if len(parts) > 1 {
		return name, "./" + parts[1]
	}
	return name, "."
}
