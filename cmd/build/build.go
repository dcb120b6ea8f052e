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

// Package build provides the build command for bungae: a one-shot graph
// walk, DFS ordering, and serialization to a bundle file plus its source
// map on disk.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bungae.dev/bungae/cache"
	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/graph"
	"bungae.dev/bungae/internal/bungerr"
	"bungae.dev/bungae/internal/cliexit"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/logging"
	"bungae.dev/bungae/resolve"
	"bungae.dev/bungae/serialize"
	"bungae.dev/bungae/sourcemap"
)

// Cmd is the build cobra command: one full graph walk and serialization.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle an entry point for a single platform",
	Long: `Resolve, transform, and serialize the dependency graph reachable from
an entry point into a single bundle file, for a given platform and mode.`,
	Example: `  bungae build --entry index.js --platform ios --dev --outDir dist
  bungae build --entry index.js --platform android --mode release --outDir dist`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("platform", "", "Target platform: ios, android, or web")
	Cmd.Flags().Bool("dev", false, "Build in development mode")
	Cmd.Flags().Bool("minify", false, "Minify output")
	Cmd.Flags().String("mode", "", "development, production, or release (release = production+minify)")
	Cmd.Flags().String("entry", "", "Entry point path")
	Cmd.Flags().String("outDir", "", "Output directory")
	Cmd.Flags().String("config", "", "Config file path")
	Cmd.Flags().String("root", "", "Project root directory")

	_ = viper.BindPFlag("platform", Cmd.Flags().Lookup("platform"))
	_ = viper.BindPFlag("dev", Cmd.Flags().Lookup("dev"))
	_ = viper.BindPFlag("minify", Cmd.Flags().Lookup("minify"))
	_ = viper.BindPFlag("mode", Cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("entry", Cmd.Flags().Lookup("entry"))
	_ = viper.BindPFlag("outDir", Cmd.Flags().Lookup("outDir"))
	_ = viper.BindPFlag("root", Cmd.Flags().Lookup("root"))
}

func run(cmd *cobra.Command, args []string) error {
	root := viper.GetString("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return cliexit.NewUsage(fmt.Errorf("invalid root directory: %w", err))
	}

	cfg, err := config.Load(viper.GetViper(), absRoot, viper.GetString("config"))
	if err != nil {
		return err
	}
	if cfg.Entry == "" {
		return cliexit.NewUsage(fmt.Errorf("--entry is required"))
	}
	if cfg.OutDir == "" {
		return cliexit.NewUsage(fmt.Errorf("--outDir is required"))
	}

	entryPath := cfg.Entry
	if !filepath.IsAbs(entryPath) {
		entryPath = filepath.Join(absRoot, entryPath)
	}

	osfs := fs.NewOSFileSystem()
	logger := logging.NewStderrLogger(cfg.Dev)

	assetExts := make(map[string]bool, len(cfg.AssetExtensions))
	for _, ext := range cfg.AssetExtensions {
		assetExts[ext] = true
	}

	resolver := resolve.New(osfs, absRoot, cfg.AssetExtensions, cfg.PreferNativePlatform)
	var externalsMap *importmap.ImportMap
	if len(cfg.Externals) > 0 {
		externalsMap, err = resolve.ResolveExternalsImportMap(context.Background(), osfs, absRoot, cfg.Dev)
		if err != nil {
			logger.Warning("externals: %v; falling back to bundling matched specifiers", err)
		} else {
			resolver = resolver.WithExternals(cfg.Externals, externalsMap)
		}
	}

	builder := &graph.Builder{
		FS:        osfs,
		Resolver:  resolver,
		Cache:     cache.New(absRoot, time.Duration(cfg.MaxCacheAgeSeconds)*time.Second),
		Logger:    logger,
		Config:    cfg,
		AssetExts: assetExts,
	}

	g, err := builder.Build(entryPath, nil)
	if err != nil {
		return bungerr.New(bungerr.EntryMissing, entryPath, err)
	}

	alloc := graph.NewIDAllocator()
	bundle, err := serialize.Assemble(g, cfg, alloc, serialize.Options{RunModule: true})
	if err != nil {
		return fmt.Errorf("serializing bundle: %w", err)
	}

	if err := osfs.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	bundlePath := filepath.Join(cfg.OutDir, cfg.BundleFilename())
	if err := osfs.WriteFile(bundlePath, []byte(bundle.Code), 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	if err := writeSourceMap(osfs, g, bundlePath); err != nil {
		logger.Warning("source map generation failed: %v", err)
	}

	if cfg.Platform == config.PlatformWeb && externalsMap != nil {
		if err := writeImportMap(osfs, cfg.OutDir, externalsMap); err != nil {
			logger.Warning("import map generation failed: %v", err)
		}
	}

	logger.Info("wrote %s (%d modules)", bundlePath, len(g.Modules))
	return nil
}

// writeImportMap writes the companion <script type="importmap"> payload for
// a web build's externalized dependencies, so native ESM code on the same
// page resolves the same bare specifiers the bundle dynamic-imports.
func writeImportMap(osfs *fs.OSFileSystem, outDir string, im *importmap.ImportMap) error {
	data, err := json.MarshalIndent(im, "", "  ")
	if err != nil {
		return err
	}
	return osfs.WriteFile(filepath.Join(outDir, "importmap.json"), data, 0o644)
}

// writeSourceMap composes and writes the bundle's source map. A module map
// with no raw mappings contributes an empty mapping segment rather than
// aborting the whole map, matching the compositor's tolerant design.
func writeSourceMap(osfs *fs.OSFileSystem, g *graph.Graph, bundlePath string) error {
	order := g.Order()
	var mods []sourcemap.ModuleMap
	line := 0
	for _, path := range order {
		mod := g.Modules[path]
		mods = append(mods, sourcemap.ModuleMap{
			SourcePath:  path,
			SourceText:  mod.OriginalSource,
			StartLine:   line,
			RawMappings: mod.RawMappings,
		})
		line += mod.LineCount + 1
	}

	file := sourcemap.Compose(mods)
	data, err := file.MarshalJSON()
	if err != nil {
		return err
	}
	return osfs.WriteFile(bundlePath+".map", data, 0o644)
}
