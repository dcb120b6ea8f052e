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

// Package serve provides the serve (alias start) command for bungae: a
// long-running dev HTTP+WebSocket server with incremental rebuilds driven
// by an fsnotify watch on the project root.
package serve

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bungae.dev/bungae/cache"
	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/internal/cliexit"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/logging"
	"bungae.dev/bungae/resolve"
	"bungae.dev/bungae/server"
)

// Cmd is the serve cobra command (alias "start"): boots the dev server and
// blocks until interrupted.
var Cmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Run the dev server",
	Long: `Run the incremental dev bundler server: resolves, transforms, and
serves bundles on demand, with a /hot WebSocket for live updates as files
change.`,
	Example: `  bungae serve --entry index.js --root .
  bungae start --entry index.js --platform web`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("platform", "", "Default target platform: ios, android, or web")
	Cmd.Flags().Bool("dev", true, "Default to development mode")
	Cmd.Flags().Bool("minify", false, "Default minify setting")
	Cmd.Flags().String("mode", "", "development, production, or release")
	Cmd.Flags().String("entry", "", "Entry point path")
	Cmd.Flags().String("config", "", "Config file path")
	Cmd.Flags().String("root", "", "Project root directory")
	Cmd.Flags().Int("port", 0, "Listen port (default 8081)")
	Cmd.Flags().String("host", "", "Listen host (default 0.0.0.0)")

	_ = viper.BindPFlag("platform", Cmd.Flags().Lookup("platform"))
	_ = viper.BindPFlag("dev", Cmd.Flags().Lookup("dev"))
	_ = viper.BindPFlag("minify", Cmd.Flags().Lookup("minify"))
	_ = viper.BindPFlag("mode", Cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("entry", Cmd.Flags().Lookup("entry"))
	_ = viper.BindPFlag("root", Cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("port", Cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("host", Cmd.Flags().Lookup("host"))
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

	osfs := fs.NewOSFileSystem()
	logger := logging.NewStderrLogger(cfg.Dev)
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
	transformCache := cache.New(absRoot, time.Duration(cfg.MaxCacheAgeSeconds)*time.Second)

	srv := server.New(cfg, osfs, resolver, transformCache, logger)
	srv.ExternalsMap = externalsMap

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warning("file watcher unavailable: %v", err)
	} else {
		if err := watcher.Add(absRoot); err != nil {
			logger.Warning("watching %s: %v", absRoot, err)
		}
		go watchLoop(watcher, srv, logger)
		defer watcher.Close()
	}

	logger.Info("bungae dev server listening on %s:%d", cfg.Host, cfg.Port)
	return srv.ListenAndServe()
}

// watchLoop reacts to every watched file change by invalidating the
// server's cached builds and then rebuilding each previously built tuple,
// pushing the resulting HMR update to connected clients.
func watchLoop(watcher *fsnotify.Watcher, srv *server.Server, logger logging.Logger) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("file change: %s", event.Name)
				srv.Invalidate()
				srv.RebuildAndBroadcast()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warning("watcher error: %v", err)
		}
	}
}
