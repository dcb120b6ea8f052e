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

// Package config binds CLI flags and an optional bungae.config.json/.yaml
// file into a typed Config, the capability-set contract the resolver,
// transformer, and server are built from. viper's multi-format file
// resolution stands in for dynamic plugin discovery: a project names its
// platform, entry, externals, and asset extensions declaratively rather
// than the engine probing for them.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"bungae.dev/bungae/internal/bungerr"
)

// Platform is one of the three bundle targets this engine knows how to
// serialize a runtime contract for.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	default:
		return false
	}
}

// Mode controls the dev/minify pair. Release is equivalent to
// production+minify per spec.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeRelease     Mode = "release"
)

// Config is the fully-resolved set of settings a build or serve session
// runs with.
type Config struct {
	Platform Platform
	Dev      bool
	Minify   bool
	Entry    string
	OutDir   string
	Root     string

	// Externals lists bare specifier patterns (e.g. "lit", "@lit/*") the
	// resolver hands to the externals subsystem instead of bundling.
	Externals []string

	// AssetExtensions are probed after source extensions fail to resolve.
	AssetExtensions []string

	// PreferNativePlatform enables the .native.<ext> extension variant for
	// non-web platforms, per the resolver's extension priority list.
	PreferNativePlatform bool

	// MaxCacheAgeSeconds bounds how long a transform-cache entry is trusted,
	// in seconds. Zero uses the default of seven days.
	MaxCacheAgeSeconds int64

	// Port and Host configure the dev server listener.
	Port int
	Host string
}

// Default asset extensions a bundler probes when a plain source extension
// list comes up empty, matching common mobile/web asset types.
var defaultAssetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp",
	".ttf", ".otf", ".woff", ".woff2",
	".json",
}

// Load resolves flags (already bound into v) and an optional config file
// into a Config. rootDir is the project root; if cfgFile is empty, viper
// searches rootDir for bungae.config.{json,yaml,yml,toml}.
func Load(v *viper.Viper, rootDir, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bungae.config")
		v.AddConfigPath(rootDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, bungerr.New(bungerr.ConfigInvalid, cfgFile, err)
		}
	}

	platform := Platform(v.GetString("platform"))
	if platform == "" {
		platform = PlatformIOS
	}
	if !platform.Valid() {
		return nil, bungerr.New(bungerr.ConfigInvalid, "platform", fmt.Errorf("unknown platform %q", platform))
	}

	mode := Mode(v.GetString("mode"))
	dev := v.GetBool("dev")
	minify := v.GetBool("minify")
	switch mode {
	case ModeRelease:
		dev, minify = false, true
	case ModeProduction:
		dev = false
	case ModeDevelopment:
		dev = true
	case "":
		// dev/minify flags stand as given
	default:
		return nil, bungerr.New(bungerr.ConfigInvalid, "mode", fmt.Errorf("unknown mode %q", mode))
	}

	root := rootDir
	if r := v.GetString("root"); r != "" {
		root = r
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, bungerr.New(bungerr.ConfigInvalid, "root", err)
	}

	assetExt := v.GetStringSlice("assetExtensions")
	if len(assetExt) == 0 {
		assetExt = defaultAssetExtensions
	}

	maxAge := v.GetInt64("maxCacheAgeSeconds")
	if maxAge == 0 {
		maxAge = 7 * 24 * 3600
	}

	port := v.GetInt("port")
	if port == 0 {
		port = 8081
	}
	host := v.GetString("host")
	if host == "" {
		host = "0.0.0.0"
	}

	return &Config{
		Platform:             platform,
		Dev:                  dev,
		Minify:               minify,
		Entry:                v.GetString("entry"),
		OutDir:               v.GetString("outDir"),
		Root:                 absRoot,
		Externals:            v.GetStringSlice("externals"),
		AssetExtensions:      assetExt,
		PreferNativePlatform: v.GetBool("preferNativePlatform"),
		MaxCacheAgeSeconds:   maxAge,
		Port:                 port,
		Host:                 host,
	}, nil
}

// BundleFilename computes the output bundle file name per §6's table:
// it depends on platform, dev/release, and the entry's base name.
func (c *Config) BundleFilename() string {
	base := filepath.Base(c.Entry)
	base = base[:len(base)-len(filepath.Ext(base))]

	switch c.Platform {
	case PlatformIOS:
		if c.Dev {
			return base + ".jsbundle"
		}
		return "main.jsbundle"
	case PlatformAndroid:
		return base + ".android.bundle"
	case PlatformWeb:
		return base + ".bundle.js"
	default:
		return base + ".bundle"
	}
}
