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

// Package asset synthesizes the virtual module a binary asset (image,
// font, etc.) becomes in the graph: a single call to the runtime asset
// registry's registerAsset, carrying dimensions decoded from the file's
// own header rather than guessed.
package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Descriptor is the data the registerAsset() call is built from.
type Descriptor struct {
	Name               string
	Type               string
	Width              int
	Height             int
	Scales             []int
	HTTPServerLocation string
}

var scaleSuffix = regexp.MustCompile(`@(\d+(?:\.\d+)?)x$`)

// Decode reads dimensions from a PNG/JPEG/GIF header. On any decode
// failure it degrades to zero dimensions per §4.4 rather than erroring:
// AssetDecodeFailure is a recoverable kind in this engine's error taxonomy.
func Decode(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// Describe builds a Descriptor for the asset at relPath (relative to the
// project root), detecting an "@2x"-style scale suffix on the base name
// and defaulting Scales to [1] when none is present or decoding fails.
func Describe(relPath string, data []byte) Descriptor {
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(filepath.Base(relPath), ext)
	name := base
	scales := []int{1}

	if m := scaleSuffix.FindStringSubmatch(base); m != nil {
		name = strings.TrimSuffix(base, m[0])
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			scales = []int{int(v)}
		}
	}

	width, height, ok := Decode(data)
	if !ok {
		width, height = 0, 0
		scales = []int{1}
	}

	return Descriptor{
		Name:               name,
		Type:               strings.TrimPrefix(ext, "."),
		Width:              width,
		Height:             height,
		Scales:             scales,
		HTTPServerLocation: "/assets/" + filepath.ToSlash(filepath.Dir(relPath)),
	}
}

// Synthesize produces the module body a graph asset node carries: a single
// require() of the registry module (the module's one dependency slot) and
// a registerAsset({...}) call describing the asset.
func Synthesize(d Descriptor, registrySpecifier string) (string, error) {
	payload := map[string]any{
		"__packager_asset": true,
		"name":             d.Name,
		"type":             d.Type,
		"width":            d.Width,
		"height":           d.Height,
		"scales":           d.Scales,
		"httpServerLocation": d.HTTPServerLocation,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"module.exports = require(%q).registerAsset(%s);",
		registrySpecifier, encoded,
	), nil
}
