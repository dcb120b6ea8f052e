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

// Package transform is the transformer adapter: given a module's path and
// source text, it lowers TS/JSX to CommonJS-shaped JS (import/export
// rewritten to require()/exports) and returns the transformed code plus
// its raw mapping list. esbuild is the concrete front end, grounded on the
// same evanw/esbuild api.Transform call bennypowers-cem's serve middleware
// uses for its on-the-fly TS transform.
package transform

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bungae.dev/bungae/internal/bungerr"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/sourcemap"
)

// Result is one module's transform output: the §4.2 contract's
// (transformed_code, raw_mappings, line_count) triple. A nil *Result with
// a nil error means the file kind was deliberately skipped (e.g. .flow).
type Result struct {
	Code        string
	RawMappings []sourcemap.Mapping
	LineCount   int
}

var skippedExtensions = map[string]bool{
	".flow": true,
	".d.ts": true,
}

// Transform lowers source to CommonJS-shaped JS for the given platform/dev
// combination. JSON inputs produce a synthetic "module.exports = <literal>"
// with no dependencies and no mappings, per §4.2.
func Transform(path string, source []byte, platform config.Platform, dev bool) (*Result, error) {
	base := filepath.Base(path)
	for ext := range skippedExtensions {
		if strings.HasSuffix(base, ext) {
			return nil, nil
		}
	}

	if filepath.Ext(path) == ".json" {
		return transformJSON(source)
	}

	loader, ok := loaderFor(path)
	if !ok {
		return nil, nil
	}

	result := api.Transform(string(source), api.TransformOptions{
		Loader:     loader,
		Target:     api.ES2019,
		Format:     api.FormatCommonJS,
		Sourcemap:  api.SourceMapExternal,
		Sourcefile: path,
		TsconfigRaw: `{"compilerOptions":{"importHelpers":false}}`,
		Define: map[string]string{
			"__DEV__": fmt.Sprintf("%v", dev),
		},
	})

	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Text
		}
		return nil, bungerr.New(bungerr.TransformFailure, path, fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}

	mappings, err := decodeMap(result.Map)
	if err != nil {
		return nil, bungerr.New(bungerr.MapGenerationFailure, path, err)
	}

	code := string(result.Code)
	lineCount := strings.Count(code, "\n") + 1
	mappings = append(mappings, sourcemap.Terminator(lineCount-1, lastLineLength(code)))

	return &Result{Code: code, RawMappings: mappings, LineCount: lineCount}, nil
}

func loaderFor(path string) (api.Loader, bool) {
	switch filepath.Ext(path) {
	case ".ts":
		return api.LoaderTS, true
	case ".tsx":
		return api.LoaderTSX, true
	case ".jsx":
		return api.LoaderJSX, true
	case ".js", ".mjs", ".cjs":
		return api.LoaderJS, true
	default:
		return api.LoaderJS, false
	}
}

func transformJSON(source []byte) (*Result, error) {
	var v any
	if err := json.Unmarshal(source, &v); err != nil {
		return nil, bungerr.New(bungerr.TransformFailure, "<json>", err)
	}
	code := "module.exports = " + string(source) + ";"
	lineCount := strings.Count(code, "\n") + 1
	mappings := []sourcemap.Mapping{sourcemap.Terminator(lineCount-1, lastLineLength(code))}
	return &Result{Code: code, RawMappings: mappings, LineCount: lineCount}, nil
}

func decodeMap(mapJSON []byte) ([]sourcemap.Mapping, error) {
	if len(mapJSON) == 0 {
		return nil, nil
	}
	var doc struct {
		Mappings string `json:"mappings"`
	}
	if err := json.Unmarshal(mapJSON, &doc); err != nil {
		return nil, err
	}
	return sourcemap.DecodeMappings(doc.Mappings)
}

func lastLineLength(code string) int {
	idx := strings.LastIndexByte(code, '\n')
	if idx < 0 {
		return len(code)
	}
	return len(code) - idx - 1
}
