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
package sourcemap

import (
	"encoding/json"
	"sort"
)

// ModuleMap is one module's contribution to the composite source map: its
// raw mappings (gen_line relative to the module's own first line of
// wrapped code, gen_col absolute within that line), the source path, its
// content, and the line at which this module's code starts in the bundle.
type ModuleMap struct {
	SourcePath   string
	SourceText   string
	StartLine    int // the module's gen_line 0 maps to this bundle line
	RawMappings  []Mapping
	IgnoreListed bool // true for vendored/node_modules code
}

// File is the JSON-serializable version-3 indexed source map.
type File struct {
	Version        int      `json:"version"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
	XGoogleIgnoreList []int `json:"x_google_ignoreList,omitempty"`
}

// Compose builds the single composite source map for a bundle from each
// module's raw mappings, offsetting every module's mapping lines by its
// StartLine (carry-over) and renumbering per-module source/name indices
// into the shared sources/names tables.
func Compose(modules []ModuleMap) *File {
	file := &File{Version: 3}

	for srcIdx, mod := range modules {
		file.Sources = append(file.Sources, mod.SourcePath)
		file.SourcesContent = append(file.SourcesContent, mod.SourceText)
		if mod.IgnoreListed {
			file.XGoogleIgnoreList = append(file.XGoogleIgnoreList, srcIdx)
		}
	}

	// Build the flat, sorted mapping list with renumbered source indices,
	// then encode once so VLQ deltas span the whole file as the format
	// requires.
	var all []Mapping
	for srcIdx, mod := range modules {
		for _, m := range WithLineOffset(mod.RawMappings, mod.StartLine) {
			if m.HasSource {
				m.SrcIndex = srcIdx
			}
			all = append(all, m)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].GenLine != all[j].GenLine {
			return all[i].GenLine < all[j].GenLine
		}
		return all[i].GenCol < all[j].GenCol
	})

	file.Mappings = EncodeMappings(all)
	return file
}

// MarshalJSON serializes the composite map through an alias type, so the
// struct tags apply as written: an empty XGoogleIgnoreList is omitted by
// its omitempty tag.
func (f *File) MarshalJSON() ([]byte, error) {
	type alias File
	return json.Marshal((*alias)(f))
}
