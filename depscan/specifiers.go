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
package depscan

import (
	"fmt"
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// SlotKind classifies the dependency slot a specifier was found in.
type SlotKind int

const (
	StaticImport SlotKind = iota
	StaticExport
	DynamicImport
	Require
)

func (k SlotKind) String() string {
	switch k {
	case StaticImport:
		return "import"
	case StaticExport:
		return "export"
	case DynamicImport:
		return "dynamic-import"
	case Require:
		return "require"
	default:
		return "unknown"
	}
}

// Slot is one dependency slot: a single require/import/export-from/dynamic
// import() occurrence, in the order it appears in the source.
type Slot struct {
	Specifier string
	Kind      SlotKind
	Line      int // 1-indexed
	StartByte uint
}

// Extract returns the ordered dependency slots for a module's source text.
// Empty-string specifiers are rejected: they never resolve to anything and
// the module author could not have meant a relative or bare path.
func Extract(content []byte) ([]Slot, error) {
	query, err := getSpecifierQuery()
	if err != nil {
		return nil, err
	}

	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("depscan: failed to parse content")
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	var slots []Slot

	matches := cursor.Matches(query, tree.RootNode(), content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for _, capture := range match.Captures {
			name := captureNames[capture.Index]

			var kind SlotKind
			switch name {
			case "import.spec":
				kind = StaticImport
			case "reexport.spec":
				kind = StaticExport
			case "dynamicImport.spec":
				kind = DynamicImport
			case "require.spec":
				kind = Require
			default:
				// require.fn and other non-specifier captures carry no slot.
				continue
			}

			text := capture.Node.Utf8Text(content)
			if text == "" {
				continue
			}

			slots = append(slots, Slot{
				Specifier: text,
				Kind:      kind,
				Line:      int(capture.Node.StartPosition().Row) + 1,
				StartByte: uint(capture.Node.StartByte()),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartByte < slots[j].StartByte
	})

	return slots, nil
}

// Specifiers returns just the textual specifiers, in slot order, matching
// the module's original_specifiers field.
func Specifiers(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Specifier
	}
	return out
}
