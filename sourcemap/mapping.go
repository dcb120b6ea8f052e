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

// Package sourcemap decodes and composes version-3 source maps: the raw
// per-module mapping lists the transformer adapter produces (§4.2) are
// carried-over by line offset and re-encoded into one indexed map per
// bundle (§4.8).
package sourcemap

import (
	"strings"
)

// Mapping is one entry of a raw mapping list: a 2-, 4-, or 5-tuple
// (gen_line, gen_col [, src_line, src_col [, name]]) per §3's Module data
// model. Source and name indices are absolute, not delta-encoded, to make
// carry-over and composition simple arithmetic.
type Mapping struct {
	GenLine int
	GenCol  int

	HasSource bool
	SrcIndex  int
	SrcLine   int
	SrcCol    int

	HasName bool
	NameIdx int
}

// DecodeMappings parses a standard "mappings" field (relative/delta VLQ,
// ';'-separated lines, ','-separated segments) into absolute-valued
// Mappings in file order.
func DecodeMappings(mappings string) ([]Mapping, error) {
	var out []Mapping

	genLine := 0
	srcIndex, srcLine, srcCol, nameIdx := 0, 0, 0, 0

	for _, lineStr := range strings.Split(mappings, ";") {
		genCol := 0
		segments, err := decodeLine(lineStr)
		if err != nil {
			return nil, err
		}

		for _, fields := range segments {
			if len(fields) == 0 {
				continue
			}
			genCol += fields[0]

			m := Mapping{GenLine: genLine, GenCol: genCol}
			if len(fields) >= 4 {
				srcIndex += fields[1]
				srcLine += fields[2]
				srcCol += fields[3]
				m.HasSource = true
				m.SrcIndex = srcIndex
				m.SrcLine = srcLine
				m.SrcCol = srcCol
			}
			if len(fields) >= 5 {
				nameIdx += fields[4]
				m.HasName = true
				m.NameIdx = nameIdx
			}
			out = append(out, m)
		}

		genLine++
	}

	return out, nil
}

// EncodeMappings re-encodes an absolute-valued, already-sorted Mapping list
// (nondecreasing on (GenLine, GenCol), per the engine's ordering invariant)
// into a standard delta-VLQ "mappings" field.
func EncodeMappings(mappings []Mapping) string {
	var sb strings.Builder

	curLine := 0
	prevGenCol := 0
	prevSrcIndex, prevSrcLine, prevSrcCol, prevNameIdx := 0, 0, 0, 0
	firstOnLine := true

	for _, m := range mappings {
		for curLine < m.GenLine {
			sb.WriteByte(';')
			curLine++
			prevGenCol = 0
			firstOnLine = true
		}
		if !firstOnLine {
			sb.WriteByte(',')
		}
		firstOnLine = false

		encodeVLQ(&sb, m.GenCol-prevGenCol)
		prevGenCol = m.GenCol

		if m.HasSource {
			encodeVLQ(&sb, m.SrcIndex-prevSrcIndex)
			encodeVLQ(&sb, m.SrcLine-prevSrcLine)
			encodeVLQ(&sb, m.SrcCol-prevSrcCol)
			prevSrcIndex, prevSrcLine, prevSrcCol = m.SrcIndex, m.SrcLine, m.SrcCol

			if m.HasName {
				encodeVLQ(&sb, m.NameIdx-prevNameIdx)
				prevNameIdx = m.NameIdx
			}
		}
	}

	return sb.String()
}

// WithLineOffset returns a copy of mappings with every GenLine shifted by
// offset, the carry-over step the compositor applies when a module is
// placed at a given line in the final bundle.
func WithLineOffset(mappings []Mapping, offset int) []Mapping {
	out := make([]Mapping, len(mappings))
	for i, m := range mappings {
		m.GenLine += offset
		out[i] = m
	}
	return out
}

// Terminator appends a trailing mapping at (lastLine, lastColPastEnd) so
// that out-of-bounds lookups return null rather than aliasing the previous
// real mapping, per §3's raw_mappings invariant.
func Terminator(lastLine, lastColPastEnd int) Mapping {
	return Mapping{GenLine: lastLine, GenCol: lastColPastEnd}
}
