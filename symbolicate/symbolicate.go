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

// Package symbolicate maps a stack frame's bundle (line, column) back to
// its original (source, line, column), translating virtual source roots to
// local filesystem paths and extracting a small code frame around the hit.
package symbolicate

import (
	"os"
	"sort"
	"strings"
	"sync"

	"bungae.dev/bungae/sourcemap"
)

// Frame is one entry of a symbolicated stack, the shape a /symbolicate
// response renders each input frame as.
type Frame struct {
	File       string
	LineNumber int
	Column     int
	MethodName string
	Collapse   bool
}

// OriginalPosition is the result of resolving one Frame against a bundle's
// composite source map.
type OriginalPosition struct {
	Source    string
	Line      int
	Column    int
	Name      string
	CodeFrame string
}

// Consumer answers position lookups against one bundle's composite source
// map. It is built once per bundle and reused across every frame of a
// stack, and across repeated /symbolicate requests for the same session
// until the bundle is rebuilt.
type Consumer struct {
	sources  []string
	mappings []sourcemap.Mapping

	mu         sync.Mutex
	fileCache  map[string][]string // source path -> lines, lazily read
}

// NewConsumer decodes file's "mappings" field once; subsequent lookups are
// a binary search over the decoded, already bundle-order-sorted list.
func NewConsumer(file *sourcemap.File) (*Consumer, error) {
	mappings, err := sourcemap.DecodeMappings(file.Mappings)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		sources:   file.Sources,
		mappings:  mappings,
		fileCache: make(map[string][]string),
	}, nil
}

// OriginalPositionFor returns the original (source, line, column) for a
// bundle (line, column), or ok=false if no mapping covers it. Per §4.10,
// frames whose file is the bundle itself should be passed through
// unchanged by the caller rather than looked up here.
func (c *Consumer) OriginalPositionFor(line, column int) (sourcemap.Mapping, bool) {
	idx := sort.Search(len(c.mappings), func(i int) bool {
		m := c.mappings[i]
		if m.GenLine != line {
			return m.GenLine >= line
		}
		return m.GenCol > column
	})
	idx--
	if idx < 0 || idx >= len(c.mappings) {
		return sourcemap.Mapping{}, false
	}
	m := c.mappings[idx]
	if m.GenLine != line || !m.HasSource {
		return sourcemap.Mapping{}, false
	}
	return m, true
}

// SourceAt returns the original source path recorded for a mapping's
// SrcIndex, or "" if out of range.
func (c *Consumer) SourceAt(srcIndex int) string {
	if srcIndex < 0 || srcIndex >= len(c.sources) {
		return ""
	}
	return c.sources[srcIndex]
}

// RootTranslator rewrites a virtual source root (e.g. "<project>/" or
// "<watch-folder>/N/") into an absolute local filesystem path.
type RootTranslator func(sourcePath string) string

// ProjectRootTranslator builds the common case: a single "<project>/"
// prefix rewritten to an absolute project root.
func ProjectRootTranslator(virtualPrefix, absoluteRoot string) RootTranslator {
	return func(sourcePath string) string {
		if strings.HasPrefix(sourcePath, virtualPrefix) {
			return strings.TrimSuffix(absoluteRoot, "/") + "/" + strings.TrimPrefix(sourcePath, virtualPrefix)
		}
		return sourcePath
	}
}

// Symbolicate resolves one frame against consumer, translating the
// resulting source path with translate and reading a ±2-line code frame
// from the local filesystem. bundleURL frames (the frame's File equal to
// the bundle's own URL) are passed through unchanged, per §4.10.
func Symbolicate(consumer *Consumer, frame Frame, bundleURL string, translate RootTranslator) OriginalPosition {
	if frame.File == bundleURL {
		return OriginalPosition{Source: frame.File, Line: frame.LineNumber, Column: frame.Column}
	}

	m, ok := consumer.OriginalPositionFor(frame.LineNumber, frame.Column)
	if !ok {
		return OriginalPosition{Source: frame.File, Line: frame.LineNumber, Column: frame.Column}
	}

	source := consumer.SourceAt(m.SrcIndex)
	if translate != nil {
		source = translate(source)
	}

	pos := OriginalPosition{Source: source, Line: m.SrcLine, Column: m.SrcCol}
	pos.CodeFrame = codeFrame(consumer, source, m.SrcLine+1)
	return pos
}

// codeFrame slices ±2 lines around target (1-indexed) from source's local
// file, or "" if the file cannot be read.
func codeFrame(c *Consumer, source string, targetLine int) string {
	c.mu.Lock()
	lines, cached := c.fileCache[source]
	c.mu.Unlock()

	if !cached {
		data, err := os.ReadFile(source)
		if err != nil {
			c.mu.Lock()
			c.fileCache[source] = nil
			c.mu.Unlock()
			return ""
		}
		lines = strings.Split(string(data), "\n")
		c.mu.Lock()
		c.fileCache[source] = lines
		c.mu.Unlock()
	}
	if lines == nil {
		return ""
	}

	start := targetLine - 2
	if start < 1 {
		start = 1
	}
	end := targetLine + 2
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for i := start; i <= end; i++ {
		if i-1 < 0 || i-1 >= len(lines) {
			continue
		}
		marker := "  "
		if i == targetLine {
			marker = "> "
		}
		sb.WriteString(marker)
		sb.WriteString(lines[i-1])
		sb.WriteString("\n")
	}
	return sb.String()
}
