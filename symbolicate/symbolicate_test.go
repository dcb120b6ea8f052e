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
package symbolicate

import (
	"os"
	"path/filepath"
	"testing"

	"bungae.dev/bungae/sourcemap"
)

func TestOriginalPositionForExactMatch(t *testing.T) {
	file := sourcemap.Compose([]sourcemap.ModuleMap{
		{
			SourcePath: "Foo.js",
			SourceText: "const x = 1;\nconsole.log(x);\n",
			StartLine:  5,
			RawMappings: []sourcemap.Mapping{
				{GenLine: 0, GenCol: 0, HasSource: true, SrcLine: 0, SrcCol: 0},
				{GenLine: 1, GenCol: 0, HasSource: true, SrcLine: 1, SrcCol: 0},
			},
		},
	})

	consumer, err := NewConsumer(file)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}

	m, ok := consumer.OriginalPositionFor(6, 0)
	if !ok {
		t.Fatal("expected a mapping at bundle line 6")
	}
	if m.SrcLine != 1 || consumer.SourceAt(m.SrcIndex) != "Foo.js" {
		t.Errorf("got SrcLine=%d source=%s, want SrcLine=1 source=Foo.js", m.SrcLine, consumer.SourceAt(m.SrcIndex))
	}
}

func TestSymbolicatePassesThroughBundleURL(t *testing.T) {
	pos := Symbolicate(nil, Frame{File: "http://localhost:8081/index.bundle", LineNumber: 3, Column: 1}, "http://localhost:8081/index.bundle", nil)
	if pos.Source != "http://localhost:8081/index.bundle" || pos.Line != 3 {
		t.Errorf("expected pass-through for bundle-url frame, got %+v", pos)
	}
}

func TestProjectRootTranslator(t *testing.T) {
	translate := ProjectRootTranslator("<project>/", "/home/dev/app")
	got := translate("<project>/src/Foo.js")
	if got != "/home/dev/app/src/Foo.js" {
		t.Errorf("translate() = %q, want /home/dev/app/src/Foo.js", got)
	}
}

func TestCodeFrameReadsSurroundingLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Foo.js")
	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &Consumer{fileCache: make(map[string][]string)}
	frame := codeFrame(c, path, 3)
	if frame == "" {
		t.Fatal("expected a non-empty code frame")
	}
	if !contains(frame, "line1") || !contains(frame, "line5") {
		t.Errorf("expected ±2 lines around line 3, got: %s", frame)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
