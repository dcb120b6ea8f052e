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
package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bungae.dev/bungae/internal/config"
)

func TestSetThenGet(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "Foo.js")
	if err := os.WriteFile(srcPath, []byte("module.exports = {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(root, time.Hour)
	key := KeyInputs{AbsolutePath: srcPath, Platform: config.PlatformIOS, ProjectRoot: root, Nonce: "v1"}

	if _, ok := c.Get(key); ok {
		t.Fatal("expected a miss before Set")
	}

	want := &Entry{TransformedCode: "__d(function(){})", OriginalSpecifiers: []string{"./Bar"}}
	if err := c.Set(key, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a hit after Set")
	}
	if got.TransformedCode != want.TransformedCode {
		t.Errorf("TransformedCode = %q, want %q", got.TransformedCode, want.TransformedCode)
	}
	if len(got.OriginalSpecifiers) != 1 || got.OriginalSpecifiers[0] != "./Bar" {
		t.Errorf("OriginalSpecifiers = %v, want [./Bar]", got.OriginalSpecifiers)
	}
}

func TestGetMissAfterSourceEdit(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "Foo.js")
	if err := os.WriteFile(srcPath, []byte("module.exports = {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(root, time.Hour)
	key := KeyInputs{AbsolutePath: srcPath, Platform: config.PlatformIOS, ProjectRoot: root, Nonce: "v1"}
	if err := c.Set(key, &Entry{TransformedCode: "stale"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(srcPath, future, future); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(key); ok {
		t.Fatal("expected a miss once the source file is newer than the cache entry")
	}
}

func TestGetMissAfterMaxAge(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "Foo.js")
	if err := os.WriteFile(srcPath, []byte("module.exports = {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(root, time.Millisecond)
	key := KeyInputs{AbsolutePath: srcPath, Platform: config.PlatformIOS, ProjectRoot: root, Nonce: "v1"}
	if err := c.Set(key, &Entry{TransformedCode: "x"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected a miss once the entry is older than max age")
	}
}

func TestClearRemovesCacheDir(t *testing.T) {
	root := t.TempDir()
	srcPath := filepath.Join(root, "Foo.js")
	os.WriteFile(srcPath, []byte("x"), 0o644)

	c := New(root, time.Hour)
	key := KeyInputs{AbsolutePath: srcPath, ProjectRoot: root}
	c.Set(key, &Entry{TransformedCode: "x"})

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("expected a miss after Clear")
	}
}
