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
	"testing"
)

func TestExtractStaticImport(t *testing.T) {
	src := []byte(`import Foo from "./Foo";
import "./sideEffect";
export * from "./reexported";
const Bar = require('./Bar');
async function load() { return import('./lazy'); }
`)

	slots, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []struct {
		specifier string
		kind      SlotKind
	}{
		{"./Foo", StaticImport},
		{"./sideEffect", StaticImport},
		{"./reexported", StaticExport},
		{"./Bar", Require},
		{"./lazy", DynamicImport},
	}

	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d: %+v", len(slots), len(want), slots)
	}

	for i, w := range want {
		if slots[i].Specifier != w.specifier {
			t.Errorf("slot %d: specifier = %q, want %q", i, slots[i].Specifier, w.specifier)
		}
		if slots[i].Kind != w.kind {
			t.Errorf("slot %d (%s): kind = %s, want %s", i, w.specifier, slots[i].Kind, w.kind)
		}
	}
}

func TestExtractEmptySpecifierRejected(t *testing.T) {
	src := []byte(`const x = require("");`)

	slots, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots for an empty specifier, want 0: %+v", len(slots), slots)
	}
}

func TestSpecifiersMatchesSlotOrder(t *testing.T) {
	src := []byte(`const a = require("a"); const b = require("b");`)

	slots, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	got := Specifiers(slots)
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Specifiers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Specifiers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
