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
package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildFixtureGraph() *Graph {
	g := New("/a.js")
	g.Modules["/a.js"] = &Module{Path: "/a.js", Dependencies: []string{"/b.js", "/c.js"}}
	g.Modules["/b.js"] = &Module{Path: "/b.js", Dependencies: []string{"/c.js"}}
	g.Modules["/c.js"] = &Module{Path: "/c.js"}
	return g
}

func TestOrderIsPostOrderDFS(t *testing.T) {
	g := buildFixtureGraph()
	order := g.Order()
	want := []string{"/c.js", "/b.js", "/a.js"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Order() mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderAppendsUnreachableModules(t *testing.T) {
	g := buildFixtureGraph()
	g.Modules["/orphan.js"] = &Module{Path: "/orphan.js"}
	order := g.Order()
	if order[len(order)-1] != "/orphan.js" {
		t.Errorf("expected unreachable module appended last, got %v", order)
	}
}

func TestIDAllocatorIsStableAcrossCalls(t *testing.T) {
	g := buildFixtureGraph()
	alloc := NewIDAllocator()
	first := alloc.Assign(g.Order())

	cID, _ := alloc.ID("/c.js")
	bID, _ := alloc.ID("/b.js")
	aID, _ := alloc.ID("/a.js")
	if !(cID < bID && bID < aID) {
		t.Errorf("expected ids assigned in post-order, got c=%d b=%d a=%d", cID, bID, aID)
	}

	g.Modules["/d.js"] = &Module{Path: "/d.js"}
	g.Modules["/a.js"].Dependencies = append(g.Modules["/a.js"].Dependencies, "/d.js")
	second := alloc.Assign(g.Order())

	for path, id := range first {
		if second[path] != id {
			t.Errorf("id for %s changed across allocations: %d -> %d", path, id, second[path])
		}
	}
	if _, ok := alloc.ID("/d.js"); !ok {
		t.Error("expected /d.js to receive an id on the second assignment")
	}
}
