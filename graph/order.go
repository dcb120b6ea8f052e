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

import "sort"

// Order produces the canonical post-order depth-first sequence starting at
// the graph's entry: each module's dependencies, in their recorded order,
// are visited before the module itself is emitted. Modules unreachable from
// entry (not expected in normal builds) are appended afterward in sorted
// path order, as a safety net rather than a silently dropped set.
func (g *Graph) Order() []string {
	var order []string
	seen := make(map[string]bool)

	var visit func(path string)
	visit = func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		mod, ok := g.Modules[path]
		if !ok {
			return
		}
		for _, dep := range mod.Dependencies {
			visit(dep)
		}
		order = append(order, path)
	}

	if g.Entry != "" {
		visit(g.Entry)
	}

	var rest []string
	for path := range g.Modules {
		if !seen[path] {
			rest = append(rest, path)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	return order
}

// IDAllocator hands out session-scoped, monotonically increasing integer
// ids to module paths, preserving the first-assigned id for a path across
// calls so that module ids observed by a dev-server client remain stable
// across deltas within the same session.
type IDAllocator struct {
	next int
	ids  map[string]int
}

// NewIDAllocator creates an empty allocator. The first path assigned gets
// id 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{ids: make(map[string]int)}
}

// Assign walks order, giving each previously-unseen path the next unused
// integer, and returns the complete path→id table.
func (a *IDAllocator) Assign(order []string) map[string]int {
	for _, path := range order {
		if _, ok := a.ids[path]; !ok {
			a.ids[path] = a.next
			a.next++
		}
	}
	return a.ids
}

// ID returns the id previously assigned to path, or (0, false) if it has
// never been assigned one.
func (a *IDAllocator) ID(path string) (int, bool) {
	id, ok := a.ids[path]
	return id, ok
}

// Snapshot returns a copy of the current path→id table, e.g. to diff
// against a future table when computing which ids a delta has deleted.
func (a *IDAllocator) Snapshot() map[string]int {
	out := make(map[string]int, len(a.ids))
	for k, v := range a.ids {
		out[k] = v
	}
	return out
}
