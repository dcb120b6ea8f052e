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

// Package delta recomputes the minimal set of changed modules after a file
// edit and builds the HMR update message a dev-server session streams to
// its clients, preserving module identities across rebuilds.
package delta

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"bungae.dev/bungae/graph"
	"bungae.dev/bungae/serialize"
)

// hash computes the per-module hash §4.9 classifies added/modified/deleted
// against: transformed code plus the sorted dependency paths, so a pure
// reordering of unrelated require() calls elsewhere in the file does not
// spuriously mark this module modified.
func hash(mod *graph.Module) string {
	deps := append([]string(nil), mod.Dependencies...)
	sort.Strings(deps)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", mod.TransformedCode)
	for _, d := range deps {
		fmt.Fprintf(h, "%s\x00", d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Update is the body of a {type:"update"} HMR protocol message.
type Update struct {
	RevisionID      int
	IsInitialUpdate bool
	Added           []ModuleUpdate
	Modified        []ModuleUpdate
	Deleted         []int
}

// ModuleUpdate is one added/modified entry: the module id and code pair,
// plus the source URLs the client uses to symbolicate and cache-bust it.
type ModuleUpdate struct {
	ID               int
	Code             string
	SourceURL        string
	SourceMappingURL string
}

// Session tracks one dev-server client's view of a graph across rebuilds:
// the last graph it was given, the module-id allocator (stable across
// deltas), and a monotonically increasing revision counter.
type Session struct {
	Graph      *graph.Graph
	Allocator  *graph.IDAllocator
	RevisionID int

	computed bool
}

// NewSession seeds a session from an initial full build.
func NewSession(g *graph.Graph, alloc *graph.IDAllocator) *Session {
	alloc.Assign(g.Order())
	return &Session{Graph: g, Allocator: alloc}
}

// Compute classifies every module of newGraph against the session's
// previous graph and returns the resulting Update, bumping RevisionID and
// replacing the session's stored graph with newGraph. oldIDs is a snapshot
// of the allocator's path→id table taken before newGraph's modules were
// assigned ids, so that deleted paths still resolve to the id the client
// last saw them under.
func (s *Session) Compute(newGraph *graph.Graph, changedFiles []string) *Update {
	oldGraph := s.Graph
	oldIDs := s.Allocator.Snapshot()

	newIDs := s.Allocator.Assign(newGraph.Order())

	oldHashes := make(map[string]string, len(oldGraph.Modules))
	for path, mod := range oldGraph.Modules {
		oldHashes[path] = hash(mod)
	}

	var added, modified []ModuleUpdate
	var deletedIDs []int

	for path, mod := range newGraph.Modules {
		newHash := hash(mod)
		oldHash, existed := oldHashes[path]

		if !existed {
			added = append(added, buildModuleUpdate(newGraph, newIDs, path, mod))
			continue
		}
		if oldHash != newHash {
			modified = append(modified, buildModuleUpdate(newGraph, newIDs, path, mod))
		}
	}

	for path := range oldGraph.Modules {
		if _, stillPresent := newGraph.Modules[path]; !stillPresent {
			if id, ok := oldIDs[path]; ok {
				deletedIDs = append(deletedIDs, id)
			}
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	sort.Slice(modified, func(i, j int) bool { return modified[i].ID < modified[j].ID })
	sort.Ints(deletedIDs)

	isInitial := !s.computed
	s.computed = true
	s.Graph = newGraph
	s.RevisionID++

	return &Update{
		RevisionID:      s.RevisionID,
		IsInitialUpdate: isInitial,
		Added:           added,
		Modified:        modified,
		Deleted:         deletedIDs,
	}
}

// buildModuleUpdate wraps mod's define call with its inverse dependencies
// (this module and every ancestor reachable by walking inverse edges)
// appended as the update message's extra positional parameter.
func buildModuleUpdate(g *graph.Graph, ids map[string]int, path string, mod *graph.Module) ModuleUpdate {
	id := ids[path]

	depIDs := make([]int, 0, len(mod.Dependencies))
	for _, dep := range mod.Dependencies {
		if depID, ok := ids[dep]; ok {
			depIDs = append(depIDs, depID)
		}
	}

	inverse := ancestorInverseDeps(g, ids, path)

	code := serialize.Wrap(mod, id, depIDs, "", inverse)

	return ModuleUpdate{
		ID:               id,
		Code:             code,
		SourceURL:        path,
		SourceMappingURL: path + ".map",
	}
}

// ancestorInverseDeps walks inverse edges from path outward, collecting a
// module-id → parent-ids map covering path itself and every ancestor
// reachable that way.
func ancestorInverseDeps(g *graph.Graph, ids map[string]int, path string) map[int][]int {
	result := make(map[int][]int)
	seen := make(map[string]bool)

	var walk func(p string)
	walk = func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		mod, ok := g.Modules[p]
		if !ok {
			return
		}
		id, ok := ids[p]
		if !ok {
			return
		}
		parents := make([]int, 0, len(mod.InverseDependencies))
		for parent := range mod.InverseDependencies {
			if parentID, ok := ids[parent]; ok {
				parents = append(parents, parentID)
			}
		}
		sort.Ints(parents)
		result[id] = parents
		for parent := range mod.InverseDependencies {
			walk(parent)
		}
	}
	walk(path)

	return result
}
