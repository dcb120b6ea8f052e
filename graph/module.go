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

// Package graph is the dependency graph's data model and builder: it reads
// a module's source, resolves and transforms it, recurses into its
// dependencies, and links inverse-dependency edges once the walk
// completes.
package graph

import (
	"bungae.dev/bungae/sourcemap"
)

// Kind classifies a Module's content.
type Kind int

const (
	KindScript Kind = iota
	KindModule
	KindAsset
	KindJSON
	KindVirtualPrelude
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindModule:
		return "module"
	case KindAsset:
		return "asset"
	case KindJSON:
		return "json"
	case KindVirtualPrelude:
		return "virtual-prelude"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Module is one node of the dependency graph, per §3's Module entity.
type Module struct {
	Path            string
	OriginalSource  string
	TransformedCode string

	// Dependencies and OriginalSpecifiers are the same length; index i of
	// each pair is the same require/import slot (§3 invariant).
	Dependencies       []string
	OriginalSpecifiers []string

	// InverseDependencies is filled only by the builder's linking pass.
	InverseDependencies map[string]bool

	RawMappings []sourcemap.Mapping
	LineCount   int
	Kind        Kind

	// ExternalSpecifier and ExternalURL are set only on KindExternal
	// modules: the bare specifier the importer wrote, and the URL the
	// externals subsystem resolved it to. Such a module has no
	// Dependencies of its own; its TransformedCode is a shim that dynamic-
	// imports ExternalURL instead of a regular __d factory body.
	ExternalSpecifier string
	ExternalURL       string

	// Unresolved holds, for each slot that could not be resolved, an
	// explicit marker instead of a path; recorded so the graph invariant
	// "every referenced path is in modules or explicitly marked
	// unresolved" holds without silently dropping the slot index.
	Unresolved map[int]string
}

// Graph is the complete walked dependency graph for one build.
type Graph struct {
	Modules map[string]*Module
	Entry   string

	// Prepend is the ordered script-kind modules executed before any
	// defined module: synthetic prelude, runtime, platform polyfills.
	Prepend []*Module

	// RunBeforeMain is the ordered module paths the runtime executes
	// before the entry.
	RunBeforeMain []string
}

// New creates an empty Graph rooted at entry.
func New(entry string) *Graph {
	return &Graph{Modules: make(map[string]*Module), Entry: entry}
}

// Link recomputes every module's InverseDependencies from scratch: a
// module is present in another module's inverse set iff that module lists
// it in Dependencies, per §3's invariant.
func (g *Graph) Link() {
	for _, m := range g.Modules {
		m.InverseDependencies = make(map[string]bool)
	}
	for _, m := range g.Modules {
		for _, dep := range m.Dependencies {
			if target, ok := g.Modules[dep]; ok {
				target.InverseDependencies[m.Path] = true
			}
		}
	}
}
