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

// Package serialize wraps each graph module in a define call and assembles
// the prepend/module/post blocks into one bundle, by string splice rather
// than AST regeneration so a module's raw mappings stay valid after its id
// and dependency vector are known.
package serialize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bungae.dev/bungae/graph"
	"bungae.dev/bungae/internal/config"
)

// preludeMarker is the token every bundle's synthetic prelude module
// carries, so a byte search for it is enough to confirm a file came out of
// this engine.
const preludeMarker = "__BUNGAE__"

// Wrap produces the define-call bytes for one module: a single top-level
// `__d(function(...){ ... }, id, deps)` statement. body is the module's
// already-transformed CommonJS-shaped code, used verbatim as the factory
// function's body text.
func Wrap(mod *graph.Module, id int, depIDs []int, verboseName string, inverseDeps map[int][]int) string {
	var sb strings.Builder
	sb.WriteString("__d(function(global, _$$_REQUIRE, _$$_IMPORT_DEFAULT, _$$_IMPORT_ALL, module, exports, _dependencyMap) {\n")
	sb.WriteString(mod.TransformedCode)
	if !strings.HasSuffix(mod.TransformedCode, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("}")

	// The tail is appended by string splice immediately before the
	// closing parenthesis of the define call: earlier byte positions
	// (and therefore the module's raw mappings) never move.
	sb.WriteString(", ")
	sb.WriteString(strconv.Itoa(id))
	sb.WriteString(", ")
	sb.WriteString(depVector(depIDs))
	if verboseName != "" {
		sb.WriteString(fmt.Sprintf(", %q", verboseName))
	}
	if inverseDeps != nil {
		if verboseName == "" {
			sb.WriteString(`, undefined`)
		}
		sb.WriteString(", ")
		sb.WriteString(inverseDepsObject(inverseDeps))
	}
	sb.WriteString(");")
	return sb.String()
}

func depVector(depIDs []int) string {
	parts := make([]string, len(depIDs))
	for i, id := range depIDs {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func inverseDepsObject(inverseDeps map[int][]int) string {
	ids := make([]int, 0, len(inverseDeps))
	for id := range inverseDeps {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var sb strings.Builder
	sb.WriteString("{")
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		parents := inverseDeps[id]
		sort.Ints(parents)
		sb.WriteString(strconv.Itoa(id))
		sb.WriteString(": ")
		sb.WriteString(depVector(parents))
	}
	sb.WriteString("}")
	return sb.String()
}

// Prelude builds the synthetic __prelude__ module: the runtime globals
// every subsequent define call and the in-bundle require runtime depend on.
func Prelude(cfg *config.Config, extraGlobals map[string]string) string {
	var sb strings.Builder
	sb.WriteString("var " + preludeMarker + " = true;\n")
	sb.WriteString("var __BUNDLE_START_TIME__ = this.nativePerformanceNow ? nativePerformanceNow() : Date.now();\n")
	sb.WriteString(fmt.Sprintf("var __DEV__ = %t;\n", cfg.Dev))
	sb.WriteString("var process = this.process || {};\n")
	sb.WriteString(`var __METRO_GLOBAL_PREFIX__ = "";` + "\n")
	if cfg.Dev {
		sb.WriteString("var __requireCycleIgnorePatterns = [/(^|\\/|\\\\)node_modules($|\\/|\\\\)/];\n")
	}
	keys := make([]string, 0, len(extraGlobals))
	for k := range extraGlobals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("var %s = %s;\n", k, extraGlobals[k]))
	}
	return sb.String()
}

// runtime is the in-bundle implementation of __d/__r: a minimal CommonJS
// module registry indexed by the numeric ids the allocator assigns.
const runtime = `(function(global) {
  var modules = Object.create(null);
  var moduleExports = Object.create(null);
  global.__d = function(factory, moduleId, dependencyMap) {
    modules[moduleId] = { factory: factory, dependencyMap: dependencyMap || [] };
  };
  global.__r = function(moduleId) {
    if (moduleExports[moduleId]) {
      return moduleExports[moduleId].exports;
    }
    var mod = modules[moduleId];
    if (!mod) {
      throw new Error("Requiring unknown module \"" + moduleId + "\"");
    }
    var moduleObject = { exports: {} };
    moduleExports[moduleId] = moduleObject;
    var localRequire = function(depId) {
      return global.__r(depId);
    };
    mod.factory(global, localRequire, localRequire, localRequire, moduleObject, moduleObject.exports, mod.dependencyMap);
    return moduleObject.exports;
  };
})(typeof global !== "undefined" ? global : this);
`

// Bundle is the fully assembled output of one serialization pass.
type Bundle struct {
	Code string
	// ModuleIDs is the path→id table used, exposed so the caller (e.g.
	// the delta engine, or a dev-server response header) can reference
	// specific module ids without recomputing the allocation.
	ModuleIDs map[string]int
}

// Options controls what Assemble produces.
type Options struct {
	ModulesOnly      bool
	RunModule        bool
	SourceMappingURL string
	SourceURL        string
	ExtraGlobals     map[string]string
}

// Assemble concatenates the prepend block, each DFS-ordered module's
// wrapped bytes, and the post block into one byte-identical (given
// identical inputs) bundle.
func Assemble(g *graph.Graph, cfg *config.Config, alloc *graph.IDAllocator, opts Options) (*Bundle, error) {
	order := g.Order()
	ids := alloc.Assign(order)

	inverse := make(map[int][]int)
	for path, mod := range g.Modules {
		id := ids[path]
		for parent := range mod.InverseDependencies {
			if parentID, ok := ids[parent]; ok {
				inverse[id] = append(inverse[id], parentID)
			}
		}
	}

	var sb strings.Builder

	if !opts.ModulesOnly {
		sb.WriteString(Wrap(&graph.Module{TransformedCode: Prelude(cfg, opts.ExtraGlobals)}, -1, nil, "__prelude__", nil))
		sb.WriteString("\n")
		sb.WriteString(runtime)
		sb.WriteString("\n")
	}

	for _, path := range order {
		mod := g.Modules[path]
		id := ids[path]
		depIDs := make([]int, 0, len(mod.Dependencies))
		for _, dep := range mod.Dependencies {
			if depID, ok := ids[dep]; ok {
				depIDs = append(depIDs, depID)
			}
		}
		sb.WriteString(Wrap(mod, id, depIDs, "", nil))
		sb.WriteString("\n")
	}

	if !opts.ModulesOnly {
		entryID, ok := ids[g.Entry]
		if !ok {
			return nil, fmt.Errorf("serialize: entry %s was never assigned a module id", g.Entry)
		}
		sb.WriteString(postBlock(g, ids, entryID, opts))
	}

	return &Bundle{Code: sb.String(), ModuleIDs: ids}, nil
}

func postBlock(g *graph.Graph, ids map[string]int, entryID int, opts Options) string {
	var sb strings.Builder
	if opts.RunModule {
		for _, path := range g.RunBeforeMain {
			if id, ok := ids[path]; ok {
				sb.WriteString(fmt.Sprintf("__r(%d);\n", id))
			}
		}
		sb.WriteString(fmt.Sprintf("__r(%d);\n", entryID))
	}
	if opts.SourceMappingURL != "" {
		sb.WriteString("//# sourceMappingURL=" + opts.SourceMappingURL + "\n")
	}
	if opts.SourceURL != "" {
		sb.WriteString("//# sourceURL=" + opts.SourceURL + "\n")
	}
	return sb.String()
}

// MarshalInverseDeps renders the same map[int][]int shape the HMR update
// message's wrapped define calls carry, as JSON (used by the delta engine
// when building the update body rather than the bundle body itself).
func MarshalInverseDeps(inverseDeps map[int][]int) (string, error) {
	out, err := json.Marshal(inverseDeps)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
