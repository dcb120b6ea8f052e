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

// Package depscan extracts dependency slots from a module's source text:
// static imports, re-exports with a source, dynamic import() calls, and
// require() calls. A require() call is matched by its callee's name alone:
// a local binding that shadows require is not detected, and calls through
// it are extracted as well. Extraction runs against the raw source text
// rather than the transformer's output AST; the graph builder does not call
// it for files the transformer skips (e.g. .flow).
package depscan

import (
	"embed"
	"fmt"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/typescript/specifiers.scm
var queryFiles embed.FS

var language = ts.NewLanguage(tsTypescript.LanguageTypescript())

var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			panic("depscan: failed to set typescript language: " + err.Error())
		}
		return parser
	},
}

func getParser() *ts.Parser {
	return parserPool.Get().(*ts.Parser)
}

func putParser(p *ts.Parser) {
	p.Reset()
	parserPool.Put(p)
}

var (
	specifierQuery     *ts.Query
	specifierQueryOnce sync.Once
	specifierQueryErr  error
)

func getSpecifierQuery() (*ts.Query, error) {
	specifierQueryOnce.Do(func() {
		data, err := queryFiles.ReadFile("queries/typescript/specifiers.scm")
		if err != nil {
			specifierQueryErr = fmt.Errorf("depscan: read query: %w", err)
			return
		}
		q, qerr := ts.NewQuery(language, string(data))
		if qerr != nil {
			specifierQueryErr = fmt.Errorf("depscan: parse query: %w", qerr)
			return
		}
		specifierQuery = q
	})
	return specifierQuery, specifierQueryErr
}
