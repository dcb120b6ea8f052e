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

package resolve

import (
	"context"
	"path/filepath"

	"bungae.dev/bungae/externals"
	cdnregistry "bungae.dev/bungae/externals/cdnregistry"
	"bungae.dev/bungae/externals/cdnresolver"
	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/packagejson"
)

// ResolveExternalsImportMap reads the project's package.json (walking up to
// the workspace root first, so a monorepo package still finds its shared
// lockfile-level dependency versions) and asks the CDN resolver for an
// import map covering its dependencies (and, if includeDev,
// devDependencies too). The result feeds Resolver.WithExternals so
// config.Externals patterns resolve to real CDN URLs instead of being
// bundled, and doubles as the companion import map a --platform web build
// emits alongside its bundle.
func ResolveExternalsImportMap(ctx context.Context, fsys fs.FileSystem, projectRoot string, includeDev bool) (*importmap.ImportMap, error) {
	root := externals.FindWorkspaceRoot(fsys, projectRoot)

	pkg, err := packagejson.ParseFile(fsys, filepath.Join(root, "package.json"))
	if err != nil {
		return nil, err
	}

	cdn := cdnresolver.New(cdnregistry.NewHTTPFetcher()).WithIncludeDev(includeDev)
	return cdn.ResolvePackageJSON(ctx, pkg)
}
