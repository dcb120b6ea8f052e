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
package server

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bungae.dev/bungae/cache"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/logging"
	"bungae.dev/bungae/resolve"
)

func TestIsBundleAndMapRequestMatchBySuffix(t *testing.T) {
	cases := []struct {
		path       string
		wantBundle bool
		wantMap    bool
	}{
		{"/index.bundle", true, false},
		{"/index.bundle.js", true, false},
		{"/index.bundle.js.map", false, true},
		{"/assets/icon.png", false, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		if got := isBundleRequest(req, nil); got != tc.wantBundle {
			t.Errorf("isBundleRequest(%s) = %v, want %v", tc.path, got, tc.wantBundle)
		}
		if got := isMapRequest(req, nil); got != tc.wantMap {
			t.Errorf("isMapRequest(%s) = %v, want %v", tc.path, got, tc.wantMap)
		}
	}
}

func TestBuildKeyFromQueryDefaultsToConfig(t *testing.T) {
	cfg := &config.Config{Platform: config.PlatformIOS, Dev: true, Minify: false}
	key := buildKeyFromQuery(cfg, map[string][]string{})

	if key.platform != config.PlatformIOS {
		t.Errorf("expected platform to default to config, got %v", key.platform)
	}
	if !key.dev {
		t.Errorf("expected dev to default to config's true, got false")
	}
	if !key.runModule {
		t.Errorf("expected runModule to default to true, got false")
	}
}

func TestBuildKeyFromQueryHonorsOverrides(t *testing.T) {
	cfg := &config.Config{Platform: config.PlatformIOS, Dev: true}
	key := buildKeyFromQuery(cfg, map[string][]string{
		"platform":  {"android"},
		"dev":       {"false"},
		"minify":    {"true"},
		"runModule": {"false"},
	})

	if key.platform != config.PlatformAndroid {
		t.Errorf("expected platform override android, got %v", key.platform)
	}
	if key.dev {
		t.Error("expected dev override to false")
	}
	if !key.minify {
		t.Error("expected minify override to true")
	}
	if key.runModule {
		t.Error("expected runModule override to false")
	}
}

func TestBoolParamFallsBackToDefaultOnGarbage(t *testing.T) {
	if !boolParam("not-a-bool", true) {
		t.Error("expected an unparseable value to fall back to the default")
	}
	if boolParam("false", true) {
		t.Error("expected an explicit false to override the default")
	}
}

// newTestServer builds a Server rooted at a real temporary directory
// containing a single dependency-free entry point, for exercising
// buildOnce/Invalidate/RebuildAndBroadcast against a real (if trivial)
// graph build.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "entry.js"), []byte("module.exports = 1;\n"), 0o644); err != nil {
		t.Fatalf("writing fixture entry point: %v", err)
	}

	cfg := &config.Config{
		Platform: config.PlatformWeb,
		Dev:      true,
		Entry:    "entry.js",
		Root:     root,
	}
	osfs := fs.NewOSFileSystem()
	resolver := resolve.New(osfs, root, cfg.AssetExtensions, cfg.PreferNativePlatform)
	transformCache := cache.New(root, time.Hour)

	return New(cfg, osfs, resolver, transformCache, logging.Nop{})
}

func TestBuildOnceCachesResultForSameTuple(t *testing.T) {
	srv := newTestServer(t)
	key := buildKeyFromQuery(srv.Config, map[string][]string{})

	first := srv.buildOnce(key)
	if first.err != nil {
		t.Fatalf("first build failed: %v", first.err)
	}
	second := srv.buildOnce(key)
	if second != first {
		t.Error("expected buildOnce to return the same cached *buildResult for an unchanged tuple")
	}
}

func TestInvalidateForcesFreshBuild(t *testing.T) {
	srv := newTestServer(t)
	key := buildKeyFromQuery(srv.Config, map[string][]string{})

	first := srv.buildOnce(key)
	if first.err != nil {
		t.Fatalf("first build failed: %v", first.err)
	}
	srv.Invalidate()
	second := srv.buildOnce(key)
	if second == first {
		t.Error("expected Invalidate to force a new *buildResult on the next buildOnce")
	}
}

func TestRebuildAndBroadcastOnlyTouchesTrackedTuples(t *testing.T) {
	srv := newTestServer(t)
	key := buildKeyFromQuery(srv.Config, map[string][]string{})

	// Nothing has been built yet: RebuildAndBroadcast should be a no-op.
	srv.RebuildAndBroadcast()

	if _, tracked := srv.results[key]; tracked {
		t.Fatal("expected no cached result before any build has run")
	}

	first := srv.buildOnce(key)
	if first.err != nil {
		t.Fatalf("first build failed: %v", first.err)
	}

	srv.RebuildAndBroadcast()

	if _, tracked := srv.results[key]; !tracked {
		t.Error("expected RebuildAndBroadcast to repopulate the result for a previously-built tuple")
	}
}
