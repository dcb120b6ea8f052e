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

// Package server is the dev HTTP+WebSocket server: it answers bundle and
// source-map requests by building (or reusing a cached build of) the
// graph for a platform-configuration tuple, streams HMR updates over a
// "/hot" WebSocket, and serves raw asset/source bytes for DevTools.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"bungae.dev/bungae/cache"
	"bungae.dev/bungae/delta"
	"bungae.dev/bungae/externals/importmap"
	"bungae.dev/bungae/fs"
	"bungae.dev/bungae/graph"
	"bungae.dev/bungae/internal/config"
	"bungae.dev/bungae/internal/logging"
	"bungae.dev/bungae/resolve"
	"bungae.dev/bungae/serialize"
	"bungae.dev/bungae/sourcemap"
	"bungae.dev/bungae/symbolicate"
)

// buildKey identifies one platform-configuration tuple, per §5's "each
// platform-configuration tuple holds at most one outstanding build" rule.
type buildKey struct {
	platform    config.Platform
	dev         bool
	minify      bool
	modulesOnly bool
	runModule   bool
}

type buildResult struct {
	bundle *serialize.Bundle
	graph  *graph.Graph
	err    error

	// consumerOnce/consumer lazily build and cache the source-map
	// consumer for this build, per §4.10, instead of redecoding the
	// bundle's mappings on every /symbolicate request.
	consumerOnce sync.Once
	consumer     *symbolicate.Consumer
	consumerErr  error
}

// symbolicateConsumer returns this build's cached Consumer, constructing
// it from the bundle's composed source map on first use.
func (r *buildResult) symbolicateConsumer() (*symbolicate.Consumer, error) {
	r.consumerOnce.Do(func() {
		mods := moduleMapsFor(r.graph)
		file := sourcemap.Compose(mods)
		r.consumer, r.consumerErr = symbolicate.NewConsumer(file)
	})
	return r.consumer, r.consumerErr
}

// Server is the dev server's full state: one builder, a per-tuple
// in-flight/cached build cache, and a registry of connected HMR sessions.
type Server struct {
	Config   *config.Config
	FS       *fs.OSFileSystem
	Resolver *resolve.Resolver
	Cache    *cache.Cache
	Logger   logging.Logger

	// ExternalsMap is the import map config.Externals resolved to, if any;
	// served verbatim at /importmap.json for page-level <script
	// type="importmap"> consumers alongside the bundle's own dynamic
	// imports of the same URLs.
	ExternalsMap *importmap.ImportMap

	mu       sync.Mutex
	inFlight map[buildKey]*sync.WaitGroup
	results  map[buildKey]*buildResult

	// deltaSessions tracks one delta.Session per tuple that has been
	// built at least once, so a later file-change rebuild can diff
	// against the previous graph instead of only invalidating bytes.
	deltaSessions map[buildKey]*delta.Session

	sessions   map[*hmrSession]bool
	sessionsMu sync.Mutex

	alloc *graph.IDAllocator
}

// New constructs a Server ready to Handler().
func New(cfg *config.Config, osfs *fs.OSFileSystem, resolver *resolve.Resolver, c *cache.Cache, logger logging.Logger) *Server {
	return &Server{
		Config:   cfg,
		FS:       osfs,
		Resolver: resolver,
		Cache:    c,
		Logger:   logger,
		inFlight:      make(map[buildKey]*sync.WaitGroup),
		results:       make(map[buildKey]*buildResult),
		deltaSessions: make(map[buildKey]*delta.Session),
		sessions:      make(map[*hmrSession]bool),
		alloc:         graph.NewIDAllocator(),
	}
}

// Handler builds the full mux.Router, wrapped in access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	r.HandleFunc("/devmenu", s.handleDevMenu).Methods(http.MethodPost)
	r.HandleFunc("/open-url", s.handleOpenURL).Methods(http.MethodPost)
	r.HandleFunc("/symbolicate", s.handleSymbolicate).Methods(http.MethodPost)
	r.PathPrefix("/assets/").HandlerFunc(s.handleAssets)
	r.PathPrefix("/node_modules/").HandlerFunc(s.handleNodeModules)
	r.HandleFunc("/hot", s.handleHot)
	r.HandleFunc("/importmap.json", s.handleImportMap).Methods(http.MethodGet)
	r.MatcherFunc(isMapRequest).HandlerFunc(s.handleMap)
	r.MatcherFunc(isBundleRequest).HandlerFunc(s.handleBundle)

	return handlers.LoggingHandler(logWriter{s.Logger}, r)
}

// handleImportMap serves the config.Externals import map, if any was
// resolved, so non-bundled page code can import the same bare specifiers
// the bundle's externalized modules dynamic-import.
func (s *Server) handleImportMap(w http.ResponseWriter, r *http.Request) {
	if s.ExternalsMap == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/importmap+json")
	if err := json.NewEncoder(w).Encode(s.ExternalsMap); err != nil && s.Logger != nil {
		s.Logger.Warning("encoding import map: %v", err)
	}
}

type logWriter struct{ logger logging.Logger }

func (w logWriter) Write(p []byte) (int, error) {
	if w.logger != nil {
		w.logger.Info("%s", strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func isBundleRequest(r *http.Request, _ *mux.RouteMatch) bool {
	p := r.URL.Path
	return strings.HasSuffix(p, ".bundle") || strings.HasSuffix(p, ".bundle.js")
}

func isMapRequest(r *http.Request, _ *mux.RouteMatch) bool {
	return strings.HasSuffix(r.URL.Path, ".map")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "packager-status:running")
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.broadcastHot(hmrMessage{Type: "reload"})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDevMenu(w http.ResponseWriter, r *http.Request) {
	s.broadcastHot(hmrMessage{Type: "devmenu"})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOpenURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.broadcastHot(hmrMessage{Type: "open-url", URL: body.URL})
	w.WriteHeader(http.StatusOK)
}

type symbolicateRequest struct {
	Stack     []symbolicate.Frame `json:"stack"`
	ExtraData any                 `json:"extraData"`
}

func (s *Server) handleSymbolicate(w http.ResponseWriter, r *http.Request) {
	var req symbolicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key := buildKeyFromQuery(s.Config, r.URL.Query())
	result := s.buildOnce(key)
	if result.err != nil {
		http.Error(w, result.err.Error(), http.StatusInternalServerError)
		return
	}

	consumer, err := result.symbolicateConsumer()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	translate := symbolicate.ProjectRootTranslator("<project>/", s.Config.Root)

	stack := make([]symbolicate.OriginalPosition, len(req.Stack))
	for i, frame := range req.Stack {
		stack[i] = symbolicate.Symbolicate(consumer, frame, "", translate)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"stack": stack})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	s.serveRaw(w, r, "/assets/")
}

func (s *Server) handleNodeModules(w http.ResponseWriter, r *http.Request) {
	s.serveRaw(w, r, "/node_modules/")
}

func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request, prefix string) {
	rel := strings.TrimPrefix(r.URL.Path, prefix)
	path := filepath.Join(s.Config.Root, filepath.FromSlash(rel))
	data, err := s.FS.ReadFile(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

func buildKeyFromQuery(cfg *config.Config, q map[string][]string) buildKey {
	get := func(name string) string {
		if v, ok := q[name]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	key := buildKey{
		platform:    config.Platform(get("platform")),
		dev:         boolParam(get("dev"), cfg.Dev),
		minify:      boolParam(get("minify"), cfg.Minify),
		modulesOnly: boolParam(get("modulesOnly"), false),
		runModule:   boolParam(get("runModule"), true),
	}
	if key.platform == "" {
		key.platform = cfg.Platform
	}
	return key
}

func boolParam(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	key := buildKeyFromQuery(s.Config, r.URL.Query())
	result := s.buildOnce(key)
	if result.err != nil {
		http.Error(w, result.err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	w.Header().Set("X-Metro-Files-Changed-Count", strconv.Itoa(len(result.graph.Modules)))
	_, _ = w.Write([]byte(result.bundle.Code))
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	key := buildKeyFromQuery(s.Config, r.URL.Query())
	result := s.buildOnce(key)
	if result.err != nil {
		http.Error(w, result.err.Error(), http.StatusInternalServerError)
		return
	}
	mods := moduleMapsFor(result.graph)
	file := sourcemap.Compose(mods)
	data, err := file.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func moduleMapsFor(g *graph.Graph) []sourcemap.ModuleMap {
	order := g.Order()
	var mods []sourcemap.ModuleMap
	line := 0
	for _, path := range order {
		mod := g.Modules[path]
		mods = append(mods, sourcemap.ModuleMap{
			SourcePath:  path,
			SourceText:  mod.OriginalSource,
			StartLine:   line,
			RawMappings: mod.RawMappings,
		})
		line += mod.LineCount + 1
	}
	return mods
}

// buildOnce runs (or awaits an already-running) build for key, caching the
// result so concurrent requests for the same tuple share one in-flight
// build and subsequent requests reuse the cached bytes until invalidated.
func (s *Server) buildOnce(key buildKey) *buildResult {
	s.mu.Lock()
	if result, ok := s.results[key]; ok {
		s.mu.Unlock()
		return result
	}
	if wg, inFlight := s.inFlight[key]; inFlight {
		s.mu.Unlock()
		wg.Wait()
		s.mu.Lock()
		result := s.results[key]
		s.mu.Unlock()
		return result
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.inFlight[key] = wg
	s.mu.Unlock()

	result := s.runBuild(key)

	s.mu.Lock()
	s.results[key] = result
	delete(s.inFlight, key)
	if result.err == nil {
		if _, tracked := s.deltaSessions[key]; !tracked {
			s.deltaSessions[key] = delta.NewSession(result.graph, s.alloc)
		}
	}
	s.mu.Unlock()
	wg.Done()

	return result
}

// runBuild performs one full graph walk and serialization for key,
// without consulting or touching the result cache.
func (s *Server) runBuild(key buildKey) *buildResult {
	entryPath := s.Config.Entry
	if !filepath.IsAbs(entryPath) {
		entryPath = filepath.Join(s.Config.Root, entryPath)
	}

	cfg := *s.Config
	cfg.Platform = key.platform
	cfg.Dev = key.dev
	cfg.Minify = key.minify

	assetExts := make(map[string]bool, len(cfg.AssetExtensions))
	for _, ext := range cfg.AssetExtensions {
		assetExts[ext] = true
	}

	builder := &graph.Builder{
		FS:        s.FS,
		Resolver:  s.Resolver,
		Cache:     s.Cache,
		Logger:    s.Logger,
		Config:    &cfg,
		AssetExts: assetExts,
	}

	g, err := builder.Build(entryPath, nil)
	if err != nil {
		return &buildResult{err: err}
	}
	bundle, serr := serialize.Assemble(g, &cfg, s.alloc, serialize.Options{
		ModulesOnly: key.modulesOnly,
		RunModule:   key.runModule,
	})
	if serr != nil {
		return &buildResult{err: serr}
	}
	return &buildResult{bundle: bundle, graph: g}
}

// Invalidate drops every cached build result, the reaction to a file-change
// notification per §5's cancellation model: requests already streaming
// finish with stale bytes, new requests trigger a fresh build.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.results = make(map[buildKey]*buildResult)
	s.mu.Unlock()
}

// RebuildAndBroadcast rebuilds every platform-configuration tuple that has
// been built at least once, computes a delta against that tuple's last
// known graph, and pushes the resulting update over every connected HMR
// session. Called in reaction to a watched file change, in place of a
// bare Invalidate, so editors get an incremental update instead of only a
// forced full rebuild on the next HTTP request.
func (s *Server) RebuildAndBroadcast() {
	s.mu.Lock()
	keys := make([]buildKey, 0, len(s.deltaSessions))
	for key := range s.deltaSessions {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	for _, key := range keys {
		result := s.runBuild(key)

		s.mu.Lock()
		session := s.deltaSessions[key]
		s.mu.Unlock()

		if result.err != nil {
			if s.Logger != nil {
				s.Logger.Warning("rebuild for %v failed: %v", key, result.err)
			}
			continue
		}

		s.mu.Lock()
		s.results[key] = result
		s.mu.Unlock()

		if session != nil {
			update := session.Compute(result.graph, nil)
			s.BroadcastUpdate(update)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hmrSession struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (h *hmrSession) send(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.WriteJSON(v)
}

type hmrMessage struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

type hmrIncoming struct {
	Type string `json:"type"`
}

func (s *Server) handleHot(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	session := &hmrSession{id: uuid.NewString(), conn: conn}

	s.sessionsMu.Lock()
	s.sessions[session] = true
	total := len(s.sessions)
	s.sessionsMu.Unlock()
	if s.Logger != nil {
		s.Logger.Debug("hmr client %s connected (%d total)", session.id, total)
	}

	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, session)
		s.sessionsMu.Unlock()
		_ = conn.Close()
		if s.Logger != nil {
			s.Logger.Debug("hmr client %s disconnected", session.id)
		}
	}()

	for {
		var msg hmrIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "register-entrypoints":
			_ = session.send(hmrMessage{Type: "bundle-registered"})
		}
	}
}

func (s *Server) broadcastHot(msg hmrMessage) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for sess := range s.sessions {
		_ = sess.send(msg)
	}
}

// BroadcastUpdate sends a full update-start/update/update-done triplet to
// every connected HMR session, per §5's strict per-session ordering rule.
func (s *Server) BroadcastUpdate(upd *delta.Update) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for sess := range s.sessions {
		_ = sess.send(hmrMessage{Type: "update-start"})
		_ = sess.send(map[string]any{"type": "update", "body": upd})
		_ = sess.send(hmrMessage{Type: "update-done"})
	}
}

// ListenAndServe starts the HTTP server on Config.Host:Config.Port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
