// Package server wires the HTTP orchestrator: the /sub subscription
// endpoint, the minimal admin facade (reload, log tail, cache listing),
// and the request-scoped access log.
package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wallacegibbon/subcon/internal/cache"
	"github.com/wallacegibbon/subcon/internal/config"
	clashexport "github.com/wallacegibbon/subcon/internal/export/clash"
	surgeexport "github.com/wallacegibbon/subcon/internal/export/surge"
	"github.com/wallacegibbon/subcon/internal/paths"
	"github.com/wallacegibbon/subcon/internal/proxy"
	"github.com/wallacegibbon/subcon/internal/schema"
)

// RuntimeState is the atomically-swapped snapshot requests read from: the
// decoded preference file, the fully resolved schema registry, the
// resolved base directory, and the fetch cache built from [network].
// Reload builds a fresh one and swaps it in; in-flight requests keep
// whichever snapshot they already loaded.
type RuntimeState struct {
	Pref     *config.Pref
	Registry *schema.Registry
	Fetcher  *cache.Fetcher
	Store    *cache.Store
	BaseDir  string
}

// Server holds the current RuntimeState behind an atomic pointer plus the
// coordinates needed to rebuild it on reload.
type Server struct {
	state    atomic.Pointer[RuntimeState]
	prefPath string
	baseDir  string
}

// New loads pref.toml and the schema registry it names, and returns a
// Server ready to build a router from.
func New(prefPath, baseDir string) (*Server, error) {
	s := &Server{prefPath: prefPath, baseDir: baseDir}
	state, err := buildState(prefPath, baseDir)
	if err != nil {
		return nil, err
	}
	s.state.Store(state)
	return s, nil
}

// Reload rebuilds RuntimeState from disk and swaps it in atomically. On
// failure the previously active state is left untouched.
func (s *Server) Reload() error {
	state, err := buildState(s.prefPath, s.baseDir)
	if err != nil {
		return err
	}
	s.state.Store(state)
	return nil
}

func (s *Server) current() *RuntimeState {
	return s.state.Load()
}

// ListenAddr returns the currently configured [server] listen:port pair.
func (s *Server) ListenAddr() string {
	srv := s.current().Pref.Server
	return fmt.Sprintf("%s:%d", srv.Listen, srv.Port)
}

func buildState(prefPath, baseDir string) (*RuntimeState, error) {
	pref, err := config.Load(prefPath)
	if err != nil {
		return nil, err
	}

	if pref.Common.Schema == nil {
		return nil, fmt.Errorf("pref file %s: [common].schema is required", prefPath)
	}
	schemaDir := paths.Resolve(baseDir, *pref.Common.Schema)
	registry, err := schema.LoadFromDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("loading schema directory %s: %w", schemaDir, err)
	}

	registry.RegisterModule(schema.ShadowsocksModule{})
	registry.RegisterModule(schema.TrojanModule{})
	registry.RegisterDefaultExporter(clashexport.Exporter{})
	registry.RegisterDefaultExporter(surgeexport.Exporter{})
	registry.RegisterParser(proxy.ClashParser{})
	// FieldPruner is deliberately not registered: it would strip
	// passthrough fields (cipher, plugin, plugin-opts, up/down, ...)
	// before the clash/surge exporters' own passthrough-merge step runs,
	// defeating the whole undeclared-field design (see DESIGN.md).
	registry.RegisterPrologue(schema.TypeInjector{})

	cacheDir := paths.Resolve(baseDir, pref.Network.Dir)
	store, err := cache.New(cacheDir, time.Duration(pref.Network.TTLSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("initializing cache directory %s: %w", cacheDir, err)
	}
	security := cache.NewSecurity(pref.Network.AllowedDomain)
	fetcher := cache.NewFetcher(store, security, pref.Network.Enable)

	return &RuntimeState{
		Pref:     pref,
		Registry: registry,
		Fetcher:  fetcher,
		Store:    store,
		BaseDir:  baseDir,
	}, nil
}
