// Copyright © 2024 The Mago authors

// Package lsp implements a Language Server Protocol server.  It publishes
// analyzer and linter diagnostics for open documents.  Hover shows inferred
// types and declarations, and go-to-definition follows names into the
// workspace.  Formatting, symbols, folding ranges, and quick fixes are
// provided as well.
package lsp

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"go.uber.org/zap"

	"github.com/magophp/mago/config"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/source"
)

const serverName = "mago-lsp"

// Server is the mago language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootURI  string
	rootPath string
	log      *zap.Logger

	// cfg is replaced by the workspace configuration on initialize unless
	// it was provided with WithConfig.
	cfg      *config.Config
	fixedCfg bool
	cfgMu    sync.RWMutex

	// Workspace files, indexed lazily on first demand.
	workspace   map[string]workspaceFile
	workspaceMu sync.RWMutex
	indexOnce   sync.Once

	// Pending re-analysis timers per URI, reset on every change.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// notify publishes to the client; it is taken from the latest request.
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn terminates the process on exit.  Tests replace it.
	exitFn func(int)
}

// workspaceFile is a file of the workspace that is not open in the editor.
type workspaceFile struct {
	Name    string
	Path    string
	Content string
}

// Option configures the LSP server.
type Option func(*Server)

// WithConfig uses cfg instead of the workspace mago.toml.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.cfg = cfg
		s.fixedCfg = true
	}
}

// WithLogger sets the server logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a new language server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:      NewDocumentStore(),
		cfg:       config.Default(),
		log:       zap.NewNop(),
		workspace: make(map[string]workspaceFile),
		debounce:  make(map[string]*time.Timer),
		exitFn:    os.Exit,
	}
	for _, o := range opts {
		o(s)
	}

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFoldingRange:   s.textDocumentFoldingRange,
		TextDocumentFormatting:     s.textDocumentFormatting,
		TextDocumentCodeAction:     s.textDocumentCodeAction,
		WorkspaceSymbol:            s.workspaceSymbol,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}
	if s.rootPath != "" && !s.fixedCfg {
		cfg, err := config.Load(config.Options{Workspace: s.rootPath})
		if err != nil {
			s.log.Warn("lsp.config", zap.String("root", s.rootPath), zap.Error(err))
		} else {
			s.cfgMu.Lock()
			s.cfg = cfg
			s.cfgMu.Unlock()
		}
	}

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.CodeActionProvider = &protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(ctx *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()

	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace accepts $/setTrace; trace output is not supported.
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

func (s *Server) currentConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// ensureWorkspaceIndex guarantees the workspace files are loaded at least
// once.  It is safe to call from any goroutine.
func (s *Server) ensureWorkspaceIndex() {
	s.indexOnce.Do(s.buildWorkspaceIndex)
}

// buildWorkspaceIndex loads the workspace files selected by the
// configuration.  Every workspace file is indexed as an external file so
// that only the analyzed document is reported on.
func (s *Server) buildWorkspaceIndex() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("lsp.index.panic", zap.Any("panic", r))
		}
	}()
	if s.rootPath == "" {
		return
	}
	lcfg := s.currentConfig().LoaderConfig()
	lcfg.Workspace = s.rootPath
	loader, err := source.NewLoader(lcfg)
	if err != nil {
		s.log.Warn("lsp.index", zap.Error(err))
		return
	}
	db := source.NewDatabase(interner.New())
	files, loadErrs, err := loader.Load(db)
	if err != nil {
		s.log.Warn("lsp.index", zap.Error(err))
		return
	}
	for _, lerr := range loadErrs {
		s.log.Debug("lsp.index.skip", zap.String("path", lerr.Path), zap.Error(lerr.Err))
	}

	s.workspaceMu.Lock()
	for _, f := range files {
		s.workspace[f.Path] = workspaceFile{Name: f.Name, Path: f.Path, Content: f.Content}
	}
	s.workspaceMu.Unlock()
	s.log.Debug("lsp.index.done", zap.Int("files", len(files)))
}

// updateWorkspaceFile replaces the indexed content of a saved file.
func (s *Server) updateWorkspaceFile(uri, content string) {
	s.ensureWorkspaceIndex()
	path := uriToPath(uri)
	s.workspaceMu.Lock()
	defer s.workspaceMu.Unlock()
	if wf, ok := s.workspace[path]; ok {
		wf.Content = content
		s.workspace[path] = wf
	}
}

// workspaceFiles returns the indexed files other than path.
func (s *Server) workspaceFiles(path string) []workspaceFile {
	s.workspaceMu.RLock()
	defer s.workspaceMu.RUnlock()
	files := make([]workspaceFile, 0, len(s.workspace))
	for p, wf := range s.workspace {
		if p != path {
			files = append(files, wf)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// captureNotify keeps the client's notify function so diagnostics can be
// published after a debounce.
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
