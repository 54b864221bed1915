package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/promptvolley/promptvolley/internal/fire"
	"github.com/promptvolley/promptvolley/internal/stage"
	"github.com/promptvolley/promptvolley/internal/util"
)

// Daemon is the surface the control server drives.
type Daemon interface {
	Stage(ctx context.Context, req stage.Request) (stage.Result, error)
	Fire(ctx context.Context, req fire.Request) (string, error)
	StopFire(ctx context.Context) error
	Status(ctx context.Context) (StatusReport, error)
}

// Server hosts the control socket and serves requests.
type Server struct {
	daemon     Daemon
	logger     *util.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server. An empty path selects the default
// runtime socket location.
func NewServer(daemon Daemon, logger *util.Logger, path string, reload func(reason string) error) (*Server, error) {
	if path == "" {
		var err error
		path, err = DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Server{
		daemon:     daemon,
		logger:     logger,
		reload:     reload,
		socketPath: path,
	}, nil
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	switch req.Action {
	case ActionStage:
		s.handleStage(ctx, conn, req.Params)
	case ActionFire:
		s.handleFire(ctx, conn, req.Params)
	case ActionStop:
		s.handleStop(ctx, conn)
	case ActionStatus:
		s.handleStatus(ctx, conn)
	case ActionReload:
		s.handleReload(conn)
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleStage(ctx context.Context, conn net.Conn, params map[string]any) {
	urls := stringSlice(params["urls"])
	if len(urls) == 0 {
		s.writeError(conn, errors.New("missing target urls"))
		return
	}
	count := intParam(params, "count")
	if count <= 0 {
		s.writeError(conn, errors.New("count must be positive"))
		return
	}
	result, err := s.daemon.Stage(ctx, stage.Request{URLs: urls, Count: count})
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, StageResult{Handles: result.Handles, Shortfall: result.Shortfall})
}

func (s *Server) handleFire(ctx context.Context, conn net.Conn, params map[string]any) {
	mode, _ := params["mode"].(string)
	prompt, _ := params["prompt"].(string)
	target, _ := params["target"].(string)
	if prompt == "" {
		s.writeError(conn, errors.New("missing prompt"))
		return
	}
	if target == "" {
		s.writeError(conn, errors.New("missing target"))
		return
	}
	req := fire.Request{
		Mode:     fire.Mode(mode),
		Target:   target,
		Prompt:   prompt,
		RoundCap: intParam(params, "rounds"),
	}
	id, err := s.daemon.Fire(ctx, req)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, FireResult{SessionID: id})
}

func (s *Server) handleStop(ctx context.Context, conn net.Conn) {
	if err := s.daemon.StopFire(ctx); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) handleStatus(ctx context.Context, conn net.Conn) {
	report, err := s.daemon.Status(ctx)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, report)
}

func (s *Server) handleReload(conn net.Conn) {
	if s.reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intParam(params map[string]any, key string) int {
	// JSON numbers decode as float64.
	if f, ok := params[key].(float64); ok {
		return int(f)
	}
	return 0
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
