package gateway

import (
	"fmt"
	"log/slog"
	"net/http"

	"tailscale.com/tsnet"

	"github.com/chebykinn/browser-code/internal/config"
)

// StartTailscaleListener brings the gateway's mux up on the tailnet as a
// second listener alongside the main one, mirroring the teacher's
// gateway.go "build the mux first, serve it on both the main listener and
// Tailscale" approach. A no-op when cfg.Enabled is false. The returned
// closer tears the tsnet session down; call it during shutdown.
func (s *Server) StartTailscaleListener(cfg config.TailscaleConfig) (func() error, error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	tsSrv := &tsnet.Server{
		Hostname:  cfg.Hostname,
		Dir:       cfg.StateDir,
		AuthKey:   cfg.AuthKey,
		Ephemeral: cfg.Ephemeral,
		Logf:      func(string, ...interface{}) {}, // tsnet's own logging is very chatty at info level
	}

	ln, err := tsSrv.Listen("tcp", ":80")
	if err != nil {
		tsSrv.Close()
		return nil, fmt.Errorf("tailscale listen: %w", err)
	}

	httpSrv := &http.Server{Handler: s.BuildMux()}
	go func() {
		slog.Info("tailscale listener starting", "hostname", cfg.Hostname)
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("tailscale listener stopped", "error", err)
		}
	}()

	return func() error {
		httpSrv.Close()
		return tsSrv.Close()
	}, nil
}
