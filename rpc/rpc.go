package rpc

import (
	"errors"
	"net"
	"net/http"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
)

// RPC serves a Server over HTTP, together with its metrics at /metrics.
type RPC struct {
	service.BaseService
	config Config
	server *Server
	http   *http.Server
	addr   net.Addr
}

func NewRPC(config Config, server *Server, logger log.Logger) *RPC {
	rpc := &RPC{config: config, server: server}
	rpc.BaseService = *service.NewBaseService(logger.With("module", "rpc"), "RPC", rpc)
	return rpc
}

func (r *RPC) OnStart() error {
	mux := http.NewServeMux()
	mux.Handle("/", r.server)
	mux.Handle("/metrics", r.server.MetricsHandler())

	r.http = &http.Server{
		Handler:           mux,
		ReadTimeout:       r.config.HTTPTimeouts.ReadTimeout,
		ReadHeaderTimeout: r.config.HTTPTimeouts.ReadHeaderTimeout,
		WriteTimeout:      r.config.HTTPTimeouts.WriteTimeout,
		IdleTimeout:       r.config.HTTPTimeouts.IdleTimeout,
	}

	r.Logger.Debug("try listening", "listenAddr", r.config.ListenAddress)
	listener, err := net.Listen("tcp", r.config.ListenAddress)
	if err != nil {
		return err
	}
	r.addr = listener.Addr()
	r.Logger.Info("listening", "listenAddr", r.addr, "methods", len(r.server.Methods()))
	go func() {
		if err := r.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("rpc server stopped", "err", err)
		}
	}()
	return nil
}

func (r *RPC) OnStop() {
	r.http.Close()
}

// Addr returns the address listened on once started.
func (r *RPC) Addr() net.Addr {
	return r.addr
}
