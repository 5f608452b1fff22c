package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/cometbft/cometbft/libs/log"
)

const (
	maxRequestContentLength = 1024 * 1024 * 5
	contentType             = "application/json"
	version                 = "2.0"
)

type request struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

type response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Server dispatches JSON-RPC 2.0 calls to registered methods.
type Server struct {
	logger  log.Logger
	metrics *metrics

	mu      sync.RWMutex
	methods map[string]Method
}

func NewServer(logger log.Logger) *Server {
	return &Server{
		logger:  logger.With("module", "rpc"),
		metrics: newMetrics(),
		methods: make(map[string]Method),
	}
}

// RegisterName adds methods under namespace, each callable as
// namespace_name.
func (s *Server) RegisterName(namespace string, methods ...Method) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range methods {
		name := namespace + "_" + m.Name
		if _, ok := s.methods[name]; ok {
			s.logger.Error("overriding rpc method", "method", name)
		}
		s.methods[name] = m
	}
}

// Methods lists the registered method names in order.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle invokes method with raw params and encodes its result.
func (s *Server) Handle(ctx context.Context, method string, params json.RawMessage) (result json.RawMessage, err error) {
	s.mu.RLock()
	m, ok := s.methods[method]
	s.mu.RUnlock()
	if !ok {
		return nil, MethodNotFound(method)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rpc handler panicked", "method", method, "panic", r, "stack", string(debug.Stack()))
			result, err = nil, Internal(fmt.Errorf("%v", r))
		}
		s.metrics.observe(method, start, err)
	}()

	v, err := m.Call(ctx, params)
	if err != nil {
		return nil, err
	}
	return Encode(v)
}

func (s *Server) handleRequest(ctx context.Context, req *request) *response {
	resp := &response{Version: version, ID: req.ID}
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	if req.Version != version || req.Method == "" {
		resp.Error = InvalidRequest("malformed request object")
		return resp
	}
	result, err := s.Handle(ctx, req.Method, req.Params)
	if err != nil {
		resp.Error = toError(err)
		if resp.Error.Code == CodeInternal {
			s.logger.Error("rpc call failed", "method", req.Method, "err", err)
		}
		return resp
	}
	resp.Result = result
	return resp
}

func toError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// ServeHTTP serves single and batched calls posted as JSON.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestContentLength+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestContentLength {
		http.Error(w, fmt.Sprintf("content length too large (%d>%d)", len(body), maxRequestContentLength), http.StatusRequestEntityTooLarge)
		return
	}
	w.Header().Set("Content-Type", contentType)

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		s.serveBatch(r.Context(), w, body)
		return
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, &response{Version: version, ID: json.RawMessage("null"), Error: ParseError(err.Error())})
		return
	}
	resp := s.handleRequest(r.Context(), &req)
	if req.isNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) serveBatch(ctx context.Context, w http.ResponseWriter, body []byte) {
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		writeJSON(w, &response{Version: version, ID: json.RawMessage("null"), Error: ParseError(err.Error())})
		return
	}
	if len(batch) == 0 {
		writeJSON(w, &response{Version: version, ID: json.RawMessage("null"), Error: InvalidRequest("empty batch")})
		return
	}

	responses := make([]*response, len(batch))
	var wg sync.WaitGroup
	for i, raw := range batch {
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			responses[i] = &response{Version: version, ID: json.RawMessage("null"), Error: InvalidRequest(err.Error())}
			continue
		}
		wg.Add(1)
		go func(i int, req *request) {
			defer wg.Done()
			if resp := s.handleRequest(ctx, req); !req.isNotification() {
				responses[i] = resp
			}
		}(i, &req)
	}
	wg.Wait()

	out := make([]*response, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MetricsHandler serves the call metrics in the prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.handler()
}
