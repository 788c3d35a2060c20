// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package server exposes the agent's own JSON-RPC API: subnet lifecycle
// operations, validator set reads and checkpoint listings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/constants"
)

// JSON-RPC methods served by the agent.
const (
	MethodListChildSubnets  = "ipc_listChildSubnets"
	MethodCreateSubnet      = "ipc_createSubnet"
	MethodJoinSubnet        = "ipc_joinSubnet"
	MethodLeaveSubnet       = "ipc_leaveSubnet"
	MethodKillSubnet        = "ipc_killSubnet"
	MethodQueryValidatorSet = "ipc_queryValidatorSet"
	MethodListCheckpoints   = "ipc_listCheckpoints"
	MethodReloadConfig      = "ipc_reloadConfig"
)

type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server is a plain JSON-RPC 2.0 endpoint over HTTP.
type Server struct {
	log      *zap.SugaredLogger
	addr     string
	handlers map[string]handlerFunc
	httpSrv  *http.Server
}

func New(log *zap.SugaredLogger, addr string, deps Deps) *Server {
	s := &Server{
		log:      log.Named("server"),
		addr:     addr,
		handlers: make(map[string]handlerFunc),
	}
	s.register(deps)

	r := mux.NewRouter()
	r.HandleFunc(constants.JSONRPCEndpoint, s.handleHTTP).Methods(http.MethodPost)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("json-rpc server listening", "addr", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reply(w, rpcResponse{JSONRPC: "2.0", Error: &rpcErrorBody{Code: -32700, Message: "parse error"}})
		return
	}
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	h, ok := s.handlers[req.Method]
	if !ok {
		resp.Error = &rpcErrorBody{Code: -32601, Message: "method not found: " + req.Method}
		s.reply(w, resp)
		return
	}
	result, err := h(r.Context(), req.Params)
	if err != nil {
		s.log.Warnw("request failed", "method", req.Method, "err", err)
		resp.Error = &rpcErrorBody{Code: errorCode(err), Message: err.Error()}
	} else {
		resp.Result = result
	}
	s.reply(w, resp)
}

func (s *Server) reply(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warnw("response write failed", "err", err)
	}
}

// decodeParams accepts params as a bare object or as a one-element
// positional array, which is what generic JSON-RPC clients send.
func decodeParams(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return agenterr.Configf("missing params")
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 1 {
			return agenterr.Configf("expected a single params object, got %d", len(arr))
		}
		raw = arr[0]
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return agenterr.Configf("malformed params: %v", err)
	}
	return nil
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, agenterr.ErrConfig):
		return -32602
	case errors.Is(err, agenterr.ErrSubnetUnreachable):
		return 1
	case errors.Is(err, agenterr.ErrAuth):
		return 2
	case errors.Is(err, agenterr.ErrQuorumNotReached):
		return 3
	case errors.Is(err, agenterr.ErrNonceConflict):
		return 4
	case errors.Is(err, agenterr.ErrInsufficientCollateral):
		return 5
	case errors.Is(err, agenterr.ErrLifecycleConflict):
		return 6
	}
	return -32603
}
