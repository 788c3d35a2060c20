// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/checkpoint"
	"github.com/protofire/ipc-agent/pkg/lifecycle"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/rpc"
)

func newTestServer(t *testing.T, reloaded *bool) (*httptest.Server, *lifecycle.Manager) {
	t.Helper()
	log := zap.NewNop().Sugar()

	reg := registry.New(log)
	require.NoError(t, reg.AddSubnet(models.Subnet{
		ID:          models.RootSubnetID,
		GatewayAddr: "t064",
		RPCEndpoint: "http://127.0.0.1:1234/rpc/v1",
	}))
	mgr := lifecycle.NewManager(log, reg)
	sched := checkpoint.NewScheduler(log, checkpoint.SchedulerOpts{
		Pool:  rpc.NewPool(log, nil),
		Store: checkpoint.NewStore(),
	})

	srv := New(log, "127.0.0.1:0", Deps{
		Registry:  reg,
		Lifecycle: mgr,
		Scheduler: sched,
		Reload: func(context.Context) error {
			if reloaded != nil {
				*reloaded = true
			}
			return nil
		},
	})
	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(ts.Close)
	return ts, mgr
}

func doRPC(t *testing.T, ts *httptest.Server, method string, params interface{}) rpcResponse {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpResp, err := http.Post(ts.URL+"/json_rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var resp rpcResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	return resp
}

func TestSubnetLifecycleOverRPC(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	resp := doRPC(t, ts, MethodCreateSubnet, CreateSubnetParams{
		Parent:            "/root",
		Name:              "andromeda",
		MinValidatorStake: "10",
		MinValidators:     2,
	})
	require.Nil(resp.Error)
	var created CreateSubnetResponse
	require.NoError(json.Unmarshal(mustMarshal(t, resp.Result), &created))
	require.Equal("/root/andromeda", created.SubnetID)

	resp = doRPC(t, ts, MethodJoinSubnet, JoinSubnetParams{
		Subnet:           created.SubnetID,
		Account:          "t1aaa",
		Collateral:       "10",
		ValidatorNetAddr: "/ip4/10.0.0.1/tcp/1347",
	})
	require.Nil(resp.Error)

	resp = doRPC(t, ts, MethodListChildSubnets, ListChildSubnetsParams{SubnetID: "/root"})
	require.Nil(resp.Error)
	var children map[string]lifecycle.Info
	require.NoError(json.Unmarshal(mustMarshal(t, resp.Result), &children))
	require.Len(children, 1)
	require.Equal("Proposed", children["/root/andromeda"].StatusName)

	resp = doRPC(t, ts, MethodLeaveSubnet, LeaveSubnetParams{
		Subnet:  created.SubnetID,
		Account: "t1aaa",
	})
	require.Nil(resp.Error)
}

func TestErrorCodesOverRPC(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	resp := doRPC(t, ts, MethodCreateSubnet, CreateSubnetParams{
		Parent:            "/root",
		Name:              "andromeda",
		MinValidatorStake: "10",
	})
	require.Nil(resp.Error)

	// collateral below the minimum
	resp = doRPC(t, ts, MethodJoinSubnet, JoinSubnetParams{
		Subnet:     "/root/andromeda",
		Account:    "t1aaa",
		Collateral: "9",
	})
	require.NotNil(resp.Error)
	require.Equal(5, resp.Error.Code)

	// killing a Proposed subnet is a lifecycle conflict
	resp = doRPC(t, ts, MethodKillSubnet, KillSubnetParams{Subnet: "/root/andromeda"})
	require.NotNil(resp.Error)
	require.Equal(6, resp.Error.Code)

	// malformed subnet id is a config error
	resp = doRPC(t, ts, MethodJoinSubnet, JoinSubnetParams{Subnet: "no-root", Account: "t1aaa"})
	require.NotNil(resp.Error)
	require.Equal(-32602, resp.Error.Code)

	resp = doRPC(t, ts, "ipc_noSuchMethod", nil)
	require.NotNil(resp.Error)
	require.Equal(-32601, resp.Error.Code)
}

func TestParamsAcceptPositionalArray(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	// geth-style clients wrap the argument in a one-element array
	resp := doRPC(t, ts, MethodCreateSubnet, []interface{}{CreateSubnetParams{
		Parent:            "/root",
		Name:              "andromeda",
		MinValidatorStake: "10",
	}})
	require.Nil(resp.Error)

	resp = doRPC(t, ts, MethodCreateSubnet, []interface{}{})
	require.NotNil(resp.Error)
	require.Equal(-32602, resp.Error.Code)

	resp = doRPC(t, ts, MethodCreateSubnet, nil)
	require.NotNil(resp.Error)
	require.Equal(-32602, resp.Error.Code)
}

func TestReloadConfigOverRPC(t *testing.T) {
	require := require.New(t)
	reloaded := false
	ts, _ := newTestServer(t, &reloaded)

	resp := doRPC(t, ts, MethodReloadConfig, nil)
	require.Nil(resp.Error)
	require.True(reloaded)
}

func TestQueryValidatorSetNotObserved(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	resp := doRPC(t, ts, MethodQueryValidatorSet, QueryValidatorSetParams{Subnet: "/root/andromeda"})
	require.NotNil(resp.Error)
	require.Equal(-32603, resp.Error.Code)
}

func TestListCheckpointsOverRPC(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	resp := doRPC(t, ts, MethodListCheckpoints, ListCheckpointsParams{SubnetID: "/root/andromeda"})
	require.Nil(resp.Error)

	resp = doRPC(t, ts, MethodListCheckpoints, ListCheckpointsParams{SubnetID: "///"})
	require.NotNil(resp.Error)
	require.Equal(-32602, resp.Error.Code)
}

func TestMalformedRequestBody(t *testing.T) {
	require := require.New(t)
	ts, _ := newTestServer(t, nil)

	httpResp, err := http.Post(ts.URL+"/json_rpc", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(err)
	defer httpResp.Body.Close()
	var resp rpcResponse
	require.NoError(json.NewDecoder(httpResp.Body).Decode(&resp))
	require.NotNil(resp.Error)
	require.Equal(-32700, resp.Error.Code)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

