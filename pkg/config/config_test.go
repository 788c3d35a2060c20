// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/models"
)

const testConfigToml = `
[server]
json_rpc_address = "127.0.0.1:3030"

[[subnets]]
id = "/root"
gateway_addr = "t064"
network_name = "root"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"
auth_token = "root-token"
accounts = ["t1aaa", "t1bbb"]

[[subnets]]
id = "/root/t01001"
gateway_addr = "t064"
network_name = "andromeda"
jsonrpc_api_http = "http://127.0.0.1:1250/rpc/v1"
accounts = ["t1ccc"]
`

func writeConfig(t *testing.T, content string) (afero.Fs, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	path := "/etc/ipc-agent/config.toml"
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
	return fs, path
}

func TestLoadFile(t *testing.T) {
	require := require.New(t)
	fs, path := writeConfig(t, testConfigToml)

	conf, err := LoadFile(fs, path)
	require.NoError(err)
	require.Equal("127.0.0.1:3030", conf.Server.JSONRPCAddress)
	require.Len(conf.Subnets, 2)

	root, ok := conf.Subnet(models.RootSubnetID)
	require.True(ok)
	require.Equal("root-token", root.AuthToken)
	require.Equal([]string{"t1aaa", "t1bbb"}, root.Accounts)
	require.True(root.HasAccount("t1aaa"))

	child, ok := conf.Subnet("/root/t01001")
	require.True(ok)
	require.Equal("http://127.0.0.1:1250/rpc/v1", child.RPCEndpoint)
	require.Empty(child.AuthToken)

	_, ok = conf.Subnet("/root/t09999")
	require.False(ok)
}

func TestLoadFileDefaultsServerAddress(t *testing.T) {
	require := require.New(t)
	fs, path := writeConfig(t, `
[[subnets]]
id = "/root"
gateway_addr = "t064"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"
`)

	conf, err := LoadFile(fs, path)
	require.NoError(err)
	require.Equal(constants.DefaultServerAddr, conf.Server.JSONRPCAddress)
}

func TestLoadFileRejectsBadEntries(t *testing.T) {
	require := require.New(t)

	// missing rpc endpoint
	fs, path := writeConfig(t, `
[[subnets]]
id = "/root"
gateway_addr = "t064"
`)
	_, err := LoadFile(fs, path)
	require.ErrorIs(err, agenterr.ErrConfig)

	// duplicate entry
	fs, path = writeConfig(t, `
[[subnets]]
id = "/root"
gateway_addr = "t064"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"

[[subnets]]
id = "/root"
gateway_addr = "t064"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"
`)
	_, err = LoadFile(fs, path)
	require.ErrorIs(err, agenterr.ErrConfig)

	fs = afero.NewMemMapFs()
	_, err = LoadFile(fs, "/nope/config.toml")
	require.Error(err)
}

func TestReloadableConfig(t *testing.T) {
	require := require.New(t)
	fs, path := writeConfig(t, testConfigToml)

	rc, err := NewReloadableConfig(zap.NewNop().Sugar(), fs, path)
	require.NoError(err)
	require.Equal(path, rc.Path())
	require.Len(rc.Get().Subnets, 2)

	sub := rc.Subscribe()

	// a broken rewrite must keep the previous snapshot in effect
	require.NoError(afero.WriteFile(fs, path, []byte("not toml at all ["), 0o600))
	require.Error(rc.Reload())
	require.Len(rc.Get().Subnets, 2)

	require.NoError(afero.WriteFile(fs, path, []byte(`
[[subnets]]
id = "/root"
gateway_addr = "t064"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"
`), 0o600))
	require.NoError(rc.Reload())
	require.Len(rc.Get().Subnets, 1)

	select {
	case conf := <-sub:
		require.Len(conf.Subnets, 1)
	default:
		t.Fatal("expected a snapshot on the subscription channel")
	}
}
