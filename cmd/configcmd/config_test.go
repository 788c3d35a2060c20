// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package configcmd

import (
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/internal/testutils"
	"github.com/protofire/ipc-agent/pkg/config"
)

func TestShowWithoutConfig(t *testing.T) {
	require := testutils.SetupTest(t)

	cmd := NewCmd(testutils.SetupTestApp(t))
	showCmd, _, err := cmd.Find([]string{"show"})
	require.NoError(err)
	require.Error(showCmd.RunE(showCmd, nil))
}

func TestShowWithConfig(t *testing.T) {
	require := testutils.SetupTest(t)

	fs := afero.NewMemMapFs()
	path := "/etc/ipc-agent/config.toml"
	require.NoError(afero.WriteFile(fs, path, []byte(`
[server]
json_rpc_address = "127.0.0.1:3030"

[[subnets]]
id = "/root"
gateway_addr = "t064"
jsonrpc_api_http = "http://127.0.0.1:1234/rpc/v1"
`), 0o600))
	rc, err := config.NewReloadableConfig(zap.NewNop().Sugar(), fs, path)
	require.NoError(err)

	testApp := testutils.SetupTestApp(t)
	testApp.Conf = rc

	cmd := NewCmd(testApp)
	showCmd, _, err := cmd.Find([]string{"show"})
	require.NoError(err)
	require.NoError(showCmd.RunE(showCmd, nil))
}
