// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

package testutils

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/ux"
)

func SetupTest(t *testing.T) *require.Assertions {
	// use io.Discard to not print anything
	ux.NewUserLog(zap.NewNop().Sugar(), io.Discard)
	return require.New(t)
}

func SetupTestApp(t *testing.T) *application.IPC {
	app := application.New()
	app.Setup(t.TempDir(), zap.NewNop().Sugar(), afero.NewMemMapFs(), nil)
	ux.NewUserLog(app.Log, io.Discard)
	return app
}
