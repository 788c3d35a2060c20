// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package application

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/config"
)

// IPC bundles the objects every command needs: the logger, the filesystem
// and the reloadable config. Commands receive it via their NewCmd
// constructors.
type IPC struct {
	Log     *zap.SugaredLogger
	Fs      afero.Fs
	BaseDir string
	Conf    *config.ReloadableConfig
}

func New() *IPC {
	return &IPC{}
}

func (app *IPC) Setup(baseDir string, log *zap.SugaredLogger, fs afero.Fs, conf *config.ReloadableConfig) {
	app.BaseDir = baseDir
	app.Log = log
	app.Fs = fs
	app.Conf = conf
}

// GetConfig returns the current config snapshot, or nil when the app was
// set up without one (pure client commands).
func (app *IPC) GetConfig() *config.Config {
	if app.Conf == nil {
		return nil
	}
	return app.Conf.Get()
}
