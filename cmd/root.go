// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/protofire/ipc-agent/cmd/checkpointcmd"
	"github.com/protofire/ipc-agent/cmd/configcmd"
	"github.com/protofire/ipc-agent/cmd/daemoncmd"
	"github.com/protofire/ipc-agent/cmd/subnetcmd"
	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/config"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var (
	app *application.IPC

	configPath string
	logLevel   string
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "IPC Agent manages hierarchical subnets and relays checkpoints between them",
		Long: `The IPC Agent is the off-chain coordinator of a subnet hierarchy: it
creates, joins and manages subnets, tracks their validator sets and keeps
each subnet's state synchronized with its parent through periodic
bottom-up and top-down checkpoints.`,
		PersistentPreRunE: setupApp,
		SilenceUsage:      true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the agent config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	app = application.New()
	rootCmd.AddCommand(daemoncmd.NewCmd(app))
	rootCmd.AddCommand(subnetcmd.NewCmd(app))
	rootCmd.AddCommand(checkpointcmd.NewCmd(app))
	rootCmd.AddCommand(configcmd.NewCmd(app))
	return rootCmd
}

func setupApp(_ *cobra.Command, _ []string) error {
	log, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	fs := afero.NewOsFs()
	baseDir := defaultBaseDir()

	path := configPath
	if path == "" {
		path = filepath.Join(baseDir, constants.ConfigFileName)
	}
	var conf *config.ReloadableConfig
	if exists, _ := afero.Exists(fs, path); exists {
		conf, err = config.NewReloadableConfig(log, fs, path)
		if err != nil {
			return err
		}
	}
	app.Setup(baseDir, log, fs, conf)
	ux.NewUserLog(log, os.Stdout)
	return nil
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "."+constants.AppName)
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
