// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/client"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var (
	app *application.IPC

	agentURL string
)

func NewCmd(injectedApp *application.IPC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and reload the agent configuration",
		Run: func(cmd *cobra.Command, args []string) {
			err := cmd.Help()
			if err != nil {
				fmt.Println(err)
			}
		},
	}
	app = injectedApp
	cmd.PersistentFlags().StringVar(&agentURL, "ipc-agent-url",
		"http://"+constants.DefaultServerAddr+constants.JSONRPCEndpoint,
		"JSON-RPC url of the IPC agent")
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newReloadCmd())
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the loaded configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := app.GetConfig()
			if conf == nil {
				return fmt.Errorf("no config file loaded")
			}
			ux.Logger.PrintToUser("config: %s", app.Conf.Path())
			ux.Logger.PrintToUser("server: %s", conf.Server.JSONRPCAddress)
			for _, s := range conf.Subnets {
				ux.Logger.PrintToUser("subnet %s (%s) -> %s", s.ID, s.NetworkName, s.RPCEndpoint)
			}
			return nil
		},
		Args: cobra.NoArgs,
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask a running agent to reload its config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.Dial(cmd.Context(), agentURL)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.ReloadConfig(cmd.Context()); err != nil {
				return err
			}
			ux.Logger.PrintToUser("agent config reloaded")
			return nil
		},
		Args: cobra.NoArgs,
	}
}
