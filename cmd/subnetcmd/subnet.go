// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/client"
	"github.com/protofire/ipc-agent/pkg/constants"
)

var (
	app *application.IPC

	agentURL string
)

func NewCmd(injectedApp *application.IPC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subnet",
		Short: "Create, join and manage subnets",
		Long:  `Subnet lifecycle operations, executed against a running IPC agent.`,
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
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newJoinCmd())
	cmd.AddCommand(newLeaveCmd())
	cmd.AddCommand(newKillCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

func dialAgent(ctx context.Context) (*client.Client, error) {
	return client.Dial(ctx, agentURL)
}
