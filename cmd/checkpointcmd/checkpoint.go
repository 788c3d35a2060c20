// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package checkpointcmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/client"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/server"
)

var (
	app *application.IPC

	agentURL   string
	listParams server.ListCheckpointsParams
)

func NewCmd(injectedApp *application.IPC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect confirmed checkpoints",
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
	cmd.AddCommand(newListCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List confirmed bottom-up checkpoints for a subnet",
		RunE:  listCheckpoints,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&listParams.SubnetID, "subnet", "", "child subnet id")
	cmd.Flags().Int64Var(&listParams.FromEpoch, "from-epoch", 0, "start of the epoch window")
	cmd.Flags().Int64Var(&listParams.ToEpoch, "to-epoch", 0, "end of the epoch window (0 for no bound)")
	_ = cmd.MarkFlagRequired("subnet")
	return cmd
}

func listCheckpoints(cmd *cobra.Command, _ []string) error {
	c, err := client.Dial(cmd.Context(), agentURL)
	if err != nil {
		return err
	}
	defer c.Close()
	records, err := c.ListCheckpoints(cmd.Context(), listParams)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Nonce", "Epochs", "Messages", "Digest"})
	for _, r := range records {
		table.Append([]string{
			strconv.FormatUint(r.Nonce, 10),
			fmt.Sprintf("%d-%d", r.Epochs.From, r.Epochs.To),
			strconv.Itoa(len(r.CrossMsgs)),
			r.Digest.Hex(),
		})
	}
	table.Render()
	return nil
}
