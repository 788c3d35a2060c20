// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/server"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var killParams server.KillSubnetParams

func newKillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Kill a subnet after all validators have exited",
		RunE:  killSubnet,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&killParams.Subnet, "subnet", "", "subnet id to kill")
	_ = cmd.MarkFlagRequired("subnet")
	return cmd
}

func killSubnet(cmd *cobra.Command, _ []string) error {
	c, err := dialAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.KillSubnet(cmd.Context(), killParams); err != nil {
		return err
	}
	ux.Logger.PrintToUser("killed subnet %s", killParams.Subnet)
	return nil
}
