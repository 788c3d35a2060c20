// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/server"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var leaveParams server.LeaveSubnetParams

func newLeaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Leave a subnet, releasing the account's collateral",
		RunE:  leaveSubnet,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&leaveParams.Subnet, "subnet", "", "subnet id to leave")
	cmd.Flags().StringVar(&leaveParams.Account, "account", "", "account whose collateral is released")
	_ = cmd.MarkFlagRequired("subnet")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func leaveSubnet(cmd *cobra.Command, _ []string) error {
	c, err := dialAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.LeaveSubnet(cmd.Context(), leaveParams); err != nil {
		return err
	}
	ux.Logger.PrintToUser("left subnet %s", leaveParams.Subnet)
	return nil
}
