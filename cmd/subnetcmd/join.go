// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/server"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var joinParams server.JoinSubnetParams

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a subnet as a validator, locking collateral",
		RunE:  joinSubnet,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&joinParams.Subnet, "subnet", "", "subnet id to join")
	cmd.Flags().StringVar(&joinParams.Account, "account", "", "account providing the collateral")
	cmd.Flags().StringVar(&joinParams.Collateral, "collateral", "", "collateral to lock, in atto")
	cmd.Flags().StringVar(&joinParams.ValidatorNetAddr, "validator-net-addr", "", "publicly reachable address of the validator")
	_ = cmd.MarkFlagRequired("subnet")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("collateral")
	return cmd
}

func joinSubnet(cmd *cobra.Command, _ []string) error {
	c, err := dialAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.JoinSubnet(cmd.Context(), joinParams); err != nil {
		return err
	}
	ux.Logger.PrintToUser("joined subnet %s with %s collateral", joinParams.Subnet, joinParams.Collateral)
	return nil
}
