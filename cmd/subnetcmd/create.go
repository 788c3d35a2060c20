// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"github.com/spf13/cobra"

	"github.com/protofire/ipc-agent/pkg/server"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var createParams server.CreateSubnetParams

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new child subnet",
		RunE:  createSubnet,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&createParams.Parent, "parent", "", "parent subnet id, e.g. /root")
	cmd.Flags().StringVar(&createParams.Name, "name", "", "name of the new subnet")
	cmd.Flags().StringVar(&createParams.MinValidatorStake, "min-validator-stake", "", "minimum collateral per validator, in atto")
	cmd.Flags().Uint64Var(&createParams.MinValidators, "min-validators", 0, "minimum validators before the subnet activates")
	cmd.Flags().Float64Var(&createParams.FinalityThreshold, "finality-threshold", 0, "fraction of voting power a checkpoint quorum needs")
	cmd.Flags().Int64Var(&createParams.CheckPeriod, "check-period", 0, "checkpoint period in parent epochs")
	_ = cmd.MarkFlagRequired("parent")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("min-validator-stake")
	return cmd
}

func createSubnet(cmd *cobra.Command, _ []string) error {
	c, err := dialAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	resp, err := c.CreateSubnet(cmd.Context(), createParams)
	if err != nil {
		return err
	}
	ux.Logger.PrintToUser("created subnet %s", resp.SubnetID)
	return nil
}
