// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package subnetcmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/protofire/ipc-agent/pkg/server"
)

var listParams server.ListChildSubnetsParams

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the child subnets registered under a subnet",
		RunE:  listSubnets,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&listParams.SubnetID, "subnet", "", "parent subnet id to query")
	cmd.Flags().StringVar(&listParams.GatewayAddress, "gateway-address", "", "gateway address of the parent subnet")
	_ = cmd.MarkFlagRequired("subnet")
	return cmd
}

func listSubnets(cmd *cobra.Command, _ []string) error {
	c, err := dialAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	subnets, err := c.ListChildSubnets(cmd.Context(), listParams)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Subnet", "Status", "Degraded", "Collateral", "Validators"})
	ids := maps.Keys(subnets)
	slices.Sort(ids)
	for _, id := range ids {
		info := subnets[id]
		table.Append([]string{
			id,
			info.StatusName,
			strconv.FormatBool(info.Degraded),
			info.Stake.String(),
			strconv.Itoa(info.Validators),
		})
	}
	table.Render()
	return nil
}
