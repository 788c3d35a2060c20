// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package client is the thin JSON-RPC client the CLI commands use to talk
// to a running agent.
package client

import (
	"context"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/protofire/ipc-agent/pkg/lifecycle"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/server"
)

type Client struct {
	rpc *gethrpc.Client
}

func Dial(ctx context.Context, agentURL string) (*Client, error) {
	c, err := gethrpc.DialContext(ctx, agentURL)
	if err != nil {
		return nil, fmt.Errorf("dialing agent at %s: %w", agentURL, err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) ListChildSubnets(ctx context.Context, p server.ListChildSubnetsParams) (map[string]lifecycle.Info, error) {
	var out map[string]lifecycle.Info
	err := c.rpc.CallContext(ctx, &out, server.MethodListChildSubnets, p)
	return out, err
}

func (c *Client) CreateSubnet(ctx context.Context, p server.CreateSubnetParams) (server.CreateSubnetResponse, error) {
	var out server.CreateSubnetResponse
	err := c.rpc.CallContext(ctx, &out, server.MethodCreateSubnet, p)
	return out, err
}

func (c *Client) JoinSubnet(ctx context.Context, p server.JoinSubnetParams) error {
	var ok bool
	return c.rpc.CallContext(ctx, &ok, server.MethodJoinSubnet, p)
}

func (c *Client) LeaveSubnet(ctx context.Context, p server.LeaveSubnetParams) error {
	var ok bool
	return c.rpc.CallContext(ctx, &ok, server.MethodLeaveSubnet, p)
}

func (c *Client) KillSubnet(ctx context.Context, p server.KillSubnetParams) error {
	var ok bool
	return c.rpc.CallContext(ctx, &ok, server.MethodKillSubnet, p)
}

func (c *Client) QueryValidatorSet(ctx context.Context, p server.QueryValidatorSetParams) (*models.ValidatorSetSnapshot, error) {
	var out models.ValidatorSetSnapshot
	if err := c.rpc.CallContext(ctx, &out, server.MethodQueryValidatorSet, p); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCheckpoints(ctx context.Context, p server.ListCheckpointsParams) ([]models.CheckpointRecord, error) {
	var out []models.CheckpointRecord
	err := c.rpc.CallContext(ctx, &out, server.MethodListCheckpoints, p)
	return out, err
}

func (c *Client) ReloadConfig(ctx context.Context) error {
	var ok bool
	return c.rpc.CallContext(ctx, &ok, server.MethodReloadConfig)
}
