// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package constants

import "time"

const (
	AppName        = "ipc-agent"
	ConfigFileName = "config.toml"

	// DefaultServerAddr is where the agent serves its own JSON-RPC API.
	DefaultServerAddr = "127.0.0.1:3030"
	JSONRPCEndpoint   = "/json_rpc"

	// RPC pool retry policy.
	RPCMaxAttempts    = 5
	RPCInitialBackoff = 500 * time.Millisecond
	RPCMaxBackoff     = 30 * time.Second
	RPCRequestTimeout = 60 * time.Second

	// Relay units poll chain heads at this cadence to convert epoch-based
	// check periods into ticks.
	DefaultPollInterval = 5 * time.Second
	// MinPollInterval floors the validator tracker's poll cadence.
	MinPollInterval = time.Second

	// Defaults applied when a create request leaves a knob unset.
	DefaultMinValidators       = 1
	DefaultFinalityThreshold   = 2.0 / 3.0
	DefaultBottomUpCheckPeriod = 30
	DefaultTopDownCheckPeriod  = 30

	ServerShutdownTimeout = 10 * time.Second
)
