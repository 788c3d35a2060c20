// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package main

import "github.com/protofire/ipc-agent/cmd"

func main() {
	cmd.Execute()
}
