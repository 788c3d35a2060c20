// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT

// Package config loads and validates the agent's toml configuration: the
// JSON-RPC server address plus one record per subnet the agent connects to.
package config

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/models"
)

type Server struct {
	JSONRPCAddress string `mapstructure:"json_rpc_address"`
}

type Config struct {
	Server  Server          `mapstructure:"server"`
	Subnets []models.Subnet `mapstructure:"subnets"`
}

// Validate checks every subnet entry individually; tree connectivity is the
// registry's concern.
func (c *Config) Validate() error {
	if c.Server.JSONRPCAddress == "" {
		c.Server.JSONRPCAddress = constants.DefaultServerAddr
	}
	seen := make(map[models.SubnetID]struct{}, len(c.Subnets))
	for _, s := range c.Subnets {
		if err := s.Validate(); err != nil {
			return agenterr.Configf("subnet entry %s: %v", s.ID, err)
		}
		if _, ok := seen[s.ID]; ok {
			return agenterr.Configf("duplicate subnet entry %s", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Subnet returns the config entry for id, if present.
func (c *Config) Subnet(id models.SubnetID) (models.Subnet, bool) {
	for _, s := range c.Subnets {
		if s.ID == id {
			return s, true
		}
	}
	return models.Subnet{}, false
}

// LoadFile parses the toml config at path. The afero filesystem makes the
// loader testable against an in-memory tree.
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, agenterr.Configf("parsing config %s: %v", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}
