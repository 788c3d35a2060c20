// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package config

import (
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ReloadableConfig hands out the current config snapshot and re-reads the
// backing file on demand. Readers always observe a complete snapshot.
type ReloadableConfig struct {
	log  *zap.SugaredLogger
	fs   afero.Fs
	path string

	current atomic.Pointer[Config]

	mu   sync.Mutex
	subs []chan *Config
}

func NewReloadableConfig(log *zap.SugaredLogger, fs afero.Fs, path string) (*ReloadableConfig, error) {
	conf, err := LoadFile(fs, path)
	if err != nil {
		return nil, err
	}
	r := &ReloadableConfig{
		log:  log,
		fs:   fs,
		path: path,
	}
	r.current.Store(conf)
	return r, nil
}

// Get returns the current snapshot. The returned config must not be
// mutated.
func (r *ReloadableConfig) Get() *Config {
	return r.current.Load()
}

func (r *ReloadableConfig) Path() string {
	return r.path
}

// Reload re-parses the config file and swaps it in atomically. On parse or
// validation failure the previous snapshot stays in effect.
func (r *ReloadableConfig) Reload() error {
	conf, err := LoadFile(r.fs, r.path)
	if err != nil {
		return err
	}
	r.current.Store(conf)
	r.log.Infow("config reloaded", "path", r.path, "subnets", len(conf.Subnets))

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- conf:
		default:
			// subscriber is behind; it will pick up the latest via Get
		}
	}
	return nil
}

// Subscribe returns a channel that receives each newly loaded snapshot.
func (r *ReloadableConfig) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}
