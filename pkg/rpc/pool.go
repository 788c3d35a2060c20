// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package rpc

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/models"
	"github.com/protofire/ipc-agent/pkg/registry"
)

// Dialer builds a gateway client for one subnet. Swapped out in tests.
type Dialer func(ctx context.Context, log *zap.SugaredLogger, conf models.Subnet) (Gateway, error)

// Pool hands out one long-lived gateway client per subnet, dialing lazily
// on first use. Rebuild drops clients for subnets no longer registered so a
// config reload does not leak connections.
type Pool struct {
	log  *zap.SugaredLogger
	dial Dialer

	mu      sync.Mutex
	clients map[models.SubnetID]Gateway
	configs map[models.SubnetID]models.Subnet
}

func NewPool(log *zap.SugaredLogger, dial Dialer) *Pool {
	if dial == nil {
		dial = Dial
	}
	return &Pool{
		log:     log,
		dial:    dial,
		clients: make(map[models.SubnetID]Gateway),
		configs: make(map[models.SubnetID]models.Subnet),
	}
}

// Rebuild aligns the pool with a registry snapshot.
func (p *Pool) Rebuild(snap *registry.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.configs {
		conf, ok := snap.Get(id)
		if ok && conf.Equal(p.configs[id]) {
			continue
		}
		// gone or rebound to a different endpoint/token
		delete(p.clients, id)
		delete(p.configs, id)
	}
	for _, id := range snap.IDs() {
		conf, _ := snap.Get(id)
		p.configs[id] = conf
	}
}

// Get returns the client for subnet id, dialing it if needed.
func (p *Pool) Get(ctx context.Context, id models.SubnetID) (Gateway, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gw, ok := p.clients[id]; ok {
		return gw, nil
	}
	conf, ok := p.configs[id]
	if !ok {
		return nil, agenterr.Configf("no rpc endpoint configured for subnet %s", id)
	}
	gw, err := p.dial(ctx, p.log, conf)
	if err != nil {
		return nil, err
	}
	p.clients[id] = gw
	return gw, nil
}
