// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/protofire/ipc-agent/pkg/agenterr"
	"github.com/protofire/ipc-agent/pkg/constants"
)

// retryPolicy is the explicit retry state applied around every gateway
// call: bounded attempts with exponential backoff and jitter. Only
// transient failures are retried; auth and sequencing errors surface
// immediately.
type retryPolicy struct {
	maxAttempts    uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration
	callTimeout    time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:    constants.RPCMaxAttempts,
		initialBackoff: constants.RPCInitialBackoff,
		maxBackoff:     constants.RPCMaxBackoff,
		callTimeout:    constants.RPCRequestTimeout,
	}
}

func (p retryPolicy) do(ctx context.Context, log *zap.SugaredLogger, op string, fn func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialBackoff
	bo.MaxInterval = p.maxBackoff

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		callCtx := ctx
		if p.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
			defer cancel()
		}
		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if !agenterr.Transient(err) {
			return backoff.Permanent(err)
		}
		log.Debugw("transient rpc failure", "method", op, "attempt", attempt, "err", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, p.maxAttempts-1), ctx))
	if err == nil {
		return nil
	}
	if !agenterr.Transient(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return agenterr.Unreachablef("%s failed after %d attempts: %v", op, attempt, err)
}

func asHTTPError(err error, target *gethrpc.HTTPError) bool {
	return errors.As(err, target)
}
