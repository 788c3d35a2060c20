// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package daemoncmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/protofire/ipc-agent/pkg/application"
	"github.com/protofire/ipc-agent/pkg/checkpoint"
	"github.com/protofire/ipc-agent/pkg/constants"
	"github.com/protofire/ipc-agent/pkg/lifecycle"
	"github.com/protofire/ipc-agent/pkg/registry"
	"github.com/protofire/ipc-agent/pkg/rpc"
	"github.com/protofire/ipc-agent/pkg/server"
	"github.com/protofire/ipc-agent/pkg/tracker"
	"github.com/protofire/ipc-agent/pkg/ux"
)

var app *application.IPC

func NewCmd(injectedApp *application.IPC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the IPC agent",
		Long: `Runs the agent daemon: serves the JSON-RPC API and starts one
checkpoint relay per configured parent/child subnet edge. SIGHUP reloads
the config file and reconciles the running relays with it.`,
		RunE: runDaemon,
		Args: cobra.NoArgs,
	}
	app = injectedApp
	return cmd
}

func runDaemon(*cobra.Command, []string) error {
	if app.Conf == nil {
		return fmt.Errorf("no config file found; create one or pass --config")
	}
	log := app.Log
	conf := app.Conf.Get()

	reg := registry.New(log)
	if err := reg.Reload(conf.Subnets); err != nil {
		return err
	}

	mgr := lifecycle.NewManager(log, reg)
	pool := rpc.NewPool(log, nil)
	store := checkpoint.NewStore()
	events := make(chan tracker.Event, 64)
	sched := checkpoint.NewScheduler(log, checkpoint.SchedulerOpts{
		Pool:         pool,
		Store:        store,
		Params:       mgr,
		TopDown:      mgr,
		Events:       events,
		PollInterval: constants.DefaultPollInterval,
	})
	mgr.SetSettler(sched)

	reload := func(ctx context.Context) error {
		if err := app.Conf.Reload(); err != nil {
			return err
		}
		next := app.Conf.Get()
		if err := reg.Reload(next.Subnets); err != nil {
			return err
		}
		sched.Apply(ctx, reg.Snapshot())
		return nil
	}

	srv := server.New(log, conf.Server.JSONRPCAddress, server.Deps{
		Registry:  reg,
		Lifecycle: mgr,
		Scheduler: sched,
		Reload:    reload,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Apply(ctx, reg.Snapshot())
	ux.Logger.PrintToUser("IPC agent up, serving on %s", conf.Server.JSONRPCAddress)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mgr.HandleEvents(gCtx, events)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gCtx)
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-hup:
				if err := reload(gCtx); err != nil {
					log.Errorw("config reload failed", "err", err)
				}
			}
		}
	})

	err := g.Wait()
	sched.Stop()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	ux.Logger.PrintToUser("IPC agent stopped")
	return nil
}
