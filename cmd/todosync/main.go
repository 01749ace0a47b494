// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/golang/glog"

	"todosync/internal/backend/appsync"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/feed"
	"todosync/internal/monitor"
	"todosync/internal/session"
	"todosync/internal/store"
)

// monitorWindow is the number of samples the sync monitor averages over.
const monitorWindow = 50

func main() {
	defer glog.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var sessionEnded atomic.Bool

	factory := func(ctx context.Context, cfg *config.Config, live bool) (commands.Store, error) {
		sess, err := session.Open(cfg)
		if err != nil {
			return nil, err
		}

		st := store.New(store.Options{
			Backend:         appsync.New(cfg.Settings.GraphQLURL, sess),
			Session:         sess,
			Feed:            feed.New(cfg.Settings.GraphQLURL, cfg.Settings.RealtimeEndpoint(), sess, nil),
			RefreshInterval: cfg.Settings.RefreshInterval,
			Monitor:         monitor.New(monitorWindow),
			OnSessionEnd: func(err error) {
				sessionEnded.Store(true)
				fmt.Fprintf(os.Stderr, "error: auth error: session ended: %v (run: todosync login)\n", err)
				cancel()
			},
			OnFeedError: func(topic feed.Topic, err error) {
				fmt.Fprintf(os.Stderr, "error: backend error: %s feed stopped: %v\n", topic, err)
			},
		})

		if live {
			err = st.Open(ctx)
		} else {
			err = st.Seed(ctx)
		}
		if err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if sessionEnded.Load() {
		code = exitcode.AuthError
	}
	glog.Flush()
	os.Exit(code)
}
