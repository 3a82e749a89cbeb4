// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command rplogin serves an OAuth2 or OIDC relying party login at /login.
//
//	rplogin -config rplogin.yaml [-env .env,~/.rplogin.env] [-log-level debug]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/rplogin/account"
	"github.com/hashicorp/rplogin/config"
	"github.com/hashicorp/rplogin/handler"
	"github.com/hashicorp/rplogin/login"
	"github.com/hashicorp/rplogin/mail"
	"github.com/hashicorp/rplogin/nonce"
	"github.com/hashicorp/rplogin/state"
)

func main() {
	configPath := flag.String("config", "rplogin.yaml", "path of the configuration file")
	envFiles := flag.String("env", "", "comma separated list of .env files loaded before the configuration")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn or error")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "rplogin",
		Level: hclog.LevelFromString(*logLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, splitList(*envFiles)); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(ctx context.Context, logger hclog.Logger, configPath string, envFiles []string) error {
	const op = "run"
	if err := config.LoadEnv(envFiles...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	f, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	srv, cleanup, err := newServer(ctx, f, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer cleanup()

	srvCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", f.Listen, "realm", f.Realm)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
		close(srvCh)
	}()

	select {
	case err, ok := <-srvCh:
		if ok {
			return fmt.Errorf("%s: server closed with error: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", op, err)
	}
	return nil
}

// newServer wires the login module from the configuration. cleanup waits for
// background work and releases the state store.
func newServer(ctx context.Context, f *config.File, logger hclog.Logger) (*http.Server, func(), error) {
	const op = "newServer"
	provider, err := f.ProviderConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	store, err := f.Store(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	closeStore := func() {
		if s, ok := store.(*state.SQLStore); ok {
			if err := s.Close(); err != nil {
				logger.Warn("unable to close state store", "error", err)
			}
		}
	}
	fail := func(err error) (*http.Server, func(), error) {
		closeStore()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	repo, err := f.Repository(ctx)
	if err != nil {
		return fail(err)
	}
	accounts := account.NewRegistry()
	resolver, err := f.Resolver(accounts, repo, logger)
	if err != nil {
		return fail(err)
	}
	provisioner, err := f.Provisioner(accounts, repo, logger)
	if err != nil {
		return fail(err)
	}
	mailer, err := f.Mailer(mail.NewRegistry(), logger)
	if err != nil {
		return fail(err)
	}
	codec, err := f.SessionCodec()
	if err != nil {
		return fail(err)
	}

	opts := []login.Option{login.WithLogger(logger)}
	if mailer != nil {
		opts = append(opts, login.WithMailer(mailer))
	}
	lc := f.LoginConfig(provider)
	if f.Provider.SingleUseNonces {
		nonces, err := nonce.NewService(lc.TTL())
		if err != nil {
			return fail(err)
		}
		opts = append(opts, login.WithNonceService(nonces))
	}
	m, err := login.NewModule(ctx, lc, store, resolver, provisioner, opts...)
	if err != nil {
		return fail(err)
	}

	h, err := handler.Login(m, codec, success, failed(logger), prompt(logger),
		handler.WithLogger(logger),
		handler.WithAbandonFunc(abandoned),
	)
	if err != nil {
		return fail(err)
	}

	purgeCtx, cancelPurge := context.WithCancel(context.Background())
	purged := make(chan struct{})
	go func() {
		defer close(purged)
		purge(purgeCtx, store, f.State.PurgeInterval, logger)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := &http.Server{
		Addr:              f.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
	cleanup := func() {
		cancelPurge()
		<-purged
		m.Wait()
		closeStore()
	}
	return srv, cleanup, nil
}

// purge periodically removes expired CSRF tokens from a SQLite store. A
// MemoryStore purges itself.
func purge(ctx context.Context, store state.Store, every time.Duration, logger hclog.Logger) {
	s, ok := store.(*state.SQLStore)
	if !ok || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Purge(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("unable to purge expired csrf tokens", "error", err)
			}
		}
	}
}
