// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/command"
	"github.com/gatehouse/gatehouse/internal/command/handlers"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/core"
	"github.com/gatehouse/gatehouse/internal/credstore"
	"github.com/gatehouse/gatehouse/internal/gate"
	"github.com/gatehouse/gatehouse/internal/handoff"
	"github.com/gatehouse/gatehouse/internal/location"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/loop"
	"github.com/gatehouse/gatehouse/internal/messages"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/sched"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/internal/updatecheck"
)

// updateURL serves the latest released version as a bare string.
const updateURL = "https://releases.gatehouse.dev/latest"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gatehouse engine",
		Long: `Run the gatehouse engine: connect the credential store, start the
game loop, and serve metrics and health probes until interrupted.`,
		RunE: runServe,
	}

	flags := cmd.Flags()
	flags.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("database-type", "file", "credential backend (file, postgres, or redis)")
	flags.String("database-path", "accounts.yml", "accounts file for the file backend")
	flags.String("database-url", "", "connection url for the postgres or redis backend")

	return cmd
}

// swappableCatalog lets the reload path replace the message catalog
// while the engine keeps a stable Renderer.
type swappableCatalog struct {
	v atomic.Pointer[messages.Catalog]
}

func (c *swappableCatalog) reload(path string) error {
	catalog, err := messages.Load(path)
	if err != nil {
		return err
	}
	c.v.Store(catalog)
	return nil
}

func (c *swappableCatalog) Render(path string, args map[string]string) string {
	return c.v.Load().Render(path, args)
}

// logHost is the built-in world adapter: it records every
// engine-driven effect in the log. Deployments embed the engine behind
// their own transport and supply a real core.Host.
type logHost struct{}

func (logHost) Send(id ulid.ULID, text string) {
	slog.Info("host send", "participant_id", id.String(), "text", text)
}

func (logHost) Teleport(id ulid.ULID, loc location.Location) error {
	slog.Info("host teleport", "participant_id", id.String(), "world", loc.World)
	return nil
}

func (logHost) Disconnect(id ulid.ULID, reason string) {
	slog.Info("host disconnect", "participant_id", id.String(), "reason", reason)
}

func (logHost) Position(ulid.ULID) (location.Location, bool) {
	return location.Location{}, false
}

// engineSettings maps the file/flag configuration onto the engine's
// runtime policy. The proxy messenger is wired once at startup, so a
// reload cannot turn the proxy on; proxyEnabled carries the boot value.
func engineSettings(cfg *config.Config, proxyEnabled bool) *core.Settings {
	return &core.Settings{
		Engine: core.Config{
			AuthRequired:     cfg.Auth.Required,
			Timeout:          cfg.Auth.Timeout,
			ReminderInterval: cfg.Auth.ReminderInterval,
			SavePosition:     cfg.Teleports.SavePosition,
			IPRecords:        cfg.IPRecords.Enabled,
			IPRecordDelay:    cfg.IPRecords.Delay,
		},
		ReminderWindow: cfg.Gate.ReminderDebounce,
		Handoff: handoff.Config{
			ProxyEnabled:   proxyEnabled,
			SpawnServer:    cfg.Proxy.SpawnServer,
			SavePosition:   cfg.Teleports.SavePosition,
			ToSpawn:        cfg.Teleports.ToSpawn,
			LoginBroadcast: cfg.LoginBroadcast,
		},
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault(logging.Options{
		Service: "gatehouse",
		Version: version,
		Format:  cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := &swappableCatalog{}
	if err := catalog.reload(cfg.Messages.File); err != nil {
		return err
	}

	locations, err := location.OpenFile(cfg.Locations.File)
	if err != nil {
		return err
	}

	store, err := credstore.Open(credstore.Options{
		Backend: cfg.Database.Type,
		Path:    cfg.Database.Path,
		DSN:     cfg.Database.URL,
		URL:     cfg.Database.URL,
	})
	if err != nil {
		return err
	}
	if err := store.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Disconnect(context.Background()) }()

	l := loop.New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Run(ctx)
	}()

	sessions := session.NewRegistry()
	host := logHost{}

	var proxy handoff.ProxyMessenger
	if cfg.Proxy.Enabled {
		redisProxy, err := handoff.NewRedisProxy(cfg.Proxy.URL, cfg.Proxy.Channel)
		if err != nil {
			return err
		}
		defer func() { _ = redisProxy.Close() }()
		proxy = redisProxy
	}

	settings := engineSettings(cfg, cfg.Proxy.Enabled)
	dispatcher := handoff.NewDispatcher(settings.Handoff, host, sessions, locations, proxy, catalog)

	registry := command.NewRegistry()
	handlers.RegisterAll(registry)
	limiter := command.NewRateLimiter(command.RateLimiterConfig{})
	defer limiter.Close()
	commands, err := command.NewDispatcher(registry, command.WithRateLimiter(limiter))
	if err != nil {
		return err
	}

	engine := core.NewEngine(settings.Engine, core.Deps{
		Loop:       l,
		Scheduler:  sched.New(l),
		Sessions:   sessions,
		Store:      store,
		Gate:       gate.New(settings.ReminderWindow),
		Handoff:    dispatcher,
		Dispatcher: commands,
		Locations:  locations,
		Messages:   catalog,
		Host:       host,
	})
	engine.SetReloadHook(func(context.Context) (*core.Settings, error) {
		fresh := cfg
		if configFile != "" {
			reloaded, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return nil, err
			}
			fresh = reloaded
		}
		if err := catalog.reload(fresh.Messages.File); err != nil {
			return nil, err
		}
		return engineSettings(fresh, cfg.Proxy.Enabled), nil
	})

	if cfg.CheckUpdates {
		checker := updatecheck.New(updateURL, version)
		go func() {
			result, err := checker.Check(ctx)
			if err != nil {
				slog.Debug("update check failed", "error", err)
				return
			}
			if result.UpdateAvailable {
				slog.Info(catalog.Render(messages.PathUpdateAvailable, map[string]string{
					"version": result.Latest,
					"current": result.Current,
				}))
			}
		}()
	}

	var obsErr <-chan error
	if cfg.MetricsAddr != "" {
		obs := observability.NewServer(cfg.MetricsAddr, store.Available)
		errCh, err := obs.Start()
		if err != nil {
			return err
		}
		obsErr = errCh
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	slog.Info("gatehouse ready",
		"backend", cfg.Database.Type,
		"auth_required", cfg.Auth.Required,
		"proxy", cfg.Proxy.Enabled,
	)

	select {
	case <-ctx.Done():
	case err, ok := <-obsErr:
		if ok && err != nil {
			stop()
			wg.Wait()
			return err
		}
	}

	slog.Info("shutting down")
	stop()
	wg.Wait()
	return nil
}
