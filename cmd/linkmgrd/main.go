// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command linkmgrd manages network links: it tracks wired and wireless
// interfaces, reconciles wireless scans into a stable network view, picks
// the best access point, and drives activation through to a usable
// address.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/linkmgr/internal/activation"
	"grimm.is/linkmgr/internal/ap"
	"grimm.is/linkmgr/internal/config"
	"grimm.is/linkmgr/internal/device"
	"grimm.is/linkmgr/internal/events"
	"grimm.is/linkmgr/internal/logging"
	"grimm.is/linkmgr/internal/monitor"
	"grimm.is/linkmgr/internal/scan"
)

func main() {
	configPath := flag.String("config", "/etc/linkmgr/linkmgrd.hcl", "Path to HCL config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *debug {
		logCfg.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.New(logCfg))
	logger := logging.WithComponent("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			logger.Warn("No config file, using defaults", "path", *configPath)
			cfg = config.DefaultConfig()
		} else {
			log.Fatalf("Config error: %v", err)
		}
	}

	hub := events.NewHub()
	allowed := allowedListFromConfig(cfg)
	invalid := ap.NewList(ap.ListInvalid)

	deps := platformDeps()

	registry := device.NewRegistry()
	engine := activation.NewEngine(deps.dhcp)

	for _, devCfg := range cfg.Devices {
		d, err := device.New(devCfg.Name, "/devices/"+devCfg.Name, false, device.KindUnknown, device.Deps{
			Control:           deps.newControl(devCfg.Name),
			Store:             deps.store,
			Helpers:           deps.helpers,
			Hub:               hub,
			Allowed:           allowed,
			Invalid:           invalid,
			DevicesRoot:       cfg.DevicesRoot,
			EnableTestDevices: cfg.EnableTestDevices,
		})
		if err != nil {
			logger.WithError(err).Error("Could not create device", "iface", devCfg.Name)
			continue
		}
		d.SetConfig(devCfg)
		registry.Add(d)
		logger.Info("Managing device", "iface", d.Iface(), "kind", d.Kind().String(), "driver", deps.store.DriverName(d.Iface()))
	}

	reconciler := scan.NewReconciler(registry, time.Duration(cfg.ScanIntervalSeconds)*time.Second, nil)
	reconciler.Start()
	defer reconciler.Stop()

	mon := monitor.NewService(nil, 30*time.Second)
	mon.Start()
	defer mon.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RelayListen != "" {
		relay := events.NewRelay(hub, nil)
		router := mux.NewRouter()
		router.PathPrefix("/events").Handler(relay.Handler())
		router.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.RelayListen, Handler: router, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Relay listening", "addr", cfg.RelayListen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Relay server failed")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Initial adoption pass, then clear the startup special case.
	policyTick(registry, engine, true)
	engine.SetStartingUp(false)

	go policyLoop(ctx, registry, engine)

	logger.Info("Link manager running", "devices", len(registry.All()))
	<-ctx.Done()

	for _, d := range registry.All() {
		d.Deactivate(false)
	}
	logger.Info("Link manager stopped")
}

// policyLoop is the minimal built-in policy: activate any device with a
// usable candidate that is not already activating.
func policyLoop(ctx context.Context, registry *device.Registry, engine *activation.Engine) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			policyTick(registry, engine, false)
		case <-ctx.Done():
			return
		}
	}
}

// policyTick activates any device with a usable candidate.  The initial
// pass also adopts already-configured wired devices so the startup special
// case can run.
func policyTick(registry *device.Registry, engine *activation.Engine, initial bool) {
	for _, d := range registry.All() {
		if d.WorkerAlive() {
			continue
		}
		d.UpdateLinkActive(false)

		ready := false
		switch {
		case d.IsWired():
			ready = d.LinkActive()
		case d.IsWireless():
			ready = d.BestAP() != nil
		}
		if ready && (initial || d.IP4Address() == nil) {
			if err := engine.Begin(d); err != nil {
				logging.WithComponent("policy").WithError(err).Warn("Activation rejected", "iface", d.Iface())
			}
		}
	}
}

func allowedListFromConfig(cfg *config.Config) *ap.List {
	allowed := ap.NewList(ap.ListAllowed)
	for _, n := range cfg.Networks {
		rec := ap.New()
		rec.SetESSID(n.ESSID)
		rec.SetTrusted(n.Trusted)
		if n.Timestamp != 0 {
			rec.SetTimestamp(time.Unix(n.Timestamp, 0))
		}
		if n.Key != "" {
			rec.SetEncrypted(true)
			rec.SetKeySource(n.Key, keyTypeFromString(n.KeyType))
		}
		allowed.Append(rec)
	}
	return allowed
}

func keyTypeFromString(s string) ap.KeyType {
	switch s {
	case "hex":
		return ap.KeyTypeHex
	case "ascii":
		return ap.KeyTypeASCII
	case "passphrase":
		return ap.KeyTypePassphrase128
	default:
		return ap.KeyTypeUnknown
	}
}
