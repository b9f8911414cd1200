// blenderforged is the host-side service: it wires the registry (C2), the
// main-thread dispatcher (C3), the connection server (C4), and the host
// handlers (C5) together, then blocks until it is told to stop.
//
// Usage:
//
//	blenderforged [--port <n>] [--host <addr>] [--scene-fixture <path>]
//
// BLENDER_MCP_START_NOW=0 wires the server without starting it.
//
// It is normally embedded inside a running host application's scripting
// console (GUI mode); this binary exercises the same wiring outside it, for
// local testing and the reference scene fixture.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/scenebridge/blenderforge/internal/dispatch"
	"github.com/scenebridge/blenderforge/internal/handlers"
	"github.com/scenebridge/blenderforge/internal/hostmode"
	"github.com/scenebridge/blenderforge/internal/logging"
	"github.com/scenebridge/blenderforge/internal/pyruntime"
	"github.com/scenebridge/blenderforge/internal/registry"
	"github.com/scenebridge/blenderforge/internal/scenefixture"
	"github.com/scenebridge/blenderforge/internal/server"
)

func main() {
	defaultPort := 6688
	// BLENDER_MCP_PORT env var overrides the default, mirroring catherdd's
	// CATHERDD_ROOT idiom.
	if env := os.Getenv("BLENDER_MCP_PORT"); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			defaultPort = v
		}
	}
	startNow := os.Getenv("BLENDER_MCP_START_NOW") != "0"

	port := flag.Int("port", defaultPort, "TCP port to bind (env: BLENDER_MCP_PORT)")
	host := flag.String("host", "127.0.0.1", "loopback host to bind")
	scenePath := flag.String("scene-fixture", "", "optional YAML scene fixture to load (headless testing)")
	flag.Parse()

	logger := logging.New(logging.LevelFromEnv())

	scene, err := scenefixture.Load(*scenePath)
	if err != nil {
		log.Fatalf("load scene fixture: %v", err)
	}

	reg := registry.New()
	host5 := &handlers.Host{
		Scene:   scene,
		Code:    pyruntime.New(),
		TempDir: os.TempDir(),
	}

	// Mode detection (spec.md §4.3): sampled once, here, at start; the
	// result is fixed for the dispatcher's entire lifetime.
	detector := hostmode.NewEnvDetector()
	var d *dispatch.Dispatcher
	if detector.IsGUI() {
		logger.Infof("mode detection: GUI signal present, using timer-driven dispatch")
		d = dispatch.NewGUI(reg, dispatch.DefaultTick)
	} else {
		logger.Infof("mode detection: no GUI signal, using headless dispatch")
		d = dispatch.NewHeadless(reg)
	}

	srv := server.New(d, *host, uint16(*port))
	host5.RequestShutdown = func() {
		logger.Infof("server_shutdown requested, stopping")
		srv.Stop()
	}

	if err := handlers.Register(reg, host5); err != nil {
		log.Fatalf("register handlers: %v", err)
	}

	d.Start()
	defer d.Stop()

	// ModeGUI drives itself from its own internal ticker (internal/dispatch's
	// runLoop). ModeHeadless has no host timer callback to rely on here, so a
	// tiny local ticker stands in for it.
	stopTicker := make(chan struct{})
	if d.Mode() == dispatch.ModeHeadless {
		go func() {
			ticker := time.NewTicker(dispatch.DefaultTick)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					d.Step()
				case <-stopTicker:
					return
				}
			}
		}()
	}
	defer close(stopTicker)

	if !startNow {
		logger.Infof("BLENDER_MCP_START_NOW=0: server wired but not started")
		select {}
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("server start: %v", err)
	}
	logger.Infof("listening on %s", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("received %v, shutting down", sig)
		srv.Stop()
	}()

	// Block until the server has drained back to Stopped, whether from a
	// signal or a server_shutdown command.
	for srv.State() != server.StateStopped {
		time.Sleep(50 * time.Millisecond)
	}
}
