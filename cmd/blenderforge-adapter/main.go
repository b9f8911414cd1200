// blenderforge-adapter is the model-context-protocol front end (spec.md
// C6): a separate process, launched on demand by tool-using clients, that
// speaks MCP over stdio and forwards tool calls to a running C4 server.
//
// Usage:
//
//	blenderforge-adapter [--blender-host <addr>] [--blender-port <n>]
package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/scenebridge/blenderforge/internal/adapter"
)

func main() {
	host := flag.String("blender-host", "127.0.0.1", "C4 target host")
	port := flag.Int("blender-port", 6688, "C4 target port")
	flag.Parse()

	if *port < 0 || *port > 65535 {
		log.Fatalf("invalid --blender-port: %s", strconv.Itoa(*port))
	}

	a := adapter.New(adapter.Config{
		TargetHost: *host,
		TargetPort: uint16(*port),
	})

	if err := a.Serve(); err != nil {
		log.Fatalf("adapter: %v", err)
	}
}
