package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/server/core"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
)

func main() {
	port := flag.Uint("port", 7373, "Server port")
	tickRate := flag.Int("tickrate", config.Netcode.TickRate, "Server tick rate (updates per second)")
	name := flag.String("name", "Ghostsync Server", "Server display name")
	version := flag.String("version", "", "Required client version (empty = accept any)")
	assets := flag.String("assets", "assets", "Directory holding the levels/ folder")
	level := flag.String("level", "level1", "Level to load")
	baselines := flag.Int("baselines", config.Netcode.MaxBaselines, "Baselines per ghost delta (1 or 3)")
	lenient := flag.Bool("lenient-schema", config.Netcode.LenientSchema, "Drop misconfigured ghost fields instead of failing")
	flag.Parse()

	netcode := config.Netcode
	netcode.TickRate = *tickRate
	netcode.MaxBaselines = *baselines
	netcode.LenientSchema = *lenient

	proto, err := newProtocol(netcode)
	if err != nil {
		log.Fatalf("Failed to register ghost types: %v", err)
	}

	lvl, err := proto.LoadLevel(os.DirFS(*assets), path.Join("levels", *level+".tmx"))
	if err != nil {
		log.Fatalf("Failed to load level: %v", err)
	}

	server := core.NewServer(proto, lvl, core.Options{
		Name:    *name,
		Version: *version,
		Netcode: netcode,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down server...")
		server.Stop()
		os.Exit(0)
	}()

	log.Printf("Starting ghostsync server %q on port %d (tick rate: %d/s, level: %s, version: %s)",
		*name, *port, *tickRate, lvl.Name, *version)
	if err := server.Start(*port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func newProtocol(netcode config.NetcodeConfig) (*protocol.Protocol, error) {
	policy := schema.Strict
	if netcode.LenientSchema {
		policy = schema.Lenient
	}
	return protocol.New(
		schema.WithPolicy(policy),
		schema.WithMaxExtrapolationDistance(netcode.MaxExtrapolationDistance),
	)
}
