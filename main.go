package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/network"
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/google/uuid"
)

const appName = "ghostsync"

// bot walks back and forth and jumps now and then.
type bot struct {
	in    command.PlayerInput
	ticks int
}

func (b *bot) next() command.PlayerInput {
	b.ticks++
	switch (b.ticks / 90) % 2 {
	case 0:
		b.in.Direction = 1
	default:
		b.in.Direction = -1
	}
	if b.ticks%45 == 0 {
		b.in.Jump.Set()
	}
	return b.in
}

func main() {
	address := flag.String("address", "localhost:7373", "Server address")
	name := flag.String("name", "", "Player name (defaults to the saved name)")
	version := flag.String("version", "", "Client version sent with the join request")
	assets := flag.String("assets", "assets", "Directory holding the levels/ folder")
	level := flag.String("level", "level1", "Level to load")
	ticks := flag.Int("ticks", 0, "Stop after this many ticks (0 = run until interrupted)")
	lenient := flag.Bool("lenient-schema", config.Netcode.LenientSchema, "Drop misconfigured ghost fields instead of failing")
	flag.Parse()

	store := config.OpenStore(appName)
	saved, _ := store.LoadNetcode()
	if saved == nil {
		saved = &config.SavedNetcode{}
	}
	netcode := config.Netcode
	netcode.LenientSchema = *lenient
	saved.Apply(&netcode)

	if *name != "" {
		saved.PlayerName = *name
	}
	if saved.PlayerName == "" {
		saved.PlayerName = "player"
	}
	reconnect, _ := uuid.Parse(saved.ReconnectToken)

	policy := schema.Strict
	if netcode.LenientSchema {
		policy = schema.Lenient
	}
	proto, err := protocol.New(
		schema.WithPolicy(policy),
		schema.WithMaxExtrapolationDistance(netcode.MaxExtrapolationDistance),
	)
	if err != nil {
		log.Fatalf("Failed to register ghost types: %v", err)
	}
	lvl, err := proto.LoadLevel(os.DirFS(*assets), path.Join("levels", *level+".tmx"))
	if err != nil {
		log.Fatalf("Failed to load level: %v", err)
	}

	client := network.NewClient()
	session := network.NewSession(proto, lvl, client, netcode)
	client.Connect(*address, *version, saved.PlayerName, reconnect)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dt := time.Second / time.Duration(netcode.TickRate)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	var input bot
	tokenSaved := false
loop:
	for n := 0; *ticks == 0 || n < *ticks; n++ {
		select {
		case <-sigChan:
			log.Println("Interrupted")
			break loop
		case <-ticker.C:
		}

		if err := client.LastError(); err != nil {
			log.Printf("Connection failed: %v", err)
			break loop
		}
		if err := session.Pump(client); err != nil {
			log.Printf("Session ended: %v", err)
			break loop
		}
		if session.Joined() && !tokenSaved {
			saved.ReconnectToken = session.SessionID().String()
			_ = store.SaveNetcode(saved)
			tokenSaved = true
		}
		if err := session.Step(input.next(), dt); err != nil {
			log.Printf("Session ended: %v", err)
			break loop
		}
	}

	client.Disconnect()
	r := session.Replica()
	log.Printf("Stopped at tick %d, %d ghosts, mean snapshot age %.1f ticks",
		r.Now(), len(r.Ghosts()), r.SnapshotAge())
	if p, ok := r.Predictor(r.Owned()); ok {
		log.Printf("Prediction: %d corrections", p.Corrections())
	}
	r.Report().Log()
}
