// Command peer runs one rock-paper-scissors chain node: it registers
// with a tracker, plays whatever matches it is assigned, and competes
// to mine and gossip new blocks.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/peer"
)

func main() {
	cfgPath := flag.String("config", "peer.json", "path to config file")
	trackerAddr := flag.String("tracker", "", "override tracker_addr from config")
	listenAddr := flag.String("listen", "", "override peer_listen_addr from config")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *trackerAddr != "" {
		cfg.TrackerAddr = *trackerAddr
	}
	if *listenAddr != "" {
		cfg.PeerListenAddr = *listenAddr
	}

	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventBlockAppended, func(ev events.Event) {
		log.Printf("[peer] chain extended to height %d", ev.Height)
	})
	emitter.Subscribe(events.EventBlockReorganized, func(ev events.Event) {
		log.Printf("[peer] tip replaced by a fork at height %d", ev.Height)
	})
	emitter.Subscribe(events.EventMatchComplete, func(ev events.Event) {
		log.Printf("[peer] match %s complete: %v", ev.MatchID, ev.Data)
	})

	// ID 0 tells the tracker to assign one; a returning peer would pass
	// its previously assigned ID here instead, but this chain keeps no
	// state across restarts (persistent storage is out of scope).
	n, err := peer.NewNode(0, cfg.PeerListenAddr, cfg.TrackerAddr, cfg, emitter)
	if err != nil {
		log.Fatalf("new node: %v", err)
	}
	if err := n.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer n.Stop()
	log.Printf("Peer %d listening on %s, tracker at %s", n.ID, n.ListenAddr, cfg.TrackerAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
