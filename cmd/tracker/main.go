// Command tracker runs the matchmaking rendezvous server peers
// register with.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpschain/rpschain/config"
	"github.com/rpschain/rpschain/events"
	"github.com/rpschain/rpschain/tracker"
)

func main() {
	cfgPath := flag.String("config", "tracker.json", "path to config file")
	listenAddr := flag.String("addr", "", "override tracker_addr from config")
	httpAddr := flag.String("http-addr", "", "override snapshot_http_addr from config")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	addr := cfg.TrackerAddr
	if *listenAddr != "" {
		addr = *listenAddr
	}
	if *httpAddr != "" {
		cfg.SnapshotHTTPAddr = *httpAddr
	}

	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventMatchStarted, func(ev events.Event) {
		log.Printf("[tracker] match %s started", ev.MatchID)
	})

	t := tracker.New(cfg, emitter)
	if err := t.Start(addr); err != nil {
		log.Fatalf("tracker start: %v", err)
	}
	defer t.Stop()
	log.Printf("Tracker listening on %s", addr)

	if cfg.SnapshotHTTPAddr != "" {
		srv := &http.Server{Addr: cfg.SnapshotHTTPAddr, Handler: t.HTTPHandler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[tracker] snapshot http server: %v", err)
			}
		}()
		defer srv.Close()
		log.Printf("Snapshot /logs and /chains served on %s", cfg.SnapshotHTTPAddr)
	}

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
