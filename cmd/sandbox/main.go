package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"stratum/internal/config"
	"stratum/internal/passer"
)

func main() {
	sceneName := flag.String("scene", "s1_circles", "embedded scenario name or path to a scene YAML")
	configPath := flag.String("config", "", "physics config YAML")
	listen := flag.String("listen", "", "serve state messages over websocket on this address")
	telemetryPath := flag.String("telemetry", "", "record per-frame stats to this SQLite file")
	debug := flag.Bool("debug", false, "panic on physics invariant violations")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *debug {
		cfg.Debug = true
	}

	app := NewApp(cfg, *telemetryPath)

	if *listen != "" {
		codec, err := passer.NewCodec()
		if err != nil {
			log.Fatalf("Failed to create codec: %v", err)
		}
		defer codec.Close()

		hub := passer.NewHub(codec)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: *listen, Handler: mux}

		go func() {
			log.Printf("Passer: serving on ws://%s/ws", *listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Passer: server stopped: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			hub.Close()
			srv.Shutdown(ctx)
		}()

		app.Hub = hub
	}

	if err := app.Load(*sceneName); err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	app.Run()
}
