// cmd/server/main.go
package main

import (
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/config"
	"github.com/bidroom/bidroom/internal/handlers"
	"github.com/bidroom/bidroom/internal/room"
	"github.com/bidroom/bidroom/internal/session"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	registry := session.NewRegistry()
	store := room.NewStore(registry.Send)

	router := handlers.NewRouter(logger, store, registry, cfg.OriginPatterns)

	logger.Infof("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
