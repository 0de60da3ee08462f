// Command spotfm runs the SpotFM API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"spotfm/internal/auth"
	"spotfm/internal/db"
	"spotfm/internal/lastfm"
	"spotfm/internal/session"
	"spotfm/internal/sync"
	"spotfm/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env for development; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	apiCfg, err := lastfm.LoadConfig()
	if err != nil {
		return err
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("please set the DATABASE_URL environment variable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	sessions, err := session.DefaultStore()
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	api := lastfm.NewClient(apiCfg)
	syncSvc := sync.New(database.Profiles(), database.Scrobbles(), api, log)
	authSvc := auth.New(api, sessions, syncSvc)

	server := web.NewServer(web.ServerConfig{
		Addr: os.Getenv("SPOTFM_ADDR"),
		Auth: authSvc,
		Sync: syncSvc,
		Log:  log,
	})

	return server.Run()
}
