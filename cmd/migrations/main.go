package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/stv/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/stv/internal/config"
	applog "github.com/vncsmyrnk/stv/internal/logger"
)

const usage = "usage: migrations [flags] up|down|status|upSync"

func main() {
	cfg, err := config.Load("migrations", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.Args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger, err := applog.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DB.ConnString(), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := postgres.Migrator(cfg.Args[0], db, logger); err != nil {
		log.Fatal(err)
	}
}
