// Command tally counts an election straight from the database and prints the
// result as JSON. It does not check ownership or whether the election is
// closed, so it is meant for operators.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/stv/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/stv/internal/config"
	"github.com/vncsmyrnk/stv/internal/core/services"
	applog "github.com/vncsmyrnk/stv/internal/logger"
)

func main() {
	cfg, err := config.Load("tally", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if len(cfg.Args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tally [flags] <election id>")
		os.Exit(2)
	}
	electionID, err := uuid.Parse(cfg.Args[0])
	if err != nil {
		log.Fatalf("invalid election id: %v", err)
	}

	logger, err := applog.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DB.ConnString(), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	tallyService := services.NewTallyService(postgres.NewElectionRepository(db), postgres.NewBallotRepository(db), services.NopMetrics{}, logger)

	logger.Info("starting tally", "election_id", electionID)
	result, err := tallyService.Tally(ctx, electionID)
	if err != nil {
		log.Fatalf("error tallying election: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal(err)
	}
}
