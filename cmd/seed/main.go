package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wallet-ledger-service/internal/config"
	"wallet-ledger-service/internal/domain/model"
	pg "wallet-ledger-service/internal/infra/db/postgres"
	"wallet-ledger-service/internal/infra/logging"
	"wallet-ledger-service/internal/usecase"
)

// Grants credits and/or XP to a user straight through the ledger service.
// Meant for local seeding and one-off operational backfills.
//
//	go run ./cmd/seed -config config.yaml -user u-123 -credits 500 -xp 100 -label "launch bonus"
func main() {
	userID := flag.String("user", "", "user to credit")
	credits := flag.Int64("credits", 0, "credits to grant")
	xp := flag.Int64("xp", 0, "xp to grant")
	cause := flag.String("cause", string(model.CauseBonus), "ledger cause")
	label := flag.String("label", "manual grant", "audit label")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *userID == "" || (*credits <= 0 && *xp <= 0) {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	ledgerUC := usecase.NewLedgerService(pg.NewWalletRepo(pool), pg.NewLedgerLogRepo(pool), pg.NewTxManager(pool), logger)

	res, err := ledgerUC.GrantReward(ctx, *userID, model.RewardCause(*cause), "seed", *label, *credits, *xp)
	if err != nil {
		log.Fatalf("grant: %v", err)
	}
	fmt.Printf("granted %d credits, %d xp to %s\n", *credits, *xp, *userID)
	if res.LeveledUp {
		fmt.Printf("level up: %d -> %d\n", res.OldLevel, res.NewLevel)
	}
}
