package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"wallet-ledger-service/internal/config"
	pg "wallet-ledger-service/internal/infra/db/postgres"
	"wallet-ledger-service/internal/infra/logging"
	"wallet-ledger-service/internal/infra/redis"
	"wallet-ledger-service/internal/usecase"
)

// Resets the database to a clean, predictable state for manual end-to-end
// testing: applies the schema, wipes all rows, and opens one pending order so
// a transfer (or the demo replay tool) can be matched against it.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := pg.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	schema, err := os.ReadFile(filepath.Join("deploy", "postgres", "init.sql"))
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE payment_orders, wallet_ledgers, ledger_transactions;`); err != nil {
		log.Fatalf("truncate: %v", err)
	}
	log.Println("schema applied, tables emptied")

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	tm := pg.NewTxManager(pool)
	bank := usecase.BankAccount{
		BankName:      cfg.Bank.Name,
		BankCode:      cfg.Bank.Code,
		AccountNumber: cfg.Bank.AccountNumber,
		AccountName:   cfg.Bank.AccountName,
	}
	orderUC := usecase.NewOrderManager(pg.NewOrderRepo(pool), tm, bank, cfg.Orders.Expiry, logger)

	const demoUser = "e2e-user-1"
	ticket, err := orderUC.Create(ctx, demoUser, "credits_starter")
	if err != nil {
		log.Fatalf("create demo order: %v", err)
	}

	log.Println("--- E2E Environment Ready ---")
	log.Printf("user:   %s", demoUser)
	log.Printf("order:  %s", ticket.Order.ID)
	log.Printf("code:   %s (put this in the transfer memo)", ticket.Order.Code)
	log.Printf("amount: %d VND", ticket.Order.Amount)
}
