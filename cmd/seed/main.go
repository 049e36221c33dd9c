package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/model"
	pg "gym-membership-billing/internal/infra/db/postgres"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/usecase"
)

// seed creates a member, a tariff and a pending Click intent so the callback
// endpoints can be exercised by hand. It stands in for the checkout flow.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	name := flag.String("name", "Test Member", "member full name")
	phone := flag.String("phone", "+998900000000", "member phone")
	tariffName := flag.String("tariff", "Monthly", "tariff name")
	price := flag.String("price", "150000", "tariff price in UZS")
	days := flag.Int("days", 30, "tariff duration in days, 0 for unlimited")
	visits := flag.Int("visits", 0, "tariff visit quota, 0 for unlimited")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg.Database.MaxConns = 4
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	amount, err := decimal.NewFromString(*price)
	if err != nil {
		log.Fatalf("price: %v", err)
	}

	user, err := model.NewUser("", *name, *phone)
	if err != nil {
		log.Fatalf("user: %v", err)
	}
	if err := pg.NewUserRepo(pool).Save(ctx, nil, user); err != nil {
		log.Fatalf("save user: %v", err)
	}

	tariff, err := model.NewTariff(uuid.NewString(), *tariffName, amount, positive(*days), positive(*visits))
	if err != nil {
		log.Fatalf("tariff: %v", err)
	}
	if err := pg.NewTariffRepo(pool).Save(ctx, nil, tariff); err != nil {
		log.Fatalf("save tariff: %v", err)
	}

	ledger := usecase.NewPaymentLedger(pg.NewPaymentRepo(pool), pg.NewPaymentEventRepo(pool), pg.NewTxManager(pool), logger)
	intent, err := ledger.Create(ctx, user.ID, tariff.ID, tariff.Price, model.PaymentMethodClick)
	if err != nil {
		log.Fatalf("create intent: %v", err)
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("phone", logging.MaskPhone(user.Phone, cfg.Runtime.Dev)).
		Str("tariff_id", tariff.ID).
		Msg("member seeded")

	fmt.Printf("user_id=%s\n", user.ID)
	fmt.Printf("tariff_id=%s price=%s\n", tariff.ID, tariff.Price.StringFixed(2))
	fmt.Printf("merchant_trans_id=%s\n", intent.ID)
}

func positive(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
