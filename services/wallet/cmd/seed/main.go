package main

import (
	"fmt"
	"time"

	"points-wallet/pkg/config"
	"points-wallet/pkg/database"
	"points-wallet/pkg/logger"
	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/repo/persistent"

	"github.com/google/uuid"
)

// Seeds demo businesses with provisioned allocation pools and a few
// redemption credits, so the console has data to render locally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	walletRepo := persistent.NewWalletRepository(db)
	poolRepo := persistent.NewAllocationRepository(db)
	period := entity.CurrentPeriod(time.Now())

	demoBusinesses := []struct {
		name         string
		monthlyLimit int
		organicUsage int
		redemptions  []int
	}{
		{"Corner Coffee", 100, 60, []int{100, 50, 75}},
		{"Bella Bakery", 50, 12, []int{40, 25}},
		{"Peak Fitness", 200, 200, []int{150, 90, 60, 30}},
	}

	for _, biz := range demoBusinesses {
		businessID := uuid.New().String()

		pool, err := poolRepo.Provision(businessID, period, biz.monthlyLimit)
		if err != nil {
			log.Error("Failed to provision pool for %s: %v", biz.name, err)
			continue
		}
		if biz.organicUsage > 0 {
			if err := poolRepo.SetOrganicUsage(businessID, period, biz.organicUsage); err != nil {
				log.Error("Failed to set organic usage for %s: %v", biz.name, err)
			}
		}

		for i, points := range biz.redemptions {
			meta := entity.EntryMetadata{Redemption: &entity.RedemptionMeta{
				CustomerID:  uuid.New().String(),
				RewardTitle: fmt.Sprintf("Demo reward #%d", i+1),
			}}
			description := fmt.Sprintf("Points earned from customer redemption: Demo reward #%d", i+1)
			if _, _, err := walletRepo.Credit(businessID, points, entity.KindEarnedFromRedemption, description, meta); err != nil {
				log.Error("Failed to credit wallet for %s: %v", biz.name, err)
			}
		}

		log.Info("Seeded %s (business %s): pool limit %d, organic %d/%d",
			biz.name, businessID, pool.MonthlyLimit, biz.organicUsage, pool.OrganicLimit())
	}

	log.Info("Database seeded successfully!")
}
