// Command seed recreates the schema from the bun models and loads sample
// content for local development. It drops every table first.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"samba-tours/internal/config"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
)

func main() {
	keep := flag.Bool("keep", false, "keep existing tables and only insert sample rows")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer log.Close()

	ctx := context.Background()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.URL)))
	defer sqldb.Close()
	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	if !*keep {
		log.Info("SEED", "Dropping tables")
		dropTables(ctx, db)
	}
	log.Info("SEED", "Creating tables")
	if err := createTables(ctx, db, log); err != nil {
		log.Fatal("SEED", err.Error())
	}
	log.Info("SEED", "Seeding sample data")
	if err := seedData(ctx, db, time.Now().UTC()); err != nil {
		log.Fatal("SEED", err.Error())
	}
	log.Info("SEED", "Done")
}

func dropTables(ctx context.Context, db *bun.DB) {
	tables := models.AllTables()
	for i := len(tables) - 1; i >= 0; i-- {
		_, _ = db.NewDropTable().Model(tables[i]).IfExists().Cascade().Exec(ctx)
	}
}

func createTables(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	for _, m := range models.AllTables() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
		log.LogDatabase("CREATE", fmt.Sprintf("%T", m), "table ready")
	}
	return nil
}

func ptr(s string) *string { return &s }

func seedData(ctx context.Context, db *bun.DB, now time.Time) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		wildlife := models.TourCategory{ID: uuid.NewString(), Name: "Wildlife Safaris", Slug: "wildlife-safaris", CreatedAt: now}
		adventure := models.TourCategory{ID: uuid.NewString(), Name: "Adventure", Slug: "adventure", CreatedAt: now}
		if _, err := tx.NewInsert().Model(&[]models.TourCategory{wildlife, adventure}).Exec(ctx); err != nil {
			return fmt.Errorf("tour categories: %w", err)
		}

		tours := []models.Tour{
			{
				ID:            uuid.NewString(),
				Slug:          "bwindi-gorilla-trek",
				Title:         "Bwindi Gorilla Trek",
				Summary:       "Three days with the mountain gorillas of Bwindi.",
				Price:         decimal.RequireFromString("1450"),
				OriginalPrice: decimal.RequireFromString("1600"),
				DurationDays:  3,
				Location:      "Bwindi",
				MaxGroupSize:  8,
				Difficulty:    "challenging",
				CategoryID:    ptr(wildlife.ID),
				Status:        models.TourStatusPublished,
				Featured:      true,
				Rating:        4.9,
				ReviewCount:   37,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
			{
				ID:           uuid.NewString(),
				Slug:         "jinja-white-water-rafting",
				Title:        "Jinja White Water Rafting",
				Summary:      "A full day on the Nile rapids.",
				Price:        decimal.RequireFromString("140"),
				DurationDays: 1,
				Location:     "Jinja",
				MaxGroupSize: 12,
				Difficulty:   "moderate",
				CategoryID:   ptr(adventure.ID),
				Status:       models.TourStatusPublished,
				Rating:       4.7,
				ReviewCount:  12,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			{
				ID:           uuid.NewString(),
				Slug:         "murchison-falls-safari",
				Title:        "Murchison Falls Safari",
				Price:        decimal.RequireFromString("680"),
				DurationDays: 4,
				Location:     "Murchison Falls",
				MaxGroupSize: 10,
				Difficulty:   "easy",
				CategoryID:   ptr(wildlife.ID),
				Status:       models.TourStatusDraft,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		}
		if _, err := tx.NewInsert().Model(&tours).Exec(ctx); err != nil {
			return fmt.Errorf("tours: %w", err)
		}
		days := []models.TourItineraryDay{
			{ID: uuid.NewString(), TourID: tours[0].ID, DayNumber: 1, Title: "Arrival in Bwindi"},
			{ID: uuid.NewString(), TourID: tours[0].ID, DayNumber: 2, Title: "Gorilla tracking"},
			{ID: uuid.NewString(), TourID: tours[0].ID, DayNumber: 3, Title: "Batwa village and departure"},
			{ID: uuid.NewString(), TourID: tours[1].ID, DayNumber: 1, Title: "Rapids of the Nile"},
		}
		if _, err := tx.NewInsert().Model(&days).Exec(ctx); err != nil {
			return fmt.Errorf("itinerary: %w", err)
		}

		travel := models.BlogCategory{ID: uuid.NewString(), Name: "Travel Tips", Slug: "travel-tips", CreatedAt: now}
		if _, err := tx.NewInsert().Model(&travel).Exec(ctx); err != nil {
			return fmt.Errorf("blog category: %w", err)
		}
		published := now.Add(-48 * time.Hour)
		posts := []models.BlogPost{
			{
				ID:          uuid.NewString(),
				Slug:        "what-to-pack-for-a-gorilla-trek",
				Title:       "What to Pack for a Gorilla Trek",
				Excerpt:     "Boots, gloves and a rain jacket.",
				Content:     "Bwindi is a rainforest, so pack for rain.",
				CategoryID:  ptr(travel.ID),
				Status:      models.PostStatusPublished,
				Tags:        []string{"gorillas", "packing"},
				PublishedAt: &published,
				CreatedAt:   published,
				UpdatedAt:   published,
			},
			{
				ID:         uuid.NewString(),
				Slug:       "best-time-to-visit-uganda",
				Title:      "Best Time to Visit Uganda",
				CategoryID: ptr(travel.ID),
				Status:     models.PostStatusDraft,
				Tags:       []string{"seasons"},
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		}
		if _, err := tx.NewInsert().Model(&posts).Exec(ctx); err != nil {
			return fmt.Errorf("blog posts: %w", err)
		}

		transport := models.ServiceCategory{ID: uuid.NewString(), Name: "Transport", Slug: "transport", SortOrder: 1}
		if _, err := tx.NewInsert().Model(&transport).Exec(ctx); err != nil {
			return fmt.Errorf("service category: %w", err)
		}
		svcs := []models.Service{
			{
				ID:               uuid.NewString(),
				Slug:             "airport-transfers",
				Name:             "Airport Transfers",
				ShortDescription: "Entebbe pick-up and drop-off.",
				CategoryID:       ptr(transport.ID),
				PriceFrom:        decimal.RequireFromString("35"),
				Status:           models.ServiceStatusActive,
				Featured:         true,
				CreatedAt:        now,
				UpdatedAt:        now,
			},
			{
				ID:         uuid.NewString(),
				Slug:       "4x4-car-hire",
				Name:       "4x4 Car Hire",
				CategoryID: ptr(transport.ID),
				PriceFrom:  decimal.RequireFromString("90"),
				Status:     models.ServiceStatusActive,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		}
		if _, err := tx.NewInsert().Model(&svcs).Exec(ctx); err != nil {
			return fmt.Errorf("services: %w", err)
		}
		return nil
	})
}
