// Command recreate-users replaces admin and editor profiles from a JSON file.
// Existing rows with the same email are deleted and inserted again with a new
// id and a freshly hashed password.
//
//	recreate-users -file users.json [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"samba-tours/internal/config"
	"samba-tours/internal/database"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/utils"
)

type UserEntry struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=200"`
	Role     string `json:"role" validate:"required,oneof=admin editor"`
	Password string `json:"password" validate:"required,min=8"`
}

func main() {
	file := flag.String("file", "users.json", "JSON array of users to recreate")
	dryRun := flag.Bool("dry-run", false, "print the plan without touching the database")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer log.Close()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal("USERS", err.Error())
	}
	users, err := readUsers(f)
	f.Close()
	if err != nil {
		log.Fatal("USERS", err.Error())
	}

	if *dryRun {
		printPlan(os.Stdout, users)
		return
	}

	ctx := context.Background()
	bunDB, err := database.ConnectPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := recreate(ctx, bunDB, users, time.Now().UTC()); err != nil {
		log.Fatal("USERS", err.Error())
	}
	log.Info("USERS", fmt.Sprintf("Recreated %d profiles", len(users)))
}

func readUsers(r io.Reader) ([]UserEntry, error) {
	var users []UserEntry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	seen := make(map[string]bool, len(users))
	for i := range users {
		users[i].Email = strings.ToLower(strings.TrimSpace(users[i].Email))
		if err := utils.Validate(users[i]); err != nil {
			return nil, fmt.Errorf("user %d: %w", i, err)
		}
		if seen[users[i].Email] {
			return nil, fmt.Errorf("user %d: duplicate email %s", i, users[i].Email)
		}
		seen[users[i].Email] = true
	}
	return users, nil
}

func printPlan(w io.Writer, users []UserEntry) {
	for _, u := range users {
		fmt.Fprintf(w, "recreate %s (%s)\n", u.Email, u.Role)
	}
	fmt.Fprintf(w, "%d profiles would be recreated\n", len(users))
}

// recreate swaps all profiles in one transaction, so a failure leaves the
// previous rows in place.
func recreate(ctx context.Context, db bun.IDB, users []UserEntry, now time.Time) error {
	profiles := make([]models.Profile, 0, len(users))
	emails := make([]string, 0, len(users))
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		profiles = append(profiles, models.Profile{
			ID:           uuid.NewString(),
			Email:        u.Email,
			FullName:     u.FullName,
			Role:         u.Role,
			PasswordHash: string(hash),
			CreatedAt:    now,
		})
		emails = append(emails, u.Email)
	}
	if len(profiles) == 0 {
		return nil
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.Profile)(nil)).Where("email IN (?)", bun.In(emails)).Exec(ctx); err != nil {
			return fmt.Errorf("delete profiles: %w", err)
		}
		if _, err := tx.NewInsert().Model(&profiles).Exec(ctx); err != nil {
			return fmt.Errorf("insert profiles: %w", err)
		}
		return nil
	})
}
