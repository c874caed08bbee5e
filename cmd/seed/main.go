package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/sobrhq/sobr-server/config"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

// Seeds the well-known admin account, a vetted demo sponsor, and a demo
// seeker. Safe to run repeatedly.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	adminID := upsertUser(db, cfg.AdminEmail, "SOBR Support", "admin", "admin123!")
	fmt.Printf("admin ready: id=%s email=%s\n", adminID, cfg.AdminEmail)

	sponsorID := upsertUser(db, "sponsor@sobr.local", "Demo Sponsor", "sponsor", "sponsor123!")
	if _, err := db.Exec(`
		INSERT INTO sponsor_backgrounds (sponsor_user_id, verified, qualifications, years_of_experience, motivation)
		VALUES ($1, true, $2, 5, 'Ten years sober, here to help')
		ON CONFLICT (sponsor_user_id) DO UPDATE SET verified = true
	`, sponsorID, "{\"peer support\",\"12-step\"}"); err != nil {
		log.Fatalf("failed to seed sponsor background: %v", err)
	}
	fmt.Printf("sponsor ready: id=%s\n", sponsorID)

	seekerID := upsertUser(db, "member@sobr.local", "Demo Member", "user", "member123!")
	fmt.Printf("member ready: id=%s\n", seekerID)
}

func upsertUser(db *sql.DB, email, name, role, password string) string {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, full_name, role_id, metadata)
		VALUES ($1, $2, $3, (SELECT id FROM roles WHERE name = $4), '{}')
		ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			role_id = EXCLUDED.role_id
		RETURNING id
	`, email, hash, name, role).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed %s: %v", email, err)
	}
	return id
}
