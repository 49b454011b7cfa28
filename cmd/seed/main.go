package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/odontocare/clinic-api/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedUsers(context.Background(), pool); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := seedPractitioners(context.Background(), pool, 8); err != nil {
		log.Fatalf("seed practitioners: %v", err)
	}
	if err := seedProcedures(context.Background(), pool); err != nil {
		log.Fatalf("seed procedures: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSupplies(context.Background(), pool); err != nil {
		log.Fatalf("seed supplies: %v", err)
	}

	log.Println("seed complete")
}

// seedUsers creates one account per role. The admin password defaults to
// "changeme-admin" unless SEED_ADMIN_PASSWORD is set.
func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding users")

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme-admin"
	}

	users := []struct {
		email    string
		name     string
		role     string
		password string
	}{
		{"admin@clinic.local", "Administrator", "admin", adminPassword},
		{"dentist@clinic.local", gofakeit.Name(), "dentist", "changeme-dentist"},
		{"assistant@clinic.local", gofakeit.Name(), "assistant", "changeme-assistant"},
		{"reception@clinic.local", gofakeit.Name(), "receptionist", "changeme-reception"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO users (id, email, name, role, password_hash, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
			ON CONFLICT (email) DO NOTHING
		`, uuid.New(), u.email, u.name, u.role, string(hash))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d practitioners", count)

	specialties := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Oral Surgery",
		"Pediatric Dentistry",
		"Prosthodontics",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, uuid.New(), "Dr. "+gofakeit.Name(), spec)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedProcedures(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding procedures")

	procedures := []struct {
		code     string
		name     string
		duration int
		price    string
	}{
		{"EXAM", "Routine examination", 30, "40.00"},
		{"CLEAN", "Dental cleaning", 45, "60.00"},
		{"FILL", "Composite filling", 60, "95.00"},
		{"RCT", "Root canal treatment", 90, "320.00"},
		{"EXT", "Tooth extraction", 45, "120.00"},
		{"CROWN", "Crown placement", 90, "480.00"},
		{"WHITE", "Teeth whitening", 60, "180.00"},
		{"XRAY", "Panoramic radiograph", 15, "55.00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range procedures {
		_, err := tx.Exec(ctx, `
			INSERT INTO procedures (id, code, name, duration_minutes, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (code) DO NOTHING
		`, uuid.New(), p.code, p.name, p.duration, p.price)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			code := fmt.Sprintf("P%05d", i+1)
			email := gofakeit.Email()
			phone := gofakeit.Phone()
			birth := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, code, first_name, last_name, email, phone, birth_date, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), now())
				ON CONFLICT (code) DO NOTHING
			`, uuid.New(), code, gofakeit.FirstName(), gofakeit.LastName(), email, phone, birth)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}

func seedSupplies(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding supplies")

	supplies := []struct {
		code    string
		name    string
		stock   int
		minimum int
		price   string
	}{
		{"GLV-S", "Nitrile gloves S", 400, 100, "0.12"},
		{"GLV-M", "Nitrile gloves M", 600, 150, "0.12"},
		{"GLV-L", "Nitrile gloves L", 300, 100, "0.12"},
		{"MASK", "Surgical masks", 500, 200, "0.08"},
		{"ANES", "Lidocaine cartridges", 120, 40, "1.35"},
		{"COMP-A2", "Composite resin A2", 25, 10, "18.50"},
		{"COMP-A3", "Composite resin A3", 20, 10, "18.50"},
		{"NEEDLE", "Dental needles 27G", 200, 50, "0.22"},
		{"BUR-D", "Diamond burs", 60, 20, "3.80"},
		{"GAUZE", "Sterile gauze packs", 150, 50, "0.45"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range supplies {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO supplies (id, code, name, current_stock, minimum_stock, unit_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (code) DO NOTHING
		`, id, s.code, s.name, s.stock, s.minimum, s.price)
		if err != nil {
			return err
		}

		// Record the opening stock as an inbound movement so the ledger
		// folds to the cached value.
		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_movements (id, supply_id, type, reason, quantity, reference, occurred_at)
			SELECT $1, $2, 'inbound', 'purchase', $3, 'opening stock', now()
			WHERE EXISTS (SELECT 1 FROM supplies WHERE id = $2)
		`, uuid.New(), id, s.stock)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
