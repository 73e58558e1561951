package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidacall/telehealth-scheduling/internal/db"
	"github.com/vidacall/telehealth-scheduling/internal/identity"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx := context.Background()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(connectCtx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// One shared hash keeps the seed fast; every seeded account logs in with
	// the same throwaway password.
	passwordHash, err := identity.HashPassword("seed-password")
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	professionals, err := seedProfessionals(ctx, pool, passwordHash, 50)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedPatients(ctx, pool, passwordHash, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(ctx, pool, professionals); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		license := gofakeit.Numerify("CRM-######")

		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, name, email, password_hash, role, specialty, license_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'professional', $5, $6, now(), now())
		`, id, gofakeit.Name(), gofakeit.Email(), passwordHash, specialty, license)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
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
			_, err := tx.Exec(ctx, `
				INSERT INTO accounts (id, name, email, password_hash, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, 'patient', now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), passwordHash)
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

	log.Println("patients seeded")
	return nil
}

// seedAvailability gives every professional a morning and an afternoon
// window on two or three weekdays.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, professionals []uuid.UUID) error {
	log.Printf("seeding availability for %d professionals", len(professionals))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, professionalID := range professionals {
		weekdays := []int{1, 2, 3, 4, 5}
		gofakeit.ShuffleInts(weekdays)
		days := gofakeit.Number(2, 3)

		for _, dayOfWeek := range weekdays[:days] {
			windows := [][2]int{
				{8 * 60, 12 * 60},
				{14 * 60, 18 * 60},
			}
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_rules (id, professional_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, true, now(), now())
				`, uuid.New(), professionalID, dayOfWeek, w[0], w[1])
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}
