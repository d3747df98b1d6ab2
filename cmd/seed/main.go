package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic-scheduler/internal/db"
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

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedWorkingWindows(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed working windows: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

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
	slotSizes := []int{15, 20, 30, 45, 60}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		slotMinutes := slotSizes[gofakeit.Number(0, len(slotSizes)-1)]

		_, err := pool.Exec(ctx, `
			INSERT INTO doctors (id, full_name, specialty, slot_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, specialty, slotMinutes)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	for i := 0; i < count; i++ {
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, full_name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, uuid.New(), gofakeit.Name())
		if err != nil {
			return err
		}
	}

	return nil
}

func seedWorkingWindows(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding working windows for %d doctors", len(doctorIDs))

	// Mon-Fri, a morning and an afternoon block
	blocks := []struct{ startMin, endMin int }{
		{9 * 60, 12 * 60},
		{13 * 60, 17 * 60},
	}

	for _, doctorID := range doctorIDs {
		for weekday := 1; weekday <= 5; weekday++ {
			for _, b := range blocks {
				_, err := pool.Exec(ctx, `
					INSERT INTO working_windows (id, doctor_id, weekday, start_min, end_min, created_at)
					VALUES ($1, $2, $3, $4, $5, now())
				`, uuid.New(), doctorID, weekday, b.startMin, b.endMin)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}
