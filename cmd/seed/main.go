package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adhealth/clinic-scheduling/internal/db"
)

// Seeds the provider directory: the demo roster the clinic launched with,
// plus a batch of generated providers for load testing.

type seedProvider struct {
	name         string
	specialty    string
	experience   int
	description  string
	availability []string
}

var demoRoster = []seedProvider{
	{
		name:         "Dr. Sarah Johnson",
		specialty:    "Cardiology",
		experience:   12,
		description:  "Expert cardiologist with over a decade of experience in treating complex heart conditions.",
		availability: []string{"Mon", "Wed", "Fri"},
	},
	{
		name:         "Dr. Michael Chen",
		specialty:    "Neurology",
		experience:   8,
		description:  "Specializes in neurological disorders and stroke rehabilitation.",
		availability: []string{"Tue", "Thu"},
	},
	{
		name:         "Dr. Emily Williams",
		specialty:    "Pediatrics",
		experience:   15,
		description:  "Dedicated to providing compassionate care for children of all ages.",
		availability: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
	},
}

var specialties = []string{
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

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

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

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDemoRoster(context.Background(), pool); err != nil {
		log.Fatalf("seed demo roster: %v", err)
	}
	if err := seedGeneratedProviders(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed generated providers: %v", err)
	}

	log.Println("seed complete")
}

func seedDemoRoster(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d demo providers", len(demoRoster))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range demoRoster {
		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, email, experience_years, description, availability, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, uuid.New(), p.name, p.specialty, gofakeit.Email(), p.experience, p.description, p.availability)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func seedGeneratedProviders(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d generated providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		// Each generated provider works two to five weekdays.
		days := append([]string(nil), weekdays...)
		gofakeit.ShuffleStrings(days)
		days = days[:gofakeit.Number(2, 5)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, email, experience_years, description, availability, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, uuid.New(), "Dr. "+gofakeit.Name(), spec, gofakeit.Email(), gofakeit.Number(1, 30), gofakeit.Sentence(12), days)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
