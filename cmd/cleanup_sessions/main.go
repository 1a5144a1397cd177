package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"leadqualify-be/internal/repository/specification"
	"leadqualify-be/internal/repository/unitofwork"
	"leadqualify-be/pkg/database"

	"github.com/joho/godotenv"
)

// Deletes conversation sessions that have been idle past the retention
// window. Sessions reset themselves after a day of inactivity anyway, so
// rows older than the window carry no conversational value.
func main() {
	days := flag.Int("days", 30, "delete sessions idle for more than this many days")
	batchSize := flag.Int("batch", 500, "rows fetched per batch")
	dryRun := flag.Bool("dry-run", false, "report matches without deleting")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -*days)
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
	sessions := uow.SessionRepository()

	total, err := sessions.Count(ctx, specification.UpdatedBefore{Cutoff: cutoff})
	if err != nil {
		log.Fatalf("Failed to count stale sessions: %v", err)
	}
	log.Printf("Found %d sessions idle since before %s", total, cutoff.Format(time.RFC3339))

	if *dryRun {
		log.Println("Dry run, nothing deleted.")
		return
	}

	deleted := 0
	for {
		batch, err := sessions.FindAll(ctx,
			specification.UpdatedBefore{Cutoff: cutoff},
			specification.OrderBy{Field: "updated_at"},
			specification.Pagination{Limit: *batchSize},
		)
		if err != nil {
			log.Fatalf("Failed to fetch stale sessions: %v", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, s := range batch {
			if err := sessions.Delete(ctx, s.Id); err != nil {
				log.Fatalf("Failed to delete session %s: %v", s.Id, err)
			}
			deleted++
		}
		log.Printf("Deleted %d/%d...", deleted, total)
	}

	log.Printf("Deleted %d rows.", deleted)
}
