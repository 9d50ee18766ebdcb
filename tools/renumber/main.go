package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	register "clinic-register/internal/register/domain"
	registerrepo "clinic-register/internal/register/infrastructure/postgres"
)

// Renumbers a day's visit sequence after manual data surgery. Safe to run
// repeatedly; a clean day reports zero changes.
func main() {
	var (
		dateFlag  = flag.String("date", "", "day to repair (YYYY-MM-DD, required)")
		checkFlag = flag.Bool("check", false, "only verify the day, do not renumber")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	day, err := register.ParseDay(*dateFlag)
	if err != nil {
		logger.Fatalf("date must be YYYY-MM-DD: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		logger.Fatal("DATABASE_URL or PG_DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := registerrepo.NewConsultationRepository(db)

	before := describeDay(ctx, repo, day)
	fmt.Printf("before: %s\n", before)

	if *checkFlag {
		return
	}

	changed, err := repo.RenumberAll(ctx, day)
	if err != nil {
		logger.Fatalf("renumber error: %v", err)
	}
	fmt.Printf("renumbered %d consultation(s)\n", changed)
	fmt.Printf("after: %s\n", describeDay(ctx, repo, day))
}

func describeDay(ctx context.Context, repo *registerrepo.ConsultationRepository, day time.Time) string {
	consultations, err := repo.ListByDay(ctx, day)
	if err != nil {
		return fmt.Sprintf("list error: %v", err)
	}
	numbered := 0
	cancelled := 0
	for _, consultation := range consultations {
		if consultation.IsCancelled() {
			cancelled++
		}
		if _, ok := consultation.SequenceNumber(); ok {
			numbered++
		}
	}
	status := "sequence ok"
	if err := register.CheckSequence(day, consultations); err != nil {
		var seqErr *register.SequenceError
		if errors.As(err, &seqErr) {
			status = fmt.Sprintf("sequence broken: duplicates=%v gaps=%v unnumbered=%d",
				seqErr.Duplicates, seqErr.Gaps, seqErr.Unnumbered)
		} else {
			status = fmt.Sprintf("sequence check error: %v", err)
		}
	}
	return fmt.Sprintf("%d consultation(s), %d numbered, %d cancelled, %s",
		len(consultations), numbered, cancelled, status)
}
