package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	registerapp "clinic-register/internal/register/application"
	register "clinic-register/internal/register/domain"
	registerrepo "clinic-register/internal/register/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", name).Scan(&exists)
	return err == nil && exists
}

func TestRegisterDay_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "consultations") ||
		!tableExists(db, "consultation_items") ||
		!tableExists(db, "consultation_fees") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	dayStart := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)

	_, _ = db.ExecContext(ctx, "DELETE FROM consultation_items WHERE consultation_id IN (SELECT id FROM consultations WHERE day_start = $1)", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM consultation_fees WHERE consultation_id IN (SELECT id FROM consultations WHERE day_start = $1)", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM consultations WHERE day_start = $1", dayStart)

	repo := registerrepo.NewConsultationRepository(db)
	service, err := registerapp.NewService(repo, nil, fixedClock{now: dayStart.Add(9 * time.Hour)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	var created []*register.Consultation
	for i := 0; i < 4; i++ {
		consultation, err := service.Intake(ctx, registerapp.IntakeRequest{
			DayStart: dayStart,
			Category: register.CategoryRegular,
			Channel:  register.ChannelCash,
			Items:    []registerapp.ItemRequest{{Description: "consultation", Amount: decimal.NewFromInt(100)}},
		})
		if err != nil {
			t.Fatalf("intake %d: %v", i+1, err)
		}
		seq, ok := consultation.SequenceNumber()
		if !ok || seq != i+1 {
			t.Fatalf("intake %d: got sequence %d (ok=%v)", i+1, seq, ok)
		}
		created = append(created, consultation)
	}

	// Cancelling the second consultation must shift 3 and 4 down.
	if _, err := service.Cancel(ctx, created[1].ID(), "duplicate entry", "tester"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := service.VerifyDay(ctx, dayStart); err != nil {
		t.Fatalf("verify after cancel: %v", err)
	}
	listed, err := service.ListByDay(ctx, dayStart)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var sequences []int
	for _, consultation := range listed {
		if seq, ok := consultation.SequenceNumber(); ok {
			sequences = append(sequences, seq)
		}
	}
	if len(sequences) != 3 {
		t.Fatalf("expected 3 numbered consultations, got %v", sequences)
	}
	for i, seq := range sequences {
		if seq != i+1 {
			t.Fatalf("expected contiguous sequences, got %v", sequences)
		}
	}

	// Repair on a clean day changes nothing, twice.
	for run := 0; run < 2; run++ {
		changed, err := service.Repair(ctx, dayStart, "tester")
		if err != nil {
			t.Fatalf("repair run %d: %v", run+1, err)
		}
		if changed != 0 {
			t.Fatalf("repair run %d: expected 0 changes, got %d", run+1, changed)
		}
	}
}
