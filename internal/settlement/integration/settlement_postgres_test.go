package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	expenseapp "clinic-register/internal/expense/application"
	expenserepo "clinic-register/internal/expense/infrastructure/postgres"
	registerapp "clinic-register/internal/register/application"
	register "clinic-register/internal/register/domain"
	registerrepo "clinic-register/internal/register/infrastructure/postgres"
	registeradapter "clinic-register/internal/settlement/adapters/register"
	settlementapp "clinic-register/internal/settlement/application"
	settlement "clinic-register/internal/settlement/domain"
	settlementrepo "clinic-register/internal/settlement/infrastructure/postgres"

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

func nullDec(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func TestDayClose_Postgres(t *testing.T) {
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
		!tableExists(db, "expense_entries") ||
		!tableExists(db, "settlement_records") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	dayStart := time.Date(2026, time.January, 21, 0, 0, 0, 0, time.UTC)
	clock := fixedClock{now: dayStart.Add(19 * time.Hour)}

	_, _ = db.ExecContext(ctx, "DELETE FROM settlement_records WHERE day_start = $1", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM expense_entries WHERE day_start = $1", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM consultation_items WHERE consultation_id IN (SELECT id FROM consultations WHERE day_start = $1)", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM consultation_fees WHERE consultation_id IN (SELECT id FROM consultations WHERE day_start = $1)", dayStart)
	_, _ = db.ExecContext(ctx, "DELETE FROM consultations WHERE day_start = $1", dayStart)

	registerService, err := registerapp.NewService(registerrepo.NewConsultationRepository(db), nil, clock)
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	expenseService, err := expenseapp.NewService(expenserepo.NewExpenseRepository(db), clock)
	if err != nil {
		t.Fatalf("new expense service: %v", err)
	}
	settlementService, err := settlementapp.NewService(
		settlementrepo.NewSettlementRepository(db),
		registeradapter.NewDayRevenueReader(db),
		expenseService,
		nil,
		nil,
		clock,
		settlement.DefaultTolerance,
	)
	if err != nil {
		t.Fatalf("new settlement service: %v", err)
	}

	intake := func(channel register.PaymentChannel, amount int64) {
		t.Helper()
		_, err := registerService.Intake(ctx, registerapp.IntakeRequest{
			DayStart: dayStart,
			Category: register.CategoryRegular,
			Channel:  channel,
			Items:    []registerapp.ItemRequest{{Description: "consultation", Amount: decimal.NewFromInt(amount)}},
		})
		if err != nil {
			t.Fatalf("intake: %v", err)
		}
	}
	intake(register.ChannelCash, 100)
	intake(register.ChannelCash, 100)
	intake(register.ChannelCard, 50)
	if _, err := expenseService.Record(ctx, dayStart, "cleaning supplies", decimal.NewFromInt(20), "tester"); err != nil {
		t.Fatalf("record expense: %v", err)
	}

	report, err := settlementService.DailyReport(ctx, dayStart, settlement.Counted{})
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if !report.Expected.Cash.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected cash 180, got %s", report.Expected.Cash)
	}
	if !report.Expected.Card.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected card 50, got %s", report.Expected.Card)
	}

	record, err := settlementService.Close(ctx, settlementapp.CloseRequest{
		DayStart: dayStart,
		Counted:  settlement.Counted{Cash: nullDec("180"), Card: nullDec("50"), Deposit: nullDec("0")},
		ClosedBy: "tester",
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if record.Overall != settlement.StatusCorrect || record.Version != 1 {
		t.Fatalf("unexpected record: overall=%s version=%d", record.Overall, record.Version)
	}

	// Reloaded record must carry the same reconciliation.
	reloaded, err := settlementService.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if reloaded.Overall != settlement.StatusCorrect || len(reloaded.Results) != 3 {
		t.Fatalf("unexpected reloaded record: %+v", reloaded)
	}

	amended, err := settlementService.Close(ctx, settlementapp.CloseRequest{
		DayStart: dayStart,
		Counted:  settlement.Counted{Cash: nullDec("179"), Card: nullDec("50"), Deposit: nullDec("0")},
		ClosedBy: "tester",
		Amend:    true,
	})
	if err != nil {
		t.Fatalf("amend close: %v", err)
	}
	if amended.Version != 2 || amended.Overall != settlement.StatusDiscrepant {
		t.Fatalf("unexpected amended record: overall=%s version=%d", amended.Overall, amended.Version)
	}
	voided, err := settlementService.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get voided record: %v", err)
	}
	if voided.Status != settlement.RecordStatusVoided {
		t.Fatalf("amend must void version 1, got %s", voided.Status)
	}

	history, err := settlementService.History(ctx, dayStart)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(history))
	}
}
