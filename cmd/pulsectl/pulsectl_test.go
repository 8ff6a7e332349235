package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paypulse/internal/auth"
	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/services"
	"paypulse/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", path)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("REPORTS_DIR", filepath.Join(dir, "reports"))
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("AMQP_URL", "")
	return path
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("JWT_SECRET", testSecret)

	out, err := run(t, "token", "--user", "alice", "--ttl", "1h")
	if err != nil {
		t.Fatal(err)
	}
	user, err := auth.NewTokens(testSecret).Verify(strings.TrimSpace(out))
	if err != nil || user != "alice" {
		t.Errorf("Verify() = %q, %v", user, err)
	}

	if _, err := run(t, "token", "--user", ""); err == nil {
		t.Error("token without --user succeeded")
	}
}

func TestMigrateCommand(t *testing.T) {
	path := sqliteEnv(t)
	out, err := run(t, "migrate")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sqlite schema is up to date") {
		t.Errorf("output = %q", out)
	}
	v, dirty, err := storage.MigrationVersion(storage.SQLite, path)
	if err != nil || dirty || v == 0 {
		t.Errorf("version = %d dirty=%v err=%v", v, dirty, err)
	}
}

func TestReportAndDashboardCommands(t *testing.T) {
	path := sqliteEnv(t)
	store, err := storage.OpenSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := services.NewLedgerService(store, events.Noop{}, nil)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, "u1", services.CategoryInput{Name: "Food"})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []core.Date{core.NewDate(2024, 5, 3), core.NewDate(2024, 5, 20)} {
		if _, err := svc.CreateExpense(ctx, "u1", core.Expense{Amount: core.MustMoney("15.50"), ExpenseDate: d, CategoryID: cat.ID}); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	pdf := filepath.Join(t.TempDir(), "may.pdf")
	out, err := run(t, "report", "--user", "u1", "--month", "2024-05", "--out", pdf)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2024-05: 2 expenses, total 31.00") {
		t.Errorf("output = %q", out)
	}
	b, err := os.ReadFile(pdf)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Errorf("pdf = %d bytes, %v", len(b), err)
	}

	out, err = run(t, "dashboard", "--user", "u1", "--as-of", "2024-05-20")
	if err != nil {
		t.Fatal(err)
	}
	var sum core.DashboardSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !sum.TotalSpentThisMonth.Equal(core.MustMoney("31")) || !sum.TotalSpentToday.Equal(core.MustMoney("15.5")) {
		t.Errorf("summary totals = month %s today %s", sum.TotalSpentThisMonth, sum.TotalSpentToday)
	}

	if _, err := run(t, "report", "--user", "u1", "--month", "May", "--out", pdf); err == nil {
		t.Error("report accepted a bad month")
	}
}

func TestStoreCommandsRejectMemoryBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("JWT_SECRET", testSecret)
	if _, err := run(t, "dashboard", "--user", "u1", "--as-of", ""); err == nil || !strings.Contains(err.Error(), "memory backend") {
		t.Errorf("err = %v", err)
	}
}

func TestAwaitCode(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	port := fmt.Sprint(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  bool
	}{
		{"granted", "state=s1&code=abc", "abc", false},
		{"wrong state", "state=other&code=abc", "", true},
		{"denied", "error=access_denied", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := awaitCode(ctx, port, "s1", func() {
				go func() {
					resp, err := http.Get("http://localhost:" + port + "/callback?" + tt.query)
					if err == nil {
						resp.Body.Close()
					}
				}()
			})
			if (err != nil) != tt.wantErr || code != tt.wantCode {
				t.Errorf("awaitCode() = %q, %v", code, err)
			}
		})
	}
}
