package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"paypulse/internal/config"
	"paypulse/internal/core"
	"paypulse/internal/ledger"
	"paypulse/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    BackendType
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "memory", cfg: &config.Config{DataBackend: "memory"}, want: MemoryBackend},
		{name: "sqlite", cfg: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, want: SQLiteBackend},
		{name: "postgres", cfg: &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"}, want: PostgresBackend},
		{name: "unknown", cfg: &config.Config{DataBackend: "sheets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Type != tt.want {
				t.Errorf("FromAppConfig() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "SQLite database path"},
		{name: "postgres without url", cfg: Config{Type: PostgresBackend}, wantErr: "database URL"},
		{name: "bad type", cfg: Config{Type: "redis"}, wantErr: "invalid backend type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "memory,sqlite,postgres" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Cleanup()

			if err := res.Ready(ctx); err != nil {
				t.Fatalf("Ready() error = %v", err)
			}
			err = res.Store.Update(ctx, "u1", func(tx ledger.Tx) error {
				return tx.CreateCategory(ctx, core.Category{ID: "c1", Name: "Food", ColorHex: core.DefaultColorHex, IconName: core.DefaultIconName})
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			err = res.Store.View(ctx, "u1", func(tx ledger.Tx) error {
				cats, err := tx.Categories(ctx)
				if err != nil {
					return err
				}
				if len(cats) != 1 || cats[0].Name != "Food" {
					t.Errorf("categories = %+v", cats)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() error = %v", err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected error for sqlite without a path")
	}
}

func TestMigrate(t *testing.T) {
	if err := Migrate(Config{Type: MemoryBackend}); err != nil {
		t.Errorf("memory Migrate() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := Migrate(Config{Type: SQLiteBackend, SQLiteDBPath: path}); err != nil {
		t.Fatalf("sqlite Migrate() error = %v", err)
	}
	v, dirty, err := storage.MigrationVersion(storage.SQLite, path)
	if err != nil || dirty || v != 2 {
		t.Errorf("MigrationVersion() = %d, %v, %v", v, dirty, err)
	}
}
