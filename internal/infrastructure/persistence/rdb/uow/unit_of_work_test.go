package uow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/database"
	"filterpanel/internal/infrastructure/persistence/rdb"
	"filterpanel/internal/infrastructure/persistence/rdb/repository"
	"filterpanel/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, URL: filepath.Join(t.TempDir(), "uow.sqlite"), MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := rdb.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewInventoryRepository(db)
	u := NewUnitOfWork(db)
	ctx := context.Background()
	boom := errors.New("boom")
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	err := u.WithTx(ctx, func(txCtx context.Context) error {
		if ports.TxFromContext(txCtx) == nil {
			t.Fatal("tx missing from context")
		}
		if err := repo.CreateFabric(txCtx, ports.Fabric{
			Code: "F1", Filter: 1, Board: 1, Side: "A",
			InstalledAt: now, Installer: "joao", CreatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	exists, err := repo.FabricExists(ctx, "F1")
	if err != nil {
		t.Fatalf("FabricExists() error = %v", err)
	}
	if exists {
		t.Fatal("row committed despite rollback")
	}
}

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	db := setupDB(t)
	u := NewUnitOfWork(db)

	err := u.WithTx(context.Background(), func(outer context.Context) error {
		return u.WithTx(outer, func(inner context.Context) error {
			if ports.TxFromContext(inner) != ports.TxFromContext(outer) {
				t.Fatal("nested WithTx opened a second transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}
