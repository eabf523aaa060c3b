package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filterpanel/internal/domain/inventory"
	"filterpanel/internal/infrastructure/persistence/rdb"
	"filterpanel/internal/ports"
)

const pgUniqueViolation = "23505"

// InventoryRepository stores fabrics and anomalies through gorm. It serves
// both ports.FabricRepository and ports.AnomalyRepository.
type InventoryRepository struct {
	db *gorm.DB
}

var (
	_ ports.FabricRepository  = (*InventoryRepository)(nil)
	_ ports.AnomalyRepository = (*InventoryRepository)(nil)
)

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func inTx(ctx context.Context) bool {
	return ports.TxFromContext(ctx) != nil
}

// classifyWriteError maps unique violations onto the domain conflicts. It reads
// the raw driver error, so the DB must not be opened with TranslateError.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == rdb.ActivePositionIndex {
			return fmt.Errorf("%w: %s", inventory.ErrPositionConflict, pgErr.Message)
		}
		return fmt.Errorf("%w: %s", inventory.ErrFabricCodeTaken, pgErr.Message)
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		if strings.Contains(msg, "tecidos.codigo") {
			return fmt.Errorf("%w: %s", inventory.ErrFabricCodeTaken, msg)
		}
		if strings.Contains(msg, "tecidos.filtro") {
			return fmt.Errorf("%w: %s", inventory.ErrPositionConflict, msg)
		}
	}
	return err
}

// lockForUpdate adds SELECT ... FOR UPDATE on stores with row locks.
// SQLite serialises writers per database, so the clause is skipped there.
func lockForUpdate(ctx context.Context, db *gorm.DB) *gorm.DB {
	if !inTx(ctx) || db.Dialector.Name() != "postgres" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
