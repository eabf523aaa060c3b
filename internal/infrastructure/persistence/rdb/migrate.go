package rdb

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
	"filterpanel/internal/infrastructure/persistence/rdb/model"
)

// ActivePositionIndex enforces at most one em_operacao row per (filtro, placa, lado).
const ActivePositionIndex = "ux_tecidos_posicao_ativa"

var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ActivePositionIndex +
		` ON tecidos (filtro, placa, lado) WHERE status = 'em_operacao'`,
}

// Migrate creates tecidos and anomalias and their indexes. It is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "persistence.migrate"))
	logging.Info(logCtx, "start schema migration")

	if err := db.WithContext(ctx).AutoMigrate(&model.Fabric{}, &model.Anomaly{}); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	for _, stmt := range indexStatements {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return errs.Wrap(err, "create index")
		}
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
