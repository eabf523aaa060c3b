package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filterpanel/internal/domain/inventory"
	"filterpanel/internal/errs"
	"filterpanel/internal/infrastructure/persistence/rdb/model"
	"filterpanel/internal/ports"
)

var errStaleReplace = errors.New("fabric is not in operation")

func (r *InventoryRepository) ListFabrics(ctx context.Context) ([]ports.Fabric, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Fabric
	if err := db.
		Order("instalado_em desc").
		Order("created_at desc").
		Order("codigo asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query fabrics")
	}

	items := make([]ports.Fabric, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapFabric(row))
	}
	return items, nil
}

func (r *InventoryRepository) FabricExists(ctx context.Context, code string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Fabric{}).Where("codigo = ?", code).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count fabrics by code")
	}
	return count > 0, nil
}

func (r *InventoryRepository) FindActiveAt(ctx context.Context, pos inventory.Position) (ports.Fabric, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Fabric{}, false, err
	}

	var rows []model.Fabric
	if err := lockForUpdate(ctx, db).
		Where("filtro = ? AND placa = ? AND lado = ? AND status = ?",
			pos.Filter, pos.Board, pos.Side, string(inventory.StatusInOperation)).
		Order("instalado_em desc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return ports.Fabric{}, false, errs.Wrapf(err, "query active fabric at %s", pos)
	}
	if len(rows) == 0 {
		return ports.Fabric{}, false, nil
	}
	return mapFabric(rows[0]), true, nil
}

func (r *InventoryRepository) CountFabricsByStatus(ctx context.Context) (map[inventory.Status]int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&model.Fabric{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count fabrics by status")
	}

	counts := make(map[inventory.Status]int64, len(rows))
	for _, row := range rows {
		counts[inventory.Status(row.Status)] = row.Total
	}
	return counts, nil
}

// MarkReplaced moves an em_operacao row to substituido. It fails when the row
// is missing or already replaced.
func (r *InventoryRepository) MarkReplaced(ctx context.Context, code string, removedAt time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Fabric{}).
		Where("codigo = ? AND status = ?", code, string(inventory.StatusInOperation)).
		Updates(map[string]any{
			"status":      string(inventory.StatusReplaced),
			"removido_em": removedAt,
		})
	if result.Error != nil {
		return errs.Wrapf(result.Error, "mark fabric %q replaced", code)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("mark fabric %q replaced: %w", code, errStaleReplace)
	}
	return nil
}

func (r *InventoryRepository) CreateFabric(ctx context.Context, fabric ports.Fabric) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	status := fabric.Status
	if status == "" {
		status = inventory.StatusInOperation
	}
	if !status.Valid() {
		return fmt.Errorf("insert fabric %q: %w: %q", fabric.Code, inventory.ErrUnknownStatus, status)
	}
	row := model.Fabric{
		Code:        fabric.Code,
		Filter:      fabric.Filter,
		Board:       fabric.Board,
		Side:        fabric.Side,
		InstalledAt: fabric.InstalledAt,
		Installer:   fabric.Installer,
		Notes:       fabric.Notes,
		Status:      string(status),
		RemovedAt:   fabric.RemovedAt,
		CreatedAt:   fabric.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(classifyWriteError(err), "insert fabric")
	}
	return nil
}

func mapFabric(row model.Fabric) ports.Fabric {
	return ports.Fabric{
		Code:        row.Code,
		Filter:      row.Filter,
		Board:       row.Board,
		Side:        row.Side,
		InstalledAt: row.InstalledAt.UTC(),
		Installer:   row.Installer,
		Notes:       row.Notes,
		Status:      inventory.Status(row.Status),
		RemovedAt:   utcPtr(row.RemovedAt),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
