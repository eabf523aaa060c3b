package repository

import (
	"context"

	"filterpanel/internal/errs"
	"filterpanel/internal/infrastructure/persistence/rdb/model"
	"filterpanel/internal/ports"
)

func (r *InventoryRepository) ListAnomalies(ctx context.Context) ([]ports.Anomaly, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Anomaly
	if err := db.Order("data desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query anomalies")
	}

	items := make([]ports.Anomaly, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAnomaly(row))
	}
	return items, nil
}

func (r *InventoryRepository) CountAnomalies(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Anomaly{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count anomalies")
	}
	return count, nil
}

func (r *InventoryRepository) CreateAnomaly(ctx context.Context, input ports.AnomalyCreate) (ports.Anomaly, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Anomaly{}, err
	}

	row := model.Anomaly{
		FabricCode: input.FabricCode,
		ObservedAt: input.ObservedAt,
		Quadrant:   input.Quadrant,
		Condition:  input.Condition,
		Observer:   input.Observer,
		Notes:      input.Notes,
		LoggedAt:   input.LoggedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Anomaly{}, errs.Wrap(err, "insert anomaly")
	}
	return mapAnomaly(row), nil
}

func mapAnomaly(row model.Anomaly) ports.Anomaly {
	return ports.Anomaly{
		ID:         row.ID,
		FabricCode: row.FabricCode,
		ObservedAt: row.ObservedAt.UTC(),
		Quadrant:   row.Quadrant,
		Condition:  row.Condition,
		Observer:   row.Observer,
		Notes:      row.Notes,
		LoggedAt:   row.LoggedAt.UTC(),
	}
}
