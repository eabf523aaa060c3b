package ports

import (
	"context"
	"time"

	"filterpanel/internal/domain/inventory"
)

// Fabric is one installation row. JSON names follow the tecidos columns
// consumed by the panel frontend.
type Fabric struct {
	Code        string           `json:"codigo"`
	Filter      int              `json:"filtro"`
	Board       int              `json:"placa"`
	Side        string           `json:"lado"`
	InstalledAt time.Time        `json:"instalado_em"`
	Installer   string           `json:"instalador"`
	Notes       *string          `json:"observacoes"`
	Status      inventory.Status `json:"status"`
	RemovedAt   *time.Time       `json:"removido_em"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (f Fabric) Position() inventory.Position {
	return inventory.Position{Filter: f.Filter, Board: f.Board, Side: f.Side}
}

// Anomaly is one observation row. JSON names follow the anomalias columns.
type Anomaly struct {
	ID         uint64    `json:"id"`
	FabricCode string    `json:"tecido_codigo"`
	ObservedAt time.Time `json:"data"`
	Quadrant   string    `json:"quadrante"`
	Condition  string    `json:"condicao"`
	Observer   string    `json:"responsavel"`
	Notes      *string   `json:"observacoes"`
	LoggedAt   time.Time `json:"timestamp"`
}

type AnomalyCreate struct {
	FabricCode string
	ObservedAt time.Time
	Quadrant   string
	Condition  string
	Observer   string
	Notes      *string
	LoggedAt   time.Time
}

type FabricReadRepository interface {
	ListFabrics(ctx context.Context) ([]Fabric, error)
	FabricExists(ctx context.Context, code string) (bool, error)
	// FindActiveAt returns the fabric in operation at pos; found is false when the slot is empty.
	FindActiveAt(ctx context.Context, pos inventory.Position) (fabric Fabric, found bool, err error)
	CountFabricsByStatus(ctx context.Context) (map[inventory.Status]int64, error)
}

type FabricRepository interface {
	FabricReadRepository
	MarkReplaced(ctx context.Context, code string, removedAt time.Time) error
	CreateFabric(ctx context.Context, fabric Fabric) error
}

type AnomalyRepository interface {
	ListAnomalies(ctx context.Context) ([]Anomaly, error)
	CountAnomalies(ctx context.Context) (int64, error)
	CreateAnomaly(ctx context.Context, input AnomalyCreate) (Anomaly, error)
}
