package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"filterpanel/internal/errs"
	"filterpanel/internal/ports"
)

type Service struct {
	fabrics   ports.FabricRepository
	anomalies ports.AnomalyRepository
	uow       ports.UnitOfWork
	now       func() time.Time
}

// NewService wires the position registry and the anomaly log.
func NewService(fabrics ports.FabricRepository, anomalies ports.AnomalyRepository, uow ports.UnitOfWork) *Service {
	return &Service{
		fabrics:   fabrics,
		anomalies: anomalies,
		uow:       uow,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the server clock used for removido_em, created_at and timestamp.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = func() time.Time { return now().UTC() }
	}
	return s
}

type InstallFabricInput struct {
	Code        string
	Filter      int
	Board       int
	Side        string
	InstalledAt time.Time
	Installer   string
	Notes       string
}

type InstallFabricResult struct {
	Fabric ports.Fabric
	// Replaced is the fabric that was in operation at the position, if any.
	Replaced *ports.Fabric
}

type ReportAnomalyInput struct {
	FabricCode string
	ObservedAt time.Time
	Quadrant   string
	Condition  string
	Observer   string
	Notes      string
}

type Summary struct {
	InOperation int64
	Replaced    int64
	Anomalies   int64
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
