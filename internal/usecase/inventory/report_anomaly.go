package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"filterpanel/internal/bootstrap/logging"
	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/errs"
	"filterpanel/internal/ports"
)

// ReportAnomaly appends an observation. The fabric code is stored as given;
// it is not checked against tecidos. A missing observation time defaults to
// the server time.
func (s *Service) ReportAnomaly(ctx context.Context, input ReportAnomalyInput) (ports.Anomaly, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Anomaly{}, err
	}
	if s.anomalies == nil {
		return ports.Anomaly{}, errors.New("anomaly repository is required")
	}

	create := ports.AnomalyCreate{
		FabricCode: strings.TrimSpace(input.FabricCode),
		ObservedAt: input.ObservedAt.UTC(),
		Quadrant:   strings.TrimSpace(input.Quadrant),
		Condition:  strings.TrimSpace(input.Condition),
		Observer:   strings.TrimSpace(input.Observer),
		Notes:      optionalText(input.Notes),
	}
	switch {
	case create.FabricCode == "":
		return ports.Anomaly{}, domaininventory.ErrFabricCodeRequired
	case create.Quadrant == "":
		return ports.Anomaly{}, domaininventory.ErrQuadrantRequired
	case create.Condition == "":
		return ports.Anomaly{}, domaininventory.ErrConditionRequired
	case create.Observer == "":
		return ports.Anomaly{}, domaininventory.ErrObserverRequired
	}
	create.LoggedAt = s.now()
	if input.ObservedAt.IsZero() {
		create.ObservedAt = create.LoggedAt
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.inventory"),
		slog.String("fabric_code", create.FabricCode),
	)

	anomaly, err := s.anomalies.CreateAnomaly(ctx, create)
	if err != nil {
		logging.Error(logCtx, "report anomaly failed", slog.Any("err", errs.Loggable(err)))
		return ports.Anomaly{}, errs.Wrap(err, "report anomaly")
	}

	logging.Info(logCtx, "anomaly reported",
		slog.Uint64("anomaly_id", anomaly.ID),
		slog.String("quadrant", anomaly.Quadrant),
		slog.String("condition", anomaly.Condition),
	)
	return anomaly, nil
}

// ListAnomalies returns every anomaly, most recently observed first.
func (s *Service) ListAnomalies(ctx context.Context) ([]ports.Anomaly, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.anomalies == nil {
		return nil, errors.New("anomaly repository is required")
	}

	items, err := s.anomalies.ListAnomalies(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list anomalies")
	}
	return items, nil
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if err := checkContext(ctx); err != nil {
		return Summary{}, err
	}
	if s.fabrics == nil || s.anomalies == nil {
		return Summary{}, errors.New("repositories are required")
	}

	counts, err := s.fabrics.CountFabricsByStatus(ctx)
	if err != nil {
		return Summary{}, errs.Wrap(err, "summarize fabrics")
	}
	anomalies, err := s.anomalies.CountAnomalies(ctx)
	if err != nil {
		return Summary{}, errs.Wrap(err, "summarize anomalies")
	}

	return Summary{
		InOperation: counts[domaininventory.StatusInOperation],
		Replaced:    counts[domaininventory.StatusReplaced],
		Anomalies:   anomalies,
	}, nil
}
