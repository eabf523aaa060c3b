package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"filterpanel/internal/bootstrap/logging"
	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/errs"
	"filterpanel/internal/ports"
)

// InstallFabric puts a fabric in operation at its position. A fabric already in
// operation there is marked substituido with removido_em set to the server
// time of this installation. Both steps commit or roll back together.
// A missing installation time defaults to the server time.
func (s *Service) InstallFabric(ctx context.Context, input InstallFabricInput) (InstallFabricResult, error) {
	if err := checkContext(ctx); err != nil {
		return InstallFabricResult{}, err
	}
	if s.fabrics == nil {
		return InstallFabricResult{}, errors.New("fabric repository is required")
	}
	if s.uow == nil {
		return InstallFabricResult{}, errors.New("unit of work is required")
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		return InstallFabricResult{}, domaininventory.ErrCodeRequired
	}
	pos, err := domaininventory.NewPosition(input.Filter, input.Board, input.Side)
	if err != nil {
		return InstallFabricResult{}, err
	}
	installer := strings.TrimSpace(input.Installer)
	if installer == "" {
		return InstallFabricResult{}, domaininventory.ErrInstallerRequired
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.inventory"),
		slog.String("fabric_code", code),
		slog.String("position", pos.String()),
	)

	now := s.now()
	installedAt := input.InstalledAt.UTC()
	if input.InstalledAt.IsZero() {
		installedAt = now
	}
	fabric := ports.Fabric{
		Code:        code,
		Filter:      pos.Filter,
		Board:       pos.Board,
		Side:        pos.Side,
		InstalledAt: installedAt,
		Installer:   installer,
		Notes:       optionalText(input.Notes),
		Status:      domaininventory.StatusInOperation,
		CreatedAt:   now,
	}

	var replaced *ports.Fabric
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.fabrics.FabricExists(txCtx, code)
		if err != nil {
			return err
		}
		if exists {
			return errs.Wrapf(domaininventory.ErrFabricCodeTaken, "code %q", code)
		}

		active, found, err := s.fabrics.FindActiveAt(txCtx, pos)
		if err != nil {
			return err
		}
		if found {
			if !active.Status.CanTransitionTo(domaininventory.StatusReplaced) {
				return fmt.Errorf("fabric %q at %s is %s: %w",
					active.Code, pos, active.Status, domaininventory.ErrInvalidTransition)
			}
			if err := s.fabrics.MarkReplaced(txCtx, active.Code, now); err != nil {
				return err
			}
			active.Status = domaininventory.StatusReplaced
			removedAt := now
			active.RemovedAt = &removedAt
			replaced = &active
		}

		return s.fabrics.CreateFabric(txCtx, fabric)
	}); err != nil {
		if !domaininventory.IsConflict(err) {
			logging.Error(logCtx, "install fabric failed", slog.Any("err", errs.Loggable(err)))
		}
		return InstallFabricResult{}, errs.Wrap(err, "install fabric")
	}

	attrs := []slog.Attr{slog.String("installer", installer)}
	if replaced != nil {
		attrs = append(attrs, slog.String("replaced_code", replaced.Code))
	}
	logging.Info(logCtx, "fabric installed", attrs...)

	return InstallFabricResult{Fabric: fabric, Replaced: replaced}, nil
}

// ListFabrics returns every installation, most recently installed first.
func (s *Service) ListFabrics(ctx context.Context) ([]ports.Fabric, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.fabrics == nil {
		return nil, errors.New("fabric repository is required")
	}

	items, err := s.fabrics.ListFabrics(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "list fabrics")
	}
	return items, nil
}
