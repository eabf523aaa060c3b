package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/database"
	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/infrastructure/persistence/rdb"
	rdbrepo "filterpanel/internal/infrastructure/persistence/rdb/repository"
	rdbuow "filterpanel/internal/infrastructure/persistence/rdb/uow"
	"filterpanel/internal/ports"
)

type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func setupServiceWithRepo(t *testing.T) (*Service, *rdbrepo.InventoryRepository, *testClock) {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, URL: filepath.Join(t.TempDir(), "service.sqlite"), MaxOpenConns: 1})
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

	clock := &testClock{current: time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)}
	repo := rdbrepo.NewInventoryRepository(db)
	svc := NewService(repo, repo, rdbuow.NewUnitOfWork(db)).WithClock(clock.Now)
	return svc, repo, clock
}

func installInput(code string, filter, board int, side, installer string, at time.Time) InstallFabricInput {
	return InstallFabricInput{
		Code:        code,
		Filter:      filter,
		Board:       board,
		Side:        side,
		InstalledAt: at,
		Installer:   installer,
	}
}

func activeAt(items []ports.Fabric, pos domaininventory.Position) []ports.Fabric {
	var out []ports.Fabric
	for _, item := range items {
		if item.Position() == pos && item.Status == domaininventory.StatusInOperation {
			out = append(out, item)
		}
	}
	return out
}

func TestInstallAtEmptyPosition(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	result, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", at))
	if err != nil {
		t.Fatalf("InstallFabric() error = %v", err)
	}
	if result.Replaced != nil {
		t.Fatalf("Replaced = %+v, want nil", result.Replaced)
	}
	if result.Fabric.Status != domaininventory.StatusInOperation || result.Fabric.Notes != nil {
		t.Fatalf("Fabric = %+v", result.Fabric)
	}

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ListFabrics() len = %d", len(items))
	}
	if got := activeAt(items, domaininventory.Position{Filter: 1, Board: 2, Side: "A"}); len(got) != 1 || got[0].Code != "F1" {
		t.Fatalf("active at F1/P2/A = %+v", got)
	}
}

func TestInstallReplacesActiveFabric(t *testing.T) {
	svc, _, clock := setupServiceWithRepo(t)
	ctx := context.Background()
	eventTime := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	if _, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", eventTime)); err != nil {
		t.Fatalf("install F1: %v", err)
	}
	result, err := svc.InstallFabric(ctx, installInput("F2", 1, 2, " A ", "ana", eventTime.Add(time.Hour)))
	if err != nil {
		t.Fatalf("install F2: %v", err)
	}
	if result.Replaced == nil || result.Replaced.Code != "F1" {
		t.Fatalf("Replaced = %+v, want F1", result.Replaced)
	}
	serverNow := clock.current

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}
	byCode := map[string]ports.Fabric{}
	for _, item := range items {
		byCode[item.Code] = item
	}

	f1 := byCode["F1"]
	if f1.Status != domaininventory.StatusReplaced {
		t.Fatalf("F1 status = %q", f1.Status)
	}
	if f1.RemovedAt == nil || !f1.RemovedAt.Equal(serverNow) {
		t.Fatalf("F1 removido_em = %v, want server time %s", f1.RemovedAt, serverNow)
	}
	if byCode["F2"].Status != domaininventory.StatusInOperation || byCode["F2"].RemovedAt != nil {
		t.Fatalf("F2 = %+v", byCode["F2"])
	}
	if items[0].Code != "F2" {
		t.Fatalf("first listed = %q, want most recent install F2", items[0].Code)
	}
}

func TestSequentialInstallsKeepOneActive(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	pos := domaininventory.Position{Filter: 3, Board: 9, Side: "B"}
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	const n = 6

	for i := 0; i < n; i++ {
		code := fmt.Sprintf("T-%02d", i)
		if _, err := svc.InstallFabric(ctx, installInput(code, pos.Filter, pos.Board, pos.Side, "joao", base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("install %s: %v", code, err)
		}
	}
	if _, err := svc.InstallFabric(ctx, installInput("OTHER", 3, 9, "A", "ana", base)); err != nil {
		t.Fatalf("install other side: %v", err)
	}

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}

	active := activeAt(items, pos)
	if len(active) != 1 || active[0].Code != fmt.Sprintf("T-%02d", n-1) {
		t.Fatalf("active = %+v", active)
	}
	replaced := 0
	for _, item := range items {
		if item.Position() != pos || item.Status != domaininventory.StatusReplaced {
			continue
		}
		replaced++
		if item.RemovedAt == nil {
			t.Fatalf("%s replaced without removido_em", item.Code)
		}
	}
	if replaced != n-1 {
		t.Fatalf("replaced = %d, want %d", replaced, n-1)
	}

	for i := 1; i < len(items); i++ {
		if items[i-1].InstalledAt.Before(items[i].InstalledAt) {
			t.Fatalf("ListFabrics() not sorted desc at %d: %s before %s", i, items[i-1].InstalledAt, items[i].InstalledAt)
		}
	}
}

func TestInstallRejectsReusedCode(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	if _, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", at)); err != nil {
		t.Fatalf("install F1: %v", err)
	}
	_, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "ana", at.Add(time.Hour)))
	if !errors.Is(err, domaininventory.ErrFabricCodeTaken) {
		t.Fatalf("InstallFabric(reused code) error = %v, want ErrFabricCodeTaken", err)
	}

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}
	if len(items) != 1 || items[0].Status != domaininventory.StatusInOperation {
		t.Fatalf("items = %+v, want F1 untouched", items)
	}
}

func TestInstallValidatesInput(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input InstallFabricInput
		want  error
	}{
		{"code", installInput("  ", 1, 1, "A", "joao", at), domaininventory.ErrCodeRequired},
		{"filter", installInput("F1", 0, 1, "A", "joao", at), domaininventory.ErrInvalidPosition},
		{"side", installInput("F1", 1, 1, "", "joao", at), domaininventory.ErrInvalidPosition},
		{"installer", installInput("F1", 1, 1, "A", " ", at), domaininventory.ErrInstallerRequired},
	}
	for _, tc := range cases {
		if _, err := svc.InstallFabric(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("invalid input stored %d rows", len(items))
	}
}

type failingCreateRepo struct {
	*rdbrepo.InventoryRepository
	err error
}

func (r failingCreateRepo) CreateFabric(context.Context, ports.Fabric) error {
	return r.err
}

func TestInstallFailureKeepsPreviousFabricActive(t *testing.T) {
	svc, repo, clock := setupServiceWithRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	if _, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", at)); err != nil {
		t.Fatalf("install F1: %v", err)
	}

	storeErr := errors.New("disk I/O error")
	broken := NewService(failingCreateRepo{InventoryRepository: repo, err: storeErr}, repo, svc.uow).WithClock(clock.Now)
	if _, err := broken.InstallFabric(ctx, installInput("F2", 1, 2, "A", "ana", at.Add(time.Hour))); !errors.Is(err, storeErr) {
		t.Fatalf("InstallFabric() error = %v, want store error", err)
	}

	active, found, err := repo.FindActiveAt(ctx, domaininventory.Position{Filter: 1, Board: 2, Side: "A"})
	if err != nil || !found {
		t.Fatalf("FindActiveAt() found=%v err=%v", found, err)
	}
	if active.Code != "F1" || active.RemovedAt != nil {
		t.Fatalf("active = %+v, want F1 still in operation", active)
	}
}

func TestReportAnomalyWithoutFabricCheck(t *testing.T) {
	svc, _, clock := setupServiceWithRepo(t)
	ctx := context.Background()
	observed := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)

	anomaly, err := svc.ReportAnomaly(ctx, ReportAnomalyInput{
		FabricCode: "NUNCA-INSTALADO",
		ObservedAt: observed,
		Quadrant:   "Q1",
		Condition:  "rasgo",
		Observer:   "ana",
		Notes:      "  ",
	})
	if err != nil {
		t.Fatalf("ReportAnomaly() error = %v", err)
	}
	if anomaly.ID == 0 {
		t.Fatal("ReportAnomaly() id = 0")
	}
	if anomaly.Notes != nil {
		t.Fatalf("notes = %q, want nil for blank notes", *anomaly.Notes)
	}
	if !anomaly.LoggedAt.Equal(clock.current) {
		t.Fatalf("timestamp = %s, want server time %s", anomaly.LoggedAt, clock.current)
	}

	if _, err := svc.ReportAnomaly(ctx, ReportAnomalyInput{
		FabricCode: "F1",
		ObservedAt: observed.Add(-24 * time.Hour),
		Quadrant:   "Q4",
		Condition:  "mancha",
		Observer:   "joao",
	}); err != nil {
		t.Fatalf("ReportAnomaly(second) error = %v", err)
	}

	items, err := svc.ListAnomalies(ctx)
	if err != nil {
		t.Fatalf("ListAnomalies() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != anomaly.ID {
		t.Fatalf("ListAnomalies() = %+v", items)
	}
}

func TestReportAnomalyValidatesInput(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	valid := ReportAnomalyInput{
		FabricCode: "F1",
		ObservedAt: time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC),
		Quadrant:   "Q1",
		Condition:  "rasgo",
		Observer:   "ana",
	}

	cases := map[error]func(in *ReportAnomalyInput){
		domaininventory.ErrFabricCodeRequired: func(in *ReportAnomalyInput) { in.FabricCode = "" },
		domaininventory.ErrQuadrantRequired:   func(in *ReportAnomalyInput) { in.Quadrant = " " },
		domaininventory.ErrConditionRequired:  func(in *ReportAnomalyInput) { in.Condition = "" },
		domaininventory.ErrObserverRequired:   func(in *ReportAnomalyInput) { in.Observer = "" },
	}
	for want, mutate := range cases {
		in := valid
		mutate(&in)
		if _, err := svc.ReportAnomaly(ctx, in); !errors.Is(err, want) {
			t.Fatalf("ReportAnomaly() error = %v, want %v", err, want)
		}
	}
}

func TestSummary(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)

	for _, code := range []string{"F1", "F2", "F3"} {
		if _, err := svc.InstallFabric(ctx, installInput(code, 1, 1, "A", "joao", at)); err != nil {
			t.Fatalf("install %s: %v", code, err)
		}
	}
	if _, err := svc.ReportAnomaly(ctx, ReportAnomalyInput{
		FabricCode: "F3", ObservedAt: at, Quadrant: "Q2", Condition: "furo", Observer: "ana",
	}); err != nil {
		t.Fatalf("report anomaly: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary != (Summary{InOperation: 1, Replaced: 2, Anomalies: 1}) {
		t.Fatalf("Summary() = %+v", summary)
	}
}

func TestServiceRejectsCancelledContext(t *testing.T) {
	svc, _, _ := setupServiceWithRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ListFabrics(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ListFabrics() error = %v, want context.Canceled", err)
	}
}

func TestMissingTimesDefaultToServerClock(t *testing.T) {
	svc, _, clock := setupServiceWithRepo(t)
	ctx := context.Background()

	result, err := svc.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", time.Time{}))
	if err != nil {
		t.Fatalf("InstallFabric() error = %v", err)
	}
	if !result.Fabric.InstalledAt.Equal(clock.current) {
		t.Fatalf("instalado_em = %s, want server time %s", result.Fabric.InstalledAt, clock.current)
	}

	anomaly, err := svc.ReportAnomaly(ctx, ReportAnomalyInput{
		FabricCode: "F1",
		Quadrant:   "Q1",
		Condition:  "rasgo",
		Observer:   "ana",
	})
	if err != nil {
		t.Fatalf("ReportAnomaly() error = %v", err)
	}
	if !anomaly.ObservedAt.Equal(clock.current) || !anomaly.ObservedAt.Equal(anomaly.LoggedAt) {
		t.Fatalf("data = %s, timestamp = %s, want server time %s", anomaly.ObservedAt, anomaly.LoggedAt, clock.current)
	}

	items, err := svc.ListFabrics(ctx)
	if err != nil {
		t.Fatalf("ListFabrics() error = %v", err)
	}
	if len(items) != 1 || items[0].InstalledAt.IsZero() {
		t.Fatalf("ListFabrics() = %+v", items)
	}
}

type replacedActiveRepo struct {
	*rdbrepo.InventoryRepository
}

func (r replacedActiveRepo) FindActiveAt(_ context.Context, pos domaininventory.Position) (ports.Fabric, bool, error) {
	return ports.Fabric{
		Code:   "F0",
		Filter: pos.Filter,
		Board:  pos.Board,
		Side:   pos.Side,
		Status: domaininventory.StatusReplaced,
	}, true, nil
}

func TestInstallRefusesToReplaceFabricOutOfOperation(t *testing.T) {
	svc, repo, clock := setupServiceWithRepo(t)
	ctx := context.Background()

	stale := NewService(replacedActiveRepo{InventoryRepository: repo}, repo, svc.uow).WithClock(clock.Now)
	_, err := stale.InstallFabric(ctx, installInput("F1", 1, 2, "A", "joao", time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)))
	if !errors.Is(err, domaininventory.ErrInvalidTransition) {
		t.Fatalf("InstallFabric() error = %v, want ErrInvalidTransition", err)
	}

	exists, err := repo.FabricExists(ctx, "F1")
	if err != nil || exists {
		t.Fatalf("FabricExists(F1) = %v, %v; want nothing stored", exists, err)
	}
}
