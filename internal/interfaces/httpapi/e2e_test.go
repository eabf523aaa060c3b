package httpapi

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/database"
	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/infrastructure/persistence/rdb"
	rdbrepo "filterpanel/internal/infrastructure/persistence/rdb/repository"
	rdbuow "filterpanel/internal/infrastructure/persistence/rdb/uow"
	"filterpanel/internal/ports"
	"filterpanel/internal/usecase/inventory"
)

func setupStack(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, URL: filepath.Join(t.TempDir(), "e2e.sqlite"), MaxOpenConns: 1})
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

	repo := rdbrepo.NewInventoryRepository(db)
	svc := inventory.NewService(repo, repo, rdbuow.NewUnitOfWork(db))
	return NewHandler(svc, Options{Environment: "test", Logger: quietLogger()})
}

func TestInstallReplaceAndReportScenario(t *testing.T) {
	h := setupStack(t)

	resp := doRequest(t, h, http.MethodPost, "/api/tecidos",
		`{"codigo":"F1","filtro":1,"placa":2,"lado":"A","instalado_em":"2026-04-01T08:00:00Z","instalador":"joao"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("install F1: %d %s", resp.Code, resp.Body.String())
	}

	fabrics := decodeJSON[[]ports.Fabric](t, doRequest(t, h, http.MethodGet, "/api/tecidos", ""))
	if len(fabrics) != 1 || fabrics[0].Code != "F1" || fabrics[0].Status != domaininventory.StatusInOperation {
		t.Fatalf("after F1: %+v", fabrics)
	}

	resp = doRequest(t, h, http.MethodPost, "/api/tecidos",
		`{"codigo":"F2","filtro":1,"placa":2,"lado":"A","instalado_em":"2026-04-03T08:00:00Z","instalador":"ana"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("install F2: %d %s", resp.Code, resp.Body.String())
	}

	fabrics = decodeJSON[[]ports.Fabric](t, doRequest(t, h, http.MethodGet, "/api/tecidos", ""))
	if len(fabrics) != 2 {
		t.Fatalf("after F2: %+v", fabrics)
	}
	if fabrics[0].Code != "F2" || fabrics[0].Status != domaininventory.StatusInOperation || fabrics[0].RemovedAt != nil {
		t.Fatalf("F2 = %+v", fabrics[0])
	}
	if fabrics[1].Code != "F1" || fabrics[1].Status != domaininventory.StatusReplaced || fabrics[1].RemovedAt == nil {
		t.Fatalf("F1 = %+v", fabrics[1])
	}

	resp = doRequest(t, h, http.MethodPost, "/api/anomalias",
		`{"tecido_codigo":"F2","data":"2026-04-04T10:15","quadrante":"Q1","condicao":"rasgo","responsavel":"ana"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("report anomaly: %d %s", resp.Code, resp.Body.String())
	}

	anomalies := decodeJSON[[]ports.Anomaly](t, doRequest(t, h, http.MethodGet, "/api/anomalias", ""))
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %+v", anomalies)
	}
	a := anomalies[0]
	if a.ID == 0 || a.FabricCode != "F2" || a.Quadrant != "Q1" || a.Condition != "rasgo" || a.Observer != "ana" {
		t.Fatalf("anomaly = %+v", a)
	}
	if a.LoggedAt.IsZero() {
		t.Fatal("anomaly timestamp not set")
	}
}

func TestReportAnomalyForUnknownFabricSucceeds(t *testing.T) {
	h := setupStack(t)

	resp := doRequest(t, h, http.MethodPost, "/api/anomalias",
		`{"tecido_codigo":"NAO-EXISTE","data":"2026-04-04","quadrante":"Q2","condicao":"furo","responsavel":"joao"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d %s", resp.Code, resp.Body.String())
	}
}

func TestReinstallingCodeIsConflict(t *testing.T) {
	h := setupStack(t)
	body := `{"codigo":"F1","filtro":1,"placa":1,"lado":"A","instalado_em":"2026-04-01","instalador":"joao"}`

	if resp := doRequest(t, h, http.MethodPost, "/api/tecidos", body); resp.Code != http.StatusOK {
		t.Fatalf("first install: %d %s", resp.Code, resp.Body.String())
	}
	if resp := doRequest(t, h, http.MethodPost, "/api/tecidos", body); resp.Code != http.StatusConflict {
		t.Fatalf("second install: %d, want 409", resp.Code)
	}
}

func TestMissingFieldsAreRejected(t *testing.T) {
	h := setupStack(t)

	resp := doRequest(t, h, http.MethodPost, "/api/tecidos", `{"codigo":"F1","filtro":1,"placa":2,"lado":"A"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
	fabrics := decodeJSON[[]ports.Fabric](t, doRequest(t, h, http.MethodGet, "/api/tecidos", ""))
	if len(fabrics) != 0 {
		t.Fatalf("rows stored for rejected request: %+v", fabrics)
	}
}

func TestScenarioWithoutTimestampsUsesServerTime(t *testing.T) {
	h := setupStack(t)

	for _, body := range []string{
		`{"codigo":"F1","filtro":1,"placa":2,"lado":"A","instalador":"joao"}`,
		`{"codigo":"F2","filtro":1,"placa":2,"lado":"A","instalador":"ana"}`,
	} {
		if resp := doRequest(t, h, http.MethodPost, "/api/tecidos", body); resp.Code != http.StatusOK {
			t.Fatalf("install %s: %d %s", body, resp.Code, resp.Body.String())
		}
	}

	byCode := map[string]ports.Fabric{}
	for _, f := range decodeJSON[[]ports.Fabric](t, doRequest(t, h, http.MethodGet, "/api/tecidos", "")) {
		byCode[f.Code] = f
	}
	if len(byCode) != 2 {
		t.Fatalf("fabrics = %+v", byCode)
	}
	if f := byCode["F2"]; f.Status != domaininventory.StatusInOperation || f.InstalledAt.IsZero() {
		t.Fatalf("F2 = %+v", f)
	}
	if f := byCode["F1"]; f.Status != domaininventory.StatusReplaced || f.RemovedAt == nil || f.InstalledAt.IsZero() {
		t.Fatalf("F1 = %+v", f)
	}

	resp := doRequest(t, h, http.MethodPost, "/api/anomalias",
		`{"tecido_codigo":"F2","quadrante":"Q1","condicao":"rasgo","responsavel":"ana"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("report anomaly: %d %s", resp.Code, resp.Body.String())
	}
	anomalies := decodeJSON[[]ports.Anomaly](t, doRequest(t, h, http.MethodGet, "/api/anomalias", ""))
	if len(anomalies) != 1 || anomalies[0].ObservedAt.IsZero() || !anomalies[0].ObservedAt.Equal(anomalies[0].LoggedAt) {
		t.Fatalf("anomalies = %+v", anomalies)
	}
}

func TestReusedCodeAtAnotherPositionIsCodeConflict(t *testing.T) {
	h := setupStack(t)

	if resp := doRequest(t, h, http.MethodPost, "/api/tecidos",
		`{"codigo":"F1","filtro":1,"placa":1,"lado":"A","instalador":"joao"}`); resp.Code != http.StatusOK {
		t.Fatalf("first install: %d %s", resp.Code, resp.Body.String())
	}
	resp := doRequest(t, h, http.MethodPost, "/api/tecidos",
		`{"codigo":"F1","filtro":3,"placa":4,"lado":"B","instalador":"ana"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.Code)
	}
	if body := decodeJSON[errorResponse](t, resp); !strings.Contains(body.Error, domaininventory.ErrFabricCodeTaken.Error()) {
		t.Fatalf("error = %q, want code-taken message", body.Error)
	}
}
