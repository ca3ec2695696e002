package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaliza-obras/fiscaliza/internal/auth"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/export"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// =============================================================================
// Test Setup
// =============================================================================

// testEnv wires real services over the in-memory store. Requests pass
// through a pass-through auth wrapper that injects a fixed inspector so
// handlers see an authenticated user without the middleware package.
type testEnv struct {
	mux  *http.ServeMux
	insp service.InspectionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	repo := repository.NewMemory()
	inspectionService := service.NewInspectionService(repo, logger)

	actor := &domain.User{Name: "Carlos Mendes", Username: "carlos.mendes", Role: domain.RoleInspector}
	withActor := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), actor)))
		})
	}

	mux := http.NewServeMux()
	h := NewInspectionHandler(inspectionService, nil, export.NewDetailGenerator(logger), logger)
	h.RegisterRoutes(mux, withActor)
	NewExportHandler(inspectionService, logger).RegisterRoutes(mux, withActor)

	return &testEnv{mux: mux, insp: inspectionService}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"address": "Rua das Acácias, 120",
	"source": "Ouvidoria Municipal",
	"type": "Alvará de Construção",
	"description": "Obra sem placa de alvará."
}`

// =============================================================================
// Tests
// =============================================================================

func TestInspectionHandler_CreateAndShow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Protocol)
	assert.Equal(t, domain.SourceOmbudsman, created.Source)

	rec = env.do(t, "GET", "/api/inspections/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.Protocol, fetched.Protocol)

	// History records the authenticated user, not a request field.
	require.NotEmpty(t, fetched.History)
	assert.Equal(t, "Carlos Mendes", fetched.History[0].User)
}

func TestInspectionHandler_CreateValidationError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", `{"address": "", "source": "Ouvidoria Municipal", "type": "Alvará de Construção"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestInspectionHandler_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/inspections/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/api/inspections/00000000-0000-0000-0000-000000000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInspectionHandler_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, "PUT", "/api/inspections/"+created.ID.String(),
		`{"status": "Em Andamento", "report": "Vistoria realizada no local."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, "Vistoria realizada no local.", updated.Report)

	rec = env.do(t, "PUT", "/api/inspections/"+created.ID.String(), `{"status": "Inexistente"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInspectionHandler_AddFollowUp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, "POST", "/api/inspections/"+created.ID.String()+"/follow-ups",
		`{"date": "2026-09-15", "notes": "Verificar regularização do alvará."}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var updated domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.FollowUps, 1)
	assert.Equal(t, "2026-09-15", updated.FollowUps[0].Date)
}

func TestInspectionHandler_DetailReport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, "GET", "/api/inspections/"+created.ID.String()+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), export.DetailFilename(created.Protocol))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestExportHandler_CSV(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, "GET", "/api/inspections/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "relatorio_chamados.csv")
	assert.Contains(t, rec.Body.String(), "Protocolo")
	assert.Contains(t, rec.Body.String(), "Rua das Acácias, 120")
}

func TestExportHandler_InvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/inspections/export?format=odt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandler_StatusFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/inspections", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, "GET", "/api/inspections/export?format=csv&status=Concluído", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Rua das Acácias, 120")
}
