package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SeltikHD/contratos-timbu/internal/adapters/db/gormdb"
	"github.com/SeltikHD/contratos-timbu/internal/application"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

func newTestRouter(t *testing.T) (*application.Service, http.Handler) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "contratos_test.db")

	db, err := gormdb.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	service := application.NewService(gormdb.NewRepository(db))
	return service, NewRouter(service)
}

// loginToken completes the verification flow over the wire. The one-time
// token never appears in the start response, so it is read straight from
// the service.
func loginToken(t *testing.T, service *application.Service, router http.Handler, email string) string {
	t.Helper()
	vt, err := service.StartLogin(context.Background(), email)
	if err != nil {
		t.Fatalf("start login %s: %v", email, err)
	}

	body := fmt.Sprintf(`{"email":%q,"token":%q}`, email, vt.Token)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login/complete", strings.NewReader(body))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete login: status %d body %s", rec.Code, rec.Body.String())
	}

	var out struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("login response carries no session token: %s", rec.Body.String())
	}
	if out.User.Email != strings.ToLower(email) {
		t.Fatalf("login response user = %q, want %q", out.User.Email, strings.ToLower(email))
	}
	return out.Token
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func TestHealthzIsOpen(t *testing.T) {
	_, router := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	var out map[string]string
	decodeBody(t, rec, &out)
	if out["status"] != "ok" {
		t.Fatalf("healthz body = %s", rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	_, router := newTestRouter(t)

	for _, path := range []string{"/api/projetos", "/api/dashboard", "/api/auth/whoami"} {
		rec := doRequest(router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without session: status = %d", path, rec.Code)
		}
		var out map[string]string
		decodeBody(t, rec, &out)
		if out["error"] == "" {
			t.Fatalf("%s unauthorized body lacks error: %s", path, rec.Body.String())
		}
	}

	rec := doRequest(router, http.MethodGet, "/api/projetos", "nao-existe", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: status = %d", rec.Code)
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "cookie@empresa.com")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("whoami via cookie: status = %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decodeBody(t, rec, &out)
	if out.Email != "cookie@empresa.com" || out.Role != string(domain.RoleAdmin) {
		t.Fatalf("whoami = %+v", out)
	}
}

func TestProjetoLifecycleOverHTTP(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	rec := doRequest(router, http.MethodPost, "/api/projetos", token,
		`{"nome":"Reforma do bloco A","datainicio":"2025-01-01","dataencerramento":"2025-12-31","valor":150000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projeto: status = %d body %s", rec.Code, rec.Body.String())
	}
	var created domain.Projeto
	decodeBody(t, rec, &created)
	if created.CodProjeto != 1 {
		t.Fatalf("codprojeto = %d, want 1", created.CodProjeto)
	}
	if created.Situacao != domain.ProjectPlanning {
		t.Fatalf("situacao = %v, want planning", created.Situacao)
	}

	rec = doRequest(router, http.MethodGet, "/api/projetos", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list projetos: status = %d", rec.Code)
	}
	var list []domain.Projeto
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("list returned %d projetos", len(list))
	}

	rec = doRequest(router, http.MethodPut, "/api/projetos/1", token, `{"situacao":"2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update projeto: status = %d body %s", rec.Code, rec.Body.String())
	}
	var updated domain.Projeto
	decodeBody(t, rec, &updated)
	if updated.Situacao != domain.ProjectActive {
		t.Fatalf("situacao after update = %v", updated.Situacao)
	}

	rec = doRequest(router, http.MethodGet, "/api/projetos/99", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing projeto: status = %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/projetos/abc", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non numeric code: status = %d", rec.Code)
	}

	rec = doRequest(router, http.MethodDelete, "/api/projetos/1", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete projeto: status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestValidationResponseListsFields(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	rec := doRequest(router, http.MethodPost, "/api/projetos", token,
		`{"nome":"","datainicio":"2025-12-31","dataencerramento":"2025-01-01","valor":-5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid projeto: status = %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Error  string              `json:"error"`
		Campos []domain.FieldError `json:"campos"`
	}
	decodeBody(t, rec, &out)
	if len(out.Campos) == 0 {
		t.Fatalf("validation response carries no campos: %s", rec.Body.String())
	}
	seen := map[string]bool{}
	for _, f := range out.Campos {
		seen[f.Field] = true
	}
	for _, field := range []string{"nome", "dataencerramento", "valor"} {
		if !seen[field] {
			t.Fatalf("missing field error %q in %v", field, out.Campos)
		}
	}

	rec = doRequest(router, http.MethodPost, "/api/projetos", token, `{"nome":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed payload: status = %d", rec.Code)
	}
}

func TestDeleteWithDependentsConflicts(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	rec := doRequest(router, http.MethodPost, "/api/projetos", token,
		`{"nome":"Obra civil","datainicio":"2025-01-01","dataencerramento":"2025-12-31","valor":90000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projeto: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/api/requisicoes", token,
		`{"codprojeto":1,"descricao":"Material eletrico","datasolicitacao":"2025-02-01","datalimite":"2025-03-01","valor":30000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create requisicao: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodDelete, "/api/projetos/1", token, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete projeto with requisicao: status = %d body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	decodeBody(t, rec, &out)
	if out["error"] == "" {
		t.Fatalf("conflict body lacks error: %s", rec.Body.String())
	}
}

func TestContratoRoutesSplitTheNumber(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	for _, step := range []struct {
		path string
		body string
	}{
		{"/api/projetos", `{"nome":"Obra civil","datainicio":"2025-01-01","dataencerramento":"2025-12-31","valor":90000}`},
		{"/api/requisicoes", `{"codprojeto":1,"descricao":"Material eletrico","datasolicitacao":"2025-02-01","datalimite":"2025-03-01","valor":30000}`},
		{"/api/ordens", `{"codrequisicao":1,"descricao":"Compra de cabos","datasolicitacao":"2025-02-05","datalimite":"2025-02-20","valor":12000}`},
	} {
		rec := doRequest(router, http.MethodPost, step.path, token, step.body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST %s: status = %d body %s", step.path, rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(router, http.MethodPost, "/api/contratos", token,
		`{"numcontrato":"0001/2025","codordem":1,"descricao":"Fornecimento de cabos","cpfcnpj":"12345678000190","contratado":"Eletro Ltda","tipopessoa":2,"datainicio":"2025-03-01","datafim":"2025-06-01","valor":12000,"parcelas":3,"dataparcelainicial":"2025-03-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contrato: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/contratos/0001/2025", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get contrato: status = %d body %s", rec.Code, rec.Body.String())
	}
	var contrato domain.Contrato
	decodeBody(t, rec, &contrato)
	if contrato.NumContrato != "0001/2025" {
		t.Fatalf("numcontrato = %q", contrato.NumContrato)
	}

	rec = doRequest(router, http.MethodGet, "/api/contratos/0001/2025/parcelas", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list parcelas: status = %d body %s", rec.Code, rec.Body.String())
	}
	var parcelas []domain.ItemContrato
	decodeBody(t, rec, &parcelas)
	if len(parcelas) != 3 {
		t.Fatalf("parcelas = %d, want 3", len(parcelas))
	}

	rec = doRequest(router, http.MethodPost,
		fmt.Sprintf("/api/contratos/0001/2025/parcelas/%d/pagamento", parcelas[0].CodLancamento),
		token, `{"valorpago":4000,"datapagamento":"2025-03-09"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register pagamento: status = %d body %s", rec.Code, rec.Body.String())
	}
	var paga domain.ItemContrato
	decodeBody(t, rec, &paga)
	if paga.Situacao != domain.InstallmentSettled {
		t.Fatalf("parcela situacao = %v, want settled", paga.Situacao)
	}
	if paga.DataPagamento == nil {
		t.Fatalf("settled parcela without datapagamento")
	}

	rec = doRequest(router, http.MethodGet, "/api/contratos/9999/2030", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing contrato: status = %d", rec.Code)
	}
}

func TestMembershipEndpointsEnforceRoles(t *testing.T) {
	service, router := newTestRouter(t)
	adminToken := loginToken(t, service, router, "dona@empresa.com")
	viewerToken := loginToken(t, service, router, "leitura@empresa.com")

	rec := doRequest(router, http.MethodPost, "/api/projetos", adminToken,
		`{"nome":"Obra civil","datainicio":"2025-01-01","dataencerramento":"2025-12-31","valor":90000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projeto: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/usuarios?q=leitura", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list usuarios: status = %d body %s", rec.Code, rec.Body.String())
	}
	var users []domain.User
	decodeBody(t, rec, &users)
	if len(users) != 1 {
		t.Fatalf("usuarios q=leitura returned %d users", len(users))
	}

	rec = doRequest(router, http.MethodPost, "/api/projetos/1/membros", adminToken,
		fmt.Sprintf(`{"userId":%q,"role":"VIEWER"}`, users[0].ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("grant membership: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/projetos/1", viewerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer read: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPut, "/api/projetos/1", viewerToken, `{"nome":"Tentativa"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("viewer write: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/api/projetos/1/membros", viewerToken,
		`{"userId":"qualquer","role":"EDITOR"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("viewer grant: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/atividades", viewerToken, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("viewer atividades: status = %d", rec.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	rec := doRequest(router, http.MethodPost, "/api/auth/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/auth/whoami", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("whoami after logout: status = %d", rec.Code)
	}
}

func TestAuditTrailRecordsRequestMetadata(t *testing.T) {
	service, router := newTestRouter(t)
	token := loginToken(t, service, router, "gestor@empresa.com")

	req := httptest.NewRequest(http.MethodPost, "/api/projetos",
		strings.NewReader(`{"nome":"Obra auditada","datainicio":"2025-01-01","dataencerramento":"2025-12-31","valor":90000}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "contratos-cli/1.0")
	req.RemoteAddr = "203.0.113.7:4411"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projeto: status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/atividades", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list atividades: status = %d body %s", rec.Code, rec.Body.String())
	}
	var logs []domain.ActivityLog
	decodeBody(t, rec, &logs)
	for _, entry := range logs {
		if entry.Action != "projeto.criado" {
			continue
		}
		if entry.IP != "203.0.113.7" {
			t.Fatalf("audit ip = %q, want 203.0.113.7", entry.IP)
		}
		if entry.UserAgent != "contratos-cli/1.0" {
			t.Fatalf("audit user agent = %q", entry.UserAgent)
		}
		return
	}
	t.Fatalf("no projeto.criado entry in audit trail: %+v", logs)
}

func TestWriteErrorLogsCauseNotBody(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	rec := httptest.NewRecorder()
	writeError(rec, domain.NewInternal(errors.New("disk full")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Fatalf("internal cause leaked to the response: %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("internal cause missing from the log: %q", buf.String())
	}

	buf.Reset()
	rec = httptest.NewRecorder()
	writeError(rec, domain.NewConflict("projeto", "possui requisicoes vinculadas"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("conflict status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "possui requisicoes vinculadas") {
		t.Fatalf("conflict missing from the log: %q", buf.String())
	}
}
