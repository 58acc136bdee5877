package rpcjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/adapters/db/gormdb"
	"github.com/SeltikHD/contratos-timbu/internal/application"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      any             `json:"id"`
}

type testClient struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func newTestServer(t *testing.T) (*application.Service, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := gormdb.Open("sqlite", filepath.Join(dir, "contratos_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	service := application.NewService(gormdb.NewRepository(db))

	socket := filepath.Join(dir, "rpc.sock")
	srv, err := Start(socket, service)
	if err != nil {
		t.Fatalf("start rpc server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return service, socket
}

func dialTest(t *testing.T, socket string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("unix", socket, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", socket, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

func (c *testClient) call(t *testing.T, method string, params map[string]any) wireResponse {
	t.Helper()
	_ = c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := c.enc.Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params}); err != nil {
		t.Fatalf("send %s: %v", method, err)
	}
	var resp wireResponse
	if err := c.dec.Decode(&resp); err != nil {
		t.Fatalf("read %s response: %v", method, err)
	}
	return resp
}

func (c *testClient) mustResult(t *testing.T, method string, params map[string]any, out any) {
	t.Helper()
	resp := c.call(t, method, params)
	if resp.Error != nil {
		t.Fatalf("%s failed: (%d) %s", method, resp.Error.Code, resp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			t.Fatalf("decode %s result %s: %v", method, resp.Result, err)
		}
	}
}

func sessionToken(t *testing.T, service *application.Service, c *testClient, email string) string {
	t.Helper()
	vt, err := service.StartLogin(context.Background(), email)
	if err != nil {
		t.Fatalf("start login %s: %v", email, err)
	}
	var out struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	c.mustResult(t, "auth.login.complete", map[string]any{"email": email, "token": vt.Token}, &out)
	if out.Token == "" {
		t.Fatalf("login returned no session token")
	}
	return out.Token
}

func TestSocketHasOwnerOnlyPermissions(t *testing.T) {
	_, socket := newTestServer(t)
	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("socket permissions = %o, want 600", perm)
	}
}

func TestProjetoFlowOverSocket(t *testing.T) {
	service, socket := newTestServer(t)
	c := dialTest(t, socket)
	token := sessionToken(t, service, c, "gestor@empresa.com")

	var whoami struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	c.mustResult(t, "auth.whoami", map[string]any{"token": token}, &whoami)
	if whoami.Email != "gestor@empresa.com" || whoami.Role != string(domain.RoleAdmin) {
		t.Fatalf("whoami = %+v", whoami)
	}

	var created domain.Projeto
	c.mustResult(t, "projetos.create", map[string]any{
		"token":            token,
		"nome":             "Reforma do bloco A",
		"datainicio":       "2025-01-01",
		"dataencerramento": "2025-12-31",
		"valor":            150000,
	}, &created)
	if created.CodProjeto != 1 || created.Situacao != domain.ProjectPlanning {
		t.Fatalf("created = %+v", created)
	}

	var list []domain.Projeto
	c.mustResult(t, "projetos.list", map[string]any{"token": token}, &list)
	if len(list) != 1 {
		t.Fatalf("projetos.list returned %d rows", len(list))
	}

	var stats domain.DashboardStats
	c.mustResult(t, "dashboard.stats", map[string]any{"token": token}, &stats)
	if stats.Projetos.TotalProjetos != 1 {
		t.Fatalf("dashboard totalProjetos = %d", stats.Projetos.TotalProjetos)
	}
}

func TestErrorCodesFollowTaxonomy(t *testing.T) {
	service, socket := newTestServer(t)
	c := dialTest(t, socket)
	token := sessionToken(t, service, c, "gestor@empresa.com")

	resp := c.call(t, "projetos.list", map[string]any{"token": "nao-existe"})
	if resp.Error == nil || resp.Error.Code != 40100 {
		t.Fatalf("bogus token: %+v", resp.Error)
	}

	resp = c.call(t, "projetos.create", map[string]any{"token": token, "nome": ""})
	if resp.Error == nil || resp.Error.Code != 40000 {
		t.Fatalf("invalid projeto: %+v", resp.Error)
	}

	resp = c.call(t, "projetos.get", map[string]any{"token": token, "codprojeto": 99})
	if resp.Error == nil || resp.Error.Code != 40400 {
		t.Fatalf("missing projeto: %+v", resp.Error)
	}

	c.mustResult(t, "projetos.create", map[string]any{
		"token":            token,
		"nome":             "Obra civil",
		"datainicio":       "2025-01-01",
		"dataencerramento": "2025-12-31",
		"valor":            90000,
	}, nil)
	c.mustResult(t, "requisicoes.create", map[string]any{
		"token":           token,
		"codprojeto":      1,
		"descricao":       "Material eletrico",
		"datasolicitacao": "2025-02-01",
		"datalimite":      "2025-03-01",
		"valor":           30000,
	}, nil)
	resp = c.call(t, "projetos.delete", map[string]any{"token": token, "codprojeto": 1})
	if resp.Error == nil || resp.Error.Code != 40900 {
		t.Fatalf("restricted delete: %+v", resp.Error)
	}
}

func TestProtocolErrors(t *testing.T) {
	_, socket := newTestServer(t)

	c := dialTest(t, socket)
	resp := c.call(t, "", map[string]any{})
	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("empty method: %+v", resp.Error)
	}

	resp = c.call(t, "nao.existe", map[string]any{"token": "x"})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("unknown method: %+v", resp.Error)
	}

	if err := c.enc.Encode(map[string]any{"jsonrpc": "1.0", "id": 2, "method": "auth.whoami"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	resp = wireResponse{}
	if err := c.dec.Decode(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("wrong jsonrpc version: %+v", resp.Error)
	}

	// A malformed frame gets a parse error and the connection is dropped.
	raw := dialTest(t, socket)
	if _, err := raw.conn.Write([]byte("{nope\n")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	var parseResp wireResponse
	if err := raw.dec.Decode(&parseResp); err != nil {
		t.Fatalf("read parse error: %v", err)
	}
	if parseResp.Error == nil || parseResp.Error.Code != -32700 {
		t.Fatalf("garbage frame: %+v", parseResp.Error)
	}
}

func TestAppErrorLogsCauseNotMessage(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	resp := appError(1, domain.NewInternal(errors.New("disk full")))
	if resp.Error == nil || resp.Error.Code != 50000 {
		t.Fatalf("internal response = %+v", resp.Error)
	}
	if strings.Contains(resp.Error.Message, "disk full") {
		t.Fatalf("internal cause leaked to the client: %q", resp.Error.Message)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("internal cause missing from the log: %q", buf.String())
	}
}
