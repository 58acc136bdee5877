package application

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/adapters/db/gormdb"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

func newTestService(t *testing.T) *Service {
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
	return NewService(gormdb.NewRepository(db))
}

func login(t *testing.T, s *Service, email string) domain.Identity {
	t.Helper()
	ctx := context.Background()
	vt, err := s.StartLogin(ctx, email)
	if err != nil {
		t.Fatalf("start login %s: %v", email, err)
	}
	_, token, err := s.CompleteLogin(ctx, email, vt.Token, 0)
	if err != nil {
		t.Fatalf("complete login %s: %v", email, err)
	}
	identity, err := s.AuthenticateSession(ctx, token)
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return identity
}

func strPtr(v string) *string    { return &v }
func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

func date(s string) *Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return NewDate(t)
}

func seedProjeto(t *testing.T, s *Service, identity domain.Identity) domain.Projeto {
	t.Helper()
	p, err := s.CreateProjeto(context.Background(), identity, ProjetoInput{
		Nome:             strPtr("Reforma do bloco A"),
		DataInicio:       date("2025-01-01"),
		DataEncerramento: date("2025-12-31"),
		Valor:            floatPtr(150000),
	})
	if err != nil {
		t.Fatalf("seed projeto: %v", err)
	}
	return p
}

func seedChain(t *testing.T, s *Service, identity domain.Identity) (domain.Projeto, domain.Requisicao, domain.Ordem) {
	t.Helper()
	ctx := context.Background()
	p := seedProjeto(t, s, identity)
	r, err := s.CreateRequisicao(ctx, identity, RequisicaoInput{
		CodProjeto:      intPtr(p.CodProjeto),
		Descricao:       strPtr("Material eletrico"),
		DataSolicitacao: date("2025-02-01"),
		DataLimite:      date("2025-03-01"),
		Valor:           floatPtr(30000),
	})
	if err != nil {
		t.Fatalf("seed requisicao: %v", err)
	}
	o, err := s.CreateOrdem(ctx, identity, OrdemInput{
		CodRequisicao:   intPtr(r.CodRequisicao),
		Descricao:       strPtr("Compra de cabos"),
		DataSolicitacao: date("2025-02-05"),
		DataLimite:      date("2025-02-20"),
		Valor:           floatPtr(12000),
	})
	if err != nil {
		t.Fatalf("seed ordem: %v", err)
	}
	return p, r, o
}

func TestFirstLoginBecomesAdminAndTokenIsSingleUse(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	vt, err := s.StartLogin(ctx, "Primeiro@Empresa.com")
	if err != nil {
		t.Fatalf("start login: %v", err)
	}
	if vt.Identifier != "primeiro@empresa.com" {
		t.Fatalf("identifier not normalized: %q", vt.Identifier)
	}

	u, token, err := s.CompleteLogin(ctx, "primeiro@empresa.com", vt.Token, 0)
	if err != nil {
		t.Fatalf("complete login: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Fatalf("first user should be admin, got %s", u.Role)
	}
	if u.EmailVerified == nil {
		t.Fatalf("login should verify the e-mail")
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}

	if _, _, err := s.CompleteLogin(ctx, "primeiro@empresa.com", vt.Token, 0); !domain.IsUnauthorized(err) {
		t.Fatalf("redeemed token should be rejected, got %v", err)
	}

	second := login(t, s, "segundo@empresa.com")
	if second.User.Role != domain.RoleUser {
		t.Fatalf("second user should not be admin, got %s", second.User.Role)
	}
}

func TestSessionExpiryAndLogout(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	vt, err := s.StartLogin(ctx, "alguem@empresa.com")
	if err != nil {
		t.Fatalf("start login: %v", err)
	}
	_, token, err := s.CompleteLogin(ctx, "alguem@empresa.com", vt.Token, time.Hour)
	if err != nil {
		t.Fatalf("complete login: %v", err)
	}
	if _, err := s.AuthenticateSession(ctx, token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.AuthenticateSession(ctx, token); !domain.IsUnauthorized(err) {
		t.Fatalf("expired session should be rejected, got %v", err)
	}

	s.now = time.Now
	identity := login(t, s, "alguem@empresa.com")
	vt2, err := s.StartLogin(ctx, identity.User.Email)
	if err != nil {
		t.Fatalf("start login again: %v", err)
	}
	_, token2, err := s.CompleteLogin(ctx, identity.User.Email, vt2.Token, 0)
	if err != nil {
		t.Fatalf("complete login again: %v", err)
	}
	if err := s.Logout(ctx, token2); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.AuthenticateSession(ctx, token2); !domain.IsUnauthorized(err) {
		t.Fatalf("logged out session should be rejected, got %v", err)
	}
}

func TestCreateProjetoCollectsEveryFieldError(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")

	_, err := s.CreateProjeto(context.Background(), identity, ProjetoInput{
		Nome:             strPtr(""),
		DataInicio:       date("2025-06-01"),
		DataEncerramento: date("2025-01-01"),
		Valor:            floatPtr(-5),
	})
	var verr *domain.ValidationError
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	verr = err.(*domain.ValidationError)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"nome", "dataencerramento", "valor"} {
		if !fields[want] {
			t.Fatalf("missing field %q in %v", want, verr.Fields)
		}
	}
}

func TestUpdateProjetoMergesAndRevalidates(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	p := seedProjeto(t, s, identity)

	updated, err := s.UpdateProjeto(ctx, identity, p.CodProjeto, ProjetoInput{Nome: strPtr("Reforma do bloco B")})
	if err != nil {
		t.Fatalf("update projeto: %v", err)
	}
	if updated.Nome != "Reforma do bloco B" {
		t.Fatalf("nome not updated: %q", updated.Nome)
	}
	if !updated.DataInicio.Equal(p.DataInicio) || updated.Valor != p.Valor {
		t.Fatalf("untouched fields should survive a partial update: %+v", updated)
	}

	// A merge that breaks the date ordering fails even though each field is
	// individually fine.
	_, err = s.UpdateProjeto(ctx, identity, p.CodProjeto, ProjetoInput{DataEncerramento: date("2024-01-01")})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteProjetoRestrictedByRequisicoes(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	p, r, _ := seedChain(t, s, identity)

	if err := s.DeleteProjeto(ctx, identity, p.CodProjeto); !domain.IsConflict(err) {
		t.Fatalf("delete with requisitions should conflict, got %v", err)
	}
	if err := s.DeleteRequisicao(ctx, identity, r.CodRequisicao); !domain.IsConflict(err) {
		t.Fatalf("delete requisicao with orders should conflict, got %v", err)
	}
}

func TestContratoScheduleSumsToValue(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	_, _, o := seedChain(t, s, identity)

	c, err := s.CreateContrato(ctx, identity, ContratoInput{
		NumContrato:        strPtr("0001/2025"),
		CodOrdem:           intPtr(o.CodOrdem),
		Descricao:          strPtr("Fornecimento de cabos"),
		CpfCnpj:            strPtr("12345678000190"),
		Contratado:         strPtr("Eletro Ltda"),
		TipoPessoa:         intPtr(domain.TipoPessoaJuridica),
		DataInicio:         date("2025-03-01"),
		DataFim:            date("2025-09-01"),
		Valor:              floatPtr(1000.01),
		Parcelas:           intPtr(3),
		DataParcelaInicial: date("2025-04-01"),
	})
	if err != nil {
		t.Fatalf("create contrato: %v", err)
	}

	parcelas, err := s.ListParcelas(ctx, identity, c.NumContrato)
	if err != nil {
		t.Fatalf("list parcelas: %v", err)
	}
	if len(parcelas) != 3 {
		t.Fatalf("expected 3 parcelas, got %d", len(parcelas))
	}
	var soma float64
	for i, p := range parcelas {
		soma += p.ValorParcela
		if p.NumParcela != i+1 || p.CodLancamento != i+1 {
			t.Fatalf("parcela numbering off: %+v", p)
		}
		wantVencimento := c.DataParcelaInicial.AddDate(0, i, 0)
		if !p.DataVencimento.Equal(wantVencimento) {
			t.Fatalf("parcela %d vencimento = %s, want %s", i+1, p.DataVencimento, wantVencimento)
		}
		if p.Situacao != domain.InstallmentOpen {
			t.Fatalf("new parcela should be open, got %s", p.Situacao.Code())
		}
	}
	if math.Abs(soma-1000.01) > 1e-9 {
		t.Fatalf("parcelas sum to %.2f, want 1000.01", soma)
	}
	if parcelas[0].ValorParcela != 333.33 || parcelas[2].ValorParcela != 333.35 {
		t.Fatalf("last parcela should absorb the remainder: %.2f / %.2f", parcelas[0].ValorParcela, parcelas[2].ValorParcela)
	}

	// One contract per order.
	_, err = s.CreateContrato(ctx, identity, ContratoInput{
		NumContrato:        strPtr("0002/2025"),
		CodOrdem:           intPtr(o.CodOrdem),
		Descricao:          strPtr("Outro fornecimento"),
		CpfCnpj:            strPtr("12345678000190"),
		Contratado:         strPtr("Eletro Ltda"),
		TipoPessoa:         intPtr(domain.TipoPessoaJuridica),
		DataInicio:         date("2025-03-01"),
		DataFim:            date("2025-09-01"),
		Valor:              floatPtr(500),
		Parcelas:           intPtr(1),
		DataParcelaInicial: date("2025-04-01"),
	})
	if !domain.IsConflict(err) {
		t.Fatalf("second contract on the order should conflict, got %v", err)
	}
}

func TestContratoNumberFormatIsEnforced(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	_, _, o := seedChain(t, s, identity)

	_, err := s.CreateContrato(context.Background(), identity, ContratoInput{
		NumContrato:        strPtr("1/2025"),
		CodOrdem:           intPtr(o.CodOrdem),
		Descricao:          strPtr("Fornecimento"),
		CpfCnpj:            strPtr("123"),
		Contratado:         strPtr("Eletro Ltda"),
		TipoPessoa:         intPtr(domain.TipoPessoaJuridica),
		DataInicio:         date("2025-03-01"),
		DataFim:            date("2025-09-01"),
		Valor:              floatPtr(500),
		Parcelas:           intPtr(1),
		DataParcelaInicial: date("2025-04-01"),
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	verr := err.(*domain.ValidationError)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	if !fields["numcontrato"] || !fields["cpfcnpj"] {
		t.Fatalf("expected numcontrato and cpfcnpj failures, got %v", verr.Fields)
	}
}

func TestRegisterPagamentoFollowsPaidAmount(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	_, _, o := seedChain(t, s, identity)

	c, err := s.CreateContrato(ctx, identity, ContratoInput{
		NumContrato:        strPtr("0010/2025"),
		CodOrdem:           intPtr(o.CodOrdem),
		Descricao:          strPtr("Servico continuado"),
		CpfCnpj:            strPtr("12345678000190"),
		Contratado:         strPtr("Servicos SA"),
		TipoPessoa:         intPtr(domain.TipoPessoaJuridica),
		DataInicio:         date("2025-01-01"),
		DataFim:            date("2025-12-31"),
		Valor:              floatPtr(1200),
		Parcelas:           intPtr(2),
		DataParcelaInicial: date("2025-02-01"),
	})
	if err != nil {
		t.Fatalf("create contrato: %v", err)
	}

	partial, err := s.RegisterPagamento(ctx, identity, c.NumContrato, 1, PagamentoInput{ValorPago: floatPtr(100)})
	if err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	if partial.Situacao != domain.InstallmentPartial {
		t.Fatalf("partial payment should leave status partial, got %s", partial.Situacao.Code())
	}
	if partial.DataPagamento != nil {
		t.Fatalf("partial payment should not stamp the payment date")
	}

	// Asking for settled without covering the amount is rejected.
	_, err = s.RegisterPagamento(ctx, identity, c.NumContrato, 1, PagamentoInput{
		ValorPago: floatPtr(100),
		Situacao:  strPtr(domain.InstallmentSettled.Code()),
	})
	if !domain.IsValidation(err) {
		t.Fatalf("settled below the parcela amount should fail validation, got %v", err)
	}

	settled, err := s.RegisterPagamento(ctx, identity, c.NumContrato, 1, PagamentoInput{ValorPago: floatPtr(600)})
	if err != nil {
		t.Fatalf("settle payment: %v", err)
	}
	if settled.Situacao != domain.InstallmentSettled {
		t.Fatalf("full payment should settle, got %s", settled.Situacao.Code())
	}
	if settled.DataPagamento == nil {
		t.Fatalf("settling should stamp the payment date")
	}

	if _, err := s.RegisterPagamento(ctx, identity, c.NumContrato, 99, PagamentoInput{ValorPago: floatPtr(1)}); !domain.IsNotFound(err) {
		t.Fatalf("unknown parcela should be not found, got %v", err)
	}
}

func TestDeleteOrdemBlockedByContrato(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	_, _, o := seedChain(t, s, identity)

	if _, err := s.CreateContrato(ctx, identity, ContratoInput{
		NumContrato:        strPtr("0003/2025"),
		CodOrdem:           intPtr(o.CodOrdem),
		Descricao:          strPtr("Fornecimento"),
		CpfCnpj:            strPtr("12345678000190"),
		Contratado:         strPtr("Eletro Ltda"),
		TipoPessoa:         intPtr(domain.TipoPessoaJuridica),
		DataInicio:         date("2025-03-01"),
		DataFim:            date("2025-09-01"),
		Valor:              floatPtr(500),
		Parcelas:           intPtr(1),
		DataParcelaInicial: date("2025-04-01"),
	}); err != nil {
		t.Fatalf("create contrato: %v", err)
	}

	if err := s.DeleteOrdem(ctx, identity, o.CodOrdem); !domain.IsConflict(err) {
		t.Fatalf("delete ordem with contrato should conflict, got %v", err)
	}
}

func TestItemOrdemReceiptStampsDate(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()
	_, _, o := seedChain(t, s, identity)

	item, err := s.AddItemOrdem(ctx, identity, o.CodOrdem, ItemOrdemInput{
		Descricao:       strPtr("Cabo 10mm"),
		DataSolicitacao: date("2025-02-05"),
		DataLimite:      date("2025-02-20"),
		Valor:           floatPtr(3000),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.CodItem != 1 || item.Situacao != domain.ItemPending {
		t.Fatalf("unexpected new item: %+v", item)
	}

	second, err := s.AddItemOrdem(ctx, identity, o.CodOrdem, ItemOrdemInput{
		Descricao:       strPtr("Cabo 16mm"),
		DataSolicitacao: date("2025-02-05"),
		DataLimite:      date("2025-02-20"),
		Valor:           floatPtr(4000),
	})
	if err != nil {
		t.Fatalf("add second item: %v", err)
	}
	if second.CodItem != 2 {
		t.Fatalf("item numbering should be sequential within the order, got %d", second.CodItem)
	}

	received, err := s.UpdateItemOrdem(ctx, identity, o.CodOrdem, item.CodItem, ItemOrdemInput{
		Situacao: strPtr(domain.ItemReceived.Code()),
	})
	if err != nil {
		t.Fatalf("mark received: %v", err)
	}
	if received.DataRecebido == nil {
		t.Fatalf("receipt should stamp the date when none is given")
	}
}

func TestAccessControlMatrix(t *testing.T) {
	s := newTestService(t)
	admin := login(t, s, "admin@empresa.com")
	viewer := login(t, s, "viewer@empresa.com")
	editor := login(t, s, "editor@empresa.com")
	ctx := context.Background()

	p := seedProjeto(t, s, admin)
	if _, err := s.GrantMembership(ctx, admin, p.CodProjeto, MembershipInput{UserID: viewer.User.ID, Role: string(domain.ProjectRoleViewer)}); err != nil {
		t.Fatalf("grant viewer: %v", err)
	}
	if _, err := s.GrantMembership(ctx, admin, p.CodProjeto, MembershipInput{UserID: editor.User.ID, Role: string(domain.ProjectRoleEditor)}); err != nil {
		t.Fatalf("grant editor: %v", err)
	}

	// Memberships are loaded at session resolution; refresh both.
	viewer, _ = s.identityByUserID(ctx, viewer.User.ID)
	editor, _ = s.identityByUserID(ctx, editor.User.ID)

	if !s.Can(viewer, ActionRead, p.CodProjeto) {
		t.Fatalf("viewer should read")
	}
	if s.Can(viewer, ActionWrite, p.CodProjeto) {
		t.Fatalf("viewer should not write")
	}
	if !s.Can(editor, ActionWrite, p.CodProjeto) {
		t.Fatalf("editor should write")
	}
	if s.Can(editor, ActionDelete, p.CodProjeto) {
		t.Fatalf("editor should not delete")
	}
	if !s.Can(admin, ActionMembers, p.CodProjeto) {
		t.Fatalf("admin can do anything")
	}
	if s.Can(domain.Identity{}, ActionRead, p.CodProjeto) {
		t.Fatalf("anonymous caller has no access")
	}

	if _, err := s.UpdateProjeto(ctx, viewer, p.CodProjeto, ProjetoInput{Nome: strPtr("x")}); !domain.IsUnauthorized(err) {
		t.Fatalf("viewer update should be unauthorized, got %v", err)
	}
	if _, err := s.GrantMembership(ctx, editor, p.CodProjeto, MembershipInput{UserID: viewer.User.ID, Role: string(domain.ProjectRoleManager)}); !domain.IsUnauthorized(err) {
		t.Fatalf("editor cannot manage members, got %v", err)
	}
}

func TestProjectOwnerGrantedOnCreate(t *testing.T) {
	s := newTestService(t)
	_ = login(t, s, "admin@empresa.com")
	user := login(t, s, "dona@empresa.com")
	ctx := context.Background()

	p, err := s.CreateProjeto(ctx, user, ProjetoInput{
		Nome:             strPtr("Projeto proprio"),
		DataInicio:       date("2025-01-01"),
		DataEncerramento: date("2025-06-30"),
		Valor:            floatPtr(1000),
	})
	if err != nil {
		t.Fatalf("create projeto: %v", err)
	}

	refreshed, err := s.identityByUserID(ctx, user.User.ID)
	if err != nil {
		t.Fatalf("refresh identity: %v", err)
	}
	m, ok := refreshed.Membership(p.CodProjeto)
	if !ok || m.Role != domain.ProjectRoleOwner {
		t.Fatalf("creator should become owner, got %+v", m)
	}
	if !s.Can(refreshed, ActionMembers, p.CodProjeto) {
		t.Fatalf("owner manages members")
	}
}

func TestProjetoCompletionPullsProgressTo100(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()

	start := time.Now().UTC().AddDate(0, 0, -10)
	end := time.Now().UTC().AddDate(0, 0, 10)
	p, err := s.CreateProjeto(ctx, identity, ProjetoInput{
		Nome:             strPtr("Projeto em curso"),
		DataInicio:       NewDate(start),
		DataEncerramento: NewDate(end),
		Valor:            floatPtr(1000),
	})
	if err != nil {
		t.Fatalf("create projeto: %v", err)
	}

	if _, err := s.UpdateProjeto(ctx, identity, p.CodProjeto, ProjetoInput{Situacao: strPtr(domain.ProjectCompleted.Code())}); err != nil {
		t.Fatalf("complete projeto: %v", err)
	}

	rows, err := s.ListProjetosWithStats(ctx, identity)
	if err != nil {
		t.Fatalf("list with stats: %v", err)
	}
	for _, row := range rows {
		if row.CodProjeto == p.CodProjeto && row.Progresso != 100 {
			t.Fatalf("completed project should show 100%%, got %d", row.Progresso)
		}
	}
}

func TestListUsersAndActivityRequireAdmin(t *testing.T) {
	s := newTestService(t)
	admin := login(t, s, "admin@empresa.com")
	user := login(t, s, "comum@empresa.com")
	ctx := context.Background()

	if _, err := s.ListUsers(ctx, user, "", 0); !domain.IsUnauthorized(err) {
		t.Fatalf("non-admin user listing should be unauthorized, got %v", err)
	}
	users, err := s.ListUsers(ctx, admin, "", 0)
	if err != nil {
		t.Fatalf("admin list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	if _, err := s.ListActivityLogs(ctx, user, "", 0); !domain.IsUnauthorized(err) {
		t.Fatalf("non-admin activity listing should be unauthorized, got %v", err)
	}
	logs, err := s.ListActivityLogs(ctx, admin, "", 0)
	if err != nil {
		t.Fatalf("admin list activity: %v", err)
	}
	if len(logs) == 0 {
		t.Fatalf("logins should have produced activity entries")
	}

	promoted, err := s.SetUserRole(ctx, admin, user.User.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if promoted.Role != domain.RoleAdmin {
		t.Fatalf("role not applied: %s", promoted.Role)
	}
	if _, err := s.SetUserRole(ctx, admin, user.User.ID, domain.UserRole("ROOT")); !domain.IsValidation(err) {
		t.Fatalf("invalid role should fail validation, got %v", err)
	}
}

func TestClienteDocumentoMatchesTipo(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()

	if _, err := s.CreateCliente(ctx, identity, ClienteInput{
		Nome:      strPtr("Fulano"),
		Email:     strPtr("fulano@exemplo.com"),
		Tipo:      strPtr(domain.ClientePessoaFisica),
		Documento: strPtr("12345678000190"),
	}); !domain.IsValidation(err) {
		t.Fatalf("cpf with 14 digits should fail, got %v", err)
	}

	c, err := s.CreateCliente(ctx, identity, ClienteInput{
		Nome:      strPtr("Fulano"),
		Email:     strPtr("fulano@exemplo.com"),
		Tipo:      strPtr(domain.ClientePessoaFisica),
		Documento: strPtr("12345678901"),
	})
	if err != nil {
		t.Fatalf("create cliente: %v", err)
	}
	if c.ID == "" {
		t.Fatalf("cliente should get an id")
	}
}

func TestLoginLinksEmailAccount(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "conta@empresa.com")
	ctx := context.Background()

	acc, err := s.repo.GetAccountByProvider(ctx, "email", "conta@empresa.com")
	if err != nil {
		t.Fatalf("account link missing after login: %v", err)
	}
	if acc.UserID != identity.User.ID || acc.Type != "email" {
		t.Fatalf("account link = %+v", acc)
	}

	// A second login reuses the link instead of duplicating it.
	login(t, s, "conta@empresa.com")
	again, err := s.repo.GetAccountByProvider(ctx, "email", "conta@empresa.com")
	if err != nil {
		t.Fatalf("account link after second login: %v", err)
	}
	if again.UserID != acc.UserID {
		t.Fatalf("account relinked to %s, want %s", again.UserID, acc.UserID)
	}
}

func TestProjetoCompletionStampsEndDate(t *testing.T) {
	s := newTestService(t)
	identity := login(t, s, "admin@empresa.com")
	ctx := context.Background()

	p, err := s.CreateProjeto(ctx, identity, ProjetoInput{
		Nome:             strPtr("Obra encerrada com atraso"),
		DataInicio:       date("2025-01-01"),
		DataEncerramento: date("2025-06-30"),
		Valor:            floatPtr(1000),
	})
	if err != nil {
		t.Fatalf("create projeto: %v", err)
	}

	late := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return late }
	updated, err := s.UpdateProjeto(ctx, identity, p.CodProjeto, ProjetoInput{Situacao: strPtr(domain.ProjectCompleted.Code())})
	if err != nil {
		t.Fatalf("complete projeto: %v", err)
	}
	if got := updated.DataEncerramento.Format("2006-01-02"); got != "2025-09-15" {
		t.Fatalf("late completion should stamp the end date forward, got %s", got)
	}

	// Completing before the window opens keeps the planned end date; the
	// schema forbids an end before the start.
	future, err := s.CreateProjeto(ctx, identity, ProjetoInput{
		Nome:             strPtr("Obra futura"),
		DataInicio:       date("2030-01-01"),
		DataEncerramento: date("2030-12-31"),
		Valor:            floatPtr(1000),
	})
	if err != nil {
		t.Fatalf("create projeto futuro: %v", err)
	}
	early, err := s.UpdateProjeto(ctx, identity, future.CodProjeto, ProjetoInput{Situacao: strPtr(domain.ProjectCompleted.Code())})
	if err != nil {
		t.Fatalf("complete projeto futuro: %v", err)
	}
	if got := early.DataEncerramento.Format("2006-01-02"); got != "2030-12-31" {
		t.Fatalf("early completion should keep the planned end date, got %s", got)
	}
}
