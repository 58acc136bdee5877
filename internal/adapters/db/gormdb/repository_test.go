package gormdb

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "contratos_test.db")

	db, err := Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewRepository(db)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedProjetoChain(t *testing.T, repo *Repository) (domain.Projeto, domain.Requisicao, domain.Ordem) {
	t.Helper()
	ctx := context.Background()
	p, err := repo.CreateProjeto(ctx, domain.Projeto{
		Nome:             "Reforma",
		DataInicio:       mustDate("2025-01-01"),
		DataEncerramento: mustDate("2025-12-31"),
		Valor:            100000,
		Situacao:         domain.ProjectActive,
	})
	if err != nil {
		t.Fatalf("create projeto: %v", err)
	}
	r, err := repo.CreateRequisicao(ctx, domain.Requisicao{
		CodProjeto:      p.CodProjeto,
		Descricao:       "Material",
		DataSolicitacao: mustDate("2025-02-01"),
		DataLimite:      mustDate("2025-03-01"),
		Valor:           20000,
		Situacao:        domain.RequisitionOpen,
	})
	if err != nil {
		t.Fatalf("create requisicao: %v", err)
	}
	o, err := repo.CreateOrdem(ctx, domain.Ordem{
		CodRequisicao:   r.CodRequisicao,
		Descricao:       "Compra",
		DataSolicitacao: mustDate("2025-02-05"),
		DataLimite:      mustDate("2025-02-20"),
		Valor:           8000,
		Situacao:        domain.OrderOpen,
	})
	if err != nil {
		t.Fatalf("create ordem: %v", err)
	}
	return p, r, o
}

func seedContrato(t *testing.T, repo *Repository, numContrato string, codOrdem int, valor float64, parcelas []domain.ItemContrato) domain.Contrato {
	t.Helper()
	c, err := repo.CreateContrato(context.Background(), domain.Contrato{
		NumContrato:        numContrato,
		CodOrdem:           codOrdem,
		Descricao:          "Fornecimento",
		CpfCnpj:            "12345678000190",
		Contratado:         "Eletro Ltda",
		TipoPessoa:         domain.TipoPessoaJuridica,
		DataInicio:         mustDate("2025-03-01"),
		DataFim:            mustDate("2025-09-01"),
		Valor:              valor,
		Parcelas:           len(parcelas),
		DataParcelaInicial: mustDate("2025-04-01"),
		Situacao:           domain.ContractActive,
	}, parcelas)
	if err != nil {
		t.Fatalf("create contrato %s: %v", numContrato, err)
	}
	return c
}

func parcela(num int, valor float64) domain.ItemContrato {
	return domain.ItemContrato{
		DataLancamento: mustDate("2025-03-01"),
		NumParcela:     num,
		ValorParcela:   valor,
		DataVencimento: mustDate("2025-04-01").AddDate(0, num-1, 0),
		Situacao:       domain.InstallmentOpen,
	}
}

func TestSequentialCodesPerScope(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	p, r, o := seedProjetoChain(t, repo)

	if p.CodProjeto != 1 || r.CodRequisicao != 1 || o.CodOrdem != 1 {
		t.Fatalf("first codes should start at 1: %d/%d/%d", p.CodProjeto, r.CodRequisicao, o.CodOrdem)
	}

	o2, err := repo.CreateOrdem(ctx, domain.Ordem{
		CodRequisicao:   r.CodRequisicao,
		Descricao:       "Segunda compra",
		DataSolicitacao: mustDate("2025-02-06"),
		DataLimite:      mustDate("2025-02-25"),
		Valor:           500,
		Situacao:        domain.OrderOpen,
	})
	if err != nil {
		t.Fatalf("create second ordem: %v", err)
	}
	if o2.CodOrdem != 2 {
		t.Fatalf("order codes should be sequential, got %d", o2.CodOrdem)
	}

	// Item numbering restarts per order.
	for _, codOrdem := range []int{o.CodOrdem, o2.CodOrdem} {
		item, err := repo.CreateItemOrdem(ctx, domain.ItemOrdem{
			CodOrdem:        codOrdem,
			Descricao:       "Item",
			DataSolicitacao: mustDate("2025-02-05"),
			DataLimite:      mustDate("2025-02-20"),
			Valor:           100,
			Situacao:        domain.ItemPending,
		})
		if err != nil {
			t.Fatalf("create item for ordem %d: %v", codOrdem, err)
		}
		if item.CodItem != 1 {
			t.Fatalf("item numbering should restart per order, got %d", item.CodItem)
		}
	}
}

func TestAggregationCountsDistinctAcrossJoins(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	p, r, o := seedProjetoChain(t, repo)

	o2, err := repo.CreateOrdem(ctx, domain.Ordem{
		CodRequisicao:   r.CodRequisicao,
		Descricao:       "Outra compra",
		DataSolicitacao: mustDate("2025-02-06"),
		DataLimite:      mustDate("2025-02-25"),
		Valor:           4000,
		Situacao:        domain.OrderOpen,
	})
	if err != nil {
		t.Fatalf("create ordem: %v", err)
	}

	// Multiple installments per contract must not inflate counts or sums.
	seedContrato(t, repo, "0001/2025", o.CodOrdem, 1000, []domain.ItemContrato{parcela(1, 500), parcela(2, 500)})
	seedContrato(t, repo, "0002/2025", o2.CodOrdem, 2000, []domain.ItemContrato{parcela(1, 1000), parcela(2, 1000)})

	rows, err := repo.ListProjetosWithStats(ctx)
	if err != nil {
		t.Fatalf("list with stats: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one project row, got %d", len(rows))
	}
	row := rows[0]
	if row.CodProjeto != p.CodProjeto {
		t.Fatalf("unexpected project: %+v", row)
	}
	if row.TotalRequisicoes != 1 || row.TotalOrdens != 2 || row.TotalContratos != 2 {
		t.Fatalf("counts off: req=%d ord=%d contr=%d", row.TotalRequisicoes, row.TotalOrdens, row.TotalContratos)
	}
	if math.Abs(row.ValorTotalContratos-3000) > 1e-9 {
		t.Fatalf("contracted value should be 3000, got %.2f", row.ValorTotalContratos)
	}
}

func TestDashboardStatsCountsOverdueInstallments(t *testing.T) {
	repo := newTestRepository(t)
	_, _, o := seedProjetoChain(t, repo)

	settled := parcela(1, 500)
	settled.Situacao = domain.InstallmentSettled
	seedContrato(t, repo, "0001/2025", o.CodOrdem, 1000, []domain.ItemContrato{settled, parcela(2, 500)})

	// Installment 2 is due 2025-05-01; a clock past that counts it overdue,
	// while the settled one never does.
	stats, err := repo.DashboardStats(context.Background(), mustDate("2025-06-01"))
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.Contratos != 1 || stats.ValorContratos != 1000 {
		t.Fatalf("contract counts off: %+v", stats)
	}
	if stats.ParcelasAbertas != 1 {
		t.Fatalf("expected 1 open installment, got %d", stats.ParcelasAbertas)
	}
	if stats.ParcelasVencidas != 1 {
		t.Fatalf("expected 1 overdue installment, got %d", stats.ParcelasVencidas)
	}

	early, err := repo.DashboardStats(context.Background(), mustDate("2025-04-15"))
	if err != nil {
		t.Fatalf("dashboard stats early: %v", err)
	}
	if early.ParcelasVencidas != 0 {
		t.Fatalf("nothing should be overdue before the due date, got %d", early.ParcelasVencidas)
	}
}

func TestDeleteContratoRemovesInstallments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, _, o := seedProjetoChain(t, repo)

	c := seedContrato(t, repo, "0001/2025", o.CodOrdem, 1000, []domain.ItemContrato{parcela(1, 500), parcela(2, 500)})

	if err := repo.DeleteContrato(ctx, c.NumContrato); err != nil {
		t.Fatalf("delete contrato: %v", err)
	}
	if _, err := repo.GetContrato(ctx, c.NumContrato); !domain.IsNotFound(err) {
		t.Fatalf("contract should be gone, got %v", err)
	}
	itens, err := repo.ListItensContrato(ctx, c.NumContrato)
	if err != nil {
		t.Fatalf("list itens: %v", err)
	}
	if len(itens) != 0 {
		t.Fatalf("installments should be gone, got %d", len(itens))
	}

	if err := repo.DeleteContrato(ctx, "0009/2025"); !domain.IsNotFound(err) {
		t.Fatalf("deleting a missing contract should be not found, got %v", err)
	}
}

func TestContratoUniquePerOrdem(t *testing.T) {
	repo := newTestRepository(t)
	_, _, o := seedProjetoChain(t, repo)

	seedContrato(t, repo, "0001/2025", o.CodOrdem, 1000, []domain.ItemContrato{parcela(1, 1000)})

	_, err := repo.CreateContrato(context.Background(), domain.Contrato{
		NumContrato:        "0002/2025",
		CodOrdem:           o.CodOrdem,
		Descricao:          "Duplicado",
		CpfCnpj:            "12345678000190",
		Contratado:         "Eletro Ltda",
		TipoPessoa:         domain.TipoPessoaJuridica,
		DataInicio:         mustDate("2025-03-01"),
		DataFim:            mustDate("2025-09-01"),
		Valor:              500,
		Parcelas:           1,
		DataParcelaInicial: mustDate("2025-04-01"),
		Situacao:           domain.ContractActive,
	}, []domain.ItemContrato{parcela(1, 500)})
	if !domain.IsConflict(err) {
		t.Fatalf("second contract on the order should hit the unique index, got %v", err)
	}
}

func TestSaveProjetoUpdatesOnlyListedColumns(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	p, _, _ := seedProjetoChain(t, repo)

	created := p.CreatedAt
	p.Nome = "Reforma ampliada"
	p.Valor = 120000
	updated, err := repo.SaveProjeto(ctx, p)
	if err != nil {
		t.Fatalf("save projeto: %v", err)
	}
	if updated.Nome != "Reforma ampliada" || updated.Valor != 120000 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatalf("created_at should not move on update")
	}
}

func TestConsumeVerificationTokenIsSingleUse(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	vt, err := repo.CreateVerificationToken(ctx, domain.VerificationToken{
		Identifier: "pessoa@empresa.com",
		Token:      "tok-123",
		Expires:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := repo.ConsumeVerificationToken(ctx, "Pessoa@Empresa.com", vt.Token)
	if err != nil {
		t.Fatalf("consume token: %v", err)
	}
	if got.Identifier != "pessoa@empresa.com" {
		t.Fatalf("identifier mismatch: %q", got.Identifier)
	}

	if _, err := repo.ConsumeVerificationToken(ctx, "pessoa@empresa.com", vt.Token); !domain.IsNotFound(err) {
		t.Fatalf("second redemption should be not found, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, domain.User{Email: "pessoa@empresa.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	session, err := repo.CreateSession(ctx, domain.Session{
		SessionToken: "sess-1",
		UserID:       u.ID,
		Expires:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := repo.touchSessionWindow(ctx, session.SessionToken, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("touch session: %v", err)
	}
	got, err := repo.GetSession(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.Expired(time.Now()) {
		t.Fatalf("session should read as expired after the window moved back")
	}

	if err := repo.DeleteSessionsByUser(ctx, u.ID); err != nil {
		t.Fatalf("delete sessions: %v", err)
	}
	if _, err := repo.GetSession(ctx, session.SessionToken); !domain.IsNotFound(err) {
		t.Fatalf("session should be gone, got %v", err)
	}
}

func TestUpsertUserProjectReplacesGrant(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	p, _, _ := seedProjetoChain(t, repo)

	u, err := repo.CreateUser(ctx, domain.User{Email: "membro@empresa.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	first, err := repo.UpsertUserProject(ctx, domain.UserProject{UserID: u.ID, CodProjeto: p.CodProjeto, Role: domain.ProjectRoleViewer})
	if err != nil {
		t.Fatalf("upsert viewer: %v", err)
	}
	second, err := repo.UpsertUserProject(ctx, domain.UserProject{UserID: u.ID, CodProjeto: p.CodProjeto, Role: domain.ProjectRoleManager, Permissions: []string{"members"}})
	if err != nil {
		t.Fatalf("upsert manager: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert should keep one row per user/project")
	}
	if second.Role != domain.ProjectRoleManager || len(second.Permissions) != 1 {
		t.Fatalf("grant not replaced: %+v", second)
	}

	members, err := repo.ListProjectMembers(ctx, p.CodProjeto)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(members))
	}
}

// The numero check must hold for direct inserts too, not just writes that
// pass through the service validation.
func TestContratoNumeroCheckRejectsNonDigits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, _, o := seedProjetoChain(t, repo)

	insert := `INSERT INTO contrato
		(numcontrato, codordem, descricao, cpfcnpj, contratado, tipopessoa,
		 datainicio, datafim, valor, parcelas, dataparcelainicial, situacao)
		VALUES (?, ?, 'Fornecimento', '12345678000190', 'Eletro Ltda', 2,
		 '2025-03-01', '2025-09-01', 1000, 1, '2025-04-01', '1')`

	for _, numero := range []string{"12a4/20b5", "abcd/efgh", "0001-2025", "001/20255"} {
		if err := repo.db.WithContext(ctx).Exec(insert, numero, o.CodOrdem).Error; err == nil {
			t.Fatalf("storage accepted malformed numcontrato %q", numero)
		}
	}

	if err := repo.db.WithContext(ctx).Exec(insert, "0001/2025", o.CodOrdem).Error; err != nil {
		t.Fatalf("well-formed numcontrato rejected: %v", err)
	}
}
