package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type Repository struct {
	db *gorm.DB
}

// Open connects to the configured database. The sqlite DSN gets the
// foreign_keys pragma appended so RESTRICT and CASCADE actually fire.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite", "":
		return gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: sqliteDSN(dsn)}, cfg)
	}
	return nil, fmt.Errorf("unsupported db driver %q", driver)
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// translate folds driver errors into the domain taxonomy. The string checks
// cover the sqlite driver, whose raw errors gorm does not always recognize.
func translate(err error, resource string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NewNotFound(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.NewConflict(resource, "already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.NewConflict(resource, "violates a relationship constraint")
	}
	if domain.IsNotFound(err) || domain.IsConflict(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint"), strings.Contains(msg, "duplicate key"):
		return domain.NewConflict(resource, "already exists")
	case strings.Contains(msg, "FOREIGN KEY constraint"), strings.Contains(msg, "foreign key constraint"):
		return domain.NewConflict(resource, "violates a relationship constraint")
	case strings.Contains(msg, "CHECK constraint"), strings.Contains(msg, "check constraint"):
		return domain.NewConflict(resource, "violates a table constraint")
	}
	return domain.NewInternal(err)
}

// nextCode allocates the next sequential integer key within a transaction.
func nextCode(tx *gorm.DB, table, column, where string, args ...any) (int, error) {
	var next int
	q := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", column, table)
	if where != "" {
		q += " WHERE " + where
	}
	if err := tx.Raw(q, args...).Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Repository) CreateProjeto(ctx context.Context, value domain.Projeto) (domain.Projeto, error) {
	m := projetoModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := nextCode(tx, "projetos", "codprojeto", "")
		if err != nil {
			return err
		}
		m.CodProjeto = code
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.Projeto{}, translate(err, "projeto", value.Nome)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetProjeto(ctx context.Context, codProjeto int) (domain.Projeto, error) {
	var m ProjetoModel
	if err := r.db.WithContext(ctx).First(&m, "codprojeto = ?", codProjeto).Error; err != nil {
		return domain.Projeto{}, translate(err, "projeto", codProjeto)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListProjetos(ctx context.Context, situacao *domain.ProjectStatus) ([]domain.Projeto, error) {
	q := r.db.WithContext(ctx).Model(&ProjetoModel{})
	if situacao != nil {
		q = q.Where("situacao = ?", situacao.Code())
	}
	rows := make([]ProjetoModel, 0)
	if err := q.Order("datainicio ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "projeto", "")
	}
	result := make([]domain.Projeto, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveProjeto(ctx context.Context, value domain.Projeto) (domain.Projeto, error) {
	m := projetoModel(value)
	err := r.db.WithContext(ctx).Model(&ProjetoModel{}).
		Where("codprojeto = ?", value.CodProjeto).
		Select("nome", "datainicio", "dataencerramento", "valor", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Projeto{}, translate(err, "projeto", value.CodProjeto)
	}
	return r.GetProjeto(ctx, value.CodProjeto)
}

func (r *Repository) DeleteProjeto(ctx context.Context, codProjeto int) error {
	res := r.db.WithContext(ctx).Where("codprojeto = ?", codProjeto).Delete(&ProjetoModel{})
	if res.Error != nil {
		return translate(res.Error, "projeto", codProjeto)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("projeto", codProjeto)
	}
	return nil
}

func (r *Repository) CountRequisicoesByProjeto(ctx context.Context, codProjeto int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RequisicaoModel{}).Where("codprojeto = ?", codProjeto).Count(&count).Error
	return count, translate(err, "requisicao", codProjeto)
}

type projetoStatsRow struct {
	CodProjeto          int
	Nome                string
	DataInicio          time.Time
	DataEncerramento    time.Time
	Valor               float64
	Situacao            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	TotalRequisicoes    int64
	TotalOrdens         int64
	TotalContratos      int64
	ValorTotalContratos float64
}

func (r *Repository) ListProjetosWithStats(ctx context.Context) ([]domain.ProjetoWithStats, error) {
	rows := make([]projetoStatsRow, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT p.codprojeto AS cod_projeto,
       p.nome,
       p.datainicio AS data_inicio,
       p.dataencerramento AS data_encerramento,
       p.valor,
       p.situacao,
       p.created_at,
       p.updated_at,
       COALESCE(COUNT(DISTINCT r.codrequisicao), 0) AS total_requisicoes,
       COALESCE(COUNT(DISTINCT o.codordem), 0) AS total_ordens,
       COALESCE(COUNT(DISTINCT c.numcontrato), 0) AS total_contratos,
       COALESCE(SUM(DISTINCT c.valor), 0) AS valor_total_contratos
FROM projetos p
LEFT JOIN requisicao r ON r.codprojeto = p.codprojeto
LEFT JOIN ordem o ON o.codrequisicao = r.codrequisicao
LEFT JOIN contrato c ON c.codordem = o.codordem
GROUP BY p.codprojeto, p.nome, p.datainicio, p.dataencerramento, p.valor, p.situacao, p.created_at, p.updated_at
ORDER BY p.datainicio ASC
`).Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "projeto", "")
	}
	result := make([]domain.ProjetoWithStats, 0, len(rows))
	for _, row := range rows {
		situacao, _ := domain.ParseProjectStatus(row.Situacao)
		result = append(result, domain.ProjetoWithStats{
			Projeto: domain.Projeto{
				CodProjeto:       row.CodProjeto,
				Nome:             row.Nome,
				DataInicio:       row.DataInicio,
				DataEncerramento: row.DataEncerramento,
				Valor:            row.Valor,
				Situacao:         situacao,
				CreatedAt:        row.CreatedAt,
				UpdatedAt:        row.UpdatedAt,
			},
			TotalRequisicoes:    row.TotalRequisicoes,
			TotalOrdens:         row.TotalOrdens,
			TotalContratos:      row.TotalContratos,
			ValorTotalContratos: row.ValorTotalContratos,
		})
	}
	return result, nil
}

func (r *Repository) ProjectsSummary(ctx context.Context) (domain.ProjectsSummary, error) {
	var row domain.ProjectsSummary
	err := r.db.WithContext(ctx).Raw(`
SELECT COUNT(*) AS total_projetos,
       COALESCE(SUM(CASE WHEN situacao = '2' THEN 1 ELSE 0 END), 0) AS projetos_ativos,
       COALESCE(SUM(CASE WHEN situacao = '5' THEN 1 ELSE 0 END), 0) AS projetos_concluidos,
       COALESCE(SUM(valor), 0) AS valor_total_projetos
FROM projetos
`).Scan(&row).Error
	if err != nil {
		return domain.ProjectsSummary{}, translate(err, "projeto", "")
	}
	return row, nil
}

func (r *Repository) DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	summary, err := r.ProjectsSummary(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	type countsRow struct {
		Requisicoes      int64
		Ordens           int64
		Contratos        int64
		ValorContratos   float64
		ParcelasAbertas  int64
		ParcelasVencidas int64
	}
	var counts countsRow
	err = r.db.WithContext(ctx).Raw(`
SELECT (SELECT COUNT(*) FROM requisicao) AS requisicoes,
       (SELECT COUNT(*) FROM ordem) AS ordens,
       (SELECT COUNT(*) FROM contrato) AS contratos,
       (SELECT COALESCE(SUM(valor), 0) FROM contrato) AS valor_contratos,
       (SELECT COUNT(*) FROM itens_contrato WHERE situacao <> '3') AS parcelas_abertas,
       (SELECT COUNT(*) FROM itens_contrato WHERE situacao <> '3' AND datavencimento < ?) AS parcelas_vencidas
`, now).Scan(&counts).Error
	if err != nil {
		return domain.DashboardStats{}, translate(err, "dashboard", "")
	}
	return domain.DashboardStats{
		Projetos:         summary,
		Requisicoes:      counts.Requisicoes,
		Ordens:           counts.Ordens,
		Contratos:        counts.Contratos,
		ValorContratos:   counts.ValorContratos,
		ParcelasAbertas:  counts.ParcelasAbertas,
		ParcelasVencidas: counts.ParcelasVencidas,
	}, nil
}

func (r *Repository) CreateRequisicao(ctx context.Context, value domain.Requisicao) (domain.Requisicao, error) {
	m := requisicaoModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := nextCode(tx, "requisicao", "codrequisicao", "")
		if err != nil {
			return err
		}
		m.CodRequisicao = code
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.Requisicao{}, translate(err, "requisicao", value.CodProjeto)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetRequisicao(ctx context.Context, codRequisicao int) (domain.Requisicao, error) {
	var m RequisicaoModel
	if err := r.db.WithContext(ctx).First(&m, "codrequisicao = ?", codRequisicao).Error; err != nil {
		return domain.Requisicao{}, translate(err, "requisicao", codRequisicao)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListRequisicoes(ctx context.Context, codProjeto *int) ([]domain.Requisicao, error) {
	q := r.db.WithContext(ctx).Model(&RequisicaoModel{})
	if codProjeto != nil {
		q = q.Where("codprojeto = ?", *codProjeto)
	}
	rows := make([]RequisicaoModel, 0)
	if err := q.Order("codrequisicao ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "requisicao", "")
	}
	result := make([]domain.Requisicao, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveRequisicao(ctx context.Context, value domain.Requisicao) (domain.Requisicao, error) {
	m := requisicaoModel(value)
	err := r.db.WithContext(ctx).Model(&RequisicaoModel{}).
		Where("codrequisicao = ?", value.CodRequisicao).
		Select("codprojeto", "descricao", "datasolicitacao", "datalimite", "valor", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Requisicao{}, translate(err, "requisicao", value.CodRequisicao)
	}
	return r.GetRequisicao(ctx, value.CodRequisicao)
}

func (r *Repository) DeleteRequisicao(ctx context.Context, codRequisicao int) error {
	res := r.db.WithContext(ctx).Where("codrequisicao = ?", codRequisicao).Delete(&RequisicaoModel{})
	if res.Error != nil {
		return translate(res.Error, "requisicao", codRequisicao)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("requisicao", codRequisicao)
	}
	return nil
}

func (r *Repository) CountOrdensByRequisicao(ctx context.Context, codRequisicao int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OrdemModel{}).Where("codrequisicao = ?", codRequisicao).Count(&count).Error
	return count, translate(err, "ordem", codRequisicao)
}

func (r *Repository) CreateOrdem(ctx context.Context, value domain.Ordem) (domain.Ordem, error) {
	m := ordemModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := nextCode(tx, "ordem", "codordem", "")
		if err != nil {
			return err
		}
		m.CodOrdem = code
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.Ordem{}, translate(err, "ordem", value.CodRequisicao)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetOrdem(ctx context.Context, codOrdem int) (domain.Ordem, error) {
	var m OrdemModel
	if err := r.db.WithContext(ctx).First(&m, "codordem = ?", codOrdem).Error; err != nil {
		return domain.Ordem{}, translate(err, "ordem", codOrdem)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListOrdens(ctx context.Context, codRequisicao *int) ([]domain.Ordem, error) {
	q := r.db.WithContext(ctx).Model(&OrdemModel{})
	if codRequisicao != nil {
		q = q.Where("codrequisicao = ?", *codRequisicao)
	}
	rows := make([]OrdemModel, 0)
	if err := q.Order("codordem ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "ordem", "")
	}
	result := make([]domain.Ordem, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveOrdem(ctx context.Context, value domain.Ordem) (domain.Ordem, error) {
	m := ordemModel(value)
	err := r.db.WithContext(ctx).Model(&OrdemModel{}).
		Where("codordem = ?", value.CodOrdem).
		Select("codrequisicao", "descricao", "datasolicitacao", "datalimite", "valor", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Ordem{}, translate(err, "ordem", value.CodOrdem)
	}
	return r.GetOrdem(ctx, value.CodOrdem)
}

// DeleteOrdem removes the order and its items in one transaction.
func (r *Repository) DeleteOrdem(ctx context.Context, codOrdem int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("codordem = ?", codOrdem).Delete(&ItemOrdemModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("codordem = ?", codOrdem).Delete(&OrdemModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "ordem", codOrdem)
}

func (r *Repository) HasContratoForOrdem(ctx context.Context, codOrdem int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ContratoModel{}).Where("codordem = ?", codOrdem).Count(&count).Error
	if err != nil {
		return false, translate(err, "contrato", codOrdem)
	}
	return count > 0, nil
}

func (r *Repository) CreateItemOrdem(ctx context.Context, value domain.ItemOrdem) (domain.ItemOrdem, error) {
	m := itemOrdemModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := nextCode(tx, "itens_ordem", "coditem", "codordem = ?", value.CodOrdem)
		if err != nil {
			return err
		}
		m.CodItem = code
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.ItemOrdem{}, translate(err, "item da ordem", value.CodOrdem)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetItemOrdem(ctx context.Context, codOrdem, codItem int) (domain.ItemOrdem, error) {
	var m ItemOrdemModel
	err := r.db.WithContext(ctx).First(&m, "codordem = ? AND coditem = ?", codOrdem, codItem).Error
	if err != nil {
		return domain.ItemOrdem{}, translate(err, "item da ordem", fmt.Sprintf("%d/%d", codOrdem, codItem))
	}
	return m.toDomain(), nil
}

func (r *Repository) ListItensOrdem(ctx context.Context, codOrdem int) ([]domain.ItemOrdem, error) {
	rows := make([]ItemOrdemModel, 0)
	err := r.db.WithContext(ctx).Where("codordem = ?", codOrdem).Order("coditem ASC").Find(&rows).Error
	if err != nil {
		return nil, translate(err, "item da ordem", codOrdem)
	}
	result := make([]domain.ItemOrdem, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveItemOrdem(ctx context.Context, value domain.ItemOrdem) (domain.ItemOrdem, error) {
	m := itemOrdemModel(value)
	err := r.db.WithContext(ctx).Model(&ItemOrdemModel{}).
		Where("codordem = ? AND coditem = ?", value.CodOrdem, value.CodItem).
		Select("descricao", "datasolicitacao", "datalimite", "valor", "datarecebido", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.ItemOrdem{}, translate(err, "item da ordem", value.CodItem)
	}
	return r.GetItemOrdem(ctx, value.CodOrdem, value.CodItem)
}

func (r *Repository) DeleteItemOrdem(ctx context.Context, codOrdem, codItem int) error {
	res := r.db.WithContext(ctx).Where("codordem = ? AND coditem = ?", codOrdem, codItem).Delete(&ItemOrdemModel{})
	if res.Error != nil {
		return translate(res.Error, "item da ordem", codItem)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("item da ordem", fmt.Sprintf("%d/%d", codOrdem, codItem))
	}
	return nil
}

// CreateContrato inserts the contract and its installment schedule in one
// transaction; a failed installment rolls back the contract too.
func (r *Repository) CreateContrato(ctx context.Context, value domain.Contrato, parcelas []domain.ItemContrato) (domain.Contrato, error) {
	m := contratoModel(value)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		for i, parcela := range parcelas {
			pm := itemContratoModel(parcela)
			pm.NumContrato = m.NumContrato
			pm.CodLancamento = i + 1
			if err := tx.Create(&pm).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Contrato{}, translate(err, "contrato", value.NumContrato)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetContrato(ctx context.Context, numContrato string) (domain.Contrato, error) {
	var m ContratoModel
	if err := r.db.WithContext(ctx).First(&m, "numcontrato = ?", numContrato).Error; err != nil {
		return domain.Contrato{}, translate(err, "contrato", numContrato)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListContratos(ctx context.Context, codOrdem *int) ([]domain.Contrato, error) {
	q := r.db.WithContext(ctx).Model(&ContratoModel{})
	if codOrdem != nil {
		q = q.Where("codordem = ?", *codOrdem)
	}
	rows := make([]ContratoModel, 0)
	if err := q.Order("numcontrato ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "contrato", "")
	}
	result := make([]domain.Contrato, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveContrato(ctx context.Context, value domain.Contrato) (domain.Contrato, error) {
	m := contratoModel(value)
	err := r.db.WithContext(ctx).Model(&ContratoModel{}).
		Where("numcontrato = ?", value.NumContrato).
		Select("codordem", "descricao", "cpfcnpj", "contratado", "tipopessoa", "datainicio",
			"datafim", "valor", "parcelas", "dataparcelainicial", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Contrato{}, translate(err, "contrato", value.NumContrato)
	}
	return r.GetContrato(ctx, value.NumContrato)
}

// DeleteContrato removes the contract and its installments in one
// transaction.
func (r *Repository) DeleteContrato(ctx context.Context, numContrato string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("numcontrato = ?", numContrato).Delete(&ItemContratoModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("numcontrato = ?", numContrato).Delete(&ContratoModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "contrato", numContrato)
}

func (r *Repository) GetItemContrato(ctx context.Context, numContrato string, codLancamento int) (domain.ItemContrato, error) {
	var m ItemContratoModel
	err := r.db.WithContext(ctx).First(&m, "numcontrato = ? AND codlancamento = ?", numContrato, codLancamento).Error
	if err != nil {
		return domain.ItemContrato{}, translate(err, "parcela", fmt.Sprintf("%s/%d", numContrato, codLancamento))
	}
	return m.toDomain(), nil
}

func (r *Repository) ListItensContrato(ctx context.Context, numContrato string) ([]domain.ItemContrato, error) {
	rows := make([]ItemContratoModel, 0)
	err := r.db.WithContext(ctx).Where("numcontrato = ?", numContrato).Order("codlancamento ASC").Find(&rows).Error
	if err != nil {
		return nil, translate(err, "parcela", numContrato)
	}
	result := make([]domain.ItemContrato, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveItemContrato(ctx context.Context, value domain.ItemContrato) (domain.ItemContrato, error) {
	m := itemContratoModel(value)
	err := r.db.WithContext(ctx).Model(&ItemContratoModel{}).
		Where("numcontrato = ? AND codlancamento = ?", value.NumContrato, value.CodLancamento).
		Select("datalancamento", "numparcela", "valorparcela", "datavencimento",
			"valorpago", "datapagamento", "situacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.ItemContrato{}, translate(err, "parcela", value.CodLancamento)
	}
	return r.GetItemContrato(ctx, value.NumContrato, value.CodLancamento)
}
