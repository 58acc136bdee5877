package gormdb

import (
	"encoding/json"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"gorm.io/datatypes"
)

// Storage models mirror the inherited schema: lowercase Portuguese column
// names, status stored as the legacy one-character code, money as
// decimal(14,2). The SQL in migrations/ is the source of truth for
// constraints; the tags here only describe the shape for gorm.

type ProjetoModel struct {
	CodProjeto       int       `gorm:"column:codprojeto;primaryKey"`
	Nome             string    `gorm:"column:nome;size:200;not null"`
	DataInicio       time.Time `gorm:"column:datainicio;type:date;not null"`
	DataEncerramento time.Time `gorm:"column:dataencerramento;type:date;not null"`
	Valor            float64   `gorm:"column:valor;type:decimal(14,2);not null"`
	Situacao         string    `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (ProjetoModel) TableName() string { return "projetos" }

func (m ProjetoModel) toDomain() domain.Projeto {
	situacao, _ := domain.ParseProjectStatus(m.Situacao)
	return domain.Projeto{
		CodProjeto:       m.CodProjeto,
		Nome:             m.Nome,
		DataInicio:       m.DataInicio,
		DataEncerramento: m.DataEncerramento,
		Valor:            m.Valor,
		Situacao:         situacao,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func projetoModel(v domain.Projeto) ProjetoModel {
	return ProjetoModel{
		CodProjeto:       v.CodProjeto,
		Nome:             v.Nome,
		DataInicio:       v.DataInicio,
		DataEncerramento: v.DataEncerramento,
		Valor:            v.Valor,
		Situacao:         v.Situacao.Code(),
	}
}

type RequisicaoModel struct {
	CodRequisicao   int       `gorm:"column:codrequisicao;primaryKey"`
	CodProjeto      int       `gorm:"column:codprojeto;not null;index"`
	Descricao       string    `gorm:"column:descricao;size:500;not null"`
	DataSolicitacao time.Time `gorm:"column:datasolicitacao;type:date;not null"`
	DataLimite      time.Time `gorm:"column:datalimite;type:date;not null"`
	Valor           float64   `gorm:"column:valor;type:decimal(14,2);not null"`
	Situacao        string    `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (RequisicaoModel) TableName() string { return "requisicao" }

func (m RequisicaoModel) toDomain() domain.Requisicao {
	situacao, _ := domain.ParseRequisitionStatus(m.Situacao)
	return domain.Requisicao{
		CodRequisicao:   m.CodRequisicao,
		CodProjeto:      m.CodProjeto,
		Descricao:       m.Descricao,
		DataSolicitacao: m.DataSolicitacao,
		DataLimite:      m.DataLimite,
		Valor:           m.Valor,
		Situacao:        situacao,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func requisicaoModel(v domain.Requisicao) RequisicaoModel {
	return RequisicaoModel{
		CodRequisicao:   v.CodRequisicao,
		CodProjeto:      v.CodProjeto,
		Descricao:       v.Descricao,
		DataSolicitacao: v.DataSolicitacao,
		DataLimite:      v.DataLimite,
		Valor:           v.Valor,
		Situacao:        v.Situacao.Code(),
	}
}

type OrdemModel struct {
	CodOrdem        int       `gorm:"column:codordem;primaryKey"`
	CodRequisicao   int       `gorm:"column:codrequisicao;not null;index"`
	Descricao       string    `gorm:"column:descricao;size:500;not null"`
	DataSolicitacao time.Time `gorm:"column:datasolicitacao;type:date;not null"`
	DataLimite      time.Time `gorm:"column:datalimite;type:date;not null"`
	Valor           float64   `gorm:"column:valor;type:decimal(14,2);not null"`
	Situacao        string    `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (OrdemModel) TableName() string { return "ordem" }

func (m OrdemModel) toDomain() domain.Ordem {
	situacao, _ := domain.ParseOrderStatus(m.Situacao)
	return domain.Ordem{
		CodOrdem:        m.CodOrdem,
		CodRequisicao:   m.CodRequisicao,
		Descricao:       m.Descricao,
		DataSolicitacao: m.DataSolicitacao,
		DataLimite:      m.DataLimite,
		Valor:           m.Valor,
		Situacao:        situacao,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func ordemModel(v domain.Ordem) OrdemModel {
	return OrdemModel{
		CodOrdem:        v.CodOrdem,
		CodRequisicao:   v.CodRequisicao,
		Descricao:       v.Descricao,
		DataSolicitacao: v.DataSolicitacao,
		DataLimite:      v.DataLimite,
		Valor:           v.Valor,
		Situacao:        v.Situacao.Code(),
	}
}

type ItemOrdemModel struct {
	CodOrdem        int        `gorm:"column:codordem;primaryKey"`
	CodItem         int        `gorm:"column:coditem;primaryKey"`
	Descricao       string     `gorm:"column:descricao;size:500;not null"`
	DataSolicitacao time.Time  `gorm:"column:datasolicitacao;type:date;not null"`
	DataLimite      time.Time  `gorm:"column:datalimite;type:date;not null"`
	Valor           float64    `gorm:"column:valor;type:decimal(14,2);not null"`
	DataRecebido    *time.Time `gorm:"column:datarecebido;type:date"`
	Situacao        string     `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (ItemOrdemModel) TableName() string { return "itens_ordem" }

func (m ItemOrdemModel) toDomain() domain.ItemOrdem {
	situacao, _ := domain.ParseItemStatus(m.Situacao)
	return domain.ItemOrdem{
		CodOrdem:        m.CodOrdem,
		CodItem:         m.CodItem,
		Descricao:       m.Descricao,
		DataSolicitacao: m.DataSolicitacao,
		DataLimite:      m.DataLimite,
		Valor:           m.Valor,
		DataRecebido:    m.DataRecebido,
		Situacao:        situacao,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func itemOrdemModel(v domain.ItemOrdem) ItemOrdemModel {
	return ItemOrdemModel{
		CodOrdem:        v.CodOrdem,
		CodItem:         v.CodItem,
		Descricao:       v.Descricao,
		DataSolicitacao: v.DataSolicitacao,
		DataLimite:      v.DataLimite,
		Valor:           v.Valor,
		DataRecebido:    v.DataRecebido,
		Situacao:        v.Situacao.Code(),
	}
}

type ContratoModel struct {
	NumContrato        string    `gorm:"column:numcontrato;size:10;primaryKey"`
	CodOrdem           int       `gorm:"column:codordem;not null;uniqueIndex"`
	Descricao          string    `gorm:"column:descricao;size:500;not null"`
	CpfCnpj            string    `gorm:"column:cpfcnpj;size:14;not null"`
	Contratado         string    `gorm:"column:contratado;size:150;not null"`
	TipoPessoa         int       `gorm:"column:tipopessoa;not null"`
	DataInicio         time.Time `gorm:"column:datainicio;type:date;not null"`
	DataFim            time.Time `gorm:"column:datafim;type:date;not null"`
	Valor              float64   `gorm:"column:valor;type:decimal(14,2);not null"`
	Parcelas           int       `gorm:"column:parcelas;not null"`
	DataParcelaInicial time.Time `gorm:"column:dataparcelainicial;type:date;not null"`
	Situacao           string    `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (ContratoModel) TableName() string { return "contrato" }

func (m ContratoModel) toDomain() domain.Contrato {
	situacao, _ := domain.ParseContractStatus(m.Situacao)
	return domain.Contrato{
		NumContrato:        m.NumContrato,
		CodOrdem:           m.CodOrdem,
		Descricao:          m.Descricao,
		CpfCnpj:            m.CpfCnpj,
		Contratado:         m.Contratado,
		TipoPessoa:         m.TipoPessoa,
		DataInicio:         m.DataInicio,
		DataFim:            m.DataFim,
		Valor:              m.Valor,
		Parcelas:           m.Parcelas,
		DataParcelaInicial: m.DataParcelaInicial,
		Situacao:           situacao,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func contratoModel(v domain.Contrato) ContratoModel {
	return ContratoModel{
		NumContrato:        v.NumContrato,
		CodOrdem:           v.CodOrdem,
		Descricao:          v.Descricao,
		CpfCnpj:            v.CpfCnpj,
		Contratado:         v.Contratado,
		TipoPessoa:         v.TipoPessoa,
		DataInicio:         v.DataInicio,
		DataFim:            v.DataFim,
		Valor:              v.Valor,
		Parcelas:           v.Parcelas,
		DataParcelaInicial: v.DataParcelaInicial,
		Situacao:           v.Situacao.Code(),
	}
}

type ItemContratoModel struct {
	NumContrato    string     `gorm:"column:numcontrato;size:10;primaryKey"`
	CodLancamento  int        `gorm:"column:codlancamento;primaryKey"`
	DataLancamento time.Time  `gorm:"column:datalancamento;type:date;not null"`
	NumParcela     int        `gorm:"column:numparcela;not null"`
	ValorParcela   float64    `gorm:"column:valorparcela;type:decimal(14,2);not null"`
	DataVencimento time.Time  `gorm:"column:datavencimento;type:date;not null"`
	ValorPago      float64    `gorm:"column:valorpago;type:decimal(14,2);not null;default:0"`
	DataPagamento  *time.Time `gorm:"column:datapagamento;type:date"`
	Situacao       string     `gorm:"column:situacao;size:20;not null;default:'1'"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (ItemContratoModel) TableName() string { return "itens_contrato" }

func (m ItemContratoModel) toDomain() domain.ItemContrato {
	situacao, _ := domain.ParseInstallmentStatus(m.Situacao)
	return domain.ItemContrato{
		NumContrato:    m.NumContrato,
		CodLancamento:  m.CodLancamento,
		DataLancamento: m.DataLancamento,
		NumParcela:     m.NumParcela,
		ValorParcela:   m.ValorParcela,
		DataVencimento: m.DataVencimento,
		ValorPago:      m.ValorPago,
		DataPagamento:  m.DataPagamento,
		Situacao:       situacao,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func itemContratoModel(v domain.ItemContrato) ItemContratoModel {
	return ItemContratoModel{
		NumContrato:    v.NumContrato,
		CodLancamento:  v.CodLancamento,
		DataLancamento: v.DataLancamento,
		NumParcela:     v.NumParcela,
		ValorParcela:   v.ValorParcela,
		DataVencimento: v.DataVencimento,
		ValorPago:      v.ValorPago,
		DataPagamento:  v.DataPagamento,
		Situacao:       v.Situacao.Code(),
	}
}

type UserModel struct {
	ID            string     `gorm:"column:id;size:36;primaryKey"`
	Name          string     `gorm:"column:name"`
	Email         string     `gorm:"column:email;not null;uniqueIndex"`
	EmailVerified *time.Time `gorm:"column:email_verified"`
	Image         string     `gorm:"column:image"`
	Role          string     `gorm:"column:role;size:10;not null;default:'USER'"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (UserModel) TableName() string { return "users" }

func (m UserModel) toDomain() domain.User {
	return domain.User{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		EmailVerified: m.EmailVerified,
		Image:         m.Image,
		Role:          domain.UserRole(m.Role),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type AccountModel struct {
	Provider          string `gorm:"column:provider;primaryKey"`
	ProviderAccountID string `gorm:"column:provider_account_id;primaryKey"`
	UserID            string `gorm:"column:user_id;size:36;not null;index"`
	Type              string `gorm:"column:type;not null"`
	RefreshToken      string `gorm:"column:refresh_token"`
	AccessToken       string `gorm:"column:access_token"`
	ExpiresAt         int64  `gorm:"column:expires_at"`
	TokenType         string `gorm:"column:token_type"`
	Scope             string `gorm:"column:scope"`
}

func (AccountModel) TableName() string { return "accounts" }

func (m AccountModel) toDomain() domain.Account {
	return domain.Account{
		UserID:            m.UserID,
		Type:              m.Type,
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		RefreshToken:      m.RefreshToken,
		AccessToken:       m.AccessToken,
		ExpiresAt:         m.ExpiresAt,
		TokenType:         m.TokenType,
		Scope:             m.Scope,
	}
}

type SessionModel struct {
	SessionToken string    `gorm:"column:session_token;size:255;primaryKey"`
	UserID       string    `gorm:"column:user_id;size:36;not null;index"`
	Expires      time.Time `gorm:"column:expires;not null"`
}

func (SessionModel) TableName() string { return "sessions" }

type VerificationTokenModel struct {
	Identifier string    `gorm:"column:identifier;primaryKey"`
	Token      string    `gorm:"column:token;primaryKey"`
	Expires    time.Time `gorm:"column:expires;not null"`
}

func (VerificationTokenModel) TableName() string { return "verification_tokens" }

type ProfileModel struct {
	ID        string    `gorm:"column:id;size:36;primaryKey"`
	UserID    string    `gorm:"column:user_id;size:36;not null;uniqueIndex"`
	Bio       string    `gorm:"column:bio"`
	Company   string    `gorm:"column:company"`
	Location  string    `gorm:"column:location"`
	Website   string    `gorm:"column:website"`
	Theme     string    `gorm:"column:theme;size:10;not null;default:'system'"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ProfileModel) TableName() string { return "profiles" }

func (m ProfileModel) toDomain() domain.Profile {
	return domain.Profile{
		ID:        m.ID,
		UserID:    m.UserID,
		Bio:       m.Bio,
		Company:   m.Company,
		Location:  m.Location,
		Website:   m.Website,
		Theme:     domain.Theme(m.Theme),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type UserProjectModel struct {
	ID          string         `gorm:"column:id;size:36;primaryKey"`
	UserID      string         `gorm:"column:user_id;size:36;not null;index:idx_user_project,unique"`
	CodProjeto  int            `gorm:"column:codprojeto;not null;index:idx_user_project,unique"`
	Role        string         `gorm:"column:role;size:10;not null;default:'VIEWER'"`
	Permissions datatypes.JSON `gorm:"column:permissions"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (UserProjectModel) TableName() string { return "user_projects" }

func (m UserProjectModel) toDomain() domain.UserProject {
	var perms []string
	if len(m.Permissions) > 0 {
		_ = json.Unmarshal(m.Permissions, &perms)
	}
	return domain.UserProject{
		ID:          m.ID,
		UserID:      m.UserID,
		CodProjeto:  m.CodProjeto,
		Role:        domain.ProjectRole(m.Role),
		Permissions: perms,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type ActivityLogModel struct {
	ID         string         `gorm:"column:id;size:36;primaryKey"`
	UserID     string         `gorm:"column:user_id;size:36;index"`
	Action     string         `gorm:"column:action;not null;index"`
	Resource   string         `gorm:"column:resource;not null;index"`
	ResourceID string         `gorm:"column:resource_id"`
	Metadata   datatypes.JSON `gorm:"column:metadata"`
	IP         string         `gorm:"column:ip"`
	UserAgent  string         `gorm:"column:user_agent"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (ActivityLogModel) TableName() string { return "activity_logs" }

func (m ActivityLogModel) toDomain() domain.ActivityLog {
	var meta map[string]any
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.ActivityLog{
		ID:         m.ID,
		UserID:     m.UserID,
		Action:     m.Action,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		Metadata:   meta,
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
}

type ClienteModel struct {
	ID        string         `gorm:"column:id;size:36;primaryKey"`
	Nome      string         `gorm:"column:nome;size:200;not null"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Telefone  string         `gorm:"column:telefone;size:20"`
	Documento string         `gorm:"column:documento;size:14;not null"`
	Tipo      string         `gorm:"column:tipo;size:20;not null"`
	Endereco  datatypes.JSON `gorm:"column:endereco"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (ClienteModel) TableName() string { return "clientes" }

func (m ClienteModel) toDomain() domain.Cliente {
	var endereco *domain.Endereco
	if len(m.Endereco) > 0 {
		endereco = &domain.Endereco{}
		if err := json.Unmarshal(m.Endereco, endereco); err != nil {
			endereco = nil
		}
	}
	return domain.Cliente{
		ID:        m.ID,
		Nome:      m.Nome,
		Email:     m.Email,
		Telefone:  m.Telefone,
		Documento: m.Documento,
		Tipo:      m.Tipo,
		Endereco:  endereco,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type PrestadorModel struct {
	ID            string    `gorm:"column:id;size:36;primaryKey"`
	Nome          string    `gorm:"column:nome;size:200;not null"`
	Email         string    `gorm:"column:email;not null;uniqueIndex"`
	Telefone      string    `gorm:"column:telefone;size:20"`
	Documento     string    `gorm:"column:documento;size:14;not null"`
	Especialidade string    `gorm:"column:especialidade;size:100"`
	ValorHora     *float64  `gorm:"column:valor_hora;type:decimal(14,2)"`
	Disponivel    bool      `gorm:"column:disponivel;not null;default:true"`
	Avaliacao     *float64  `gorm:"column:avaliacao;type:decimal(3,2)"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (PrestadorModel) TableName() string { return "prestadores" }

func (m PrestadorModel) toDomain() domain.Prestador {
	return domain.Prestador{
		ID:            m.ID,
		Nome:          m.Nome,
		Email:         m.Email,
		Telefone:      m.Telefone,
		Documento:     m.Documento,
		Especialidade: m.Especialidade,
		ValorHora:     m.ValorHora,
		Disponivel:    m.Disponivel,
		Avaliacao:     m.Avaliacao,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type NotificacaoModel struct {
	ID        string    `gorm:"column:id;size:36;primaryKey"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index"`
	Titulo    string    `gorm:"column:titulo;size:200;not null"`
	Mensagem  string    `gorm:"column:mensagem;not null"`
	Tipo      string    `gorm:"column:tipo;size:20;not null;default:'info'"`
	Lida      bool      `gorm:"column:lida;not null;default:false"`
	DataEnvio time.Time `gorm:"column:data_envio;not null"`
}

func (NotificacaoModel) TableName() string { return "notificacoes" }

func (m NotificacaoModel) toDomain() domain.Notificacao {
	return domain.Notificacao{
		ID:        m.ID,
		UserID:    m.UserID,
		Titulo:    m.Titulo,
		Mensagem:  m.Mensagem,
		Tipo:      m.Tipo,
		Lida:      m.Lida,
		DataEnvio: m.DataEnvio,
	}
}
