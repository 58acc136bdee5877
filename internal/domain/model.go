package domain

import (
	"math"
	"time"
)

// Core entities. Field names follow the legacy column names the system
// inherited; monetary values are decimal(14,2) in storage and validated to
// two decimal places before they get here.

type Projeto struct {
	CodProjeto       int           `json:"codprojeto"`
	Nome             string        `json:"nome"`
	DataInicio       time.Time     `json:"datainicio"`
	DataEncerramento time.Time     `json:"dataencerramento"`
	Valor            float64       `json:"valor"`
	Situacao         ProjectStatus `json:"situacao"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

type Requisicao struct {
	CodRequisicao   int               `json:"codrequisicao"`
	CodProjeto      int               `json:"codprojeto"`
	Descricao       string            `json:"descricao"`
	DataSolicitacao time.Time         `json:"datasolicitacao"`
	DataLimite      time.Time         `json:"datalimite"`
	Valor           float64           `json:"valor"`
	Situacao        RequisitionStatus `json:"situacao"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type Ordem struct {
	CodOrdem        int         `json:"codordem"`
	CodRequisicao   int         `json:"codrequisicao"`
	Descricao       string      `json:"descricao"`
	DataSolicitacao time.Time   `json:"datasolicitacao"`
	DataLimite      time.Time   `json:"datalimite"`
	Valor           float64     `json:"valor"`
	Situacao        OrderStatus `json:"situacao"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ItemOrdem is one line of a work order. The composite key is
// (CodOrdem, CodItem); CodItem is sequential within its order.
type ItemOrdem struct {
	CodOrdem        int        `json:"codordem"`
	CodItem         int        `json:"coditem"`
	Descricao       string     `json:"descricao"`
	DataSolicitacao time.Time  `json:"datasolicitacao"`
	DataLimite      time.Time  `json:"datalimite"`
	Valor           float64    `json:"valor"`
	DataRecebido    *time.Time `json:"datarecebido"`
	Situacao        ItemStatus `json:"situacao"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Contrato is keyed by its business number: four digits, a slash, four
// digits ("0001/2025"). Each work order carries at most one contract.
type Contrato struct {
	NumContrato        string         `json:"numcontrato"`
	CodOrdem           int            `json:"codordem"`
	Descricao          string         `json:"descricao"`
	CpfCnpj            string         `json:"cpfcnpj"`
	Contratado         string         `json:"contratado"`
	TipoPessoa         int            `json:"tipopessoa"`
	DataInicio         time.Time      `json:"datainicio"`
	DataFim            time.Time      `json:"datafim"`
	Valor              float64        `json:"valor"`
	Parcelas           int            `json:"parcelas"`
	DataParcelaInicial time.Time      `json:"dataparcelainicial"`
	Situacao           ContractStatus `json:"situacao"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

const (
	TipoPessoaFisica   = 1
	TipoPessoaJuridica = 2
)

// ItemContrato is one installment of a contract, keyed by
// (NumContrato, CodLancamento).
type ItemContrato struct {
	NumContrato    string            `json:"numcontrato"`
	CodLancamento  int               `json:"codlancamento"`
	DataLancamento time.Time         `json:"datalancamento"`
	NumParcela     int               `json:"numparcela"`
	ValorParcela   float64           `json:"valorparcela"`
	DataVencimento time.Time         `json:"datavencimento"`
	ValorPago      float64           `json:"valorpago"`
	DataPagamento  *time.Time        `json:"datapagamento"`
	Situacao       InstallmentStatus `json:"situacao"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ProjetoWithStats is the project list read model: dependent counts along
// the requisition, order and contract chain plus contracted value and a
// schedule progress percentage.
type ProjetoWithStats struct {
	Projeto
	TotalRequisicoes    int64   `json:"totalRequisicoes"`
	TotalOrdens         int64   `json:"totalOrdens"`
	TotalContratos      int64   `json:"totalContratos"`
	ValorTotalContratos float64 `json:"valorTotalContratos"`
	Progresso           int     `json:"progresso"`
}

type ProjectsSummary struct {
	TotalProjetos      int64   `json:"totalProjetos"`
	ProjetosAtivos     int64   `json:"projetosAtivos"`
	ProjetosConcluidos int64   `json:"projetosConcluidos"`
	ValorTotalProjetos float64 `json:"valorTotalProjetos"`
}

type DashboardStats struct {
	Projetos         ProjectsSummary `json:"projetos"`
	Requisicoes      int64           `json:"requisicoes"`
	Ordens           int64           `json:"ordens"`
	Contratos        int64           `json:"contratos"`
	ValorContratos   float64         `json:"valorContratos"`
	ParcelasAbertas  int64           `json:"parcelasAbertas"`
	ParcelasVencidas int64           `json:"parcelasVencidas"`
}

// Progress returns how far now sits inside [start, end] as a whole
// percentage, rounded half up and clamped to [0, 100]. A zero-length or
// inverted window that now has reached counts as done.
func Progress(start, end, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	total := end.Sub(start)
	if total <= 0 || !now.Before(end) {
		return 100
	}
	elapsed := now.Sub(start)
	return int(math.Round(float64(elapsed) / float64(total) * 100))
}

// Users and access overlay.

type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified *time.Time `json:"emailVerified"`
	Image         string     `json:"image"`
	Role          UserRole   `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Account links a user to an external identity provider. The natural key is
// (Provider, ProviderAccountID).
type Account struct {
	UserID            string `json:"userId"`
	Type              string `json:"type"`
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
	RefreshToken      string `json:"-"`
	AccessToken       string `json:"-"`
	ExpiresAt         int64  `json:"expiresAt"`
	TokenType         string `json:"tokenType"`
	Scope             string `json:"scope"`
}

type Session struct {
	SessionToken string    `json:"-"`
	UserID       string    `json:"userId"`
	Expires      time.Time `json:"expires"`
}

func (s Session) Expired(now time.Time) bool { return !now.Before(s.Expires) }

// VerificationToken is a single-use login token delivered to the identifier
// out of band.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"-"`
	Expires    time.Time `json:"expires"`
}

type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Bio       string    `json:"bio"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	Website   string    `json:"website"`
	Theme     Theme     `json:"theme"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserProject grants a user a role on one project, optionally narrowed by an
// explicit permission list.
type UserProject struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	CodProjeto  int         `json:"codprojeto"`
	Role        ProjectRole `json:"role"`
	Permissions []string    `json:"permissions"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ActivityLog records one mutating action for the audit trail.
type ActivityLog struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resourceId"`
	Metadata   map[string]any `json:"metadata"`
	IP         string         `json:"ip"`
	UserAgent  string         `json:"userAgent"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Identity is the resolved caller: the user plus their project memberships.
type Identity struct {
	User        User
	Memberships []UserProject
}

// Membership returns the caller's grant on a project, if any.
func (id Identity) Membership(codProjeto int) (UserProject, bool) {
	for _, m := range id.Memberships {
		if m.CodProjeto == codProjeto {
			return m, true
		}
	}
	return UserProject{}, false
}

// Directory entities.

type Endereco struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Numero     string `json:"numero"`
	Cidade     string `json:"cidade"`
	Estado     string `json:"estado"`
}

type Cliente struct {
	ID        string    `json:"id"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	Telefone  string    `json:"telefone"`
	Documento string    `json:"documento"`
	Tipo      string    `json:"tipo"`
	Endereco  *Endereco `json:"endereco"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	ClientePessoaFisica   = "pessoa_fisica"
	ClientePessoaJuridica = "pessoa_juridica"
)

type Prestador struct {
	ID            string    `json:"id"`
	Nome          string    `json:"nome"`
	Email         string    `json:"email"`
	Telefone      string    `json:"telefone"`
	Documento     string    `json:"documento"`
	Especialidade string    `json:"especialidade"`
	ValorHora     *float64  `json:"valorHora"`
	Disponivel    bool      `json:"disponivel"`
	Avaliacao     *float64  `json:"avaliacao"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Notificacao struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Titulo    string    `json:"titulo"`
	Mensagem  string    `json:"mensagem"`
	Tipo      string    `json:"tipo"`
	Lida      bool      `json:"lida"`
	DataEnvio time.Time `json:"dataEnvio"`
}
