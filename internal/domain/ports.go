package domain

import (
	"context"
	"time"
)

type Repository interface {
	CreateProjeto(ctx context.Context, value Projeto) (Projeto, error)
	GetProjeto(ctx context.Context, codProjeto int) (Projeto, error)
	ListProjetos(ctx context.Context, situacao *ProjectStatus) ([]Projeto, error)
	ListProjetosWithStats(ctx context.Context) ([]ProjetoWithStats, error)
	SaveProjeto(ctx context.Context, value Projeto) (Projeto, error)
	DeleteProjeto(ctx context.Context, codProjeto int) error
	CountRequisicoesByProjeto(ctx context.Context, codProjeto int) (int64, error)
	ProjectsSummary(ctx context.Context) (ProjectsSummary, error)
	DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error)

	CreateRequisicao(ctx context.Context, value Requisicao) (Requisicao, error)
	GetRequisicao(ctx context.Context, codRequisicao int) (Requisicao, error)
	ListRequisicoes(ctx context.Context, codProjeto *int) ([]Requisicao, error)
	SaveRequisicao(ctx context.Context, value Requisicao) (Requisicao, error)
	DeleteRequisicao(ctx context.Context, codRequisicao int) error
	CountOrdensByRequisicao(ctx context.Context, codRequisicao int) (int64, error)

	CreateOrdem(ctx context.Context, value Ordem) (Ordem, error)
	GetOrdem(ctx context.Context, codOrdem int) (Ordem, error)
	ListOrdens(ctx context.Context, codRequisicao *int) ([]Ordem, error)
	SaveOrdem(ctx context.Context, value Ordem) (Ordem, error)
	DeleteOrdem(ctx context.Context, codOrdem int) error
	HasContratoForOrdem(ctx context.Context, codOrdem int) (bool, error)

	CreateItemOrdem(ctx context.Context, value ItemOrdem) (ItemOrdem, error)
	GetItemOrdem(ctx context.Context, codOrdem, codItem int) (ItemOrdem, error)
	ListItensOrdem(ctx context.Context, codOrdem int) ([]ItemOrdem, error)
	SaveItemOrdem(ctx context.Context, value ItemOrdem) (ItemOrdem, error)
	DeleteItemOrdem(ctx context.Context, codOrdem, codItem int) error

	CreateContrato(ctx context.Context, value Contrato, parcelas []ItemContrato) (Contrato, error)
	GetContrato(ctx context.Context, numContrato string) (Contrato, error)
	ListContratos(ctx context.Context, codOrdem *int) ([]Contrato, error)
	SaveContrato(ctx context.Context, value Contrato) (Contrato, error)
	DeleteContrato(ctx context.Context, numContrato string) error

	GetItemContrato(ctx context.Context, numContrato string, codLancamento int) (ItemContrato, error)
	ListItensContrato(ctx context.Context, numContrato string) ([]ItemContrato, error)
	SaveItemContrato(ctx context.Context, value ItemContrato) (ItemContrato, error)

	CreateUser(ctx context.Context, value User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, query string, limit int) ([]User, error)
	SaveUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)

	LinkAccount(ctx context.Context, value Account) (Account, error)
	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (Account, error)

	CreateSession(ctx context.Context, value Session) (Session, error)
	GetSession(ctx context.Context, sessionToken string) (Session, error)
	DeleteSession(ctx context.Context, sessionToken string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error

	CreateVerificationToken(ctx context.Context, value VerificationToken) (VerificationToken, error)
	ConsumeVerificationToken(ctx context.Context, identifier, token string) (VerificationToken, error)

	GetProfileByUserID(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, value Profile) (Profile, error)

	UpsertUserProject(ctx context.Context, value UserProject) (UserProject, error)
	ListUserProjects(ctx context.Context, userID string) ([]UserProject, error)
	ListProjectMembers(ctx context.Context, codProjeto int) ([]UserProject, error)
	DeleteUserProject(ctx context.Context, userID string, codProjeto int) error

	CreateActivityLog(ctx context.Context, value ActivityLog) error
	ListActivityLogs(ctx context.Context, userID string, limit int) ([]ActivityLog, error)

	CreateCliente(ctx context.Context, value Cliente) (Cliente, error)
	GetCliente(ctx context.Context, id string) (Cliente, error)
	ListClientes(ctx context.Context, query string, limit int) ([]Cliente, error)
	SaveCliente(ctx context.Context, value Cliente) (Cliente, error)
	DeleteCliente(ctx context.Context, id string) error

	CreatePrestador(ctx context.Context, value Prestador) (Prestador, error)
	GetPrestador(ctx context.Context, id string) (Prestador, error)
	ListPrestadores(ctx context.Context, query string, limit int) ([]Prestador, error)
	SavePrestador(ctx context.Context, value Prestador) (Prestador, error)
	DeletePrestador(ctx context.Context, id string) error

	CreateNotificacao(ctx context.Context, value Notificacao) (Notificacao, error)
	ListNotificacoes(ctx context.Context, userID string, onlyUnread bool) ([]Notificacao, error)
	MarkNotificacaoLida(ctx context.Context, id, userID string) (Notificacao, error)
}
