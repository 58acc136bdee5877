package application

import (
	"context"
	"strings"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type ClienteInput struct {
	Nome      *string          `json:"nome"`
	Email     *string          `json:"email"`
	Telefone  *string          `json:"telefone"`
	Documento *string          `json:"documento"`
	Tipo      *string          `json:"tipo"`
	Endereco  *domain.Endereco `json:"endereco"`
}

func (in ClienteInput) apply(c domain.Cliente) domain.Cliente {
	if in.Nome != nil {
		c.Nome = *in.Nome
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Telefone != nil {
		c.Telefone = *in.Telefone
	}
	if in.Documento != nil {
		c.Documento = *in.Documento
	}
	if in.Tipo != nil {
		c.Tipo = *in.Tipo
	}
	if in.Endereco != nil {
		c.Endereco = in.Endereco
	}
	return c
}

func validateCliente(c domain.Cliente) error {
	verr := &domain.ValidationError{}
	if c.Nome == "" {
		verr.Add("nome", "nome e obrigatorio")
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		verr.Add("email", "email invalido")
	}
	if c.Tipo != domain.ClientePessoaFisica && c.Tipo != domain.ClientePessoaJuridica {
		verr.Add("tipo", "tipo deve ser pessoa_fisica ou pessoa_juridica")
	}
	switch c.Tipo {
	case domain.ClientePessoaFisica:
		if len(c.Documento) != 11 {
			verr.Add("documento", "cpf deve ter 11 digitos")
		}
	case domain.ClientePessoaJuridica:
		if len(c.Documento) != 14 {
			verr.Add("documento", "cnpj deve ter 14 digitos")
		}
	}
	return verr.OrNil()
}

func (s *Service) CreateCliente(ctx context.Context, identity domain.Identity, in ClienteInput) (domain.Cliente, error) {
	if !s.CanManageProjects(identity) {
		return domain.Cliente{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	c := in.apply(domain.Cliente{})
	if err := validateCliente(c); err != nil {
		return domain.Cliente{}, err
	}
	created, err := s.repo.CreateCliente(ctx, c)
	if err != nil {
		return domain.Cliente{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "cliente.criado", "cliente", created.ID, nil)
	return created, nil
}

func (s *Service) GetCliente(ctx context.Context, identity domain.Identity, id string) (domain.Cliente, error) {
	if !s.CanManageProjects(identity) {
		return domain.Cliente{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.GetCliente(ctx, id)
}

func (s *Service) ListClientes(ctx context.Context, identity domain.Identity, query string, limit int) ([]domain.Cliente, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.repo.ListClientes(ctx, query, limit)
}

func (s *Service) UpdateCliente(ctx context.Context, identity domain.Identity, id string, in ClienteInput) (domain.Cliente, error) {
	if !s.CanManageProjects(identity) {
		return domain.Cliente{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	current, err := s.repo.GetCliente(ctx, id)
	if err != nil {
		return domain.Cliente{}, err
	}
	merged := in.apply(current)
	if err := validateCliente(merged); err != nil {
		return domain.Cliente{}, err
	}
	updated, err := s.repo.SaveCliente(ctx, merged)
	if err != nil {
		return domain.Cliente{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "cliente.atualizado", "cliente", id, nil)
	return updated, nil
}

func (s *Service) DeleteCliente(ctx context.Context, identity domain.Identity, id string) error {
	if !s.CanManageProjects(identity) {
		return domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if err := s.repo.DeleteCliente(ctx, id); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "cliente.removido", "cliente", id, nil)
	return nil
}

type PrestadorInput struct {
	Nome          *string  `json:"nome"`
	Email         *string  `json:"email"`
	Telefone      *string  `json:"telefone"`
	Documento     *string  `json:"documento"`
	Especialidade *string  `json:"especialidade"`
	ValorHora     *float64 `json:"valorHora"`
	Disponivel    *bool    `json:"disponivel"`
	Avaliacao     *float64 `json:"avaliacao"`
}

func (in PrestadorInput) apply(p domain.Prestador) domain.Prestador {
	if in.Nome != nil {
		p.Nome = *in.Nome
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.Telefone != nil {
		p.Telefone = *in.Telefone
	}
	if in.Documento != nil {
		p.Documento = *in.Documento
	}
	if in.Especialidade != nil {
		p.Especialidade = *in.Especialidade
	}
	if in.ValorHora != nil {
		p.ValorHora = in.ValorHora
	}
	if in.Disponivel != nil {
		p.Disponivel = *in.Disponivel
	}
	if in.Avaliacao != nil {
		p.Avaliacao = in.Avaliacao
	}
	return p
}

func validatePrestador(p domain.Prestador) error {
	verr := &domain.ValidationError{}
	if p.Nome == "" {
		verr.Add("nome", "nome e obrigatorio")
	}
	if !emailPattern.MatchString(strings.TrimSpace(p.Email)) {
		verr.Add("email", "email invalido")
	}
	if p.ValorHora != nil && !validMoney(*p.ValorHora) {
		verr.Add("valorHora", "valor hora deve ser nao negativo com ate duas casas decimais")
	}
	if p.Avaliacao != nil && (*p.Avaliacao < 0 || *p.Avaliacao > 5) {
		verr.Add("avaliacao", "avaliacao deve estar entre 0 e 5")
	}
	return verr.OrNil()
}

func (s *Service) CreatePrestador(ctx context.Context, identity domain.Identity, in PrestadorInput) (domain.Prestador, error) {
	if !s.CanManageProjects(identity) {
		return domain.Prestador{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	p := in.apply(domain.Prestador{Disponivel: true})
	if err := validatePrestador(p); err != nil {
		return domain.Prestador{}, err
	}
	created, err := s.repo.CreatePrestador(ctx, p)
	if err != nil {
		return domain.Prestador{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "prestador.criado", "prestador", created.ID, nil)
	return created, nil
}

func (s *Service) GetPrestador(ctx context.Context, identity domain.Identity, id string) (domain.Prestador, error) {
	if !s.CanManageProjects(identity) {
		return domain.Prestador{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.GetPrestador(ctx, id)
}

func (s *Service) ListPrestadores(ctx context.Context, identity domain.Identity, query string, limit int) ([]domain.Prestador, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.repo.ListPrestadores(ctx, query, limit)
}

func (s *Service) UpdatePrestador(ctx context.Context, identity domain.Identity, id string, in PrestadorInput) (domain.Prestador, error) {
	if !s.CanManageProjects(identity) {
		return domain.Prestador{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	current, err := s.repo.GetPrestador(ctx, id)
	if err != nil {
		return domain.Prestador{}, err
	}
	merged := in.apply(current)
	if err := validatePrestador(merged); err != nil {
		return domain.Prestador{}, err
	}
	updated, err := s.repo.SavePrestador(ctx, merged)
	if err != nil {
		return domain.Prestador{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "prestador.atualizado", "prestador", id, nil)
	return updated, nil
}

func (s *Service) DeletePrestador(ctx context.Context, identity domain.Identity, id string) error {
	if !s.CanManageProjects(identity) {
		return domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if err := s.repo.DeletePrestador(ctx, id); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "prestador.removido", "prestador", id, nil)
	return nil
}

func (s *Service) NotifyUser(ctx context.Context, userID, titulo, mensagem, tipo string) (domain.Notificacao, error) {
	verr := &domain.ValidationError{}
	if userID == "" {
		verr.Add("userId", "usuario e obrigatorio")
	}
	if titulo == "" {
		verr.Add("titulo", "titulo e obrigatorio")
	}
	if mensagem == "" {
		verr.Add("mensagem", "mensagem e obrigatoria")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Notificacao{}, err
	}
	if tipo == "" {
		tipo = "info"
	}
	return s.repo.CreateNotificacao(ctx, domain.Notificacao{
		UserID:    userID,
		Titulo:    titulo,
		Mensagem:  mensagem,
		Tipo:      tipo,
		DataEnvio: s.now().UTC(),
	})
}

func (s *Service) ListNotificacoes(ctx context.Context, identity domain.Identity, onlyUnread bool) ([]domain.Notificacao, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.ListNotificacoes(ctx, identity.User.ID, onlyUnread)
}

func (s *Service) MarkNotificacaoLida(ctx context.Context, identity domain.Identity, id string) (domain.Notificacao, error) {
	if !s.CanManageProjects(identity) {
		return domain.Notificacao{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	owner := identity.User.ID
	if identity.User.Role == domain.RoleAdmin {
		owner = ""
	}
	return s.repo.MarkNotificacaoLida(ctx, id, owner)
}
