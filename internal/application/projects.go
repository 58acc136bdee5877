package application

import (
	"context"
	"strconv"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type ProjetoInput struct {
	Nome             *string  `json:"nome"`
	DataInicio       *Date    `json:"datainicio"`
	DataEncerramento *Date    `json:"dataencerramento"`
	Valor            *float64 `json:"valor"`
	Situacao         *string  `json:"situacao"`
}

// apply merges the provided fields onto the record; absent fields keep their
// stored value.
func (in ProjetoInput) apply(p domain.Projeto) (domain.Projeto, error) {
	if in.Nome != nil {
		p.Nome = *in.Nome
	}
	if in.DataInicio != nil {
		p.DataInicio = in.DataInicio.Time
	}
	if in.DataEncerramento != nil {
		p.DataEncerramento = in.DataEncerramento.Time
	}
	if in.Valor != nil {
		p.Valor = *in.Valor
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseProjectStatus(*in.Situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return p, verr
		}
		p.Situacao = situacao
	}
	return p, nil
}

func validateProjeto(p domain.Projeto) error {
	verr := &domain.ValidationError{}
	if p.Nome == "" {
		verr.Add("nome", "nome e obrigatorio")
	}
	if len(p.Nome) > 200 {
		verr.Add("nome", "nome excede 200 caracteres")
	}
	if p.DataInicio.IsZero() {
		verr.Add("datainicio", "data de inicio e obrigatoria")
	}
	if p.DataEncerramento.IsZero() {
		verr.Add("dataencerramento", "data de encerramento e obrigatoria")
	}
	if !p.DataInicio.IsZero() && !p.DataEncerramento.IsZero() && p.DataEncerramento.Before(p.DataInicio) {
		verr.Add("dataencerramento", "data de encerramento anterior a data de inicio")
	}
	if !validMoney(p.Valor) {
		verr.Add("valor", "valor deve ser nao negativo com ate duas casas decimais")
	}
	if !p.Situacao.Valid() {
		verr.Add("situacao", "situacao invalida")
	}
	return verr.OrNil()
}

func (s *Service) CreateProjeto(ctx context.Context, identity domain.Identity, in ProjetoInput) (domain.Projeto, error) {
	if !s.CanManageProjects(identity) {
		return domain.Projeto{}, domain.NewUnauthorized("sem permissao para criar projetos")
	}
	p := domain.Projeto{Situacao: domain.ProjectPlanning}
	p, err := in.apply(p)
	if err != nil {
		return domain.Projeto{}, err
	}
	if err := validateProjeto(p); err != nil {
		return domain.Projeto{}, err
	}
	created, err := s.repo.CreateProjeto(ctx, p)
	if err != nil {
		return domain.Projeto{}, err
	}
	_, _ = s.repo.UpsertUserProject(ctx, domain.UserProject{
		UserID:     identity.User.ID,
		CodProjeto: created.CodProjeto,
		Role:       domain.ProjectRoleOwner,
	})
	s.WriteActivity(ctx, identity.User.ID, "projeto.criado", "projeto", strconv.Itoa(created.CodProjeto), map[string]any{"nome": created.Nome})
	return created, nil
}

func (s *Service) GetProjeto(ctx context.Context, identity domain.Identity, codProjeto int) (domain.Projeto, error) {
	if !s.Can(identity, ActionRead, codProjeto) {
		return domain.Projeto{}, domain.NewUnauthorized("sem acesso ao projeto")
	}
	return s.repo.GetProjeto(ctx, codProjeto)
}

func (s *Service) ListProjetos(ctx context.Context, identity domain.Identity, situacao *string) ([]domain.Projeto, error) {
	var filter *domain.ProjectStatus
	if situacao != nil && *situacao != "" {
		parsed, err := domain.ParseProjectStatus(*situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return nil, verr
		}
		filter = &parsed
	}
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.ListProjetos(ctx, filter)
}

// ListProjetosWithStats returns the dashboard listing: dependent counts,
// contracted totals and the schedule progress computed against the clock.
func (s *Service) ListProjetosWithStats(ctx context.Context, identity domain.Identity) ([]domain.ProjetoWithStats, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	rows, err := s.repo.ListProjetosWithStats(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	result := make([]domain.ProjetoWithStats, 0, len(rows))
	for _, row := range rows {
		row.Progresso = domain.Progress(row.DataInicio, row.DataEncerramento, now)
		if row.Situacao == domain.ProjectCompleted {
			row.Progresso = 100
		}
		result = append(result, row)
	}
	return result, nil
}

func (s *Service) UpdateProjeto(ctx context.Context, identity domain.Identity, codProjeto int, in ProjetoInput) (domain.Projeto, error) {
	if !s.Can(identity, ActionWrite, codProjeto) {
		return domain.Projeto{}, domain.NewUnauthorized("sem permissao para alterar o projeto")
	}
	current, err := s.repo.GetProjeto(ctx, codProjeto)
	if err != nil {
		return domain.Projeto{}, err
	}
	merged, err := in.apply(current)
	if err != nil {
		return domain.Projeto{}, err
	}
	merged = s.applyProjetoTransition(current, merged)
	if err := validateProjeto(merged); err != nil {
		return domain.Projeto{}, err
	}
	updated, err := s.repo.SaveProjeto(ctx, merged)
	if err != nil {
		return domain.Projeto{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "projeto.atualizado", "projeto", strconv.Itoa(codProjeto), nil)
	return updated, nil
}

// applyProjetoTransition stamps closure on completion: a project marked
// concluded has its end date set to today, whether that pulls the planned
// date back or pushes it forward, so the record shows when work actually
// ended and the computed progress reads 100. The stamp is skipped only when
// today still precedes the start date, which the schema forbids as an end
// date.
func (s *Service) applyProjetoTransition(current, merged domain.Projeto) domain.Projeto {
	if merged.Situacao != domain.ProjectCompleted || current.Situacao == domain.ProjectCompleted {
		return merged
	}
	now := s.now().UTC()
	if !now.Before(merged.DataInicio) {
		merged.DataEncerramento = now
	}
	return merged
}

func (s *Service) DeleteProjeto(ctx context.Context, identity domain.Identity, codProjeto int) error {
	if !s.Can(identity, ActionDelete, codProjeto) {
		return domain.NewUnauthorized("sem permissao para remover o projeto")
	}
	count, err := s.repo.CountRequisicoesByProjeto(ctx, codProjeto)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewConflict("projeto", "possui requisicoes vinculadas")
	}
	if err := s.repo.DeleteProjeto(ctx, codProjeto); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "projeto.removido", "projeto", strconv.Itoa(codProjeto), nil)
	return nil
}
