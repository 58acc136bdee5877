package application

import (
	"context"
	"strconv"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type RequisicaoInput struct {
	CodProjeto      *int     `json:"codprojeto"`
	Descricao       *string  `json:"descricao"`
	DataSolicitacao *Date    `json:"datasolicitacao"`
	DataLimite      *Date    `json:"datalimite"`
	Valor           *float64 `json:"valor"`
	Situacao        *string  `json:"situacao"`
}

func (in RequisicaoInput) apply(r domain.Requisicao) (domain.Requisicao, error) {
	if in.CodProjeto != nil {
		r.CodProjeto = *in.CodProjeto
	}
	if in.Descricao != nil {
		r.Descricao = *in.Descricao
	}
	if in.DataSolicitacao != nil {
		r.DataSolicitacao = in.DataSolicitacao.Time
	}
	if in.DataLimite != nil {
		r.DataLimite = in.DataLimite.Time
	}
	if in.Valor != nil {
		r.Valor = *in.Valor
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseRequisitionStatus(*in.Situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return r, verr
		}
		r.Situacao = situacao
	}
	return r, nil
}

func validateRequisicao(r domain.Requisicao) error {
	verr := &domain.ValidationError{}
	if r.CodProjeto <= 0 {
		verr.Add("codprojeto", "projeto e obrigatorio")
	}
	if r.Descricao == "" {
		verr.Add("descricao", "descricao e obrigatoria")
	}
	if len(r.Descricao) > 500 {
		verr.Add("descricao", "descricao excede 500 caracteres")
	}
	if r.DataSolicitacao.IsZero() {
		verr.Add("datasolicitacao", "data de solicitacao e obrigatoria")
	}
	if r.DataLimite.IsZero() {
		verr.Add("datalimite", "data limite e obrigatoria")
	}
	if !r.DataSolicitacao.IsZero() && !r.DataLimite.IsZero() && r.DataLimite.Before(r.DataSolicitacao) {
		verr.Add("datalimite", "data limite anterior a data de solicitacao")
	}
	if !validMoney(r.Valor) {
		verr.Add("valor", "valor deve ser nao negativo com ate duas casas decimais")
	}
	if !r.Situacao.Valid() {
		verr.Add("situacao", "situacao invalida")
	}
	return verr.OrNil()
}

func (s *Service) CreateRequisicao(ctx context.Context, identity domain.Identity, in RequisicaoInput) (domain.Requisicao, error) {
	r := domain.Requisicao{Situacao: domain.RequisitionOpen}
	r, err := in.apply(r)
	if err != nil {
		return domain.Requisicao{}, err
	}
	if !s.Can(identity, ActionWrite, r.CodProjeto) {
		return domain.Requisicao{}, domain.NewUnauthorized("sem permissao para criar requisicoes no projeto")
	}
	if err := validateRequisicao(r); err != nil {
		return domain.Requisicao{}, err
	}
	if _, err := s.repo.GetProjeto(ctx, r.CodProjeto); err != nil {
		return domain.Requisicao{}, err
	}
	created, err := s.repo.CreateRequisicao(ctx, r)
	if err != nil {
		return domain.Requisicao{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "requisicao.criada", "requisicao", strconv.Itoa(created.CodRequisicao), map[string]any{"codprojeto": r.CodProjeto})
	return created, nil
}

func (s *Service) GetRequisicao(ctx context.Context, identity domain.Identity, codRequisicao int) (domain.Requisicao, error) {
	if !s.CanManageProjects(identity) {
		return domain.Requisicao{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.GetRequisicao(ctx, codRequisicao)
}

func (s *Service) ListRequisicoes(ctx context.Context, identity domain.Identity, codProjeto *int) ([]domain.Requisicao, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.ListRequisicoes(ctx, codProjeto)
}

func (s *Service) UpdateRequisicao(ctx context.Context, identity domain.Identity, codRequisicao int, in RequisicaoInput) (domain.Requisicao, error) {
	current, err := s.repo.GetRequisicao(ctx, codRequisicao)
	if err != nil {
		return domain.Requisicao{}, err
	}
	if !s.Can(identity, ActionWrite, current.CodProjeto) {
		return domain.Requisicao{}, domain.NewUnauthorized("sem permissao para alterar a requisicao")
	}
	merged, err := in.apply(current)
	if err != nil {
		return domain.Requisicao{}, err
	}
	if err := validateRequisicao(merged); err != nil {
		return domain.Requisicao{}, err
	}
	if merged.CodProjeto != current.CodProjeto {
		if _, err := s.repo.GetProjeto(ctx, merged.CodProjeto); err != nil {
			return domain.Requisicao{}, err
		}
	}
	updated, err := s.repo.SaveRequisicao(ctx, merged)
	if err != nil {
		return domain.Requisicao{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "requisicao.atualizada", "requisicao", strconv.Itoa(codRequisicao), nil)
	return updated, nil
}

func (s *Service) DeleteRequisicao(ctx context.Context, identity domain.Identity, codRequisicao int) error {
	current, err := s.repo.GetRequisicao(ctx, codRequisicao)
	if err != nil {
		return err
	}
	if !s.Can(identity, ActionDelete, current.CodProjeto) {
		return domain.NewUnauthorized("sem permissao para remover a requisicao")
	}
	count, err := s.repo.CountOrdensByRequisicao(ctx, codRequisicao)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewConflict("requisicao", "possui ordens vinculadas")
	}
	if err := s.repo.DeleteRequisicao(ctx, codRequisicao); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "requisicao.removida", "requisicao", strconv.Itoa(codRequisicao), nil)
	return nil
}
