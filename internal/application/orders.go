package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type OrdemInput struct {
	CodRequisicao   *int     `json:"codrequisicao"`
	Descricao       *string  `json:"descricao"`
	DataSolicitacao *Date    `json:"datasolicitacao"`
	DataLimite      *Date    `json:"datalimite"`
	Valor           *float64 `json:"valor"`
	Situacao        *string  `json:"situacao"`
}

func (in OrdemInput) apply(o domain.Ordem) (domain.Ordem, error) {
	if in.CodRequisicao != nil {
		o.CodRequisicao = *in.CodRequisicao
	}
	if in.Descricao != nil {
		o.Descricao = *in.Descricao
	}
	if in.DataSolicitacao != nil {
		o.DataSolicitacao = in.DataSolicitacao.Time
	}
	if in.DataLimite != nil {
		o.DataLimite = in.DataLimite.Time
	}
	if in.Valor != nil {
		o.Valor = *in.Valor
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseOrderStatus(*in.Situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return o, verr
		}
		o.Situacao = situacao
	}
	return o, nil
}

func validateOrdem(o domain.Ordem) error {
	verr := &domain.ValidationError{}
	if o.CodRequisicao <= 0 {
		verr.Add("codrequisicao", "requisicao e obrigatoria")
	}
	if o.Descricao == "" {
		verr.Add("descricao", "descricao e obrigatoria")
	}
	if len(o.Descricao) > 500 {
		verr.Add("descricao", "descricao excede 500 caracteres")
	}
	if o.DataSolicitacao.IsZero() {
		verr.Add("datasolicitacao", "data de solicitacao e obrigatoria")
	}
	if o.DataLimite.IsZero() {
		verr.Add("datalimite", "data limite e obrigatoria")
	}
	if !o.DataSolicitacao.IsZero() && !o.DataLimite.IsZero() && o.DataLimite.Before(o.DataSolicitacao) {
		verr.Add("datalimite", "data limite anterior a data de solicitacao")
	}
	if !validMoney(o.Valor) {
		verr.Add("valor", "valor deve ser nao negativo com ate duas casas decimais")
	}
	if !o.Situacao.Valid() {
		verr.Add("situacao", "situacao invalida")
	}
	return verr.OrNil()
}

func (s *Service) CreateOrdem(ctx context.Context, identity domain.Identity, in OrdemInput) (domain.Ordem, error) {
	o := domain.Ordem{Situacao: domain.OrderOpen}
	o, err := in.apply(o)
	if err != nil {
		return domain.Ordem{}, err
	}
	if err := validateOrdem(o); err != nil {
		return domain.Ordem{}, err
	}
	req, err := s.repo.GetRequisicao(ctx, o.CodRequisicao)
	if err != nil {
		return domain.Ordem{}, err
	}
	if !s.Can(identity, ActionWrite, req.CodProjeto) {
		return domain.Ordem{}, domain.NewUnauthorized("sem permissao para criar ordens no projeto")
	}
	created, err := s.repo.CreateOrdem(ctx, o)
	if err != nil {
		return domain.Ordem{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.criada", "ordem", strconv.Itoa(created.CodOrdem), map[string]any{"codrequisicao": o.CodRequisicao})
	return created, nil
}

func (s *Service) GetOrdem(ctx context.Context, identity domain.Identity, codOrdem int) (domain.Ordem, error) {
	if !s.CanManageProjects(identity) {
		return domain.Ordem{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.GetOrdem(ctx, codOrdem)
}

func (s *Service) ListOrdens(ctx context.Context, identity domain.Identity, codRequisicao *int) ([]domain.Ordem, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.ListOrdens(ctx, codRequisicao)
}

func (s *Service) UpdateOrdem(ctx context.Context, identity domain.Identity, codOrdem int, in OrdemInput) (domain.Ordem, error) {
	current, err := s.repo.GetOrdem(ctx, codOrdem)
	if err != nil {
		return domain.Ordem{}, err
	}
	if err := s.requireOrdemWrite(ctx, identity, current); err != nil {
		return domain.Ordem{}, err
	}
	merged, err := in.apply(current)
	if err != nil {
		return domain.Ordem{}, err
	}
	if err := validateOrdem(merged); err != nil {
		return domain.Ordem{}, err
	}
	if merged.CodRequisicao != current.CodRequisicao {
		if _, err := s.repo.GetRequisicao(ctx, merged.CodRequisicao); err != nil {
			return domain.Ordem{}, err
		}
	}
	updated, err := s.repo.SaveOrdem(ctx, merged)
	if err != nil {
		return domain.Ordem{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.atualizada", "ordem", strconv.Itoa(codOrdem), nil)
	return updated, nil
}

// DeleteOrdem removes the order and every item under it. A contract tied to
// the order blocks the removal.
func (s *Service) DeleteOrdem(ctx context.Context, identity domain.Identity, codOrdem int) error {
	current, err := s.repo.GetOrdem(ctx, codOrdem)
	if err != nil {
		return err
	}
	req, err := s.repo.GetRequisicao(ctx, current.CodRequisicao)
	if err != nil {
		return err
	}
	if !s.Can(identity, ActionDelete, req.CodProjeto) {
		return domain.NewUnauthorized("sem permissao para remover a ordem")
	}
	hasContrato, err := s.repo.HasContratoForOrdem(ctx, codOrdem)
	if err != nil {
		return err
	}
	if hasContrato {
		return domain.NewConflict("ordem", "possui contrato vinculado")
	}
	if err := s.repo.DeleteOrdem(ctx, codOrdem); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.removida", "ordem", strconv.Itoa(codOrdem), nil)
	return nil
}

func (s *Service) requireOrdemWrite(ctx context.Context, identity domain.Identity, o domain.Ordem) error {
	req, err := s.repo.GetRequisicao(ctx, o.CodRequisicao)
	if err != nil {
		return err
	}
	if !s.Can(identity, ActionWrite, req.CodProjeto) {
		return domain.NewUnauthorized("sem permissao para alterar a ordem")
	}
	return nil
}

type ItemOrdemInput struct {
	Descricao       *string  `json:"descricao"`
	DataSolicitacao *Date    `json:"datasolicitacao"`
	DataLimite      *Date    `json:"datalimite"`
	Valor           *float64 `json:"valor"`
	DataRecebido    *Date    `json:"datarecebido"`
	Situacao        *string  `json:"situacao"`
}

func (in ItemOrdemInput) apply(item domain.ItemOrdem) (domain.ItemOrdem, error) {
	if in.Descricao != nil {
		item.Descricao = *in.Descricao
	}
	if in.DataSolicitacao != nil {
		item.DataSolicitacao = in.DataSolicitacao.Time
	}
	if in.DataLimite != nil {
		item.DataLimite = in.DataLimite.Time
	}
	if in.Valor != nil {
		item.Valor = *in.Valor
	}
	if in.DataRecebido != nil {
		t := in.DataRecebido.Time
		item.DataRecebido = &t
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseItemStatus(*in.Situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return item, verr
		}
		item.Situacao = situacao
	}
	return item, nil
}

func validateItemOrdem(item domain.ItemOrdem) error {
	verr := &domain.ValidationError{}
	if item.Descricao == "" {
		verr.Add("descricao", "descricao e obrigatoria")
	}
	if item.DataSolicitacao.IsZero() {
		verr.Add("datasolicitacao", "data de solicitacao e obrigatoria")
	}
	if item.DataLimite.IsZero() {
		verr.Add("datalimite", "data limite e obrigatoria")
	}
	if !item.DataSolicitacao.IsZero() && !item.DataLimite.IsZero() && item.DataLimite.Before(item.DataSolicitacao) {
		verr.Add("datalimite", "data limite anterior a data de solicitacao")
	}
	if !validMoney(item.Valor) {
		verr.Add("valor", "valor deve ser nao negativo com ate duas casas decimais")
	}
	if !item.Situacao.Valid() {
		verr.Add("situacao", "situacao invalida")
	}
	if item.Situacao == domain.ItemReceived && item.DataRecebido == nil {
		verr.Add("datarecebido", "item recebido exige data de recebimento")
	}
	return verr.OrNil()
}

func (s *Service) AddItemOrdem(ctx context.Context, identity domain.Identity, codOrdem int, in ItemOrdemInput) (domain.ItemOrdem, error) {
	ordem, err := s.repo.GetOrdem(ctx, codOrdem)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	if err := s.requireOrdemWrite(ctx, identity, ordem); err != nil {
		return domain.ItemOrdem{}, err
	}
	item := domain.ItemOrdem{CodOrdem: codOrdem, Situacao: domain.ItemPending}
	item, err = in.apply(item)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	if err := validateItemOrdem(item); err != nil {
		return domain.ItemOrdem{}, err
	}
	created, err := s.repo.CreateItemOrdem(ctx, item)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.item.criado", "ordem", strconv.Itoa(codOrdem), map[string]any{"coditem": created.CodItem})
	return created, nil
}

func (s *Service) ListItensOrdem(ctx context.Context, identity domain.Identity, codOrdem int) ([]domain.ItemOrdem, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if _, err := s.repo.GetOrdem(ctx, codOrdem); err != nil {
		return nil, err
	}
	return s.repo.ListItensOrdem(ctx, codOrdem)
}

func (s *Service) UpdateItemOrdem(ctx context.Context, identity domain.Identity, codOrdem, codItem int, in ItemOrdemInput) (domain.ItemOrdem, error) {
	ordem, err := s.repo.GetOrdem(ctx, codOrdem)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	if err := s.requireOrdemWrite(ctx, identity, ordem); err != nil {
		return domain.ItemOrdem{}, err
	}
	current, err := s.repo.GetItemOrdem(ctx, codOrdem, codItem)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	merged, err := in.apply(current)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	merged = s.applyItemRecebimento(current, merged)
	if err := validateItemOrdem(merged); err != nil {
		return domain.ItemOrdem{}, err
	}
	updated, err := s.repo.SaveItemOrdem(ctx, merged)
	if err != nil {
		return domain.ItemOrdem{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.item.atualizado", "ordem", strconv.Itoa(codOrdem), map[string]any{"coditem": codItem})
	return updated, nil
}

// applyItemRecebimento stamps the receipt date when an item flips to
// received without one.
func (s *Service) applyItemRecebimento(current, merged domain.ItemOrdem) domain.ItemOrdem {
	if merged.Situacao == domain.ItemReceived && current.Situacao != domain.ItemReceived && merged.DataRecebido == nil {
		now := s.now().UTC()
		merged.DataRecebido = &now
	}
	return merged
}

func (s *Service) DeleteItemOrdem(ctx context.Context, identity domain.Identity, codOrdem, codItem int) error {
	ordem, err := s.repo.GetOrdem(ctx, codOrdem)
	if err != nil {
		return err
	}
	if err := s.requireOrdemWrite(ctx, identity, ordem); err != nil {
		return err
	}
	if err := s.repo.DeleteItemOrdem(ctx, codOrdem, codItem); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "ordem.item.removido", "ordem", fmt.Sprintf("%d/%d", codOrdem, codItem), nil)
	return nil
}
