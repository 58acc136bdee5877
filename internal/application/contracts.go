package application

import (
	"context"
	"fmt"
	"math"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type ContratoInput struct {
	NumContrato        *string  `json:"numcontrato"`
	CodOrdem           *int     `json:"codordem"`
	Descricao          *string  `json:"descricao"`
	CpfCnpj            *string  `json:"cpfcnpj"`
	Contratado         *string  `json:"contratado"`
	TipoPessoa         *int     `json:"tipopessoa"`
	DataInicio         *Date    `json:"datainicio"`
	DataFim            *Date    `json:"datafim"`
	Valor              *float64 `json:"valor"`
	Parcelas           *int     `json:"parcelas"`
	DataParcelaInicial *Date    `json:"dataparcelainicial"`
	Situacao           *string  `json:"situacao"`
}

func (in ContratoInput) apply(c domain.Contrato) (domain.Contrato, error) {
	if in.NumContrato != nil {
		c.NumContrato = *in.NumContrato
	}
	if in.CodOrdem != nil {
		c.CodOrdem = *in.CodOrdem
	}
	if in.Descricao != nil {
		c.Descricao = *in.Descricao
	}
	if in.CpfCnpj != nil {
		c.CpfCnpj = *in.CpfCnpj
	}
	if in.Contratado != nil {
		c.Contratado = *in.Contratado
	}
	if in.TipoPessoa != nil {
		c.TipoPessoa = *in.TipoPessoa
	}
	if in.DataInicio != nil {
		c.DataInicio = in.DataInicio.Time
	}
	if in.DataFim != nil {
		c.DataFim = in.DataFim.Time
	}
	if in.Valor != nil {
		c.Valor = *in.Valor
	}
	if in.Parcelas != nil {
		c.Parcelas = *in.Parcelas
	}
	if in.DataParcelaInicial != nil {
		c.DataParcelaInicial = in.DataParcelaInicial.Time
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseContractStatus(*in.Situacao)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("situacao", "situacao invalida")
			return c, verr
		}
		c.Situacao = situacao
	}
	return c, nil
}

func validateContrato(c domain.Contrato) error {
	verr := &domain.ValidationError{}
	if !numContratoPattern.MatchString(c.NumContrato) {
		verr.Add("numcontrato", "numero deve seguir o formato 9999/9999")
	}
	if c.CodOrdem <= 0 {
		verr.Add("codordem", "ordem e obrigatoria")
	}
	if c.Descricao == "" {
		verr.Add("descricao", "descricao e obrigatoria")
	}
	if len(c.Descricao) > 500 {
		verr.Add("descricao", "descricao excede 500 caracteres")
	}
	if !cpfCnpjPattern.MatchString(c.CpfCnpj) {
		verr.Add("cpfcnpj", "cpf/cnpj deve ter exatamente 14 digitos")
	}
	if c.Contratado == "" {
		verr.Add("contratado", "contratado e obrigatorio")
	}
	if len(c.Contratado) > 150 {
		verr.Add("contratado", "contratado excede 150 caracteres")
	}
	if c.TipoPessoa != domain.TipoPessoaFisica && c.TipoPessoa != domain.TipoPessoaJuridica {
		verr.Add("tipopessoa", "tipo de pessoa deve ser 1 ou 2")
	}
	if c.DataInicio.IsZero() {
		verr.Add("datainicio", "data de inicio e obrigatoria")
	}
	if c.DataFim.IsZero() {
		verr.Add("datafim", "data de fim e obrigatoria")
	}
	if !c.DataInicio.IsZero() && !c.DataFim.IsZero() && c.DataFim.Before(c.DataInicio) {
		verr.Add("datafim", "data de fim anterior a data de inicio")
	}
	if !validMoney(c.Valor) {
		verr.Add("valor", "valor deve ser nao negativo com ate duas casas decimais")
	}
	if c.Parcelas < 1 {
		verr.Add("parcelas", "numero de parcelas deve ser no minimo 1")
	}
	if c.DataParcelaInicial.IsZero() {
		verr.Add("dataparcelainicial", "data da primeira parcela e obrigatoria")
	}
	if !c.Situacao.Valid() {
		verr.Add("situacao", "situacao invalida")
	}
	return verr.OrNil()
}

// buildParcelas splits the contract value into monthly installments. Each
// installment is rounded to cents and the last one absorbs the remainder so
// the schedule sums exactly to the contract value.
func (s *Service) buildParcelas(c domain.Contrato) []domain.ItemContrato {
	today := s.now().UTC()
	base := math.Floor(c.Valor/float64(c.Parcelas)*100) / 100
	parcelas := make([]domain.ItemContrato, 0, c.Parcelas)
	for i := 0; i < c.Parcelas; i++ {
		valor := base
		if i == c.Parcelas-1 {
			valor = math.Round((c.Valor-base*float64(c.Parcelas-1))*100) / 100
		}
		parcelas = append(parcelas, domain.ItemContrato{
			DataLancamento: today,
			NumParcela:     i + 1,
			ValorParcela:   valor,
			DataVencimento: c.DataParcelaInicial.AddDate(0, i, 0),
			Situacao:       domain.InstallmentOpen,
		})
	}
	return parcelas
}

// CreateContrato validates the contract, checks the order exists and has no
// contract yet, and writes the contract with its generated installment
// schedule atomically.
func (s *Service) CreateContrato(ctx context.Context, identity domain.Identity, in ContratoInput) (domain.Contrato, error) {
	c := domain.Contrato{Situacao: domain.ContractPending}
	c, err := in.apply(c)
	if err != nil {
		return domain.Contrato{}, err
	}
	if err := validateContrato(c); err != nil {
		return domain.Contrato{}, err
	}
	ordem, err := s.repo.GetOrdem(ctx, c.CodOrdem)
	if err != nil {
		return domain.Contrato{}, err
	}
	req, err := s.repo.GetRequisicao(ctx, ordem.CodRequisicao)
	if err != nil {
		return domain.Contrato{}, err
	}
	if !s.Can(identity, ActionWrite, req.CodProjeto) {
		return domain.Contrato{}, domain.NewUnauthorized("sem permissao para criar contratos no projeto")
	}
	taken, err := s.repo.HasContratoForOrdem(ctx, c.CodOrdem)
	if err != nil {
		return domain.Contrato{}, err
	}
	if taken {
		return domain.Contrato{}, domain.NewConflict("contrato", "ordem ja possui contrato")
	}
	created, err := s.repo.CreateContrato(ctx, c, s.buildParcelas(c))
	if err != nil {
		return domain.Contrato{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "contrato.criado", "contrato", created.NumContrato, map[string]any{"codordem": c.CodOrdem})
	return created, nil
}

func (s *Service) GetContrato(ctx context.Context, identity domain.Identity, numContrato string) (domain.Contrato, error) {
	if !s.CanManageProjects(identity) {
		return domain.Contrato{}, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.GetContrato(ctx, numContrato)
}

func (s *Service) ListContratos(ctx context.Context, identity domain.Identity, codOrdem *int) ([]domain.Contrato, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	return s.repo.ListContratos(ctx, codOrdem)
}

func (s *Service) UpdateContrato(ctx context.Context, identity domain.Identity, numContrato string, in ContratoInput) (domain.Contrato, error) {
	current, err := s.repo.GetContrato(ctx, numContrato)
	if err != nil {
		return domain.Contrato{}, err
	}
	if err := s.requireContratoWrite(ctx, identity, current); err != nil {
		return domain.Contrato{}, err
	}
	merged, err := in.apply(current)
	if err != nil {
		return domain.Contrato{}, err
	}
	// The contract number is the key; it does not change on update.
	merged.NumContrato = current.NumContrato
	if err := validateContrato(merged); err != nil {
		return domain.Contrato{}, err
	}
	if merged.CodOrdem != current.CodOrdem {
		if _, err := s.repo.GetOrdem(ctx, merged.CodOrdem); err != nil {
			return domain.Contrato{}, err
		}
		taken, err := s.repo.HasContratoForOrdem(ctx, merged.CodOrdem)
		if err != nil {
			return domain.Contrato{}, err
		}
		if taken {
			return domain.Contrato{}, domain.NewConflict("contrato", "ordem ja possui contrato")
		}
	}
	updated, err := s.repo.SaveContrato(ctx, merged)
	if err != nil {
		return domain.Contrato{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "contrato.atualizado", "contrato", numContrato, nil)
	return updated, nil
}

// DeleteContrato removes the contract and its installments atomically.
func (s *Service) DeleteContrato(ctx context.Context, identity domain.Identity, numContrato string) error {
	current, err := s.repo.GetContrato(ctx, numContrato)
	if err != nil {
		return err
	}
	ordem, err := s.repo.GetOrdem(ctx, current.CodOrdem)
	if err != nil {
		return err
	}
	req, err := s.repo.GetRequisicao(ctx, ordem.CodRequisicao)
	if err != nil {
		return err
	}
	if !s.Can(identity, ActionDelete, req.CodProjeto) {
		return domain.NewUnauthorized("sem permissao para remover o contrato")
	}
	if err := s.repo.DeleteContrato(ctx, numContrato); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "contrato.removido", "contrato", numContrato, nil)
	return nil
}

func (s *Service) requireContratoWrite(ctx context.Context, identity domain.Identity, c domain.Contrato) error {
	ordem, err := s.repo.GetOrdem(ctx, c.CodOrdem)
	if err != nil {
		return err
	}
	req, err := s.repo.GetRequisicao(ctx, ordem.CodRequisicao)
	if err != nil {
		return err
	}
	if !s.Can(identity, ActionWrite, req.CodProjeto) {
		return domain.NewUnauthorized("sem permissao para alterar o contrato")
	}
	return nil
}

func (s *Service) ListParcelas(ctx context.Context, identity domain.Identity, numContrato string) ([]domain.ItemContrato, error) {
	if !s.CanManageProjects(identity) {
		return nil, domain.NewUnauthorized("autenticacao obrigatoria")
	}
	if _, err := s.repo.GetContrato(ctx, numContrato); err != nil {
		return nil, err
	}
	return s.repo.ListItensContrato(ctx, numContrato)
}

type PagamentoInput struct {
	ValorPago     *float64 `json:"valorpago"`
	DataPagamento *Date    `json:"datapagamento"`
	Situacao      *string  `json:"situacao"`
}

// RegisterPagamento posts a payment against an installment. The status
// follows the paid amount: full coverage settles the installment and stamps
// the payment date; anything less leaves it open or partial. Asking for
// settled status without full coverage is rejected.
func (s *Service) RegisterPagamento(ctx context.Context, identity domain.Identity, numContrato string, codLancamento int, in PagamentoInput) (domain.ItemContrato, error) {
	contrato, err := s.repo.GetContrato(ctx, numContrato)
	if err != nil {
		return domain.ItemContrato{}, err
	}
	if err := s.requireContratoWrite(ctx, identity, contrato); err != nil {
		return domain.ItemContrato{}, err
	}
	current, err := s.repo.GetItemContrato(ctx, numContrato, codLancamento)
	if err != nil {
		return domain.ItemContrato{}, err
	}

	merged := current
	if in.ValorPago != nil {
		merged.ValorPago = *in.ValorPago
	}
	if in.DataPagamento != nil {
		t := in.DataPagamento.Time
		merged.DataPagamento = &t
	}

	verr := &domain.ValidationError{}
	if !validMoney(merged.ValorPago) {
		verr.Add("valorpago", "valor pago deve ser nao negativo com ate duas casas decimais")
	}
	if in.Situacao != nil {
		situacao, err := domain.ParseInstallmentStatus(*in.Situacao)
		if err != nil {
			verr.Add("situacao", "situacao invalida")
		} else {
			merged.Situacao = situacao
		}
	} else {
		switch {
		case merged.ValorPago >= merged.ValorParcela && merged.ValorParcela > 0:
			merged.Situacao = domain.InstallmentSettled
		case merged.ValorPago > 0:
			merged.Situacao = domain.InstallmentPartial
		default:
			merged.Situacao = domain.InstallmentOpen
		}
	}
	if merged.Situacao == domain.InstallmentSettled && merged.ValorPago < merged.ValorParcela {
		verr.Add("valorpago", "quitacao exige valor pago maior ou igual ao valor da parcela")
	}
	if err := verr.OrNil(); err != nil {
		return domain.ItemContrato{}, err
	}

	if merged.Situacao == domain.InstallmentSettled && merged.DataPagamento == nil {
		now := s.now().UTC()
		merged.DataPagamento = &now
	}

	updated, err := s.repo.SaveItemContrato(ctx, merged)
	if err != nil {
		return domain.ItemContrato{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "parcela.pagamento", "contrato", fmt.Sprintf("%s/%d", numContrato, codLancamento), map[string]any{
		"valorpago": merged.ValorPago,
	})
	return updated, nil
}
