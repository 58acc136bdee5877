package gormdb

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func (r *Repository) CreateCliente(ctx context.Context, value domain.Cliente) (domain.Cliente, error) {
	endereco, err := marshalEndereco(value.Endereco)
	if err != nil {
		return domain.Cliente{}, err
	}
	m := ClienteModel{
		ID:        value.ID,
		Nome:      value.Nome,
		Email:     strings.ToLower(strings.TrimSpace(value.Email)),
		Telefone:  value.Telefone,
		Documento: value.Documento,
		Tipo:      value.Tipo,
		Endereco:  datatypes.JSON(endereco),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Cliente{}, translate(err, "cliente", value.Email)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetCliente(ctx context.Context, id string) (domain.Cliente, error) {
	var m ClienteModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return domain.Cliente{}, translate(err, "cliente", id)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListClientes(ctx context.Context, query string, limit int) ([]domain.Cliente, error) {
	q := r.db.WithContext(ctx).Model(&ClienteModel{})
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("nome LIKE ? OR email LIKE ?", like, like)
	}
	rows := make([]ClienteModel, 0)
	if err := q.Order("nome ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "cliente", "")
	}
	result := make([]domain.Cliente, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveCliente(ctx context.Context, value domain.Cliente) (domain.Cliente, error) {
	endereco, err := marshalEndereco(value.Endereco)
	if err != nil {
		return domain.Cliente{}, err
	}
	m := ClienteModel{
		Nome:      value.Nome,
		Email:     strings.ToLower(strings.TrimSpace(value.Email)),
		Telefone:  value.Telefone,
		Documento: value.Documento,
		Tipo:      value.Tipo,
		Endereco:  datatypes.JSON(endereco),
	}
	err = r.db.WithContext(ctx).Model(&ClienteModel{}).
		Where("id = ?", value.ID).
		Select("nome", "email", "telefone", "documento", "tipo", "endereco", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Cliente{}, translate(err, "cliente", value.ID)
	}
	return r.GetCliente(ctx, value.ID)
}

func (r *Repository) DeleteCliente(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ClienteModel{})
	if res.Error != nil {
		return translate(res.Error, "cliente", id)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("cliente", id)
	}
	return nil
}

func marshalEndereco(value *domain.Endereco) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, domain.NewInternal(err)
	}
	return raw, nil
}

func (r *Repository) CreatePrestador(ctx context.Context, value domain.Prestador) (domain.Prestador, error) {
	m := PrestadorModel{
		ID:            value.ID,
		Nome:          value.Nome,
		Email:         strings.ToLower(strings.TrimSpace(value.Email)),
		Telefone:      value.Telefone,
		Documento:     value.Documento,
		Especialidade: value.Especialidade,
		ValorHora:     value.ValorHora,
		Disponivel:    value.Disponivel,
		Avaliacao:     value.Avaliacao,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Prestador{}, translate(err, "prestador", value.Email)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetPrestador(ctx context.Context, id string) (domain.Prestador, error) {
	var m PrestadorModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return domain.Prestador{}, translate(err, "prestador", id)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListPrestadores(ctx context.Context, query string, limit int) ([]domain.Prestador, error) {
	q := r.db.WithContext(ctx).Model(&PrestadorModel{})
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("nome LIKE ? OR especialidade LIKE ?", like, like)
	}
	rows := make([]PrestadorModel, 0)
	if err := q.Order("nome ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "prestador", "")
	}
	result := make([]domain.Prestador, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SavePrestador(ctx context.Context, value domain.Prestador) (domain.Prestador, error) {
	m := PrestadorModel{
		Nome:          value.Nome,
		Email:         strings.ToLower(strings.TrimSpace(value.Email)),
		Telefone:      value.Telefone,
		Documento:     value.Documento,
		Especialidade: value.Especialidade,
		ValorHora:     value.ValorHora,
		Disponivel:    value.Disponivel,
		Avaliacao:     value.Avaliacao,
	}
	err := r.db.WithContext(ctx).Model(&PrestadorModel{}).
		Where("id = ?", value.ID).
		Select("nome", "email", "telefone", "documento", "especialidade",
			"valor_hora", "disponivel", "avaliacao", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.Prestador{}, translate(err, "prestador", value.ID)
	}
	return r.GetPrestador(ctx, value.ID)
}

func (r *Repository) DeletePrestador(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PrestadorModel{})
	if res.Error != nil {
		return translate(res.Error, "prestador", id)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("prestador", id)
	}
	return nil
}

func (r *Repository) CreateNotificacao(ctx context.Context, value domain.Notificacao) (domain.Notificacao, error) {
	m := NotificacaoModel{
		ID:        value.ID,
		UserID:    value.UserID,
		Titulo:    value.Titulo,
		Mensagem:  value.Mensagem,
		Tipo:      value.Tipo,
		Lida:      value.Lida,
		DataEnvio: value.DataEnvio,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.DataEnvio.IsZero() {
		m.DataEnvio = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Notificacao{}, translate(err, "notificacao", value.UserID)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListNotificacoes(ctx context.Context, userID string, onlyUnread bool) ([]domain.Notificacao, error) {
	q := r.db.WithContext(ctx).Model(&NotificacaoModel{}).Where("user_id = ?", userID)
	if onlyUnread {
		q = q.Where("lida = ?", false)
	}
	rows := make([]NotificacaoModel, 0)
	if err := q.Order("data_envio DESC").Find(&rows).Error; err != nil {
		return nil, translate(err, "notificacao", userID)
	}
	result := make([]domain.Notificacao, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

// MarkNotificacaoLida flips the read flag. A non-empty userID restricts the
// update to that user's notifications.
func (r *Repository) MarkNotificacaoLida(ctx context.Context, id, userID string) (domain.Notificacao, error) {
	q := r.db.WithContext(ctx).Model(&NotificacaoModel{}).Where("id = ?", id)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Update("lida", true)
	if res.Error != nil {
		return domain.Notificacao{}, translate(res.Error, "notificacao", id)
	}
	if res.RowsAffected == 0 {
		return domain.Notificacao{}, domain.NewNotFound("notificacao", id)
	}
	var m NotificacaoModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return domain.Notificacao{}, translate(err, "notificacao", id)
	}
	return m.toDomain(), nil
}
