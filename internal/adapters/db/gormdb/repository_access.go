package gormdb

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		ID:            value.ID,
		Name:          strings.TrimSpace(value.Name),
		Email:         strings.ToLower(strings.TrimSpace(value.Email)),
		EmailVerified: value.EmailVerified,
		Image:         value.Image,
		Role:          string(value.Role),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Role == "" {
		m.Role = string(domain.RoleUser)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, translate(err, "usuario", value.Email)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return domain.User{}, translate(err, "usuario", id)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).First(&m, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return domain.User{}, translate(err, "usuario", email)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	q := r.db.WithContext(ctx).Model(&UserModel{})
	if strings.TrimSpace(query) != "" {
		like := "%" + strings.TrimSpace(query) + "%"
		q = q.Where("email LIKE ? OR name LIKE ?", like, like)
	}
	rows := make([]UserModel, 0)
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "usuario", "")
	}
	result := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) SaveUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		Name:          strings.TrimSpace(value.Name),
		Email:         strings.ToLower(strings.TrimSpace(value.Email)),
		EmailVerified: value.EmailVerified,
		Image:         value.Image,
		Role:          string(value.Role),
	}
	err := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", value.ID).
		Select("name", "email", "email_verified", "image", "role", "updated_at").
		Updates(&m).Error
	if err != nil {
		return domain.User{}, translate(err, "usuario", value.ID)
	}
	return r.GetUserByID(ctx, value.ID)
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, translate(err, "usuario", "")
}

func (r *Repository) LinkAccount(ctx context.Context, value domain.Account) (domain.Account, error) {
	m := AccountModel{
		Provider:          value.Provider,
		ProviderAccountID: value.ProviderAccountID,
		UserID:            value.UserID,
		Type:              value.Type,
		RefreshToken:      value.RefreshToken,
		AccessToken:       value.AccessToken,
		ExpiresAt:         value.ExpiresAt,
		TokenType:         value.TokenType,
		Scope:             value.Scope,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Account{}, translate(err, "conta", value.Provider)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (domain.Account, error) {
	var m AccountModel
	err := r.db.WithContext(ctx).
		First(&m, "provider = ? AND provider_account_id = ?", provider, providerAccountID).Error
	if err != nil {
		return domain.Account{}, translate(err, "conta", provider)
	}
	return m.toDomain(), nil
}

func (r *Repository) CreateSession(ctx context.Context, value domain.Session) (domain.Session, error) {
	m := SessionModel{SessionToken: value.SessionToken, UserID: value.UserID, Expires: value.Expires}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Session{}, translate(err, "sessao", value.UserID)
	}
	return domain.Session{SessionToken: m.SessionToken, UserID: m.UserID, Expires: m.Expires}, nil
}

func (r *Repository) GetSession(ctx context.Context, sessionToken string) (domain.Session, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).First(&m, "session_token = ?", sessionToken).Error; err != nil {
		return domain.Session{}, translate(err, "sessao", "")
	}
	return domain.Session{SessionToken: m.SessionToken, UserID: m.UserID, Expires: m.Expires}, nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionToken string) error {
	err := r.db.WithContext(ctx).Where("session_token = ?", sessionToken).Delete(&SessionModel{}).Error
	return translate(err, "sessao", "")
}

func (r *Repository) DeleteSessionsByUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&SessionModel{}).Error
	return translate(err, "sessao", userID)
}

func (r *Repository) CreateVerificationToken(ctx context.Context, value domain.VerificationToken) (domain.VerificationToken, error) {
	m := VerificationTokenModel{
		Identifier: strings.ToLower(strings.TrimSpace(value.Identifier)),
		Token:      value.Token,
		Expires:    value.Expires,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.VerificationToken{}, translate(err, "token de verificacao", value.Identifier)
	}
	return domain.VerificationToken{Identifier: m.Identifier, Token: m.Token, Expires: m.Expires}, nil
}

// ConsumeVerificationToken deletes the token as it reads it so a token can
// only be redeemed once.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, identifier, token string) (domain.VerificationToken, error) {
	var m VerificationTokenModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, "identifier = ? AND token = ?", strings.ToLower(strings.TrimSpace(identifier)), token).Error; err != nil {
			return err
		}
		return tx.Where("identifier = ? AND token = ?", m.Identifier, m.Token).
			Delete(&VerificationTokenModel{}).Error
	})
	if err != nil {
		return domain.VerificationToken{}, translate(err, "token de verificacao", identifier)
	}
	return domain.VerificationToken{Identifier: m.Identifier, Token: m.Token, Expires: m.Expires}, nil
}

func (r *Repository) GetProfileByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	var m ProfileModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return domain.Profile{}, translate(err, "perfil", userID)
	}
	return m.toDomain(), nil
}

func (r *Repository) SaveProfile(ctx context.Context, value domain.Profile) (domain.Profile, error) {
	m := ProfileModel{
		ID:       value.ID,
		UserID:   value.UserID,
		Bio:      value.Bio,
		Company:  value.Company,
		Location: value.Location,
		Website:  value.Website,
		Theme:    string(value.Theme),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Theme == "" {
		m.Theme = string(domain.ThemeSystem)
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", value.UserID).
		Assign(map[string]any{
			"bio":      m.Bio,
			"company":  m.Company,
			"location": m.Location,
			"website":  m.Website,
			"theme":    m.Theme,
		}).
		FirstOrCreate(&m).Error
	if err != nil {
		return domain.Profile{}, translate(err, "perfil", value.UserID)
	}
	return r.GetProfileByUserID(ctx, value.UserID)
}

func (r *Repository) UpsertUserProject(ctx context.Context, value domain.UserProject) (domain.UserProject, error) {
	perms, err := json.Marshal(value.Permissions)
	if err != nil {
		return domain.UserProject{}, domain.NewInternal(err)
	}
	m := UserProjectModel{
		ID:          value.ID,
		UserID:      value.UserID,
		CodProjeto:  value.CodProjeto,
		Role:        string(value.Role),
		Permissions: datatypes.JSON(perms),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND codprojeto = ?", value.UserID, value.CodProjeto).
		Assign(map[string]any{"role": m.Role, "permissions": m.Permissions}).
		FirstOrCreate(&m).Error
	if err != nil {
		return domain.UserProject{}, translate(err, "vinculo de projeto", value.UserID)
	}
	return m.toDomain(), nil
}

func (r *Repository) ListUserProjects(ctx context.Context, userID string) ([]domain.UserProject, error) {
	rows := make([]UserProjectModel, 0)
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("codprojeto ASC").Find(&rows).Error
	if err != nil {
		return nil, translate(err, "vinculo de projeto", userID)
	}
	result := make([]domain.UserProject, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) ListProjectMembers(ctx context.Context, codProjeto int) ([]domain.UserProject, error) {
	rows := make([]UserProjectModel, 0)
	err := r.db.WithContext(ctx).Where("codprojeto = ?", codProjeto).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, translate(err, "vinculo de projeto", codProjeto)
	}
	result := make([]domain.UserProject, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) DeleteUserProject(ctx context.Context, userID string, codProjeto int) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND codprojeto = ?", userID, codProjeto).
		Delete(&UserProjectModel{})
	if res.Error != nil {
		return translate(res.Error, "vinculo de projeto", userID)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFound("vinculo de projeto", userID)
	}
	return nil
}

func (r *Repository) CreateActivityLog(ctx context.Context, value domain.ActivityLog) error {
	meta, err := json.Marshal(value.Metadata)
	if err != nil {
		return domain.NewInternal(err)
	}
	m := ActivityLogModel{
		ID:         value.ID,
		UserID:     value.UserID,
		Action:     value.Action,
		Resource:   value.Resource,
		ResourceID: value.ResourceID,
		Metadata:   datatypes.JSON(meta),
		IP:         value.IP,
		UserAgent:  value.UserAgent,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error, "registro de atividade", value.Action)
}

func (r *Repository) ListActivityLogs(ctx context.Context, userID string, limit int) ([]domain.ActivityLog, error) {
	q := r.db.WithContext(ctx).Model(&ActivityLogModel{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	rows := make([]ActivityLogModel, 0)
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "registro de atividade", "")
	}
	result := make([]domain.ActivityLog, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

// touchSessionWindow is used by tests to shift expirations around without
// going through the service clock.
func (r *Repository) touchSessionWindow(ctx context.Context, sessionToken string, expires time.Time) error {
	return r.db.WithContext(ctx).Model(&SessionModel{}).
		Where("session_token = ?", sessionToken).
		Update("expires", expires).Error
}
