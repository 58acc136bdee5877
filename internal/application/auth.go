package application

import (
	"context"
	"strings"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"github.com/google/uuid"
)

const (
	verificationTokenTTL = 15 * time.Minute
	DefaultSessionTTL    = 30 * 24 * time.Hour
)

// StartLogin issues a single-use verification token for the e-mail. The
// token goes out through a delivery channel this layer does not own; the
// caller receives it to hand off. An unknown e-mail gets a user created on
// the spot.
func (s *Service) StartLogin(ctx context.Context, email string) (domain.VerificationToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		verr := &domain.ValidationError{}
		verr.Add("email", "email invalido")
		return domain.VerificationToken{}, verr
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err != nil {
		if !domain.IsNotFound(err) {
			return domain.VerificationToken{}, err
		}
		role := domain.RoleUser
		count, err := s.repo.CountUsers(ctx)
		if err != nil {
			return domain.VerificationToken{}, err
		}
		// First account in becomes the administrator.
		if count == 0 {
			role = domain.RoleAdmin
		}
		if _, err := s.repo.CreateUser(ctx, domain.User{Email: email, Role: role}); err != nil {
			return domain.VerificationToken{}, err
		}
	}

	token, err := s.repo.CreateVerificationToken(ctx, domain.VerificationToken{
		Identifier: email,
		Token:      uuid.NewString(),
		Expires:    s.now().UTC().Add(verificationTokenTTL),
	})
	if err != nil {
		return domain.VerificationToken{}, err
	}
	s.WriteActivity(ctx, "", "auth.login.iniciado", "usuario", email, nil)
	return token, nil
}

// CompleteLogin redeems a verification token and opens a session. The first
// successful login verifies the e-mail.
func (s *Service) CompleteLogin(ctx context.Context, email, token string, ttl time.Duration) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	vt, err := s.repo.ConsumeVerificationToken(ctx, email, token)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.User{}, "", domain.NewUnauthorized("token invalido")
		}
		return domain.User{}, "", err
	}
	now := s.now().UTC()
	if now.After(vt.Expires) {
		return domain.User{}, "", domain.NewUnauthorized("token expirado")
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", err
	}
	if u.EmailVerified == nil {
		u.EmailVerified = &now
		if u, err = s.repo.SaveUser(ctx, u); err != nil {
			return domain.User{}, "", err
		}
	}
	if err := s.ensureAccountLink(ctx, u); err != nil {
		return domain.User{}, "", err
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	sessionToken, err := newSessionToken()
	if err != nil {
		return domain.User{}, "", domain.NewInternal(err)
	}
	if _, err := s.repo.CreateSession(ctx, domain.Session{
		SessionToken: sessionToken,
		UserID:       u.ID,
		Expires:      now.Add(ttl),
	}); err != nil {
		return domain.User{}, "", err
	}
	s.WriteActivity(ctx, u.ID, "auth.login.concluido", "usuario", u.ID, nil)
	return u, sessionToken, nil
}

// AuthenticateSession resolves a session token into the caller identity.
// Expired sessions are discarded on sight.
func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, domain.NewUnauthorized("")
	}
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return domain.Identity{}, domain.NewUnauthorized("")
	}
	if session.Expired(s.now().UTC()) {
		_ = s.repo.DeleteSession(ctx, token)
		return domain.Identity{}, domain.NewUnauthorized("sessao expirada")
	}
	return s.identityByUserID(ctx, session.UserID)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

// ensureAccountLink keeps one provider row per user for the e-mail flow, so
// the accounts table stays the source of truth for how each user signs in.
func (s *Service) ensureAccountLink(ctx context.Context, u domain.User) error {
	if _, err := s.repo.GetAccountByProvider(ctx, "email", u.Email); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}
	_, err := s.repo.LinkAccount(ctx, domain.Account{
		UserID:            u.ID,
		Type:              "email",
		Provider:          "email",
		ProviderAccountID: u.Email,
	})
	return err
}

func (s *Service) identityByUserID(ctx context.Context, userID string) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, domain.NewUnauthorized("")
	}
	memberships, err := s.repo.ListUserProjects(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{User: u, Memberships: memberships}, nil
}

func (s *Service) ListUsers(ctx context.Context, identity domain.Identity, query string, limit int) ([]domain.User, error) {
	if identity.User.Role != domain.RoleAdmin {
		return nil, domain.NewUnauthorized("apenas administradores listam usuarios")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	return s.repo.ListUsers(ctx, query, limit)
}

func (s *Service) SetUserRole(ctx context.Context, identity domain.Identity, userID string, role domain.UserRole) (domain.User, error) {
	if identity.User.Role != domain.RoleAdmin {
		return domain.User{}, domain.NewUnauthorized("apenas administradores alteram papeis")
	}
	if !role.Valid() {
		verr := &domain.ValidationError{}
		verr.Add("role", "papel invalido")
		return domain.User{}, verr
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = role
	updated, err := s.repo.SaveUser(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "usuario.papel.alterado", "usuario", userID, map[string]any{"role": string(role)})
	return updated, nil
}

type ProfileInput struct {
	Bio      *string `json:"bio"`
	Company  *string `json:"company"`
	Location *string `json:"location"`
	Website  *string `json:"website"`
	Theme    *string `json:"theme"`
}

func (s *Service) GetProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, identity.User.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Profile{UserID: identity.User.ID, Theme: domain.ThemeSystem}, nil
		}
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, identity domain.Identity, in ProfileInput) (domain.Profile, error) {
	current, err := s.GetProfile(ctx, identity)
	if err != nil {
		return domain.Profile{}, err
	}
	if in.Bio != nil {
		current.Bio = *in.Bio
	}
	if in.Company != nil {
		current.Company = *in.Company
	}
	if in.Location != nil {
		current.Location = *in.Location
	}
	if in.Website != nil {
		current.Website = *in.Website
	}
	if in.Theme != nil {
		theme := domain.Theme(*in.Theme)
		if !theme.Valid() {
			verr := &domain.ValidationError{}
			verr.Add("theme", "tema deve ser light, dark ou system")
			return domain.Profile{}, verr
		}
		current.Theme = theme
	}
	updated, err := s.repo.SaveProfile(ctx, current)
	if err != nil {
		return domain.Profile{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "perfil.atualizado", "usuario", identity.User.ID, nil)
	return updated, nil
}
