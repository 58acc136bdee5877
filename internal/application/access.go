package application

import (
	"context"
	"slices"
	"strconv"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

// Project-scoped actions. Roles carry explicit action sets; there is no
// ordering between roles beyond what these sets say.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionDelete  = "delete"
	ActionMembers = "members"
)

var roleActions = map[domain.ProjectRole][]string{
	domain.ProjectRoleViewer:  {ActionRead},
	domain.ProjectRoleEditor:  {ActionRead, ActionWrite},
	domain.ProjectRoleManager: {ActionRead, ActionWrite, ActionDelete},
	domain.ProjectRoleOwner:   {ActionRead, ActionWrite, ActionDelete, ActionMembers},
}

// Can decides whether the caller may perform the action on the project.
// Admins may do anything; reads are open to every authenticated user; other
// actions need a membership whose role or explicit permission list grants
// the action.
func (s *Service) Can(identity domain.Identity, action string, codProjeto int) bool {
	if identity.User.ID == "" {
		return false
	}
	if identity.User.Role == domain.RoleAdmin {
		return true
	}
	if action == ActionRead {
		return true
	}
	membership, ok := identity.Membership(codProjeto)
	if !ok {
		return false
	}
	if slices.Contains(membership.Permissions, action) {
		return true
	}
	return slices.Contains(roleActions[membership.Role], action)
}

// CanManageProjects gates project creation, open to any authenticated user;
// the creator becomes owner of the new project.
func (s *Service) CanManageProjects(identity domain.Identity) bool {
	return identity.User.ID != ""
}

type MembershipInput struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (s *Service) GrantMembership(ctx context.Context, identity domain.Identity, codProjeto int, in MembershipInput) (domain.UserProject, error) {
	if !s.Can(identity, ActionMembers, codProjeto) {
		return domain.UserProject{}, domain.NewUnauthorized("sem permissao para gerenciar membros")
	}
	verr := &domain.ValidationError{}
	if in.UserID == "" {
		verr.Add("userId", "usuario e obrigatorio")
	}
	role := domain.ProjectRole(in.Role)
	if !role.Valid() {
		verr.Add("role", "papel invalido")
	}
	if err := verr.OrNil(); err != nil {
		return domain.UserProject{}, err
	}
	if _, err := s.repo.GetUserByID(ctx, in.UserID); err != nil {
		return domain.UserProject{}, err
	}
	if _, err := s.repo.GetProjeto(ctx, codProjeto); err != nil {
		return domain.UserProject{}, err
	}
	grant, err := s.repo.UpsertUserProject(ctx, domain.UserProject{
		UserID:      in.UserID,
		CodProjeto:  codProjeto,
		Role:        role,
		Permissions: in.Permissions,
	})
	if err != nil {
		return domain.UserProject{}, err
	}
	s.WriteActivity(ctx, identity.User.ID, "membro.concedido", "projeto", strconv.Itoa(codProjeto), map[string]any{
		"userId": in.UserID,
		"role":   in.Role,
	})
	return grant, nil
}

func (s *Service) RevokeMembership(ctx context.Context, identity domain.Identity, codProjeto int, userID string) error {
	if !s.Can(identity, ActionMembers, codProjeto) {
		return domain.NewUnauthorized("sem permissao para gerenciar membros")
	}
	if err := s.repo.DeleteUserProject(ctx, userID, codProjeto); err != nil {
		return err
	}
	s.WriteActivity(ctx, identity.User.ID, "membro.revogado", "projeto", strconv.Itoa(codProjeto), map[string]any{"userId": userID})
	return nil
}

func (s *Service) ListProjectMembers(ctx context.Context, identity domain.Identity, codProjeto int) ([]domain.UserProject, error) {
	if !s.Can(identity, ActionRead, codProjeto) {
		return nil, domain.NewUnauthorized("sem acesso ao projeto")
	}
	return s.repo.ListProjectMembers(ctx, codProjeto)
}
