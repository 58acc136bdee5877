package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/application"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookieName = "ct_session"

type contextKey string

const identityKey contextKey = "identity"

type Handler struct {
	service *application.Service
}

func NewRouter(service *application.Service) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()
	r.Use(requestMetrics)
	r.Use(requestMetadata)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login/start", h.handleStartLogin)
		api.Post("/auth/login/complete", h.handleCompleteLogin)
		api.With(h.requireAuth).Post("/auth/logout", h.handleLogout)
		api.With(h.requireAuth).Get("/auth/whoami", h.handleWhoAmI)

		api.With(h.requireAuth).Get("/perfil", h.handleGetProfile)
		api.With(h.requireAuth).Put("/perfil", h.handleUpdateProfile)

		api.With(h.requireAuth).Get("/usuarios", h.handleListUsers)
		api.With(h.requireAuth).Put("/usuarios/{userID}/papel", h.handleSetUserRole)
		api.With(h.requireAuth).Get("/atividades", h.handleListActivityLogs)

		api.With(h.requireAuth).Get("/dashboard", h.handleDashboard)

		api.With(h.requireAuth).Get("/projetos", h.handleListProjetos)
		api.With(h.requireAuth).Post("/projetos", h.handleCreateProjeto)
		api.With(h.requireAuth).Get("/projetos/stats", h.handleListProjetosStats)
		api.With(h.requireAuth).Get("/projetos/resumo", h.handleProjectsSummary)
		api.With(h.requireAuth).Get("/projetos/{codProjeto}", h.handleGetProjeto)
		api.With(h.requireAuth).Put("/projetos/{codProjeto}", h.handleUpdateProjeto)
		api.With(h.requireAuth).Delete("/projetos/{codProjeto}", h.handleDeleteProjeto)
		api.With(h.requireAuth).Get("/projetos/{codProjeto}/membros", h.handleListMembers)
		api.With(h.requireAuth).Post("/projetos/{codProjeto}/membros", h.handleGrantMembership)
		api.With(h.requireAuth).Delete("/projetos/{codProjeto}/membros/{userID}", h.handleRevokeMembership)

		api.With(h.requireAuth).Get("/requisicoes", h.handleListRequisicoes)
		api.With(h.requireAuth).Post("/requisicoes", h.handleCreateRequisicao)
		api.With(h.requireAuth).Get("/requisicoes/{codRequisicao}", h.handleGetRequisicao)
		api.With(h.requireAuth).Put("/requisicoes/{codRequisicao}", h.handleUpdateRequisicao)
		api.With(h.requireAuth).Delete("/requisicoes/{codRequisicao}", h.handleDeleteRequisicao)

		api.With(h.requireAuth).Get("/ordens", h.handleListOrdens)
		api.With(h.requireAuth).Post("/ordens", h.handleCreateOrdem)
		api.With(h.requireAuth).Get("/ordens/{codOrdem}", h.handleGetOrdem)
		api.With(h.requireAuth).Put("/ordens/{codOrdem}", h.handleUpdateOrdem)
		api.With(h.requireAuth).Delete("/ordens/{codOrdem}", h.handleDeleteOrdem)
		api.With(h.requireAuth).Get("/ordens/{codOrdem}/itens", h.handleListItensOrdem)
		api.With(h.requireAuth).Post("/ordens/{codOrdem}/itens", h.handleAddItemOrdem)
		api.With(h.requireAuth).Put("/ordens/{codOrdem}/itens/{codItem}", h.handleUpdateItemOrdem)
		api.With(h.requireAuth).Delete("/ordens/{codOrdem}/itens/{codItem}", h.handleDeleteItemOrdem)

		api.With(h.requireAuth).Get("/contratos", h.handleListContratos)
		api.With(h.requireAuth).Post("/contratos", h.handleCreateContrato)
		api.With(h.requireAuth).Get("/contratos/{numero}/{ano}", h.handleGetContrato)
		api.With(h.requireAuth).Put("/contratos/{numero}/{ano}", h.handleUpdateContrato)
		api.With(h.requireAuth).Delete("/contratos/{numero}/{ano}", h.handleDeleteContrato)
		api.With(h.requireAuth).Get("/contratos/{numero}/{ano}/parcelas", h.handleListParcelas)
		api.With(h.requireAuth).Post("/contratos/{numero}/{ano}/parcelas/{codLancamento}/pagamento", h.handleRegisterPagamento)

		api.With(h.requireAuth).Get("/clientes", h.handleListClientes)
		api.With(h.requireAuth).Post("/clientes", h.handleCreateCliente)
		api.With(h.requireAuth).Get("/clientes/{id}", h.handleGetCliente)
		api.With(h.requireAuth).Put("/clientes/{id}", h.handleUpdateCliente)
		api.With(h.requireAuth).Delete("/clientes/{id}", h.handleDeleteCliente)

		api.With(h.requireAuth).Get("/prestadores", h.handleListPrestadores)
		api.With(h.requireAuth).Post("/prestadores", h.handleCreatePrestador)
		api.With(h.requireAuth).Get("/prestadores/{id}", h.handleGetPrestador)
		api.With(h.requireAuth).Put("/prestadores/{id}", h.handleUpdatePrestador)
		api.With(h.requireAuth).Delete("/prestadores/{id}", h.handleDeletePrestador)

		api.With(h.requireAuth).Get("/notificacoes", h.handleListNotificacoes)
		api.With(h.requireAuth).Post("/notificacoes", h.handleNotifyUser)
		api.With(h.requireAuth).Post("/notificacoes/{id}/lida", h.handleMarkNotificacaoLida)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type startLoginRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleStartLogin(w http.ResponseWriter, r *http.Request) {
	var req startLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	token, err := h.service.StartLogin(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type completeLoginRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *Handler) handleCompleteLogin(w http.ResponseWriter, r *http.Request) {
	var req completeLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	user, sessionToken, err := h.service.CompleteLogin(r.Context(), req.Email, req.Token, application.DefaultSessionTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSessionCookie(w, sessionToken)
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": sessionToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		_ = h.service.Logout(r.Context(), token)
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          identity.User.ID,
		"email":       identity.User.Email,
		"role":        identity.User.Role,
		"memberships": identity.Memberships,
	})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	profile, err := h.service.UpdateProfile(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), identity, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type setUserRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var req setUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	user, err := h.service.SetUserRole(r.Context(), identity, chi.URLParam(r, "userID"), domain.UserRole(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListActivityLogs(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	logs, err := h.service.ListActivityLogs(r.Context(), identity, r.URL.Query().Get("user_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListProjetos(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var situacao *string
	if raw := strings.TrimSpace(r.URL.Query().Get("situacao")); raw != "" {
		situacao = &raw
	}
	list, err := h.service.ListProjetos(r.Context(), identity, situacao)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListProjetosStats(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	list, err := h.service.ListProjetosWithStats(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleProjectsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ProjectsSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCreateProjeto(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ProjetoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreateProjeto(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetProjeto(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.service.GetProjeto(r.Context(), identity, cod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateProjeto(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.ProjetoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdateProjeto(r.Context(), identity, cod, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteProjeto(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteProjeto(r.Context(), identity, cod); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.service.ListProjectMembers(r.Context(), identity, cod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) handleGrantMembership(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.MembershipInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	member, err := h.service.GrantMembership(r.Context(), identity, cod, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) handleRevokeMembership(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codProjeto")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RevokeMembership(r.Context(), identity, cod, chi.URLParam(r, "userID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListRequisicoes(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	codProjeto, err := queryIntPtr(r, "codprojeto")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.service.ListRequisicoes(r.Context(), identity, codProjeto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateRequisicao(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.RequisicaoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreateRequisicao(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetRequisicao(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codRequisicao")
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.service.GetRequisicao(r.Context(), identity, cod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleUpdateRequisicao(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codRequisicao")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.RequisicaoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdateRequisicao(r.Context(), identity, cod, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteRequisicao(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codRequisicao")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteRequisicao(r.Context(), identity, cod); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListOrdens(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	codRequisicao, err := queryIntPtr(r, "codrequisicao")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.service.ListOrdens(r.Context(), identity, codRequisicao)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.OrdemInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreateOrdem(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.GetOrdem(r.Context(), identity, cod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleUpdateOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.OrdemInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdateOrdem(r.Context(), identity, cod, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteOrdem(r.Context(), identity, cod); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListItensOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	itens, err := h.service.ListItensOrdem(r.Context(), identity, cod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itens)
}

func (h *Handler) handleAddItemOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.ItemOrdemInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	item, err := h.service.AddItemOrdem(r.Context(), identity, cod, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateItemOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	codItem, err := urlParamInt(r, "codItem")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.ItemOrdemInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	item, err := h.service.UpdateItemOrdem(r.Context(), identity, cod, codItem, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItemOrdem(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	cod, err := urlParamInt(r, "codOrdem")
	if err != nil {
		writeError(w, err)
		return
	}
	codItem, err := urlParamInt(r, "codItem")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteItemOrdem(r.Context(), identity, cod, codItem); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListContratos(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	codOrdem, err := queryIntPtr(r, "codordem")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.service.ListContratos(r.Context(), identity, codOrdem)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateContrato(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ContratoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreateContrato(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetContrato(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	c, err := h.service.GetContrato(r.Context(), identity, contratoParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateContrato(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ContratoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdateContrato(r.Context(), identity, contratoParam(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteContrato(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	if err := h.service.DeleteContrato(r.Context(), identity, contratoParam(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListParcelas(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	parcelas, err := h.service.ListParcelas(r.Context(), identity, contratoParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parcelas)
}

func (h *Handler) handleRegisterPagamento(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	codLancamento, err := urlParamInt(r, "codLancamento")
	if err != nil {
		writeError(w, err)
		return
	}
	var in application.PagamentoInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	parcela, err := h.service.RegisterPagamento(r.Context(), identity, contratoParam(r), codLancamento, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parcela)
}

func (h *Handler) handleListClientes(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.service.ListClientes(r.Context(), identity, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateCliente(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ClienteInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreateCliente(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetCliente(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	c, err := h.service.GetCliente(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateCliente(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.ClienteInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdateCliente(r.Context(), identity, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteCliente(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	if err := h.service.DeleteCliente(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListPrestadores(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.service.ListPrestadores(r.Context(), identity, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreatePrestador(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.PrestadorInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	created, err := h.service.CreatePrestador(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetPrestador(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	p, err := h.service.GetPrestador(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdatePrestador(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var in application.PrestadorInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	updated, err := h.service.UpdatePrestador(r.Context(), identity, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeletePrestador(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	if err := h.service.DeletePrestador(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListNotificacoes(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	onlyUnread := r.URL.Query().Get("unread") == "true"
	list, err := h.service.ListNotificacoes(r.Context(), identity, onlyUnread)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type notifyUserRequest struct {
	UserID   string `json:"userId"`
	Titulo   string `json:"titulo"`
	Mensagem string `json:"mensagem"`
	Tipo     string `json:"tipo"`
}

func (h *Handler) handleNotifyUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	if identity.User.Role != domain.RoleAdmin {
		writeError(w, domain.NewUnauthorized("apenas administradores enviam notificacoes"))
		return
	}
	var req notifyUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	n, err := h.service.NotifyUser(r.Context(), req.UserID, req.Titulo, req.Mensagem, req.Tipo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleMarkNotificacaoLida(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	n, err := h.service.MarkNotificacaoLida(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.authenticateRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	token := requestToken(r)
	if token == "" {
		return domain.Identity{}, false
	}
	identity, err := h.service.AuthenticateSession(r.Context(), token)
	if err != nil {
		return domain.Identity{}, false
	}
	return identity, true
}

// requestMetadata hands the caller's address and user agent to the
// application layer for the audit trail.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		ctx := application.WithRequestMeta(r.Context(), application.RequestMeta{
			IP:        ip,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestToken pulls the session token from the Authorization header,
// falling back to the session cookie.
func requestToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[7:]); token != "" {
			return token
		}
	}
	c, err := r.Cookie(sessionCookieName)
	if err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(identityKey)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// contratoParam joins the two path segments of a contract number back into
// the nnnn/aaaa form used as its key.
func contratoParam(r *http.Request) string {
	return chi.URLParam(r, "numero") + "/" + chi.URLParam(r, "ano")
}

func urlParamInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	value, err := strconv.Atoi(raw)
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add(name, fmt.Sprintf("%s deve ser um inteiro", name))
		return 0, verr
	}
	return value, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add(name, fmt.Sprintf("%s deve ser um inteiro", name))
		return 0, verr
	}
	return value, nil
}

func queryIntPtr(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add(name, fmt.Sprintf("%s deve ser um inteiro", name))
		return nil, verr
	}
	return &value, nil
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// logFailure keeps every failure, with its cause, in the server log. The
// response body only ever carries the safe message.
func logFailure(err error) {
	var ierr *domain.InternalError
	if errors.As(err, &ierr) && ierr.Err != nil {
		log.Printf("internal failure: %v", ierr.Err)
		return
	}
	log.Printf("request failed: %v", err)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Validation
// responses carry the per-field detail; internal failures never leak their
// cause.
func writeError(w http.ResponseWriter, err error) {
	logFailure(err)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "campos": verr.Fields})
		return
	}
	switch {
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case domain.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case domain.IsUnauthorized(err):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}
