package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/SeltikHD/contratos-timbu/internal/application"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

type Server struct {
	service  *application.Service
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.Service) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	// Callers arrive over the local socket; the audit trail records that
	// instead of a network address.
	ctx := application.WithRequestMeta(context.Background(), application.RequestMeta{IP: "unix"})

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.login.start":
		var p struct {
			Email string `json:"email"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		token, err := s.service.StartLogin(ctx, p.Email)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, token)
	case "auth.login.complete":
		var p struct {
			Email string `json:"email"`
			Token string `json:"token"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		u, sessionToken, err := s.service.CompleteLogin(ctx, p.Email, p.Token, application.DefaultSessionTTL)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"user": u, "token": sessionToken})
	case "auth.logout":
		var p struct {
			Token string `json:"token"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.Logout(ctx, p.Token); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "auth.whoami":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		return result(req.ID, map[string]any{"id": identity.User.ID, "email": identity.User.Email, "role": identity.User.Role})
	case "dashboard.stats":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.DashboardStats(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string  `json:"token"`
			Situacao *string `json:"situacao"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListProjetos(ctx, identity, p.Situacao)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.stats":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.ListProjetosWithStats(ctx, identity)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.resumo":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.ProjectsSummary(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.ProjetoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateProjeto(ctx, identity, p.ProjetoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.get":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetProjeto(ctx, identity, p.CodProjeto)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.update":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
			application.ProjetoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateProjeto(ctx, identity, p.CodProjeto, p.ProjetoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.delete":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteProjeto(ctx, identity, p.CodProjeto); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "projetos.membros.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListProjectMembers(ctx, identity, p.CodProjeto)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.membros.grant":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
			application.MembershipInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GrantMembership(ctx, identity, p.CodProjeto, p.MembershipInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "projetos.membros.revoke":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto int    `json:"codprojeto"`
			UserID     string `json:"userId"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.RevokeMembership(ctx, identity, p.CodProjeto, p.UserID); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "requisicoes.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token      string `json:"token"`
			CodProjeto *int   `json:"codprojeto"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListRequisicoes(ctx, identity, p.CodProjeto)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "requisicoes.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.RequisicaoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateRequisicao(ctx, identity, p.RequisicaoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "requisicoes.get":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token         string `json:"token"`
			CodRequisicao int    `json:"codrequisicao"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetRequisicao(ctx, identity, p.CodRequisicao)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "requisicoes.update":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token         string `json:"token"`
			CodRequisicao int    `json:"codrequisicao"`
			application.RequisicaoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateRequisicao(ctx, identity, p.CodRequisicao, p.RequisicaoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "requisicoes.delete":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token         string `json:"token"`
			CodRequisicao int    `json:"codrequisicao"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteRequisicao(ctx, identity, p.CodRequisicao); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "ordens.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token         string `json:"token"`
			CodRequisicao *int   `json:"codrequisicao"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListOrdens(ctx, identity, p.CodRequisicao)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.OrdemInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateOrdem(ctx, identity, p.OrdemInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.get":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetOrdem(ctx, identity, p.CodOrdem)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.update":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
			application.OrdemInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateOrdem(ctx, identity, p.CodOrdem, p.OrdemInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.delete":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteOrdem(ctx, identity, p.CodOrdem); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "ordens.itens.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListItensOrdem(ctx, identity, p.CodOrdem)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.itens.add":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
			application.ItemOrdemInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.AddItemOrdem(ctx, identity, p.CodOrdem, p.ItemOrdemInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.itens.update":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
			CodItem  int    `json:"coditem"`
			application.ItemOrdemInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateItemOrdem(ctx, identity, p.CodOrdem, p.CodItem, p.ItemOrdemInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "ordens.itens.delete":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem int    `json:"codordem"`
			CodItem  int    `json:"coditem"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteItemOrdem(ctx, identity, p.CodOrdem, p.CodItem); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "contratos.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token    string `json:"token"`
			CodOrdem *int   `json:"codordem"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListContratos(ctx, identity, p.CodOrdem)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "contratos.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.ContratoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateContrato(ctx, identity, p.ContratoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "contratos.get":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token       string `json:"token"`
			NumContrato string `json:"numcontrato"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetContrato(ctx, identity, p.NumContrato)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "contratos.update":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token       string `json:"token"`
			NumContrato string `json:"numcontrato"`
			application.ContratoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateContrato(ctx, identity, p.NumContrato, p.ContratoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "contratos.delete":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token       string `json:"token"`
			NumContrato string `json:"numcontrato"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteContrato(ctx, identity, p.NumContrato); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "contratos.parcelas.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token       string `json:"token"`
			NumContrato string `json:"numcontrato"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListParcelas(ctx, identity, p.NumContrato)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "contratos.pagamento":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token         string `json:"token"`
			NumContrato   string `json:"numcontrato"`
			CodLancamento int    `json:"codlancamento"`
			application.PagamentoInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.RegisterPagamento(ctx, identity, p.NumContrato, p.CodLancamento, p.PagamentoInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "clientes.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			Q     string `json:"q"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListClientes(ctx, identity, p.Q, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "clientes.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.ClienteInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateCliente(ctx, identity, p.ClienteInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "prestadores.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			Q     string `json:"q"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListPrestadores(ctx, identity, p.Q, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "prestadores.create":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			application.PrestadorInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreatePrestador(ctx, identity, p.PrestadorInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "notificacoes.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token  string `json:"token"`
			Unread bool   `json:"unread"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListNotificacoes(ctx, identity, p.Unread)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "notificacoes.lida":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			ID    string `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.MarkNotificacaoLida(ctx, identity, p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "usuarios.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			Q     string `json:"q"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListUsers(ctx, identity, p.Q, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "usuarios.papel":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token  string `json:"token"`
			UserID string `json:"userId"`
			Role   string `json:"role"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SetUserRole(ctx, identity, p.UserID, domain.UserRole(p.Role))
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "atividades.list":
		identity, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token  string `json:"token"`
			UserID string `json:"userId"`
			Limit  int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListActivityLogs(ctx, identity, p.UserID, p.Limit)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) authz(ctx context.Context, req request) (domain.Identity, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Identity{}, invalidParams(req.ID), false
	}
	identity, err := s.service.AuthenticateSession(ctx, p.Token)
	if err != nil {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "unauthorized"}, ID: req.ID}, false
	}
	return identity, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, payload any) response {
	return response{JSONRPC: "2.0", Result: payload, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

// appError keeps the HTTP status taxonomy recognizable in RPC error codes:
// 40000 validation, 40100 unauthorized, 40400 not found, 40900 conflict.
// Every failure lands in the server log with its cause; only the safe
// message crosses the socket.
func appError(id any, err error) response {
	logFailure(err)
	code := 50000
	message := "internal error"
	switch {
	case domain.IsValidation(err):
		code = 40000
		message = err.Error()
	case domain.IsUnauthorized(err):
		code = 40100
		message = err.Error()
	case domain.IsNotFound(err):
		code = 40400
		message = err.Error()
	case domain.IsConflict(err):
		code = 40900
		message = err.Error()
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message}, ID: id}
}

func logFailure(err error) {
	var ierr *domain.InternalError
	if errors.As(err, &ierr) && ierr.Err != nil {
		log.Printf("internal failure: %v", ierr.Err)
		return
	}
	log.Printf("request failed: %v", err)
}
