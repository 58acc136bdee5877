package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

func (c cliConfig) rpc() *rpcClient { return &rpcClient{socket: c.Socket} }
func (c cliConfig) api() *apiClient { return &apiClient{base: c.Server, token: c.Token} }
func (c cliConfig) usesUDS() bool   { return c.Transport == "uds" }

func withToken(cfg cliConfig, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	params["token"] = cfg.Token
	return params
}

// contratoPath splits a "nnnn/aaaa" contract number into the two URL
// segments the REST routes expect.
func contratoPath(numero string) (string, error) {
	parts := strings.SplitN(numero, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid contract number %q, expected nnnn/aaaa", numero)
	}
	return "/api/contratos/" + url.PathEscape(parts[0]) + "/" + url.PathEscape(parts[1]), nil
}

func doLoginStart(ctx context.Context, cfg cliConfig, email string, out any) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "auth.login.start", map[string]any{"email": email}, out)
	}
	return cfg.api().request(ctx, "POST", "/api/auth/login/start", map[string]any{"email": email}, out)
}

func doLoginComplete(ctx context.Context, cfg cliConfig, email, token string, out any) error {
	params := map[string]any{"email": email, "token": token}
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "auth.login.complete", params, out)
	}
	return cfg.api().request(ctx, "POST", "/api/auth/login/complete", params, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "auth.whoami", withToken(cfg, nil), out)
	}
	return cfg.api().request(ctx, "GET", "/api/auth/whoami", nil, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "auth.logout", withToken(cfg, nil), nil)
	}
	return cfg.api().request(ctx, "POST", "/api/auth/logout", nil, nil)
}

func doDashboard(ctx context.Context, cfg cliConfig, out *domain.DashboardStats) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "dashboard.stats", withToken(cfg, nil), out)
	}
	return cfg.api().request(ctx, "GET", "/api/dashboard", nil, out)
}

func doProjetosList(ctx context.Context, cfg cliConfig, situacao string, out *[]domain.Projeto) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if situacao != "" {
			params["situacao"] = situacao
		}
		return cfg.rpc().call(ctx, "projetos.list", params, out)
	}
	path := "/api/projetos"
	if situacao != "" {
		path += "?situacao=" + url.QueryEscape(situacao)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doProjetosStats(ctx context.Context, cfg cliConfig, out *[]domain.ProjetoWithStats) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.stats", withToken(cfg, nil), out)
	}
	return cfg.api().request(ctx, "GET", "/api/projetos/stats", nil, out)
}

func doProjetosCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Projeto) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/projetos", payload, out)
}

func doProjetosGet(ctx context.Context, cfg cliConfig, cod int, out *domain.Projeto) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.get", withToken(cfg, map[string]any{"codprojeto": cod}), out)
	}
	return cfg.api().request(ctx, "GET", fmt.Sprintf("/api/projetos/%d", cod), nil, out)
}

func doProjetosUpdate(ctx context.Context, cfg cliConfig, cod int, payload map[string]any, out *domain.Projeto) error {
	if cfg.usesUDS() {
		params := withToken(cfg, payload)
		params["codprojeto"] = cod
		return cfg.rpc().call(ctx, "projetos.update", params, out)
	}
	return cfg.api().request(ctx, "PUT", fmt.Sprintf("/api/projetos/%d", cod), payload, out)
}

func doProjetosDelete(ctx context.Context, cfg cliConfig, cod int) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.delete", withToken(cfg, map[string]any{"codprojeto": cod}), nil)
	}
	return cfg.api().request(ctx, "DELETE", fmt.Sprintf("/api/projetos/%d", cod), nil, nil)
}

func doMembrosList(ctx context.Context, cfg cliConfig, cod int, out *[]domain.UserProject) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.membros.list", withToken(cfg, map[string]any{"codprojeto": cod}), out)
	}
	return cfg.api().request(ctx, "GET", fmt.Sprintf("/api/projetos/%d/membros", cod), nil, out)
}

func doMembrosGrant(ctx context.Context, cfg cliConfig, cod int, userID, role string, out *domain.UserProject) error {
	payload := map[string]any{"userId": userID, "role": role}
	if cfg.usesUDS() {
		params := withToken(cfg, payload)
		params["codprojeto"] = cod
		return cfg.rpc().call(ctx, "projetos.membros.grant", params, out)
	}
	return cfg.api().request(ctx, "POST", fmt.Sprintf("/api/projetos/%d/membros", cod), payload, out)
}

func doMembrosRevoke(ctx context.Context, cfg cliConfig, cod int, userID string) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "projetos.membros.revoke", withToken(cfg, map[string]any{"codprojeto": cod, "userId": userID}), nil)
	}
	return cfg.api().request(ctx, "DELETE", fmt.Sprintf("/api/projetos/%d/membros/%s", cod, url.PathEscape(userID)), nil, nil)
}

func doRequisicoesList(ctx context.Context, cfg cliConfig, codProjeto *int, out *[]domain.Requisicao) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if codProjeto != nil {
			params["codprojeto"] = *codProjeto
		}
		return cfg.rpc().call(ctx, "requisicoes.list", params, out)
	}
	path := "/api/requisicoes"
	if codProjeto != nil {
		path += fmt.Sprintf("?codprojeto=%d", *codProjeto)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doRequisicoesCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Requisicao) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "requisicoes.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/requisicoes", payload, out)
}

func doRequisicoesDelete(ctx context.Context, cfg cliConfig, cod int) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "requisicoes.delete", withToken(cfg, map[string]any{"codrequisicao": cod}), nil)
	}
	return cfg.api().request(ctx, "DELETE", fmt.Sprintf("/api/requisicoes/%d", cod), nil, nil)
}

func doOrdensList(ctx context.Context, cfg cliConfig, codRequisicao *int, out *[]domain.Ordem) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if codRequisicao != nil {
			params["codrequisicao"] = *codRequisicao
		}
		return cfg.rpc().call(ctx, "ordens.list", params, out)
	}
	path := "/api/ordens"
	if codRequisicao != nil {
		path += fmt.Sprintf("?codrequisicao=%d", *codRequisicao)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doOrdensCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Ordem) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "ordens.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/ordens", payload, out)
}

func doItensOrdemList(ctx context.Context, cfg cliConfig, codOrdem int, out *[]domain.ItemOrdem) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "ordens.itens.list", withToken(cfg, map[string]any{"codordem": codOrdem}), out)
	}
	return cfg.api().request(ctx, "GET", fmt.Sprintf("/api/ordens/%d/itens", codOrdem), nil, out)
}

func doItensOrdemAdd(ctx context.Context, cfg cliConfig, codOrdem int, payload map[string]any, out *domain.ItemOrdem) error {
	if cfg.usesUDS() {
		params := withToken(cfg, payload)
		params["codordem"] = codOrdem
		return cfg.rpc().call(ctx, "ordens.itens.add", params, out)
	}
	return cfg.api().request(ctx, "POST", fmt.Sprintf("/api/ordens/%d/itens", codOrdem), payload, out)
}

func doItensOrdemUpdate(ctx context.Context, cfg cliConfig, codOrdem, codItem int, payload map[string]any, out *domain.ItemOrdem) error {
	if cfg.usesUDS() {
		params := withToken(cfg, payload)
		params["codordem"] = codOrdem
		params["coditem"] = codItem
		return cfg.rpc().call(ctx, "ordens.itens.update", params, out)
	}
	return cfg.api().request(ctx, "PUT", fmt.Sprintf("/api/ordens/%d/itens/%d", codOrdem, codItem), payload, out)
}

func doContratosList(ctx context.Context, cfg cliConfig, codOrdem *int, out *[]domain.Contrato) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if codOrdem != nil {
			params["codordem"] = *codOrdem
		}
		return cfg.rpc().call(ctx, "contratos.list", params, out)
	}
	path := "/api/contratos"
	if codOrdem != nil {
		path += fmt.Sprintf("?codordem=%d", *codOrdem)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doContratosCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Contrato) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "contratos.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/contratos", payload, out)
}

func doContratosDelete(ctx context.Context, cfg cliConfig, numero string) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "contratos.delete", withToken(cfg, map[string]any{"numcontrato": numero}), nil)
	}
	path, err := contratoPath(numero)
	if err != nil {
		return err
	}
	return cfg.api().request(ctx, "DELETE", path, nil, nil)
}

func doParcelasList(ctx context.Context, cfg cliConfig, numero string, out *[]domain.ItemContrato) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "contratos.parcelas.list", withToken(cfg, map[string]any{"numcontrato": numero}), out)
	}
	path, err := contratoPath(numero)
	if err != nil {
		return err
	}
	return cfg.api().request(ctx, "GET", path+"/parcelas", nil, out)
}

func doPagamento(ctx context.Context, cfg cliConfig, numero string, codLancamento int, payload map[string]any, out *domain.ItemContrato) error {
	if cfg.usesUDS() {
		params := withToken(cfg, payload)
		params["numcontrato"] = numero
		params["codlancamento"] = codLancamento
		return cfg.rpc().call(ctx, "contratos.pagamento", params, out)
	}
	path, err := contratoPath(numero)
	if err != nil {
		return err
	}
	return cfg.api().request(ctx, "POST", fmt.Sprintf("%s/parcelas/%d/pagamento", path, codLancamento), payload, out)
}

func doClientesList(ctx context.Context, cfg cliConfig, q string, out *[]domain.Cliente) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if q != "" {
			params["q"] = q
		}
		return cfg.rpc().call(ctx, "clientes.list", params, out)
	}
	path := "/api/clientes"
	if q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doClientesCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Cliente) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "clientes.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/clientes", payload, out)
}

func doPrestadoresList(ctx context.Context, cfg cliConfig, q string, out *[]domain.Prestador) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if q != "" {
			params["q"] = q
		}
		return cfg.rpc().call(ctx, "prestadores.list", params, out)
	}
	path := "/api/prestadores"
	if q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doPrestadoresCreate(ctx context.Context, cfg cliConfig, payload map[string]any, out *domain.Prestador) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "prestadores.create", withToken(cfg, payload), out)
	}
	return cfg.api().request(ctx, "POST", "/api/prestadores", payload, out)
}

func doNotificacoesList(ctx context.Context, cfg cliConfig, unread bool, out *[]domain.Notificacao) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "notificacoes.list", withToken(cfg, map[string]any{"unread": unread}), out)
	}
	path := "/api/notificacoes"
	if unread {
		path += "?unread=true"
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doNotificacaoLida(ctx context.Context, cfg cliConfig, id string, out *domain.Notificacao) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "notificacoes.lida", withToken(cfg, map[string]any{"id": id}), out)
	}
	return cfg.api().request(ctx, "POST", "/api/notificacoes/"+url.PathEscape(id)+"/lida", nil, out)
}

func doUsuariosList(ctx context.Context, cfg cliConfig, q string, out *[]domain.User) error {
	if cfg.usesUDS() {
		params := withToken(cfg, nil)
		if q != "" {
			params["q"] = q
		}
		return cfg.rpc().call(ctx, "usuarios.list", params, out)
	}
	path := "/api/usuarios"
	if q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	return cfg.api().request(ctx, "GET", path, nil, out)
}

func doUsuarioPapel(ctx context.Context, cfg cliConfig, userID, role string, out *domain.User) error {
	if cfg.usesUDS() {
		return cfg.rpc().call(ctx, "usuarios.papel", withToken(cfg, map[string]any{"userId": userID, "role": role}), out)
	}
	return cfg.api().request(ctx, "PUT", "/api/usuarios/"+url.PathEscape(userID)+"/papel", map[string]any{"role": role}, out)
}

func doAtividadesList(ctx context.Context, cfg cliConfig, userID string, limit int, out *[]domain.ActivityLog) error {
	if cfg.usesUDS() {
		params := withToken(cfg, map[string]any{"limit": limit})
		if userID != "" {
			params["userId"] = userID
		}
		return cfg.rpc().call(ctx, "atividades.list", params, out)
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if userID != "" {
		q.Set("user_id", userID)
	}
	return cfg.api().request(ctx, "GET", "/api/atividades?"+q.Encode(), nil, out)
}
