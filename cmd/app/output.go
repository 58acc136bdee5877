package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/domain"
)

func printJSON(v any) error {
	data, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printKV(pairs [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range pairs {
		fmt.Fprintf(w, "%s\t%s\n", p[0], p[1])
	}
	w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatDate(*t)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatValor(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func printProjetos(projetos []domain.Projeto) {
	rows := make([][]string, 0, len(projetos))
	for _, p := range projetos {
		rows = append(rows, []string{
			strconv.Itoa(p.CodProjeto),
			p.Nome,
			formatDate(p.DataInicio),
			formatDate(p.DataEncerramento),
			formatValor(p.Valor),
			p.Situacao.Label(),
		})
	}
	printTable([]string{"COD", "NOME", "INICIO", "ENCERRAMENTO", "VALOR", "SITUACAO"}, rows)
}

func printProjetosWithStats(projetos []domain.ProjetoWithStats) {
	rows := make([][]string, 0, len(projetos))
	for _, p := range projetos {
		rows = append(rows, []string{
			strconv.Itoa(p.CodProjeto),
			p.Nome,
			p.Situacao.Label(),
			strconv.FormatInt(p.TotalRequisicoes, 10),
			strconv.FormatInt(p.TotalOrdens, 10),
			strconv.FormatInt(p.TotalContratos, 10),
			formatValor(p.ValorTotalContratos),
			strconv.Itoa(p.Progresso) + "%",
		})
	}
	printTable([]string{"COD", "NOME", "SITUACAO", "REQ", "ORD", "CONTR", "VALOR CONTRATADO", "PROGRESSO"}, rows)
}

func printRequisicoes(reqs []domain.Requisicao) {
	rows := make([][]string, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []string{
			strconv.Itoa(r.CodRequisicao),
			strconv.Itoa(r.CodProjeto),
			r.Descricao,
			formatDate(r.DataSolicitacao),
			formatDate(r.DataLimite),
			formatValor(r.Valor),
			r.Situacao.Code(),
		})
	}
	printTable([]string{"COD", "PROJETO", "DESCRICAO", "SOLICITACAO", "LIMITE", "VALOR", "SIT"}, rows)
}

func printOrdens(ordens []domain.Ordem) {
	rows := make([][]string, 0, len(ordens))
	for _, o := range ordens {
		rows = append(rows, []string{
			strconv.Itoa(o.CodOrdem),
			strconv.Itoa(o.CodRequisicao),
			o.Descricao,
			formatDate(o.DataSolicitacao),
			formatDate(o.DataLimite),
			formatValor(o.Valor),
			o.Situacao.Code(),
		})
	}
	printTable([]string{"COD", "REQUISICAO", "DESCRICAO", "SOLICITACAO", "LIMITE", "VALOR", "SIT"}, rows)
}

func printItensOrdem(itens []domain.ItemOrdem) {
	rows := make([][]string, 0, len(itens))
	for _, it := range itens {
		rows = append(rows, []string{
			strconv.Itoa(it.CodOrdem),
			strconv.Itoa(it.CodItem),
			it.Descricao,
			formatDate(it.DataLimite),
			formatValor(it.Valor),
			formatDatePtr(it.DataRecebido),
			it.Situacao.Code(),
		})
	}
	printTable([]string{"ORDEM", "ITEM", "DESCRICAO", "LIMITE", "VALOR", "RECEBIDO", "SIT"}, rows)
}

func printContratos(contratos []domain.Contrato) {
	rows := make([][]string, 0, len(contratos))
	for _, c := range contratos {
		rows = append(rows, []string{
			c.NumContrato,
			strconv.Itoa(c.CodOrdem),
			c.Contratado,
			c.CpfCnpj,
			formatDate(c.DataInicio),
			formatDate(c.DataFim),
			formatValor(c.Valor),
			strconv.Itoa(c.Parcelas),
			c.Situacao.Code(),
		})
	}
	printTable([]string{"NUMERO", "ORDEM", "CONTRATADO", "CPF/CNPJ", "INICIO", "FIM", "VALOR", "PARC", "SIT"}, rows)
}

func printParcelas(parcelas []domain.ItemContrato) {
	rows := make([][]string, 0, len(parcelas))
	for _, p := range parcelas {
		rows = append(rows, []string{
			p.NumContrato,
			strconv.Itoa(p.CodLancamento),
			strconv.Itoa(p.NumParcela),
			formatDate(p.DataVencimento),
			formatValor(p.ValorParcela),
			formatValor(p.ValorPago),
			formatDatePtr(p.DataPagamento),
			p.Situacao.Code(),
		})
	}
	printTable([]string{"CONTRATO", "LANC", "PARC", "VENCIMENTO", "VALOR", "PAGO", "DATA PGTO", "SIT"}, rows)
}

func printClientes(clientes []domain.Cliente) {
	rows := make([][]string, 0, len(clientes))
	for _, c := range clientes {
		rows = append(rows, []string{c.ID, c.Nome, c.Email, c.Documento, c.Tipo})
	}
	printTable([]string{"ID", "NOME", "EMAIL", "DOCUMENTO", "TIPO"}, rows)
}

func printPrestadores(prestadores []domain.Prestador) {
	rows := make([][]string, 0, len(prestadores))
	for _, p := range prestadores {
		valorHora := "-"
		if p.ValorHora != nil {
			valorHora = formatValor(*p.ValorHora)
		}
		disponivel := "nao"
		if p.Disponivel {
			disponivel = "sim"
		}
		rows = append(rows, []string{p.ID, p.Nome, p.Email, p.Especialidade, valorHora, disponivel})
	}
	printTable([]string{"ID", "NOME", "EMAIL", "ESPECIALIDADE", "VALOR/H", "DISPONIVEL"}, rows)
}

func printUsers(users []domain.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Name, u.Email, string(u.Role), formatTime(u.CreatedAt)})
	}
	printTable([]string{"ID", "NAME", "EMAIL", "ROLE", "CREATED"}, rows)
}

func printMembers(members []domain.UserProject) {
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{m.UserID, strconv.Itoa(m.CodProjeto), string(m.Role), formatTime(m.CreatedAt)})
	}
	printTable([]string{"USER", "PROJETO", "ROLE", "SINCE"}, rows)
}

func printActivityLogs(logs []domain.ActivityLog) {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{formatTime(l.CreatedAt), l.UserID, l.Action, l.Resource, l.ResourceID})
	}
	printTable([]string{"WHEN", "USER", "ACTION", "RESOURCE", "ID"}, rows)
}

func printNotificacoes(notifs []domain.Notificacao) {
	rows := make([][]string, 0, len(notifs))
	for _, n := range notifs {
		lida := " "
		if n.Lida {
			lida = "x"
		}
		rows = append(rows, []string{n.ID, formatTime(n.DataEnvio), n.Tipo, lida, n.Titulo})
	}
	printTable([]string{"ID", "ENVIO", "TIPO", "LIDA", "TITULO"}, rows)
}

func printDashboard(stats domain.DashboardStats) {
	printKV([][2]string{
		{"projetos", strconv.FormatInt(stats.Projetos.TotalProjetos, 10)},
		{"projetos ativos", strconv.FormatInt(stats.Projetos.ProjetosAtivos, 10)},
		{"projetos concluidos", strconv.FormatInt(stats.Projetos.ProjetosConcluidos, 10)},
		{"valor projetos", formatValor(stats.Projetos.ValorTotalProjetos)},
		{"requisicoes", strconv.FormatInt(stats.Requisicoes, 10)},
		{"ordens", strconv.FormatInt(stats.Ordens, 10)},
		{"contratos", strconv.FormatInt(stats.Contratos, 10)},
		{"valor contratos", formatValor(stats.ValorContratos)},
		{"parcelas abertas", strconv.FormatInt(stats.ParcelasAbertas, 10)},
		{"parcelas vencidas", strconv.FormatInt(stats.ParcelasVencidas, 10)},
	})
}
