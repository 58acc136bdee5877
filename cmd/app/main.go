package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SeltikHD/contratos-timbu/internal/adapters/db/gormdb"
	httpadapter "github.com/SeltikHD/contratos-timbu/internal/adapters/http"
	rpcadapter "github.com/SeltikHD/contratos-timbu/internal/adapters/rpcjson"
	"github.com/SeltikHD/contratos-timbu/internal/application"
	"github.com/SeltikHD/contratos-timbu/internal/domain"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "contratos",
		Usage: "Contract management server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			projetosCommand(),
			requisicoesCommand(),
			ordensCommand(),
			contratosCommand(),
			clientesCommand(),
			prestadoresCommand(),
			notificacoesCommand(),
			usuariosCommand(),
			atividadesCommand(),
			dashboardCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, ":8080", "/tmp/contratos.sock", "sqlite", "contratos.db")
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Value: "/tmp/contratos.sock", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-driver", Value: "sqlite", Usage: "database driver (sqlite or postgres)"},
			&cli.StringFlag{Name: "db-dsn", Value: "contratos.db", Usage: "database DSN or SQLite file path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("addr"), c.String("rpc-socket"), c.String("db-driver"), c.String("db-dsn"))
		},
	}
}

func runServer(ctx context.Context, addr, rpcSocket, dbDriver, dbDSN string) error {
	db, err := gormdb.Open(dbDriver, dbDSN)
	if err != nil {
		return err
	}
	if err := gormdb.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := gormdb.NewRepository(db)
	service := application.NewService(repo)

	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(rpcSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", rpcSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Request a login token for an e-mail",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds"},
					&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080"},
					&cli.StringFlag{Name: "socket", Value: "/tmp/contratos.sock"},
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out domain.VerificationToken
					if err := doLoginStart(ctx, cfg, c.String("email"), &out); err != nil {
						return err
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("login token issued for %s, complete with: contratos auth verify --email %s --token <token>\n", out.Identifier, out.Identifier)
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Redeem a login token and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "token", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						User  domain.User `json:"user"`
						Token string      `json:"token"`
					}
					if err := doLoginComplete(ctx, cfg, c.String("email"), c.String("token"), &out); err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.User.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID    string `json:"id"`
						Email string `json:"email"`
						Role  string `json:"role"`
					}
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", out.ID}, {"email", out.Email}, {"role", out.Role}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Invalidate the session and clear local state",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func projetosCommand() *cli.Command {
	return &cli.Command{
		Name:  "projetos",
		Usage: "Project commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List projects",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "situacao", Usage: "filter by status code 1-6"},
					&cli.BoolFlag{Name: "stats", Usage: "include dependent counts and progress"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if c.Bool("stats") {
						var out []domain.ProjetoWithStats
						if err := doProjetosStats(ctx, cfg, &out); err != nil {
							return err
						}
						if c.Bool("json") {
							return printJSON(out)
						}
						printProjetosWithStats(out)
						return nil
					}
					var out []domain.Projeto
					if err := doProjetosList(ctx, cfg, c.String("situacao"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjetos(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nome", Required: true},
					&cli.StringFlag{Name: "inicio", Required: true, Usage: "start date YYYY-MM-DD"},
					&cli.StringFlag{Name: "encerramento", Required: true, Usage: "end date YYYY-MM-DD"},
					&cli.FloatFlag{Name: "valor", Required: true},
					&cli.StringFlag{Name: "situacao", Usage: "status code 1-6, defaults to planning"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"nome":             c.String("nome"),
						"datainicio":       c.String("inicio"),
						"dataencerramento": c.String("encerramento"),
						"valor":            c.Float("valor"),
					}
					if c.IsSet("situacao") {
						payload["situacao"] = c.String("situacao")
					}
					var out domain.Projeto
					if err := doProjetosCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjetos([]domain.Projeto{out})
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one project",
				Flags: []cli.Flag{&cli.IntFlag{Name: "cod", Required: true}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Projeto
					if err := doProjetosGet(ctx, cfg, c.Int("cod"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjetos([]domain.Projeto{out})
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Update project fields",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cod", Required: true},
					&cli.StringFlag{Name: "nome"},
					&cli.StringFlag{Name: "inicio"},
					&cli.StringFlag{Name: "encerramento"},
					&cli.FloatFlag{Name: "valor"},
					&cli.StringFlag{Name: "situacao"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{}
					if c.IsSet("nome") {
						payload["nome"] = c.String("nome")
					}
					if c.IsSet("inicio") {
						payload["datainicio"] = c.String("inicio")
					}
					if c.IsSet("encerramento") {
						payload["dataencerramento"] = c.String("encerramento")
					}
					if c.IsSet("valor") {
						payload["valor"] = c.Float("valor")
					}
					if c.IsSet("situacao") {
						payload["situacao"] = c.String("situacao")
					}
					var out domain.Projeto
					if err := doProjetosUpdate(ctx, cfg, c.Int("cod"), payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printProjetos([]domain.Projeto{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a project without requisitions",
				Flags: []cli.Flag{&cli.IntFlag{Name: "cod", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doProjetosDelete(ctx, cfg, c.Int("cod")); err != nil {
						return err
					}
					fmt.Printf("deleted project %d\n", c.Int("cod"))
					return nil
				},
			},
			{
				Name:  "membros",
				Usage: "Project membership",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List project members",
						Flags: []cli.Flag{&cli.IntFlag{Name: "cod", Required: true}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out []domain.UserProject
							if err := doMembrosList(ctx, cfg, c.Int("cod"), &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(out)
							}
							printMembers(out)
							return nil
						},
					},
					{
						Name:  "grant",
						Usage: "Grant a project role to a user",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "cod", Required: true},
							&cli.StringFlag{Name: "user-id", Required: true},
							&cli.StringFlag{Name: "role", Value: "VIEWER", Usage: "VIEWER, EDITOR, MANAGER or OWNER"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out domain.UserProject
							if err := doMembrosGrant(ctx, cfg, c.Int("cod"), c.String("user-id"), c.String("role"), &out); err != nil {
								return err
							}
							fmt.Printf("granted %s on project %d to %s\n", out.Role, out.CodProjeto, out.UserID)
							return nil
						},
					},
					{
						Name:  "revoke",
						Usage: "Revoke a user's project membership",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "cod", Required: true},
							&cli.StringFlag{Name: "user-id", Required: true},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							if err := doMembrosRevoke(ctx, cfg, c.Int("cod"), c.String("user-id")); err != nil {
								return err
							}
							fmt.Println("membership revoked")
							return nil
						},
					},
				},
			},
		},
	}
}

func requisicoesCommand() *cli.Command {
	return &cli.Command{
		Name:  "requisicoes",
		Usage: "Requisition commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List requisitions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "projeto", Usage: "filter by project code"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var codProjeto *int
					if c.IsSet("projeto") {
						v := c.Int("projeto")
						codProjeto = &v
					}
					var out []domain.Requisicao
					if err := doRequisicoesList(ctx, cfg, codProjeto, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRequisicoes(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create requisition",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "projeto", Required: true},
					&cli.StringFlag{Name: "descricao", Required: true},
					&cli.StringFlag{Name: "solicitacao", Required: true, Usage: "request date YYYY-MM-DD"},
					&cli.StringFlag{Name: "limite", Required: true, Usage: "deadline YYYY-MM-DD"},
					&cli.FloatFlag{Name: "valor", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"codprojeto":      c.Int("projeto"),
						"descricao":       c.String("descricao"),
						"datasolicitacao": c.String("solicitacao"),
						"datalimite":      c.String("limite"),
						"valor":           c.Float("valor"),
					}
					var out domain.Requisicao
					if err := doRequisicoesCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRequisicoes([]domain.Requisicao{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a requisition without orders",
				Flags: []cli.Flag{&cli.IntFlag{Name: "cod", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doRequisicoesDelete(ctx, cfg, c.Int("cod")); err != nil {
						return err
					}
					fmt.Printf("deleted requisition %d\n", c.Int("cod"))
					return nil
				},
			},
		},
	}
}

func ordensCommand() *cli.Command {
	return &cli.Command{
		Name:  "ordens",
		Usage: "Work order commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List work orders",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "requisicao", Usage: "filter by requisition code"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var codRequisicao *int
					if c.IsSet("requisicao") {
						v := c.Int("requisicao")
						codRequisicao = &v
					}
					var out []domain.Ordem
					if err := doOrdensList(ctx, cfg, codRequisicao, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printOrdens(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create work order",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "requisicao", Required: true},
					&cli.StringFlag{Name: "descricao", Required: true},
					&cli.StringFlag{Name: "solicitacao", Required: true, Usage: "request date YYYY-MM-DD"},
					&cli.StringFlag{Name: "limite", Required: true, Usage: "deadline YYYY-MM-DD"},
					&cli.FloatFlag{Name: "valor", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"codrequisicao":   c.Int("requisicao"),
						"descricao":       c.String("descricao"),
						"datasolicitacao": c.String("solicitacao"),
						"datalimite":      c.String("limite"),
						"valor":           c.Float("valor"),
					}
					var out domain.Ordem
					if err := doOrdensCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printOrdens([]domain.Ordem{out})
					return nil
				},
			},
			{
				Name:  "itens",
				Usage: "Work order items",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List items of a work order",
						Flags: []cli.Flag{&cli.IntFlag{Name: "ordem", Required: true}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out []domain.ItemOrdem
							if err := doItensOrdemList(ctx, cfg, c.Int("ordem"), &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(out)
							}
							printItensOrdem(out)
							return nil
						},
					},
					{
						Name:  "add",
						Usage: "Add an item to a work order",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "ordem", Required: true},
							&cli.StringFlag{Name: "descricao", Required: true},
							&cli.StringFlag{Name: "solicitacao", Required: true, Usage: "request date YYYY-MM-DD"},
							&cli.StringFlag{Name: "limite", Required: true, Usage: "deadline YYYY-MM-DD"},
							&cli.FloatFlag{Name: "valor", Required: true},
							&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							payload := map[string]any{
								"descricao":       c.String("descricao"),
								"datasolicitacao": c.String("solicitacao"),
								"datalimite":      c.String("limite"),
								"valor":           c.Float("valor"),
							}
							var out domain.ItemOrdem
							if err := doItensOrdemAdd(ctx, cfg, c.Int("ordem"), payload, &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(out)
							}
							printItensOrdem([]domain.ItemOrdem{out})
							return nil
						},
					},
					{
						Name:  "receber",
						Usage: "Mark an item as received",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "ordem", Required: true},
							&cli.IntFlag{Name: "item", Required: true},
							&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out domain.ItemOrdem
							payload := map[string]any{"situacao": domain.ItemReceived.Code()}
							if err := doItensOrdemUpdate(ctx, cfg, c.Int("ordem"), c.Int("item"), payload, &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(out)
							}
							printItensOrdem([]domain.ItemOrdem{out})
							return nil
						},
					},
				},
			},
		},
	}
}

func contratosCommand() *cli.Command {
	return &cli.Command{
		Name:  "contratos",
		Usage: "Contract commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List contracts",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "ordem", Usage: "filter by work order code"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var codOrdem *int
					if c.IsSet("ordem") {
						v := c.Int("ordem")
						codOrdem = &v
					}
					var out []domain.Contrato
					if err := doContratosList(ctx, cfg, codOrdem, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printContratos(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create contract with installment schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "numero", Required: true, Usage: "contract number nnnn/aaaa"},
					&cli.IntFlag{Name: "ordem", Required: true},
					&cli.StringFlag{Name: "descricao", Required: true},
					&cli.StringFlag{Name: "cpfcnpj", Required: true, Usage: "14 digit document"},
					&cli.StringFlag{Name: "contratado", Required: true},
					&cli.IntFlag{Name: "tipo-pessoa", Value: domain.TipoPessoaJuridica},
					&cli.StringFlag{Name: "inicio", Required: true, Usage: "start date YYYY-MM-DD"},
					&cli.StringFlag{Name: "fim", Required: true, Usage: "end date YYYY-MM-DD"},
					&cli.FloatFlag{Name: "valor", Required: true},
					&cli.IntFlag{Name: "parcelas", Value: 1},
					&cli.StringFlag{Name: "primeira-parcela", Required: true, Usage: "first installment due date YYYY-MM-DD"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"numcontrato":        c.String("numero"),
						"codordem":           c.Int("ordem"),
						"descricao":          c.String("descricao"),
						"cpfcnpj":            c.String("cpfcnpj"),
						"contratado":         c.String("contratado"),
						"tipopessoa":         c.Int("tipo-pessoa"),
						"datainicio":         c.String("inicio"),
						"datafim":            c.String("fim"),
						"valor":              c.Float("valor"),
						"parcelas":           c.Int("parcelas"),
						"dataparcelainicial": c.String("primeira-parcela"),
					}
					var out domain.Contrato
					if err := doContratosCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printContratos([]domain.Contrato{out})
					return nil
				},
			},
			{
				Name:  "parcelas",
				Usage: "List a contract's installments",
				Flags: []cli.Flag{&cli.StringFlag{Name: "numero", Required: true, Usage: "contract number nnnn/aaaa"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.ItemContrato
					if err := doParcelasList(ctx, cfg, c.String("numero"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printParcelas(out)
					return nil
				},
			},
			{
				Name:  "pagar",
				Usage: "Register a payment against an installment",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "numero", Required: true, Usage: "contract number nnnn/aaaa"},
					&cli.IntFlag{Name: "lancamento", Required: true},
					&cli.FloatFlag{Name: "valor", Required: true},
					&cli.StringFlag{Name: "data", Usage: "payment date YYYY-MM-DD"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{"valorpago": c.Float("valor")}
					if c.IsSet("data") {
						payload["datapagamento"] = c.String("data")
					}
					var out domain.ItemContrato
					if err := doPagamento(ctx, cfg, c.String("numero"), c.Int("lancamento"), payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printParcelas([]domain.ItemContrato{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a contract and its installments",
				Flags: []cli.Flag{&cli.StringFlag{Name: "numero", Required: true, Usage: "contract number nnnn/aaaa"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doContratosDelete(ctx, cfg, c.String("numero")); err != nil {
						return err
					}
					fmt.Printf("deleted contract %s\n", c.String("numero"))
					return nil
				},
			},
		},
	}
}

func clientesCommand() *cli.Command {
	return &cli.Command{
		Name:  "clientes",
		Usage: "Client directory commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List clients",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Cliente
					if err := doClientesList(ctx, cfg, c.String("q"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printClientes(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create client",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nome", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "documento", Required: true, Usage: "CPF (11 digits) or CNPJ (14 digits)"},
					&cli.StringFlag{Name: "tipo", Value: domain.ClientePessoaJuridica},
					&cli.StringFlag{Name: "telefone"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"nome":      c.String("nome"),
						"email":     c.String("email"),
						"documento": c.String("documento"),
						"tipo":      c.String("tipo"),
						"telefone":  c.String("telefone"),
					}
					var out domain.Cliente
					if err := doClientesCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printClientes([]domain.Cliente{out})
					return nil
				},
			},
		},
	}
}

func prestadoresCommand() *cli.Command {
	return &cli.Command{
		Name:  "prestadores",
		Usage: "Service provider directory commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List service providers",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Prestador
					if err := doPrestadoresList(ctx, cfg, c.String("q"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPrestadores(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create service provider",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nome", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "documento", Required: true},
					&cli.StringFlag{Name: "especialidade"},
					&cli.FloatFlag{Name: "valor-hora"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					payload := map[string]any{
						"nome":          c.String("nome"),
						"email":         c.String("email"),
						"documento":     c.String("documento"),
						"especialidade": c.String("especialidade"),
					}
					if c.IsSet("valor-hora") {
						payload["valorHora"] = c.Float("valor-hora")
					}
					var out domain.Prestador
					if err := doPrestadoresCreate(ctx, cfg, payload, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPrestadores([]domain.Prestador{out})
					return nil
				},
			},
		},
	}
}

func notificacoesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notificacoes",
		Usage: "Notification commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List own notifications",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "unread", Usage: "only unread"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Notificacao
					if err := doNotificacoesList(ctx, cfg, c.Bool("unread"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNotificacoes(out)
					return nil
				},
			},
			{
				Name:  "lida",
				Usage: "Mark a notification as read",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Notificacao
					if err := doNotificacaoLida(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					fmt.Printf("marked %s as read\n", out.ID)
					return nil
				},
			},
		},
	}
}

func usuariosCommand() *cli.Command {
	return &cli.Command{
		Name:  "usuarios",
		Usage: "User administration commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users (admin only)",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.User
					if err := doUsuariosList(ctx, cfg, c.String("q"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUsers(out)
					return nil
				},
			},
			{
				Name:  "papel",
				Usage: "Change a user's global role (admin only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "role", Required: true, Usage: "USER or ADMIN"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.User
					if err := doUsuarioPapel(ctx, cfg, c.String("user-id"), c.String("role"), &out); err != nil {
						return err
					}
					fmt.Printf("%s is now %s\n", out.Email, out.Role)
					return nil
				},
			},
		},
	}
}

func atividadesCommand() *cli.Command {
	return &cli.Command{
		Name:  "atividades",
		Usage: "Activity log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List activity logs (admin only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Usage: "filter by actor"},
					&cli.IntFlag{Name: "limit", Value: 200},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.ActivityLog
					if err := doAtividadesList(ctx, cfg, c.String("user-id"), c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printActivityLogs(out)
					return nil
				},
			},
		},
	}
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show aggregate statistics",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out domain.DashboardStats
			if err := doDashboard(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printDashboard(out)
			return nil
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
