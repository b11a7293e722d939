package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/config"
	"github.com/gestaozabele/lancamentos/internal/reconcile"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/service"
	"github.com/gestaozabele/lancamentos/internal/tenant"
	"github.com/gestaozabele/lancamentos/internal/util"
)

// deps são as dependências abertas sob demanda pelos comandos que tocam o banco.
type deps struct {
	cfg     *config.Config
	store   repo.Store
	cache   cache.Client
	logger  zerolog.Logger
	migrate func(ctx context.Context) error
}

type opener func(ctx context.Context) (*deps, func(), error)

func (d *deps) resolver() *tenant.Resolver {
	return tenant.NewResolver(d.store, d.cache, d.cfg.ResolverCacheTTL, d.logger)
}

func (d *deps) tenants() *service.TenantService {
	return service.NewTenantService(d.store, d.resolver(), d.logger, service.WithStrictCNPJ(d.cfg.CNPJStrict))
}

// printer escreve o resultado em json ou yaml preservando os nomes dos campos JSON.
type printer struct {
	out    io.Writer
	format string
}

func (p printer) print(v any) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("formato de saída desconhecido: %q (use json ou yaml)", p.format)
	}
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	var (
		format = envOr("LANCAMENTOS_OUT", "json")
		actor  = envOr("LANCAMENTOS_ACTOR", "")
	)
	p := &printer{out: out}

	root := &cobra.Command{
		Use:           "lancamentosctl",
		Short:         "CLI administrativa da gestão de lançamentos municipais",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p.format = strings.ToLower(strings.TrimSpace(format))
			if p.format != "json" && p.format != "yaml" {
				return fmt.Errorf("--output deve ser json ou yaml")
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&format, "output", "o", format, "Formato de saída: json|yaml (env LANCAMENTOS_OUT)")
	root.PersistentFlags().StringVar(&actor, "as", actor, "Email do SUPER_ADMIN que executa a operação (env LANCAMENTOS_ACTOR)")

	// withDeps abre o banco apenas para o comando em execução.
	withDeps := func(fn func(ctx context.Context, d *deps) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			d, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(ctx, d)
		}
	}

	actorID := func(ctx context.Context, d *deps) (uuid.UUID, error) {
		if strings.TrimSpace(actor) == "" {
			return uuid.Nil, errors.New("--as é obrigatório (email do SUPER_ADMIN)")
		}
		u, err := d.store.GetUsuarioByEmail(ctx, util.NormalizeEmail(actor))
		if err != nil {
			return uuid.Nil, fmt.Errorf("ator %s: %w", actor, err)
		}
		return u.ID, nil
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o schema embutido (idempotente)",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			if d.migrate == nil {
				return errors.New("migração indisponível para este armazenamento")
			}
			if err := d.migrate(ctx); err != nil {
				return err
			}
			return p.print(map[string]string{"status": "migrado"})
		}),
	}

	var bootNome, bootEmail, bootSenha string
	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Cria o primeiro SUPER_ADMIN (falha se já existir algum)",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			if bootSenha == "" {
				bootSenha = os.Getenv("LANCAMENTOS_ADMIN_SENHA")
			}
			users := service.NewUserService(d.store, d.logger)
			created, err := users.BootstrapSuperAdmin(ctx, bootNome, bootEmail, bootSenha)
			if err != nil {
				return err
			}
			return p.print(created)
		}),
	}
	bootstrapCmd.Flags().StringVar(&bootNome, "nome", "Super Admin", "Nome do administrador")
	bootstrapCmd.Flags().StringVar(&bootEmail, "email", "", "Email do administrador")
	bootstrapCmd.Flags().StringVar(&bootSenha, "senha", "", "Senha (ou env LANCAMENTOS_ADMIN_SENHA)")
	_ = bootstrapCmd.MarkFlagRequired("email")

	hashCmd := &cobra.Command{
		Use:   "hashpass <senha>",
		Short: "Gera hash argon2id de uma senha",
		Args:  cobra.ExactArgs(1),
		// hashpass não depende do formato de saída nem do banco.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.Hash(args[0])
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			fmt.Fprintln(out, hash)
			return nil
		},
	}

	tenantCmd := &cobra.Command{Use: "tenant", Short: "Operações sobre tenants"}

	var in service.CreateTenantInput
	var cidade, estado string
	var sec service.SecretarioInput
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Cadastra tenant, CNPJ estadual opcional e SECRETARIO inicial",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			id, err := actorID(ctx, d)
			if err != nil {
				return err
			}
			in.Cidade = util.OptionalString(cidade)
			in.Estado = util.OptionalString(strings.ToUpper(estado))
			if sec.Email != "" {
				in.Secretario = &sec
			}
			result, err := d.tenants().Create(ctx, id, in)
			if err != nil {
				return err
			}
			return p.print(result)
		}),
	}
	createCmd.Flags().StringVar(&in.Nome, "nome", "", "Nome do município")
	createCmd.Flags().StringVar(&in.CNPJ, "cnpj", "", "CNPJ principal")
	createCmd.Flags().StringVar(&in.EmailContato, "email-contato", "", "Email de contato")
	createCmd.Flags().StringVar(&cidade, "cidade", "", "Cidade")
	createCmd.Flags().StringVar(&estado, "estado", "", "UF")
	createCmd.Flags().StringVar(&in.CNPJEstadual, "cnpj-estadual", "", "CNPJ estadual (capitais)")
	createCmd.Flags().StringVar(&sec.Nome, "secretario-nome", "", "Nome do SECRETARIO")
	createCmd.Flags().StringVar(&sec.Email, "secretario-email", "", "Email do SECRETARIO")
	createCmd.Flags().StringVar(&sec.Senha, "secretario-senha", "", "Senha do SECRETARIO")
	_ = createCmd.MarkFlagRequired("nome")
	_ = createCmd.MarkFlagRequired("cnpj")
	_ = createCmd.MarkFlagRequired("email-contato")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista tenants com seus CNPJs",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			id, err := actorID(ctx, d)
			if err != nil {
				return err
			}
			tenants, err := d.tenants().List(ctx, id)
			if err != nil {
				return err
			}
			return p.print(tenants)
		}),
	}

	var cnpjTenant, cnpjRaw, cnpjDescricao string
	addCnpjCmd := &cobra.Command{
		Use:   "add-cnpj",
		Short: "Vincula CNPJ adicional ao tenant e sincroniza os órfãos",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			id, err := actorID(ctx, d)
			if err != nil {
				return err
			}
			tenantID, err := uuid.Parse(cnpjTenant)
			if err != nil {
				return fmt.Errorf("--tenant inválido: %w", err)
			}
			result, err := d.tenants().AddCnpj(ctx, id, tenantID, cnpjRaw, cnpjDescricao)
			if err != nil {
				return err
			}
			return p.print(result)
		}),
	}
	addCnpjCmd.Flags().StringVar(&cnpjTenant, "tenant", "", "ID do tenant")
	addCnpjCmd.Flags().StringVar(&cnpjRaw, "cnpj", "", "CNPJ a vincular")
	addCnpjCmd.Flags().StringVar(&cnpjDescricao, "descricao", "", "Descrição (padrão Adicional)")
	_ = addCnpjCmd.MarkFlagRequired("tenant")
	_ = addCnpjCmd.MarkFlagRequired("cnpj")

	resolveCmd := &cobra.Command{
		Use:   "resolve <cnpj>",
		Short: "Mostra o tenant dono do CNPJ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *deps) error {
				id, err := actorID(ctx, d)
				if err != nil {
					return err
				}
				t, err := d.tenants().ResolveCnpj(ctx, id, args[0])
				if err != nil {
					return err
				}
				return p.print(t)
			})(cmd, args)
		},
	}

	var syncTenant string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Vincula ao tenant os lançamentos órfãos de todos os seus CNPJs",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			id, err := actorID(ctx, d)
			if err != nil {
				return err
			}
			tenantID, err := uuid.Parse(syncTenant)
			if err != nil {
				return fmt.Errorf("--tenant inválido: %w", err)
			}
			result, err := d.tenants().SyncLancamentos(ctx, id, tenantID)
			if err != nil {
				return err
			}
			return p.print(result)
		}),
	}
	syncCmd.Flags().StringVar(&syncTenant, "tenant", "", "ID do tenant")
	_ = syncCmd.MarkFlagRequired("tenant")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Sincroniza uma vez os lançamentos órfãos de todos os tenants ativos",
		RunE: withDeps(func(ctx context.Context, d *deps) error {
			notifier := reconcile.NotifierFor(d.cfg.Reconcile)
			report, err := reconcile.NewService(d.store, d.resolver(), d.cfg.Reconcile, d.logger, notifier).RunOnce(ctx)
			if err != nil {
				return err
			}
			return p.print(report)
		}),
	}

	tenantCmd.AddCommand(createCmd, listCmd, addCnpjCmd, resolveCmd, syncCmd)
	root.AddCommand(migrateCmd, bootstrapCmd, hashCmd, tenantCmd, reconcileCmd)
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
