package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"s8garante/config"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/database"
	"s8garante/internal/pkg/geo"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/token"
	"s8garante/internal/repository/accountrepo"
	"s8garante/internal/repository/profilerepo"
	"s8garante/internal/service/authservice"
)

// env monta a fachada de autenticação com o mínimo necessário para a CLI.
// Sem Redis: os eventos não têm assinantes e o cache é local ao processo.
type env struct {
	db       *sql.DB
	auth     *authservice.Service
	accounts *accountrepo.AccountRepository
	profiles *profilerepo.ProfileRepository
	log      logger.Logger
}

func newEnv() (*env, error) {
	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)

	db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout, database.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}

	memory := cache.NewMemory()
	accounts := accountrepo.NewAccountRepository(db, cfg.DBTimeout, log)
	profiles := profilerepo.NewProfileRepository(db, cfg.DBTimeout, log)

	svc := authservice.NewService(authservice.Deps{
		Accounts: accounts,
		Profiles: profiles,
		Tokens:   token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry),
		Cache:    memory,
		Events:   authstate.NewNotifier(),
		Mailer:   authservice.NewLogMailer(log),
		Postal: geo.NewClient(geo.Options{
			IBGEBaseURL:   cfg.IBGEBaseURL,
			ViaCEPBaseURL: cfg.ViaCEPBaseURL,
			Timeout:       cfg.HTTPClientTimeout,
			CacheTTL:      cfg.GeoCacheTTL,
		}, memory, log),
		Logger: log,
	}, authservice.Options{
		AppBaseURL:       cfg.AppBaseURL,
		PasswordResetTTL: cfg.PasswordResetTTL,
		FlagRetries:      3,
	})

	return &env{db: db, auth: svc, accounts: accounts, profiles: profiles, log: log}, nil
}

func (e *env) Close() { e.db.Close() }

// operator carrega o administrador informado em --como como ator dos comandos.
func (e *env) operator(ctx context.Context, cmd *cobra.Command) (authstate.State, error) {
	email, _ := cmd.Flags().GetString("como")
	if email == "" {
		return authstate.Anonymous(), errors.New("informe o administrador com --como ou S8_ADMIN_EMAIL")
	}

	account, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		return authstate.Anonymous(), fmt.Errorf("administrador %s: %w", email, err)
	}
	p, err := e.profiles.FindByID(ctx, account.ID)
	if err != nil {
		return authstate.Anonymous(), fmt.Errorf("perfil de %s: %w", email, err)
	}
	if !p.IsAdmin() {
		return authstate.Anonymous(), fmt.Errorf("%s não é administrador", email)
	}

	session := &authstate.Session{ID: "cli", UserID: p.ID, Email: p.Email, ExpiresAt: time.Now().Add(time.Hour)}
	return authstate.Authenticated(session, &p), nil
}

// firstNonEmpty prefere a flag e cai para a variável de ambiente.
func firstNonEmpty(cmd *cobra.Command, flag, envKey string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(envKey)
}

func SetupAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup-admin",
		Short: "Cria o primeiro administrador",
		Long: "Cria a conta e o perfil de administrador. A senha vem de --senha ou S8_ADMIN_PASSWORD " +
			"e deverá ser trocada no primeiro acesso.",
		RunE: func(cmd *cobra.Command, args []string) error {
			email := firstNonEmpty(cmd, "email", "S8_ADMIN_EMAIL")
			plain := firstNonEmpty(cmd, "senha", "S8_ADMIN_PASSWORD")
			name := firstNonEmpty(cmd, "nome", "S8_ADMIN_NAME")
			if email == "" || plain == "" {
				return errors.New("e-mail e senha são obrigatórios (flags ou S8_ADMIN_EMAIL/S8_ADMIN_PASSWORD)")
			}
			if name == "" {
				name = "Administrador"
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.auth.BootstrapAdmin(cmd.Context(), email, plain, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Administrador criado: %s (%s)\n", p.Email, p.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "e-mail do administrador")
	cmd.Flags().String("senha", "", "senha inicial (prefira S8_ADMIN_PASSWORD)")
	cmd.Flags().String("nome", "", "nome do responsável")
	return cmd
}

func ProvisionAgencyCmd() *cobra.Command {
	var reg domain.AgencyRegistration
	cmd := &cobra.Command{
		Use:   "provision-agency",
		Short: "Cadastra uma imobiliária com senha provisória",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			actor, err := e.operator(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			p, err := e.auth.ProvisionAgency(cmd.Context(), actor, reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imobiliária criada: %s (%s)\nSenha provisória: %s\n",
				p.Profile.Agency.CompanyName, p.Profile.ID, p.TemporaryPassword)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "e-mail de acesso")
	cmd.Flags().StringVar(&reg.Name, "nome", "", "nome do responsável")
	cmd.Flags().StringVar(&reg.Phone, "telefone", "", "telefone")
	cmd.Flags().StringVar(&reg.CompanyName, "empresa", "", "nome da empresa")
	cmd.Flags().StringVar(&reg.CNPJ, "cnpj", "", "CNPJ")
	cmd.Flags().StringVar(&reg.Address.CEP, "cep", "", "CEP (o endereço é completado automaticamente)")
	cmd.Flags().StringVar(&reg.Address.Number, "numero", "", "número")
	cmd.Flags().StringVar(&reg.Address.Complement, "complemento", "", "complemento")
	return cmd
}

func ResetAgencyPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-agency-password <imobiliaria-id>",
		Short: "Gera nova senha provisória para uma imobiliária",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			actor, err := e.operator(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			p, err := e.auth.ResetAgencyPassword(cmd.Context(), actor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Nova senha provisória para %s: %s\n", p.Profile.Email, p.TemporaryPassword)
			return nil
		},
	}
}
