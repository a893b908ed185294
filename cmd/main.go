package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"s8garante/config"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/database"
	"s8garante/internal/pkg/geo"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/storage"
	"s8garante/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"s8garante/internal/api/admin"
	"s8garante/internal/api/analysis"
	"s8garante/internal/api/auth"
	"s8garante/internal/api/dashboard"
	"s8garante/internal/api/document"
	geoapi "s8garante/internal/api/geo"
	"s8garante/internal/api/profile"
	"s8garante/internal/api/router"
	"s8garante/internal/repository/accountrepo"
	"s8garante/internal/repository/analysisrepo"
	"s8garante/internal/repository/documentrepo"
	"s8garante/internal/repository/profilerepo"
	"s8garante/internal/service/analysisservice"
	"s8garante/internal/service/authservice"
	"s8garante/internal/service/dashboardservice"
	"s8garante/internal/service/documentservice"
	"s8garante/internal/service/profileservice"
)

// @title S8 Garante API
// @version 1.0
// @description API de análises de locatários, documentos e administração de imobiliárias.
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço S8 Garante...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment})

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout, database.DefaultPoolOptions())
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis): revogação de sessões, tokens de redefinição, rate limit e localidades
	cacheClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
	if err != nil {
		log.Fatal("Falha ao conectar ao Redis.", err)
	}
	defer cacheClient.Close()
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Armazenamento de documentos
	store, err := storage.NewFileStore(cfg.StorageDir, domain.DocumentBucket)
	if err != nil {
		log.Fatal("Falha ao preparar o armazenamento de documentos.", err)
	}

	// D. Localidades (IBGE e ViaCEP)
	geoClient := geo.NewClient(geo.Options{
		IBGEBaseURL:   cfg.IBGEBaseURL,
		ViaCEPBaseURL: cfg.ViaCEPBaseURL,
		Timeout:       cfg.HTTPClientTimeout,
		CacheTTL:      cfg.GeoCacheTTL,
	}, cacheClient, log)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	accountRepo := accountrepo.NewAccountRepository(db, cfg.DBTimeout, log)
	profileRepo := profilerepo.NewProfileRepository(db, cfg.DBTimeout, log)
	analysisRepo := analysisrepo.NewAnalysisRepository(db, cfg.DBTimeout, log)
	documentRepo := documentrepo.NewDocumentRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	notifier := authstate.NewNotifier()

	authSvc := authservice.NewService(authservice.Deps{
		Accounts: accountRepo,
		Profiles: profileRepo,
		Tokens:   tokenSvc,
		Cache:    cacheClient,
		Events:   notifier,
		Mailer:   authservice.NewLogMailer(log),
		Postal:   geoClient,
		Logger:   log,
	}, authservice.Options{
		AppBaseURL:       cfg.AppBaseURL,
		PasswordResetTTL: cfg.PasswordResetTTL,
		FlagRetries:      3,
	})

	// O Provider mantém o estado de autenticação por sessão e reage aos eventos da fachada.
	provider := authstate.NewProvider(authSvc, authSvc, notifier, log)
	providerCtx, stopProvider := context.WithCancel(context.Background())
	provider.Start(providerCtx)
	defer func() {
		stopProvider()
		provider.Close()
	}()

	profileSvc := profileservice.NewService(profileRepo, provider, notifier, geoClient, log)
	analysisSvc := analysisservice.NewService(analysisRepo, analysisservice.NewLogNotifier(log), log)
	documentSvc := documentservice.NewService(documentRepo, analysisRepo, store, cfg.MaxUploadBytes, log)
	dashboardSvc := dashboardservice.NewService(analysisRepo, profileRepo, log)
	log.Debug("Serviços inicializados.", nil)

	handlers := router.Handlers{
		Auth:      auth.NewHandler(authSvc, provider, log),
		Profile:   profile.NewHandler(profileSvc, log),
		Analysis:  analysis.NewHandler(analysisSvc, log),
		Document:  document.NewHandler(documentSvc, cfg.MaxUploadBytes, log),
		Admin:     admin.NewHandler(authSvc, profileSvc, analysisSvc, log),
		Geo:       geoapi.NewHandler(geoClient, log),
		Dashboard: dashboard.NewHandler(dashboardSvc, log),
	}

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(handlers, router.Options{
		Sessions:        authSvc,
		States:          provider,
		Cache:           cacheClient,
		RateLimitMax:    cfg.RateLimitMaxRequests,
		RateLimitPeriod: cfg.RateLimitPeriod,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor S8 Garante ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
