package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config armazena todas as configurações do serviço S8 Garante.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	AppBaseURL  string // Usado para montar o link de redefinição de senha

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr    string
	CacheTimeout time.Duration

	// Segurança (JWT)
	JWTSecretKey     string
	TokenExpiry      time.Duration
	PasswordResetTTL time.Duration

	// Armazenamento de documentos
	StorageDir     string
	MaxUploadBytes int64

	// APIs externas de localidades (IBGE e ViaCEP)
	IBGEBaseURL       string
	ViaCEPBaseURL     string
	HTTPClientTimeout time.Duration
	GeoCacheTTL       time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() *Config {
	cfg := &Config{
		// 1. Geral
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AppBaseURL:  getEnv("APP_BASE_URL", "http://localhost:3000"),

		// 2. Banco de Dados (PostgreSQL)
		// mustGetEnv garante que a aplicação não inicie sem credenciais de DB
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		// 3. Cache (Redis)
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTimeout: getDurationEnv("CACHE_TIMEOUT_SEC", 10) * time.Second,

		// 4. Segurança (JWT)
		JWTSecretKey:     mustGetEnv("JWT_SECRET_KEY"),
		TokenExpiry:      getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute,
		PasswordResetTTL: getDurationEnv("PASSWORD_RESET_TTL_MIN", 30) * time.Minute,

		// 5. Armazenamento
		StorageDir:     getEnv("STORAGE_DIR", "./data/storage"),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_MB", 20)) << 20,

		// 6. Localidades
		IBGEBaseURL:       getEnv("IBGE_BASE_URL", "https://servicodados.ibge.gov.br/api/v1"),
		ViaCEPBaseURL:     getEnv("VIACEP_BASE_URL", "https://viacep.com.br"),
		HTTPClientTimeout: getDurationEnv("HTTP_CLIENT_TIMEOUT_SEC", 10) * time.Second,
		GeoCacheTTL:       getDurationEnv("GEO_CACHE_TTL_HOURS", 24) * time.Hour,

		// 7. Rate Limiting
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,
	}

	return cfg
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// mustGetEnv lê a variável de ambiente, fatal se não estiver presente.
func mustGetEnv(key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Fatalf("❌ Erro de Configuração: A variável de ambiente %s deve ser definida.", key)
	return ""
}

// getDurationEnv lê uma variável de ambiente numérica e retorna-a como time.Duration.
func getDurationEnv(key string, defaultValue int) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return time.Duration(defaultValue)
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return time.Duration(defaultValue)
	}
	return time.Duration(value)
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
