package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer identifica os tokens emitidos por esta API.
const Issuer = "S8Garante-API"

// CustomClaims define as informações da sessão armazenadas no JWT.
// O papel (tipo_usuario) não é gravado no token: ele é sempre lido do perfil.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionID retorna o identificador da sessão (claim jti).
func (c *CustomClaims) SessionID() string { return c.ID }

// Service emite e valida tokens de sessão assinados com HS256.
type Service struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewService cria uma nova instância do serviço Token.
func NewService(secretKey string, expiry time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Expiry retorna a duração de validade dos tokens emitidos.
func (s *Service) Expiry() time.Duration { return s.expiry }

// GenerateToken cria um novo JWT para uma nova sessão e devolve o token e suas claims.
func (s *Service) GenerateToken(userID, email string) (string, *CustomClaims, error) {
	now := s.now()
	claims := &CustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   userID,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := tok.SignedString(s.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("falha ao assinar o token: %w", err)
	}

	return tokenString, claims, nil
}

// ValidateToken valida o token string e retorna as claims se for válido.
func (s *Service) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("token inválido: %w", err)
	}

	if !tok.Valid {
		return nil, errors.New("token não é válido")
	}

	if claims.ID == "" || claims.UserID == "" {
		return nil, errors.New("token sem identificação de sessão")
	}

	return claims, nil
}
