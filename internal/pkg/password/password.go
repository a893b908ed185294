package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Alphabet é o conjunto de caracteres das senhas provisórias.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*"

// GeneratedLength é o tamanho das senhas provisórias entregues pelo admin.
const GeneratedLength = 12

// MinLength é o tamanho mínimo aceito para senhas escolhidas pelo usuário.
const MinLength = 8

// ErrTooShort indica uma senha menor que MinLength.
var ErrTooShort = errors.New("a senha deve ter pelo menos 8 caracteres")

// Generate sorteia uma senha de n caracteres do Alphabet usando crypto/rand.
func Generate(n int) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("falha ao gerar senha: %w", err)
		}
		out[i] = Alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Hash gera o hash bcrypt da senha.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifica a senha em texto puro contra o hash salvo.
func Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Validate aplica a política mínima de senha.
func Validate(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	return nil
}
