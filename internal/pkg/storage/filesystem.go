package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound é retornado quando o objeto não existe no bucket.
var ErrNotFound = errors.New("objeto não encontrado")

// ErrAlreadyExists é retornado quando o caminho já está ocupado (sem upsert).
var ErrAlreadyExists = errors.New("objeto já existe")

// ErrInvalidPath indica um caminho fora do bucket.
var ErrInvalidPath = errors.New("caminho de objeto inválido")

// ObjectStore é o contrato do armazenamento de objetos consumido pelos serviços.
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// FileStore guarda objetos em um diretório local, um subdiretório por bucket.
type FileStore struct {
	root string
}

// NewFileStore cria (se necessário) o diretório do bucket.
func NewFileStore(baseDir, bucket string) (*FileStore, error) {
	root := filepath.Join(baseDir, bucket)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("falha ao criar bucket %s: %w", bucket, err)
	}
	return &FileStore{root: root}, nil
}

// resolve rejeita caminhos com algum segmento ".."; nomes como
// "contrato..final.pdf" são válidos.
func (s *FileStore) resolve(path string) (string, error) {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}

// Put grava o conteúdo em path. Falha com ErrAlreadyExists se o objeto já existir.
func (s *FileStore) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(full)
		return 0, err
	}
	return n, nil
}

// Open abre o objeto para leitura. O chamador deve fechar o leitor.
func (s *FileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete remove o objeto. Remover um objeto inexistente não é erro.
func (s *FileStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
