package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/format"
	"s8garante/internal/pkg/logger"
)

// maxResponseBytes limita o corpo lido das APIs externas. A lista de
// municípios de MG, a maior, fica abaixo de 1 MB.
const maxResponseBytes = 4 << 20

// Options configura o cliente de localidades.
type Options struct {
	IBGEBaseURL   string
	ViaCEPBaseURL string
	Timeout       time.Duration
	CacheTTL      time.Duration
}

// Client consulta as APIs públicas do IBGE (estados e municípios) e do ViaCEP.
// As respostas ficam no cache por CacheTTL; falhas do cache não impedem a consulta.
type Client struct {
	httpClient *http.Client
	ibgeBase   string
	viacepBase string
	cache      cache.Client
	ttl        time.Duration
	logger     logger.Logger
}

// NewClient cria o cliente HTTP de localidades.
func NewClient(opts Options, cacheClient cache.Client, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		ibgeBase:   strings.TrimRight(opts.IBGEBaseURL, "/"),
		viacepBase: strings.TrimRight(opts.ViaCEPBaseURL, "/"),
		cache:      cacheClient,
		ttl:        opts.CacheTTL,
		logger:     log,
	}
}

// States lista as unidades federativas ordenadas por nome.
func (c *Client) States(ctx context.Context) ([]domain.BrazilianState, error) {
	var states []domain.BrazilianState
	url := c.ibgeBase + "/localidades/estados?orderBy=nome"
	if err := c.fetch(ctx, "geo:estados", url, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// Cities lista os municípios de uma UF ordenados por nome.
func (c *Client) Cities(ctx context.Context, stateID int) ([]domain.City, error) {
	if stateID <= 0 {
		return nil, apperror.NewValidationError("Identificador de estado inválido.")
	}
	var cities []domain.City
	url := fmt.Sprintf("%s/localidades/estados/%d/municipios?orderBy=nome", c.ibgeBase, stateID)
	if err := c.fetch(ctx, fmt.Sprintf("geo:municipios:%d", stateID), url, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro,omitempty"`
}

// LookupCEP consulta o endereço de um CEP. O CEP deve ter 8 dígitos
// (pontuação é ignorada).
func (c *Client) LookupCEP(ctx context.Context, cep string) (domain.PostalLookup, error) {
	digits := format.Digits(cep)
	if len(digits) != 8 {
		return domain.PostalLookup{}, apperror.NewValidationError("CEP deve ter 8 dígitos.")
	}

	var resp viaCEPResponse
	url := fmt.Sprintf("%s/ws/%s/json/", c.viacepBase, digits)
	if err := c.fetch(ctx, "geo:cep:"+digits, url, &resp); err != nil {
		return domain.PostalLookup{}, err
	}
	// O ViaCEP responde 200 com {"erro": true} (ou "true") para CEPs inexistentes.
	if resp.Erro != nil && fmt.Sprint(resp.Erro) != "false" {
		return domain.PostalLookup{}, apperror.NewNotFoundError(fmt.Sprintf("CEP '%s' não encontrado", digits))
	}

	return domain.PostalLookup{
		CEP:          digits,
		Street:       resp.Logradouro,
		Neighborhood: resp.Bairro,
		City:         resp.Localidade,
		State:        resp.UF,
	}, nil
}

// fetch lê a chave do cache ou faz o GET e grava o corpo no cache.
func (c *Client) fetch(ctx context.Context, key, url string, out interface{}) error {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, key)
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(cached), out); jsonErr == nil {
				return nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("Falha ao ler cache de localidades.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperror.NewInternalError("falha ao montar requisição de localidades", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Falha na chamada ao serviço de localidades.", err)
		return apperror.NewInternalError("serviço de localidades indisponível", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return apperror.NewInternalError("falha ao ler resposta de localidades", err)
	}
	if len(body) > maxResponseBytes {
		return apperror.NewInternalError("resposta de localidades muito grande",
			fmt.Errorf("GET %s: resposta acima de %d bytes", url, maxResponseBytes))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperror.NewNotFoundError("localidade não encontrada")
	case resp.StatusCode == http.StatusBadRequest:
		return apperror.NewValidationError("consulta de localidade inválida")
	case resp.StatusCode != http.StatusOK:
		return apperror.NewInternalError(
			fmt.Sprintf("serviço de localidades respondeu %d", resp.StatusCode),
			fmt.Errorf("GET %s: %s", url, strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperror.NewInternalError("resposta de localidades inválida", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, string(body), c.ttl); err != nil {
			c.logger.Warn("Falha ao gravar cache de localidades.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return nil
}
