package geo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/geo"
	"s8garante/internal/pkg/logger"
)

func newClient(t *testing.T, handler http.HandlerFunc) (*geo.Client, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := geo.NewClient(geo.Options{
		IBGEBaseURL:   srv.URL + "/api/v1",
		ViaCEPBaseURL: srv.URL,
		Timeout:       2 * time.Second,
		CacheTTL:      time.Hour,
	}, cache.NewMemory(), logger.Nop())
	return c, &calls
}

func TestStates_CachesResponse(t *testing.T) {
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/localidades/estados", r.URL.Path)
		assert.Equal(t, "nome", r.URL.Query().Get("orderBy"))
		w.Write([]byte(`[{"id":12,"sigla":"AC","nome":"Acre"},{"id":35,"sigla":"SP","nome":"São Paulo"}]`))
	})

	states, err := c.States(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "SP", states[1].Acronym)

	_, err = c.States(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCities(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/localidades/estados/35/municipios", r.URL.Path)
		w.Write([]byte(`[{"id":3550308,"nome":"São Paulo"}]`))
	})

	cities, err := c.Cities(context.Background(), 35)
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", cities[0].Name)
}

func TestLookupCEP(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01001000/json/", r.URL.Path)
		w.Write([]byte(`{"cep":"01001-000","logradouro":"Praça da Sé","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`))
	})

	lookup, err := c.LookupCEP(context.Background(), "01001-000")
	require.NoError(t, err)
	assert.Equal(t, "Praça da Sé", lookup.Street)
	assert.Equal(t, "SP", lookup.State)
	assert.Equal(t, "01001000", lookup.CEP)
}

func TestLookupCEP_InvalidLength(t *testing.T) {
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.LookupCEP(context.Background(), "1234")
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestLookupCEP_NotFound(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"erro": true}`))
	})

	_, err := c.LookupCEP(context.Background(), "99999999")
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestUpstreamFailure(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.States(context.Background())
	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestOversizedResponseIsRejected(t *testing.T) {
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[" + strings.Repeat(" ", 5<<20) + "]"))
	})

	_, err := c.States(context.Background())
	assert.IsType(t, &apperror.InternalError{}, err)

	// Nada foi para o cache.
	_, err = c.States(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}
