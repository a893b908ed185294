package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCNPJ(t *testing.T) {
	assert.Equal(t, "12.345.678/0001-90", CNPJ("12345678000190"))
	assert.Equal(t, "12.345.678/0001-90", CNPJ("12.345.678/0001-90"))
	assert.Equal(t, "123", CNPJ("123"))
}

func TestCPFAndPhoneAndCEP(t *testing.T) {
	assert.Equal(t, "123.456.789-09", CPF("12345678909"))
	assert.Equal(t, "(11) 98765-4321", Phone("11987654321"))
	assert.Equal(t, "(11) 3456-7890", Phone("1134567890"))
	assert.Equal(t, "999", Phone("999"))
	assert.Equal(t, "01001-000", CEP("01001000"))
}

func TestCurrency(t *testing.T) {
	tests := map[float64]string{
		1234.5:     "R$ 1.234,50",
		0:          "R$ 0,00",
		5.05:       "R$ 5,05",
		999:        "R$ 999,00",
		1000000.99: "R$ 1.000.000,99",
		-42.1:      "-R$ 42,10",
	}
	for in, want := range tests {
		assert.Equal(t, want, Currency(in), "valor %v", in)
	}
}

func TestDateTimeAndPercent(t *testing.T) {
	ts := time.Date(2026, 3, 7, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "07/03/2026 às 09:05", DateTime(ts))
	assert.Equal(t, "", DateTime(time.Time{}))

	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 0, Percent(1, 0))
}
