// Package format contém os formatadores de exibição usados nas respostas da API
// (CNPJ, CPF, telefone, moeda e data no padrão brasileiro).
package format

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Digits remove tudo que não for dígito.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CNPJ formata 14 dígitos como 12.345.678/0001-90. Outras entradas voltam sem mudança.
func CNPJ(cnpj string) string {
	d := Digits(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// CPF formata 11 dígitos como 123.456.789-09.
func CPF(cpf string) string {
	d := Digits(cpf)
	if len(d) != 11 {
		return cpf
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Phone formata celulares (11 dígitos) e fixos (10 dígitos) com DDD.
func Phone(phone string) string {
	d := Digits(phone)
	switch len(d) {
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	default:
		return phone
	}
}

// CEP formata 8 dígitos como 01001-000.
func CEP(cep string) string {
	d := Digits(cep)
	if len(d) != 8 {
		return cep
	}
	return d[0:5] + "-" + d[5:8]
}

// Currency formata um valor em reais: 1234.5 -> "R$ 1.234,50".
func Currency(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	if value < 0 && cents > 0 {
		b.WriteString("-")
	}
	b.WriteString("R$ ")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	frac := cents % 100
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

// DateTime formata como "dd/MM/yyyy às HH:mm". Zero vira string vazia.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 às 15:04")
}

// Percent arredonda a fração part/total para um inteiro de 0 a 100.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
