package domain

import "s8garante/internal/pkg/format"

// Address é o endereço postal guardado no perfil da imobiliária.
type Address struct {
	CEP          string `json:"cep"`
	State        string `json:"estado"`
	City         string `json:"cidade"`
	Street       string `json:"rua"`
	Number       string `json:"numero"`
	Complement   string `json:"complemento,omitempty"`
	Neighborhood string `json:"bairro"`
}

// PostalLookup é o endereço estruturado devolvido pela consulta de CEP.
type PostalLookup struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
}

// Autofill copia rua, bairro, cidade e estado da consulta de CEP, exatamente como vieram.
// Número e complemento são preservados.
func (a Address) Autofill(lookup PostalLookup) Address {
	a.Street = lookup.Street
	a.Neighborhood = lookup.Neighborhood
	a.City = lookup.City
	a.State = lookup.State
	return a
}

// NeedsAutofill informa se há CEP mas faltam os campos preenchíveis pela consulta.
func (a Address) NeedsAutofill() bool {
	return len(format.Digits(a.CEP)) == 8 && (a.Street == "" || a.City == "" || a.State == "")
}

// BrazilianState é uma UF como devolvida pelo IBGE.
type BrazilianState struct {
	ID      int    `json:"id"`
	Acronym string `json:"sigla"`
	Name    string `json:"nome"`
}

// City é um município como devolvido pelo IBGE.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
}
