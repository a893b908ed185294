package domain

// StatusCounts agrega análises por status.
type StatusCounts struct {
	Total      int `json:"total"`
	Aguardando int `json:"aguardando"`
	Aprovado   int `json:"aprovado"`
	Rejeitado  int `json:"rejeitado"`
	// Percentuais inteiros sobre o total
	PctAguardando int `json:"pct_aguardando"`
	PctAprovado   int `json:"pct_aprovado"`
	PctRejeitado  int `json:"pct_rejeitado"`
}

// AdminDashboard é o painel do administrador.
type AdminDashboard struct {
	Analyses        StatusCounts `json:"analises"`
	ByPlan          map[Plan]int `json:"por_plano"`
	Agencies        int          `json:"imobiliarias"`
	ActiveAgencies  int          `json:"imobiliarias_ativas"`
	PendingAgencies int          `json:"imobiliarias_pendentes"`
	Recent          []Analysis   `json:"recentes"`
}

// AgencyDashboard é o painel da imobiliária.
type AgencyDashboard struct {
	Analyses StatusCounts `json:"analises"`
	ByPlan   map[Plan]int `json:"por_plano"`
	Recent   []Analysis   `json:"recentes"`
}
