package models

// PlaceholderBalance is shown until real balances are fetched from the provider.
const PlaceholderBalance = 1234.56

// CategorizedAmount maps spending categories to their summed amounts.
type CategorizedAmount map[CategoryLabel]float64

// DashboardSummary is the aggregated view rendered on the client's home screen.
type DashboardSummary struct {
	Balance  float64           `json:"balance_simulado"`
	Spending CategorizedAmount `json:"gasto_categorias"`
	Insight  string            `json:"insight_ahorro"`
	Tip      string            `json:"tip_dia"`
}

// DashboardResult pairs a summary with the provenance of the transactions behind it.
type DashboardResult struct {
	Summary    DashboardSummary
	Provenance Provenance
}
