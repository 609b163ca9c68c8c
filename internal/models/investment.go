package models

// ESGFund describes the illustrative sustainable fund shown to users interested in ESG investing.
type ESGFund struct {
	FundName       string   `json:"fundName"`
	TickerSymbol   string   `json:"tickerSymbol"`
	Description    string   `json:"description"`
	KeyMetricLabel string   `json:"keyMetricLabel"`
	KeyMetricValue string   `json:"keyMetricValue"`
	ESGFocus       []string `json:"esgFocus"`
	Disclaimer     string   `json:"disclaimer"`
}

// InvestmentOverview is the demo investment payload tailored to a user's profile.
type InvestmentOverview struct {
	ESGInfoActive bool     `json:"esg_info_active"`
	ESGFund       *ESGFund `json:"fondo_esg_demo"`
	Insight       string   `json:"insight_inversion"`
}
