package services

import (
	"nexusmc-api/internal/models"
)

const (
	insightDefault      = "Una cartera diversificada es clave para el crecimiento a largo plazo. Considera tu tolerancia al riesgo."
	insightLongHorizon  = "Con un horizonte de tiempo largo, podrías considerar una mayor exposición a activos de crecimiento como acciones. (Ejemplo ilustrativo)."
	insightBalance      = "Balancear crecimiento y preservación de capital es importante. Revisa tu asignación de activos periódicamente. (Ejemplo ilustrativo)."
	insightPreservation = "En esta etapa, priorizar la preservación del capital y considerar inversiones que generen ingresos puede ser prudente. (Ejemplo ilustrativo)."
)

// InvestmentService serves illustrative investment content; nothing here is a recommendation.
type InvestmentService struct{}

func NewInvestmentService() InvestmentServiceInterface {
	return &InvestmentService{}
}

func demoESGFund() *models.ESGFund {
	return &models.ESGFund{
		FundName:       "EcoFuture Leaders Fund (DEMO)",
		TickerSymbol:   "EFLFX",
		Description:    "Invierte en empresas globales líderes en innovación sostenible y prácticas éticas. (Datos ilustrativos).",
		KeyMetricLabel: "Rentabilidad Anualizada (5 Años - Ejemplo)",
		KeyMetricValue: "11.5%",
		ESGFocus:       []string{"Energía Limpia", "Gobierno Corporativo", "Impacto Social"},
		Disclaimer:     "**DATOS SÓLO PARA FINES DEMOSTRATIVOS. NO ES UNA RECOMENDACIÓN DE INVERSIÓN.**",
	}
}

func (s *InvestmentService) GetDemoData(user *models.User) *models.InvestmentOverview {
	overview := &models.InvestmentOverview{
		ESGInfoActive: user.ESGInterest,
		Insight:       investmentInsight(user.AgeOrZero()),
	}

	if user.ESGInterest {
		overview.ESGFund = demoESGFund()
	}

	return overview
}

func investmentInsight(age int) string {
	switch {
	case age <= 0:
		return insightDefault
	case age < 35:
		return insightLongHorizon
	case age < 55:
		return insightBalance
	default:
		return insightPreservation
	}
}
