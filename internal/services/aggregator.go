package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"nexusmc-api/internal/models"

	"github.com/shopspring/decimal"
)

var ErrCategoryCountMismatch = errors.New("category count does not match expense count")

const noSpendingInsight = "Aún no hay suficientes datos de gastos para generar un insight."

var financialTips = []string{
	"Automatiza tus ahorros transfiriendo un % a una cuenta separada cada mes.",
	"Revisa tus suscripciones mensuales. ¿Realmente usas todas?",
	"Prioriza pagar las deudas con interés más alto primero (método avalancha).",
	"El interés compuesto es tu mejor amigo. Empieza a invertir temprano.",
	"Crea un presupuesto realista y síguelo. Usa la regla 50/30/20 como guía.",
	"Ten un fondo de emergencia que cubra 3-6 meses de gastos esenciales.",
	"Evita compras impulsivas esperando 24 horas antes de decidir.",
	"Compara precios antes de hacer compras grandes.",
	"Aprovecha descuentos y programas de lealtad.",
	"Invierte en tu educación financiera continuamente.",
}

// FinancialTips returns a copy of the tip-of-the-day pool.
func FinancialTips() []string {
	tips := make([]string, len(financialTips))
	copy(tips, financialTips)
	return tips
}

// Aggregator sums expense amounts per category and phrases the dashboard texts.
// Apart from Tip it is a pure function of its input.
type Aggregator struct {
	pick func(n int) int
}

func NewAggregator() AggregatorInterface {
	return &Aggregator{pick: rand.IntN}
}

// NewAggregatorWithPicker uses pick(n) to choose the tip index in [0, n).
func NewAggregatorWithPicker(pick func(n int) int) AggregatorInterface {
	return &Aggregator{pick: pick}
}

// SpendingByCategory pairs the i-th expense with categories[i]. Income, Transfers and
// Other never appear in the result.
func (a *Aggregator) SpendingByCategory(transactions []models.Transaction, categories []models.CategoryLabel) (models.CategorizedAmount, error) {
	totals := make(map[models.CategoryLabel]decimal.Decimal)

	next := 0
	for _, tx := range transactions {
		if !tx.IsExpense() {
			continue
		}
		if next >= len(categories) {
			return nil, fmt.Errorf("%w: more expenses than categories (%d)", ErrCategoryCountMismatch, len(categories))
		}

		category := categories[next]
		next++

		if !category.IsSpending() {
			continue
		}
		totals[category] = totals[category].Add(decimal.NewFromFloat(tx.Amount))
	}

	if next != len(categories) {
		return nil, fmt.Errorf("%w: %d expenses, %d categories", ErrCategoryCountMismatch, next, len(categories))
	}

	spending := make(models.CategorizedAmount, len(totals))
	for category, total := range totals {
		spending[category] = total.InexactFloat64()
	}

	return spending, nil
}

// TopCategory returns the category with the largest total. Ties go to the
// lexicographically smallest label.
func (a *Aggregator) TopCategory(spending models.CategorizedAmount) (models.CategoryLabel, float64, bool) {
	if len(spending) == 0 {
		return "", 0, false
	}

	labels := make([]models.CategoryLabel, 0, len(spending))
	for label := range spending {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	top := labels[0]
	for _, label := range labels[1:] {
		if spending[label] > spending[top] {
			top = label
		}
	}

	return top, spending[top], true
}

func (a *Aggregator) Insight(spending models.CategorizedAmount) string {
	top, amount, ok := a.TopCategory(spending)
	if !ok {
		return noSpendingInsight
	}

	return fmt.Sprintf("Tu mayor área de gasto parece ser %s ($%s). ¡Una oportunidad para revisar!",
		top, decimal.NewFromFloat(amount).StringFixed(2))
}

func (a *Aggregator) Tip() string {
	return financialTips[a.pick(len(financialTips))]
}

func (a *Aggregator) Summarize(transactions []models.Transaction, categories []models.CategoryLabel) (*models.DashboardSummary, error) {
	spending, err := a.SpendingByCategory(transactions, categories)
	if err != nil {
		return nil, err
	}

	return &models.DashboardSummary{
		Balance:  models.PlaceholderBalance,
		Spending: spending,
		Insight:  a.Insight(spending),
		Tip:      a.Tip(),
	}, nil
}
