package models

// CategoryLabel is one of the fixed labels offered to the zero-shot classifier.
type CategoryLabel string

const (
	CategoryFoodAndDrink   CategoryLabel = "Food and Drink"
	CategoryTransportation CategoryLabel = "Transportation"
	CategoryShopping       CategoryLabel = "Shopping"
	CategoryBillsUtilities CategoryLabel = "Bills & Utilities"
	CategoryEntertainment  CategoryLabel = "Entertainment"
	CategoryHousing        CategoryLabel = "Housing"
	CategoryHealthWellness CategoryLabel = "Health & Wellness"
	CategoryEducation      CategoryLabel = "Education"
	CategoryIncome         CategoryLabel = "Income"
	CategoryTransfers      CategoryLabel = "Transfers"
	CategoryFeesCharges    CategoryLabel = "Fees & Charges"
	CategoryTravel         CategoryLabel = "Travel"
	CategoryPersonalCare   CategoryLabel = "Personal Care"
	CategoryGiftsDonations CategoryLabel = "Gifts & Donations"
	CategoryOther          CategoryLabel = "Other"
)

// candidateLabels keeps the order in which labels are sent to the classifier.
var candidateLabels = []CategoryLabel{
	CategoryFoodAndDrink,
	CategoryTransportation,
	CategoryShopping,
	CategoryBillsUtilities,
	CategoryEntertainment,
	CategoryHousing,
	CategoryHealthWellness,
	CategoryEducation,
	CategoryIncome,
	CategoryTransfers,
	CategoryFeesCharges,
	CategoryTravel,
	CategoryPersonalCare,
	CategoryGiftsDonations,
	CategoryOther,
}

// AllCategoryLabels returns a copy of the candidate labels in classifier order.
func AllCategoryLabels() []CategoryLabel {
	labels := make([]CategoryLabel, len(candidateLabels))
	copy(labels, candidateLabels)
	return labels
}

// CandidateLabelStrings returns the labels as plain strings for the inference payload.
func CandidateLabelStrings() []string {
	labels := make([]string, len(candidateLabels))
	for i, label := range candidateLabels {
		labels[i] = string(label)
	}
	return labels
}

// ParseCategoryLabel returns the label matching value exactly.
func ParseCategoryLabel(value string) (CategoryLabel, bool) {
	for _, label := range candidateLabels {
		if string(label) == value {
			return label, true
		}
	}
	return "", false
}

func (c CategoryLabel) IsValid() bool {
	_, ok := ParseCategoryLabel(string(c))
	return ok
}

// IsSpending reports whether amounts in this category count towards spending.
// Income, Transfers and Other are excluded from the dashboard totals.
func (c CategoryLabel) IsSpending() bool {
	switch c {
	case CategoryIncome, CategoryTransfers, CategoryOther:
		return false
	}
	return c.IsValid()
}

func (c CategoryLabel) String() string {
	return string(c)
}
