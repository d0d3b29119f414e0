package types

// Category classifies a risk
type Category string

const (
	CategoryStrategic   Category = "strategic"
	CategoryOperational Category = "operational"
	CategoryCompliance  Category = "compliance"
	CategoryFinancial   Category = "financial"
	CategoryTechnology  Category = "technology"
	CategoryLegal       Category = "legal"
)

// AllCategories returns all valid risk categories
func AllCategories() []Category {
	return []Category{
		CategoryStrategic,
		CategoryOperational,
		CategoryCompliance,
		CategoryFinancial,
		CategoryTechnology,
		CategoryLegal,
	}
}

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryStrategic,
		CategoryOperational,
		CategoryCompliance,
		CategoryFinancial,
		CategoryTechnology,
		CategoryLegal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}
