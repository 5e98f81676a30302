package finance

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Category is the closed set of transaction categories.
type Category int

const (
	CategoryFood Category = iota
	CategoryTransportation
	CategoryHousing
	CategoryUtilities
	CategoryEntertainment
	CategoryHealth
	CategoryShopping
	CategoryPersonal
	CategoryEducation
	CategoryTravel
	CategorySalary
	CategoryInvestment
	CategoryTransfer
	CategoryOther

	categoryCount
)

// NumCategories is the size of the category enumeration.
const NumCategories = int(categoryCount)

var categoryNames = [categoryCount]string{
	CategoryFood:           "food",
	CategoryTransportation: "transportation",
	CategoryHousing:        "housing",
	CategoryUtilities:      "utilities",
	CategoryEntertainment:  "entertainment",
	CategoryHealth:         "health",
	CategoryShopping:       "shopping",
	CategoryPersonal:       "personal",
	CategoryEducation:      "education",
	CategoryTravel:         "travel",
	CategorySalary:         "salary",
	CategoryInvestment:     "investment",
	CategoryTransfer:       "transfer",
	CategoryOther:          "other",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, categoryCount)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// ParseCategory converts a category name (case-insensitive) to a Category.
func ParseCategory(name string) (Category, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == lower {
			return Category(i), nil
		}
	}
	return CategoryOther, &DataError{
		Code:    ErrUnknownCategory,
		Field:   "category",
		Message: "unknown category " + strconv.Quote(name),
	}
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, &DataError{Code: ErrUnknownCategory, Field: "category", Message: "unknown category value"}
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategoryAmounts holds one amount per category, indexed by Category.
type CategoryAmounts [categoryCount]float64

// Add accumulates amount into category c. Invalid categories land in Other.
func (a *CategoryAmounts) Add(c Category, amount float64) {
	if !c.Valid() {
		c = CategoryOther
	}
	a[c] += amount
}

// Get returns the amount recorded for c.
func (a CategoryAmounts) Get(c Category) float64 {
	if !c.Valid() {
		return 0
	}
	return a[c]
}

// Total sums every category.
func (a CategoryAmounts) Total() float64 {
	var total float64
	for _, v := range a {
		total += v
	}
	return total
}

// Scale returns a copy with every entry multiplied by f.
func (a CategoryAmounts) Scale(f float64) CategoryAmounts {
	var out CategoryAmounts
	for i, v := range a {
		out[i] = v * f
	}
	return out
}

// CategoryAmount is one entry of a ranked category list.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
}

// Ranked returns the non-zero entries sorted by amount descending. Ties keep
// declaration order.
func (a CategoryAmounts) Ranked() []CategoryAmount {
	var out []CategoryAmount
	for i, v := range a {
		if v != 0 {
			out = append(out, CategoryAmount{Category: Category(i), Amount: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out
}

// MarshalJSON encodes the non-zero entries as an object keyed by category name.
func (a CategoryAmounts) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64)
	for i, v := range a {
		if v != 0 {
			m[categoryNames[i]] = v
		}
	}
	return json.Marshal(m)
}

func (a *CategoryAmounts) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out CategoryAmounts
	for name, v := range m {
		c, err := ParseCategory(name)
		if err != nil {
			return err
		}
		out[c] = v
	}
	*a = out
	return nil
}
