package core

// DefaultGroupIDs are the groups every fresh ledger starts with.
var DefaultGroupIDs = []string{"group1", "group2"}

var (
	defaultIncome  = []string{"membership_fee", "other_income"}
	defaultExpense = []string{"meals", "snacks", "transport", "fuel", "lodging", "other_expense"}
)

// DefaultCategories returns a fresh copy of the default category sets.
// Groups never share the backing arrays.
func DefaultCategories() Categories {
	return Categories{
		Income:  append([]string{}, defaultIncome...),
		Expense: append([]string{}, defaultExpense...),
	}
}

// NewGroup returns an empty group named after its id.
func NewGroup(id string) *Group {
	return &Group{
		Name:         id,
		Categories:   DefaultCategories(),
		Transactions: []Transaction{},
	}
}

// DefaultDocument is used when nothing could be loaded and by reset.
func DefaultDocument() Document {
	doc := make(Document, len(DefaultGroupIDs))
	for _, id := range DefaultGroupIDs {
		doc[id] = NewGroup(id)
	}
	return doc
}
