package core

// Summary aggregates a list of transactions.
type Summary struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	Balance      int64 `json:"balance"`
	Count        int   `json:"count"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

// Summarize computes totals over txs. An empty list yields all zeros.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome += t.Amount
		case Expense:
			s.TotalExpense += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	s.Count = len(txs)
	return s
}

// ByCategory totals the transactions of type t per category, in first-seen order.
func ByCategory(txs []Transaction, t TxType) []CategoryAmount {
	idx := map[string]int{}
	out := []CategoryAmount{}
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category})
		}
		out[i].Amount += tx.Amount
		out[i].Count++
	}
	return out
}
