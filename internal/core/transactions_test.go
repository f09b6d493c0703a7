package core

import (
	"reflect"
	"testing"
)

func sample() []Transaction {
	return []Transaction{
		{ID: "1", Date: "2024-01-03", Type: Expense, Category: "meals", Amount: 100},
		{ID: "2", Date: "2024-01-01", Type: Income, Category: "membership_fee", Amount: 500},
		{ID: "3", Date: "2024-01-03", Type: Expense, Category: "fuel", Amount: 40},
		{ID: "4", Date: "2024-01-02", Type: Expense, Category: "meals", Amount: 60},
		{ID: "5", Date: "2024-01-03", Type: Income, Category: "other_income", Amount: 7},
	}
}

func ids(txs []Transaction) []string {
	out := []string{}
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != (Summary{}) {
		t.Fatalf("empty list: %+v", got)
	}
	s := Summarize(sample())
	if s.TotalIncome != 507 || s.TotalExpense != 200 || s.Count != 5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.TotalIncome-s.TotalExpense != s.Balance {
		t.Fatalf("balance mismatch: %+v", s)
	}
}

func TestByCategory(t *testing.T) {
	got := ByCategory(sample(), Expense)
	want := []CategoryAmount{{Name: "meals", Amount: 160, Count: 2}, {Name: "fuel", Amount: 40, Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected breakdown: %+v", got)
	}
}

func TestFilter(t *testing.T) {
	txs := sample()
	cases := []struct {
		name  string
		types []TxType
		cats  []string
		want  []string
	}{
		{"all", TxTypes(), UsedCategories(txs), []string{"1", "2", "3", "4", "5"}},
		{"expense meals", []TxType{Expense}, []string{"meals"}, []string{"1", "4"}},
		{"no types", nil, UsedCategories(txs), []string{}},
		{"no categories", TxTypes(), nil, []string{}},
		{"type and category disjoint", []TxType{Income}, []string{"meals"}, []string{}},
	}
	for _, tc := range cases {
		got := Filter(txs, tc.types, tc.cats)
		if !reflect.DeepEqual(ids(got), tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, ids(got), tc.want)
		}
		for _, tx := range got {
			if !containsType(tc.types, tx.Type) || !containsString(tc.cats, tx.Category) {
				t.Fatalf("%s: %+v does not satisfy the filter", tc.name, tx)
			}
		}
	}
	if !reflect.DeepEqual(txs, sample()) {
		t.Fatalf("filter mutated input")
	}
}

func TestSortStable(t *testing.T) {
	txs := sample()
	asc := Sort(txs, true)
	if !reflect.DeepEqual(ids(asc), []string{"2", "4", "1", "3", "5"}) {
		t.Fatalf("ascending: %v", ids(asc))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i-1].Date > asc[i].Date {
			t.Fatalf("not non-decreasing at %d: %v", i, ids(asc))
		}
	}
	desc := Sort(txs, false)
	if !reflect.DeepEqual(ids(desc), []string{"1", "3", "5", "4", "2"}) {
		t.Fatalf("descending: %v", ids(desc))
	}
	if !reflect.DeepEqual(ids(txs), []string{"1", "2", "3", "4", "5"}) {
		t.Fatalf("sort mutated input: %v", ids(txs))
	}
}

func TestUsedCategories(t *testing.T) {
	got := UsedCategories(sample())
	want := []string{"meals", "membership_fee", "fuel", "other_income"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func containsType(ts []TxType, t TxType) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
