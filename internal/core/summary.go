package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
	Count    int      `json:"count"`
}

// StatusAmount represents an amount aggregated by clearing status.
type StatusAmount struct {
	Status Status `json:"status"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// Summary is a compact overview of the whole collection.
type Summary struct {
	Count      int              `json:"count"`
	Total      Money            `json:"total"`
	ByCategory []CategoryAmount `json:"byCategory"`
	ByStatus   []StatusAmount   `json:"byStatus"`
}

// Summarize aggregates expenses. Categories and statuses with no expenses
// are omitted; the rest keep their declared order.
func Summarize(expenses []Expense) Summary {
	byCat := make(map[Category]*CategoryAmount)
	byStatus := make(map[Status]*StatusAmount)
	var s Summary
	for _, e := range expenses {
		s.Count++
		s.Total.Cents += e.Amount.Cents

		ca, ok := byCat[e.Category]
		if !ok {
			ca = &CategoryAmount{Category: e.Category}
			byCat[e.Category] = ca
		}
		ca.Amount.Cents += e.Amount.Cents
		ca.Count++

		sa, ok := byStatus[e.Status]
		if !ok {
			sa = &StatusAmount{Status: e.Status}
			byStatus[e.Status] = sa
		}
		sa.Amount.Cents += e.Amount.Cents
		sa.Count++
	}
	for _, c := range Categories() {
		if ca, ok := byCat[c]; ok {
			s.ByCategory = append(s.ByCategory, *ca)
		}
	}
	for _, st := range Statuses() {
		if sa, ok := byStatus[st]; ok {
			s.ByStatus = append(s.ByStatus, *sa)
		}
	}
	return s
}
