package model

// Stats summarises the item collection for the dashboard.
type Stats struct {
	TotalItems     int     `json:"total_items"`
	ListedItems    int     `json:"listed_items"`
	SoldItems      int     `json:"sold_items"`
	DraftItems     int     `json:"draft_items"`
	TotalValue     float64 `json:"total_value"`
	SoldValue      float64 `json:"sold_value"`
	AvgPrice       float64 `json:"avg_price"`
	ConversionRate float64 `json:"conversion_rate"`
}

// ComputeStats derives dashboard figures. ConversionRate is a percentage of sold items.
func ComputeStats(items []Item) Stats {
	var s Stats
	s.TotalItems = len(items)
	for i := range items {
		it := &items[i]
		s.TotalValue += it.Price
		switch it.Status() {
		case ItemStatusSold:
			s.SoldItems++
			s.SoldValue += it.Price
		case ItemStatusListed:
			s.ListedItems++
		default:
			s.DraftItems++
		}
	}
	if s.TotalItems > 0 {
		s.AvgPrice = s.TotalValue / float64(s.TotalItems)
		s.ConversionRate = float64(s.SoldItems) / float64(s.TotalItems) * 100
	}
	return s
}
