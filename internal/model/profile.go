package model

// Profile represents the reseller's profile. TotalSales and TotalListings are
// derived from the item collection whenever the profile is loaded.
type Profile struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Location string  `json:"location"`
	Avatar   string  `json:"avatar"`
	JoinDate string  `json:"join_date"`
	Rating   float64 `json:"rating"`

	TotalSales    float64 `json:"total_sales"`
	TotalListings int     `json:"total_listings"`
}

// DefaultProfile is used until the user saves their own profile.
func DefaultProfile() Profile {
	return Profile{
		Name:     "Alex Johnson",
		Email:    "alex.johnson@email.com",
		Phone:    "+1 (555) 123-4567",
		Location: "San Francisco, CA",
		Avatar:   "/placeholder.svg",
		JoinDate: "2023-06-15",
		Rating:   4.8,
	}
}

// WithDerivedStats returns a copy of the profile with the sales figures recomputed from items.
func (p Profile) WithDerivedStats(items []Item) Profile {
	p.TotalSales = 0
	for i := range items {
		if items[i].Sold {
			p.TotalSales += items[i].Price
		}
	}
	p.TotalListings = len(items)
	return p
}
