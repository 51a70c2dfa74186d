package model

// Categories offered by the item editor.
var Categories = []string{
	"Electronics",
	"Footwear",
	"Clothing",
	"Accessories",
	"Home & Garden",
	"Sports & Outdoors",
	"Books",
	"Toys & Games",
	"Automotive",
	"Other",
}

// Conditions offered by the item editor, best first.
var Conditions = []string{"New", "Like New", "Excellent", "Good", "Fair", "Poor"}

// DateLayout is the day-granularity format of Item.DateAdded.
const DateLayout = "2006-01-02"
