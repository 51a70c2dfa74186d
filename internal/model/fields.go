package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ItemFields holds the editable descriptive fields of an item as entered in a form.
// Amounts are kept as text until they are parsed with ParseAmount.
type ItemFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	MSRP        string `json:"msrp"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Weight      string `json:"weight"`
	Dimensions  string `json:"dimensions"`
}

// Editable field names.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldMSRP        = "msrp"
	FieldCategory    = "category"
	FieldCondition   = "condition"
	FieldBrand       = "brand"
	FieldModel       = "model"
	FieldColor       = "color"
	FieldSize        = "size"
	FieldWeight      = "weight"
	FieldDimensions  = "dimensions"
)

// EditableFields lists every field accepted by SetField.
var EditableFields = []string{
	FieldTitle, FieldDescription, FieldPrice, FieldMSRP, FieldCategory, FieldCondition,
	FieldBrand, FieldModel, FieldColor, FieldSize, FieldWeight, FieldDimensions,
}

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseAmount parses a non-negative monetary amount. Empty input is zero;
// anything that is not a finite non-negative number is rejected.
func ParseAmount(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	if v < 0 {
		return 0, &ValidationError{Field: field, Message: "must not be negative"}
	}
	return v, nil
}

// SetField applies a single field edit to the item.
func (i *Item) SetField(field, value string) error {
	switch field {
	case FieldTitle:
		i.Title = value
	case FieldDescription:
		i.Description = value
	case FieldCategory:
		i.Category = value
	case FieldCondition:
		i.Condition = value
	case FieldBrand:
		i.Brand = value
	case FieldModel:
		i.Model = value
	case FieldColor:
		i.Color = value
	case FieldSize:
		i.Size = value
	case FieldWeight:
		i.Weight = value
	case FieldDimensions:
		i.Dimensions = value
	case FieldPrice:
		v, err := ParseAmount(field, value)
		if err != nil {
			return err
		}
		i.Price = v
	case FieldMSRP:
		v, err := ParseAmount(field, value)
		if err != nil {
			return err
		}
		i.MSRP = v
	default:
		return &ValidationError{Field: field, Message: "unknown field"}
	}
	return nil
}

// Apply copies the descriptive fields onto the item, parsing both amounts.
func (f ItemFields) Apply(i *Item) error {
	price, err := ParseAmount(FieldPrice, f.Price)
	if err != nil {
		return err
	}
	msrp, err := ParseAmount(FieldMSRP, f.MSRP)
	if err != nil {
		return err
	}

	i.Title = f.Title
	i.Description = f.Description
	i.Category = f.Category
	i.Condition = f.Condition
	i.Brand = f.Brand
	i.Model = f.Model
	i.Color = f.Color
	i.Size = f.Size
	i.Weight = f.Weight
	i.Dimensions = f.Dimensions
	i.Price = price
	i.MSRP = msrp
	return nil
}
