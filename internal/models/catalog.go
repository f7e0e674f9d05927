package models

import (
	"fmt"
	"math"
)

// Unit is the unit of measure for a catalog item or list line.
type Unit string

const (
	// UnitPiece counts discrete items.
	UnitPiece Unit = "unidade"
	// UnitWeight measures in kilograms and allows fractional quantities.
	UnitWeight Unit = "peso"
)

// Valid reports whether the unit is one of the known units.
func (u Unit) Valid() bool {
	return u == UnitPiece || u == UnitWeight
}

// Category groups catalog items.
type Category struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color" db:"color"`
}

// Item is a reusable product definition, independent of any list. Price is
// the reference price per unit (per piece, or per kilogram for weight items).
type Item struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	CategoryID  string  `json:"categoryId" db:"category_id"`
	Price       float64 `json:"price,omitempty" db:"price"`
	DefaultUnit Unit    `json:"defaultUnit,omitempty" db:"default_unit"`
	DefaultQty  float64 `json:"defaultQty,omitempty" db:"default_qty"`
}

// Validate checks the default-quantity invariant: weight items take any
// positive quantity, piece items take a positive whole number.
func (i Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if i.DefaultUnit != "" && !i.DefaultUnit.Valid() {
		return fmt.Errorf("unknown unit %q", i.DefaultUnit)
	}
	if i.DefaultQty == 0 {
		return nil
	}
	if i.DefaultQty < 0 {
		return fmt.Errorf("default quantity must be positive")
	}
	if i.DefaultUnit == UnitPiece && i.DefaultQty != math.Trunc(i.DefaultQty) {
		return fmt.Errorf("piece items take whole default quantities")
	}
	return nil
}
