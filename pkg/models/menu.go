package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuCategory string

const (
	CategoryAppetizer MenuCategory = "appetizer"
	CategoryMain      MenuCategory = "main"
	CategoryDessert   MenuCategory = "dessert"
	CategoryDrink     MenuCategory = "drink"
)

var MenuCategories = []MenuCategory{CategoryAppetizer, CategoryMain, CategoryDessert, CategoryDrink}

func (c MenuCategory) Valid() bool {
	for _, mc := range MenuCategories {
		if c == mc {
			return true
		}
	}
	return false
}

// MenuItem is a catalog record. The ordering flow only reads it.
type MenuItem struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    MenuCategory    `gorm:"type:varchar(20);not null;index;check:category IN ('appetizer','main','dessert','drink')" json:"category"`
	Image       string          `gorm:"type:varchar(255)" json:"image"`
	Popular     bool            `gorm:"not null;default:false" json:"popular"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (MenuItem) TableName() string {
	return "menu_items"
}
