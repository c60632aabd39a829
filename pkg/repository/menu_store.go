package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

// MenuStore is the read side of the catalog.
type MenuStore struct {
	db *gorm.DB
}

func NewMenuStore(db *gorm.DB) *MenuStore {
	return &MenuStore{db: db}
}

func (s *MenuStore) List(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if err := s.db.WithContext(ctx).Order("category ASC").Order("name ASC").Find(&items).Error; err != nil {
		return nil, apperr.Persistence("list menu items", err)
	}
	return items, nil
}

func (s *MenuStore) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("menu item", id)
		}
		return nil, apperr.Persistence("load menu item", err)
	}
	return &item, nil
}

func (s *MenuStore) ListByCategory(ctx context.Context, category models.MenuCategory) ([]models.MenuItem, error) {
	if !category.Valid() {
		return nil, apperr.Invalid("category", "must be one of appetizer, main, dessert, drink")
	}
	items := []models.MenuItem{}
	if err := s.db.WithContext(ctx).Where("category = ?", category).Order("name ASC").Find(&items).Error; err != nil {
		return nil, apperr.Persistence("list menu items", err)
	}
	return items, nil
}

func (s *MenuStore) ListPopular(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if err := s.db.WithContext(ctx).Where("popular = ?", true).Order("name ASC").Find(&items).Error; err != nil {
		return nil, apperr.Persistence("list popular menu items", err)
	}
	return items, nil
}

// likeEscaper makes LIKE wildcards in a search term match literally. '!'
// is the escape character because backslash means different things to
// MySQL and SQLite string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches term case-insensitively against name and description.
func (s *MenuStore) Search(ctx context.Context, term string) ([]models.MenuItem, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperr.Invalid("q", "search term must not be empty")
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"

	items := []models.MenuItem{}
	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Persistence("search menu items", err)
	}
	return items, nil
}

// Upsert inserts or replaces catalog records by id.
func (s *MenuStore) Upsert(ctx context.Context, items ...models.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "category", "image", "popular", "updated_at"}),
	}).Create(&items).Error
	if err != nil {
		return apperr.Persistence("save menu items", err)
	}
	return nil
}

// SeedDefaults loads the house menu when the catalog is empty.
func (s *MenuStore) SeedDefaults(ctx context.Context) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.MenuItem{}).Count(&n).Error; err != nil {
		return false, apperr.Persistence("count menu items", err)
	}
	if n > 0 {
		return false, nil
	}
	return true, s.Upsert(ctx, DefaultMenu()...)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultMenu is the starter catalog.
func DefaultMenu() []models.MenuItem {
	return []models.MenuItem{
		{ID: "1", Name: "Bruschetta", Description: "Toasted bread topped with tomatoes, garlic and fresh basil", Price: price("8.99"), Category: models.CategoryAppetizer, Image: "/images/bruschetta.jpg", Popular: true},
		{ID: "2", Name: "Calamari Fritti", Description: "Crispy fried squid with lemon aioli", Price: price("11.50"), Category: models.CategoryAppetizer, Image: "/images/calamari.jpg"},
		{ID: "3", Name: "Grilled Salmon", Description: "Atlantic salmon with seasonal vegetables and lemon butter", Price: price("24.99"), Category: models.CategoryMain, Image: "/images/salmon.jpg", Popular: true},
		{ID: "4", Name: "Ribeye Steak", Description: "12oz ribeye with garlic mashed potatoes", Price: price("32.00"), Category: models.CategoryMain, Image: "/images/ribeye.jpg", Popular: true},
		{ID: "5", Name: "Mushroom Risotto", Description: "Arborio rice with wild mushrooms and parmesan", Price: price("18.75"), Category: models.CategoryMain, Image: "/images/risotto.jpg"},
		{ID: "6", Name: "Tiramisu", Description: "Espresso-soaked ladyfingers layered with mascarpone", Price: price("9.25"), Category: models.CategoryDessert, Image: "/images/tiramisu.jpg", Popular: true},
		{ID: "7", Name: "Chocolate Lava Cake", Description: "Warm chocolate cake with a molten center", Price: price("10.50"), Category: models.CategoryDessert, Image: "/images/lava-cake.jpg"},
		{ID: "8", Name: "Fresh Lemonade", Description: "House-squeezed lemonade with mint", Price: price("4.50"), Category: models.CategoryDrink, Image: "/images/lemonade.jpg"},
		{ID: "9", Name: "Espresso", Description: "Double shot of house roast", Price: price("3.25"), Category: models.CategoryDrink, Image: "/images/espresso.jpg"},
	}
}
