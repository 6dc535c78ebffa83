// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - inventory.go: ingredient stock, the append-only ledger and low-stock alerts
// - recipe.go: recipes and their components
// - deduction.go: deduction jobs driven by the retry coordinator
package models

// All returns every persistence model, in dependency order, for AutoMigrate in
// tests and local development. Production schemas come from migrations/.
func All() []interface{} {
	return []interface{}{
		&IngredientStockModel{},
		&InventoryTransactionModel{},
		&LowStockAlertModel{},
		&RecipeModel{},
		&RecipeComponentModel{},
		&DeductionJobModel{},
	}
}
