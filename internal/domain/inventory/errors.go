package inventory

import "github.com/cafe/backend/internal/domain/shared"

var (
	// ErrIngredientNotFound means a recipe references an ingredient with no stock row.
	// It is a data problem that staff can fix, so the deduction is retried.
	ErrIngredientNotFound = shared.NewDomainError("INGREDIENT_NOT_FOUND", "Ingredient stock not found")

	// ErrConflict means a concurrent writer changed a stock row first
	ErrConflict = shared.NewDomainError("STOCK_CONFLICT", "Stock row was modified concurrently")

	// ErrStorageUnavailable wraps driver and connection failures
	ErrStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "Stock storage is unavailable")

	// ErrAlreadyApplied means ledger rows for the order and ingredient already exist
	ErrAlreadyApplied = shared.NewDomainError("DEDUCTION_ALREADY_APPLIED", "Deduction already applied for order")

	// ErrUnitMismatch means a recipe quantity cannot be converted to the stock unit
	ErrUnitMismatch = shared.NewDomainError("UNIT_MISMATCH", "Incompatible units")

	// ErrInvalidQuantity is returned for negative or zero amounts where a positive one is required
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
)
