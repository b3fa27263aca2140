package services

import (
	"fmt"

	"stockledger/internal/models"
)

// WarehouseFilter is the effective warehouse restriction of a read.
// Empty means the caller can see nothing; WarehouseID nil with Empty false
// means every warehouse.
type WarehouseFilter struct {
	WarehouseID *int64
	Empty       bool
}

// VisibleWarehouseFilter resolves which warehouses a caller may read.
// Admin and support see everything, optionally narrowed by the requested
// warehouse (a convenience filter). Users are pinned to their own warehouse;
// a user without one sees nothing. A user's requested warehouse is ignored
// unless it is their own, in which case the result is the same.
func VisibleWarehouseFilter(access models.AccessContext, requested *int64) WarehouseFilter {
	if access.IsPrivileged() {
		return WarehouseFilter{WarehouseID: requested}
	}
	if access.Role != models.RoleUser || access.WarehouseID == nil {
		return WarehouseFilter{Empty: true}
	}
	if requested != nil && *requested != *access.WarehouseID {
		return WarehouseFilter{Empty: true}
	}
	id := *access.WarehouseID
	return WarehouseFilter{WarehouseID: &id}
}

// CanAccessWarehouse reports whether the caller may read or mutate data held
// in warehouseID.
func CanAccessWarehouse(access models.AccessContext, warehouseID int64) bool {
	if access.IsPrivileged() {
		return true
	}
	return access.Role == models.RoleUser && access.WarehouseID != nil && *access.WarehouseID == warehouseID
}

// CanSeeMovement applies the disjunctive movement rule: a row is visible when
// the caller's warehouse is its own, its source or its destination.
func CanSeeMovement(access models.AccessContext, mv models.StockMovement) bool {
	if access.IsPrivileged() {
		return true
	}
	if access.Role != models.RoleUser || access.WarehouseID == nil {
		return false
	}
	w := *access.WarehouseID
	return mv.WarehouseID == w ||
		(mv.FromWarehouseID != nil && *mv.FromWarehouseID == w) ||
		(mv.ToWarehouseID != nil && *mv.ToWarehouseID == w)
}

func requireWarehouseAccess(access models.AccessContext, warehouseID int64) error {
	if !CanAccessWarehouse(access, warehouseID) {
		return fmt.Errorf("%w: warehouse %d", ErrWarehouseOutOfScope, warehouseID)
	}
	return nil
}
