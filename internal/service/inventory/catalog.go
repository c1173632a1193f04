package inventory

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

// Catalog — складской коллаборатор поверх таблицы товаров.
// Все изменения выполняются в транзакции вызывающего.
type Catalog struct {
	logger *log.Entry
}

// NewCatalog создаёт Catalog.
func NewCatalog(logger *log.Entry) *Catalog {
	if logger == nil {
		logger = log.WithField("component", "inventory")
	}
	return &Catalog{logger: logger}
}

// ReserveStock списывает qty единиц товара (или размера variant).
// Возвращает false, если товара нет, он недоступен или остатка недостаточно.
func (c *Catalog) ReserveStock(ctx context.Context, tx domain.Tx, productID int64, variant string, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrLineQtyInvalid
	}

	product, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lock product %d: %w", productID, err)
	}
	if !product.IsAvailable {
		return false, nil
	}

	if variant != "" && product.Sized() {
		available := product.Sizes[variant]
		if available < qty {
			return false, nil
		}
		product.Sizes[variant] = available - qty
	} else {
		if product.Stock < qty {
			return false, nil
		}
		product.Stock -= qty
	}

	if err := tx.Products().Update(ctx, product); err != nil {
		return false, fmt.Errorf("update product %d: %w", productID, err)
	}
	return true, nil
}

// RestoreStock возвращает qty единиц на склад. Отсутствующий размер создаётся;
// товар без размеров снова становится доступным, если остаток > 0.
func (c *Catalog) RestoreStock(ctx context.Context, tx domain.Tx, productID int64, variant string, qty int) error {
	if qty <= 0 {
		return domain.ErrLineQtyInvalid
	}

	product, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return fmt.Errorf("lock product %d: %w", productID, err)
	}

	if variant != "" && product.Sized() {
		product.Sizes[variant] += qty
	} else {
		product.Stock += qty
		if !product.IsAvailable && product.Stock > 0 {
			product.IsAvailable = true
		}
	}

	if err := tx.Products().Update(ctx, product); err != nil {
		return fmt.Errorf("update product %d: %w", productID, err)
	}

	c.logger.WithFields(log.Fields{
		"product_id": productID,
		"variant":    variant,
		"qty":        qty,
	}).Debug("stock restored")
	return nil
}

var _ domain.InventoryService = (*Catalog)(nil)
