package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type productRepository struct {
	s backend
}

// Create добавляет товар; нулевой ID заменяется следующим свободным.
func (r productRepository) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	err := r.s.write(func(d *state) error {
		if product.ID == 0 {
			d.nextProductID++
			product.ID = d.nextProductID
		} else if product.ID > d.nextProductID {
			d.nextProductID = product.ID
		}
		d.products[product.ID] = copyProduct(product)
		return nil
	})
	return product, err
}

func (r productRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	var (
		product domain.Product
		ok      bool
	)
	r.s.read(func(d *state) { product, ok = d.products[id] })
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return copyProduct(product), nil
}

func (r productRepository) GetForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	return r.Get(ctx, id)
}

func (r productRepository) Update(_ context.Context, product domain.Product) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.products[product.ID]; !ok {
			return domain.ErrProductNotFound
		}
		d.products[product.ID] = copyProduct(product)
		return nil
	})
}

func (r productRepository) ListAvailable(context.Context) ([]domain.Product, error) {
	result := make([]domain.Product, 0)
	r.s.read(func(d *state) {
		for _, p := range d.products {
			if p.IsAvailable {
				result = append(result, copyProduct(p))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

var _ domain.ProductRepository = productRepository{}
