package domain

// Product — товар каталога. Остатки либо по размерам (Sizes), либо общим числом (Stock).
type Product struct {
	ID          int64
	Name        string
	Price       int64
	IsAvailable bool
	Sizes       map[string]int
	Stock       int
}

// Sized сообщает, учитываются ли остатки по размерам.
func (p Product) Sized() bool {
	return len(p.Sizes) > 0
}

// TotalStock возвращает суммарный остаток товара.
func (p Product) TotalStock() int {
	if !p.Sized() {
		return p.Stock
	}
	total := 0
	for _, qty := range p.Sizes {
		total += qty
	}
	return total
}
