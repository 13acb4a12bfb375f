package catalogseed

import "luxe-store/internal/model"

// ProductSet collects products from a catalogue file, deduplicated by id.
// A later line replaces an earlier one with the same id; products without an
// id are kept as they are.
type ProductSet struct {
	products []model.Product
	index    map[string]int
}

// NewProductSet creates an empty set.
func NewProductSet(capacity int) *ProductSet {
	return &ProductSet{
		products: make([]model.Product, 0, capacity),
		index:    make(map[string]int, capacity),
	}
}

// Add inserts p, replacing any product already in the set with the same id.
func (s *ProductSet) Add(p model.Product) {
	if p.ID == "" {
		s.products = append(s.products, p)
		return
	}
	if i, ok := s.index[p.ID]; ok {
		s.products[i] = p
		return
	}
	s.index[p.ID] = len(s.products)
	s.products = append(s.products, p)
}

// Contains reports whether a product with id is in the set.
func (s *ProductSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Size returns the number of products in the set.
func (s *ProductSet) Size() int {
	return len(s.products)
}

// Products returns the products in first-seen order.
func (s *ProductSet) Products() []model.Product {
	return s.products
}
