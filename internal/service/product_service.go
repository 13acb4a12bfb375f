package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"luxe-store/internal/model"
	"luxe-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CategoryAll is the listing category that disables category filtering.
const CategoryAll = "All"

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves products matching filter, newest first.
func (s *productService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Category == CategoryAll {
		filter.Category = ""
	}
	if filter.Category != "" && !model.IsValidCategory(filter.Category) {
		return nil, model.ErrInvalidCategory
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("category", filter.Category).
			Str("search", filter.Search).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Str("category", filter.Category).
		Bool("featured", filter.FeaturedOnly).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create validates req and stores it as a new product.
func (s *productService) Create(ctx context.Context, req *model.ProductRequest) (*model.Product, error) {
	product := fromRequest(uuid.NewString(), req)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	product.CreatedAt = time.Now().UTC()

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().Str("product_id", product.ID).Str("name", product.Name).Msg("product created")
	return product, nil
}

// Update replaces the product identified by id.
func (s *productService) Update(ctx context.Context, id string, req *model.ProductRequest) (*model.Product, error) {
	product := fromRequest(id, req)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	found, err := s.productRepo.Update(ctx, product)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if !found {
		return nil, model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id).Msg("product updated")
	return product, nil
}

// Delete removes a product. Existing order items keep their snapshot.
func (s *productService) Delete(ctx context.Context, id string) error {
	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !deleted {
		return model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// Import validates and upserts a batch of products. Products without an id
// get a generated one.
func (s *productService) Import(ctx context.Context, products []model.Product) (int, error) {
	now := time.Now().UTC()
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if err := validateProduct(p); err != nil {
			s.logger.Warn().Err(err).Str("product_id", p.ID).Int("index", i).Msg("invalid product in import")
			return 0, fmt.Errorf("product %s: %w", p.ID, err)
		}
	}

	n, err := s.productRepo.UpsertMany(ctx, products)
	if err != nil {
		s.logger.Error().Err(err).Int("upserted", n).Msg("failed to import products")
		return n, fmt.Errorf("failed to import products: %w", err)
	}

	s.logger.Info().Int("count", n).Msg("products imported")
	return n, nil
}

func fromRequest(id string, req *model.ProductRequest) *model.Product {
	if req == nil {
		req = &model.ProductRequest{}
	}
	return &model.Product{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Images:      req.Images,
		Sizes:       req.Sizes,
		Stock:       req.Stock,
		Featured:    req.Featured,
	}
}

func validateProduct(p *model.Product) error {
	if p.Name == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Product name is required")
	}
	if p.Price.IsNegative() {
		return model.ErrInvalidPrice
	}
	if !model.IsValidCategory(p.Category) {
		return model.ErrInvalidCategory
	}
	for _, size := range p.Sizes {
		if !model.IsValidSize(size) {
			return model.ErrInvalidSize
		}
	}
	if p.Stock < 0 {
		return model.NewDomainError(model.ErrCodeInvalidQuantity, "Stock must not be negative")
	}
	return nil
}
