//go:build ignore

// generate_sample_catalog writes sample catalogue files for cmd/seed.
//
//	go run scripts/generate_sample_catalog.go
//
// women.jsonl.gz repeats P003 with a new price to show that a later file
// replaces an earlier one when both are seeded in that order.
package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"luxe-store/internal/model"

	"github.com/shopspring/decimal"
)

func main() {
	dataDir := "data/catalog"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC()
	product := func(id, name, desc, price, category string, sizes []string, stock int, featured bool, age time.Duration) model.Product {
		return model.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Price:       decimal.RequireFromString(price),
			Category:    category,
			Images:      []string{"/images/" + id + ".jpg"},
			Sizes:       sizes,
			Stock:       stock,
			Featured:    featured,
			CreatedAt:   now.Add(-age),
		}
	}

	catalogue := []struct {
		file     string
		products []model.Product
	}{
		{
			file: "products.jsonl.gz",
			products: []model.Product{
				product("P001", "Oxford Shirt", "Crisp cotton oxford with a button-down collar", "59.00", model.CategoryMen, []string{"S", "M", "L", "XL"}, 40, false, 72*time.Hour),
				product("P002", "Selvedge Jeans", "Raw 14oz denim, straight leg", "129.00", model.CategoryMen, []string{"M", "L", "XL", "XXL"}, 25, true, 60*time.Hour),
				product("P003", "Silk Slip Dress", "Bias-cut mulberry silk", "189.00", model.CategoryWomen, []string{"XS", "S", "M", "L"}, 12, true, 48*time.Hour),
				product("P004", "Cashmere Crew", "Two-ply cashmere knit", "149.00", model.CategoryWomen, []string{"XS", "S", "M"}, 18, false, 36*time.Hour),
				product("P005", "Linen Overshirt", "Washed linen, relaxed fit", "89.00", model.CategoryNewArrivals, []string{"S", "M", "L"}, 30, true, 12*time.Hour),
			},
		},
		{
			file: "women.jsonl.gz",
			products: []model.Product{
				product("P003", "Silk Slip Dress", "Bias-cut mulberry silk", "169.00", model.CategoryWomen, []string{"XS", "S", "M", "L"}, 12, true, 48*time.Hour),
				product("P006", "Wrap Midi Skirt", "Fluid viscose crepe", "79.00", model.CategoryWomen, []string{"XS", "S", "M", "L", "XL"}, 22, false, 24*time.Hour),
			},
		},
	}

	for _, c := range catalogue {
		filePath := filepath.Join(dataDir, c.file)

		if err := createCatalogFile(filePath, c.products); err != nil {
			log.Fatalf("Failed to create %s: %v", c.file, err)
		}

		fmt.Printf("Created %s with %d products\n", filePath, len(c.products))
	}

	fmt.Println("\nSample catalogue files created successfully!")
	fmt.Println("Seed them with: SEED_FILES=products.jsonl.gz,women.jsonl.gz go run ./cmd/seed")
}

// createCatalogFile writes products as gzipped JSON lines.
func createCatalogFile(filePath string, products []model.Product) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := json.NewEncoder(gzipWriter)
	for _, p := range products {
		if err := encoder.Encode(p); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to write product %s: %w", p.ID, err)
		}
	}

	return gzipWriter.Close()
}
