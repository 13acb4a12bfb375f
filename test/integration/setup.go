package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"luxe-store/internal/database"
	"luxe-store/internal/model"
	"luxe-store/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProducts inserts a small apparel catalogue.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) []model.Product {
	t.Helper()

	now := time.Now().UTC()
	products := []model.Product{
		{ID: "P001", Name: "Linen Shirt", Description: "Breathable linen", Price: decimal.RequireFromString("40.00"), Category: model.CategoryMen, Images: []string{"shirt.jpg"}, Sizes: []string{"S", "M", "L"}, Stock: 10, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "P002", Name: "Wrap Dress", Description: "Silk blend", Price: decimal.RequireFromString("120.00"), Category: model.CategoryWomen, Images: []string{"dress.jpg"}, Sizes: []string{"XS", "S", "M"}, Stock: 4, Featured: true, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "P003", Name: "Wool Coat", Description: "Double breasted", Price: decimal.RequireFromString("260.00"), Category: model.CategoryNewArrivals, Images: []string{"coat.jpg"}, Sizes: []string{"M", "L", "XL"}, Stock: 2, Featured: true, CreatedAt: now.Add(-1 * time.Hour)},
	}

	repo := repository.NewProductRepository(pool, zerolog.Nop())
	if _, err := repo.UpsertMany(context.Background(), products); err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}
	return products
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
