package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"luxe-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultKey is the storage namespace every session cart lives under.
const DefaultKey = "luxe-cart"

// SessionKey namespaces DefaultKey for one shopper session on shared storage.
func SessionKey(session string) string {
	return DefaultKey + ":" + session
}

// Store is the persistence adapter around a Cart value. Every mutation
// rewrites the full line list under the store's key before the new value
// becomes visible.
//
// A Store is owned by one session and is not safe for concurrent mutation.
type Store struct {
	storage Storage
	key     string
	logger  zerolog.Logger
	cart    Cart
}

// Load reads the cart stored under key.
//
// A missing value yields an empty cart. A value that cannot be parsed, or that
// breaks the line invariants, is discarded: the stored value is deleted and an
// empty cart is returned. A corrupted cache must never block the shopper.
// Only storage I/O failures are returned as errors.
func Load(ctx context.Context, storage Storage, key string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		storage: storage,
		key:     key,
		logger:  logger.With().Str("component", "cart-store").Str("cart_key", key).Logger(),
		cart:    Clear(),
	}

	data, err := storage.Get(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read cart")
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if data == nil {
		return s, nil
	}

	lines, err := decodeLines(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable cart")
		if delErr := storage.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Msg("failed to delete unreadable cart")
		}
		return s, nil
	}

	s.cart = Cart{Lines: lines}
	return s, nil
}

// Cart returns a snapshot of the current cart.
func (s *Store) Cart() Cart {
	return s.cart.Snapshot()
}

// Total returns the current cart total.
func (s *Store) Total() decimal.Decimal {
	return s.cart.Total()
}

// Count returns the number of units in the cart.
func (s *Store) Count() int {
	return s.cart.Count()
}

// AddLine adds quantity units of product in size.
func (s *Store) AddLine(ctx context.Context, product *model.Product, size string, quantity int) (Cart, error) {
	next, err := AddLine(s.cart, product, size, quantity)
	if err != nil {
		return s.Cart(), err
	}
	return s.commit(ctx, next)
}

// UpdateQuantity sets the quantity of a line, removing it when quantity <= 0.
func (s *Store) UpdateQuantity(ctx context.Context, productID, size string, quantity int) (Cart, error) {
	return s.commit(ctx, UpdateQuantity(s.cart, productID, size, quantity))
}

// RemoveLine removes a line if present.
func (s *Store) RemoveLine(ctx context.Context, productID, size string) (Cart, error) {
	return s.commit(ctx, RemoveLine(s.cart, productID, size))
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.commit(ctx, Clear())
	return err
}

func (s *Store) commit(ctx context.Context, next Cart) (Cart, error) {
	data, err := encodeLines(next.Lines)
	if err != nil {
		return s.Cart(), fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cart")
		return s.Cart(), fmt.Errorf("failed to persist cart: %w", err)
	}

	s.cart = next
	s.logger.Debug().
		Int("lines", len(next.Lines)).
		Int("count", next.Count()).
		Msg("cart persisted")

	return s.Cart(), nil
}

func encodeLines(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

func decodeLines(data []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []Line{}
	}

	seen := make(map[string]struct{}, len(lines))
	for i, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 || l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("line %d is invalid", i)
		}
		k := l.ProductID + "\x00" + l.Size
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("line %d duplicates product %s size %s", i, l.ProductID, l.Size)
		}
		seen[k] = struct{}{}
	}
	return lines, nil
}
