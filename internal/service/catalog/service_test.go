package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"livechat-backend/internal/model"
)

type memoryRepository struct {
	mu       sync.Mutex
	products map[string]model.ProductItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{products: make(map[string]model.ProductItem)}
}

func (m *memoryRepository) GetProduct(ctx context.Context, productID string) (model.ProductItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[productID]
	if !ok {
		return model.ProductItem{}, ErrNotFound
	}
	return product, nil
}

func (m *memoryRepository) SearchProducts(ctx context.Context, term string, limit int) ([]model.ProductItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lower := strings.ToLower(term)
	matches := make([]model.ProductItem, 0)
	for _, product := range m.products {
		if strings.Contains(strings.ToLower(product.Title), lower) ||
			strings.Contains(strings.ToLower(product.SKU), lower) {
			matches = append(matches, product)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ProductID < matches[j].ProductID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func TestSearchMatchesTitleAndSKU(t *testing.T) {
	repo := newMemoryRepository()
	repo.products["p-1"] = model.ProductItem{ProductID: "p-1", Title: "Blue Ceramic Mug", SKU: "MUG-001", Price: "12.00"}
	repo.products["p-2"] = model.ProductItem{ProductID: "p-2", Title: "Red Plate", SKU: "PLT-002", Price: "8.00"}
	svc := NewService(repo)

	cards, err := svc.Search(context.Background(), "mug")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(cards) != 1 || cards[0].ProductID != "p-1" {
		t.Fatalf("expected p-1 by title, got %+v", cards)
	}

	cards, err = svc.Search(context.Background(), "PLT")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(cards) != 1 || cards[0].ProductID != "p-2" {
		t.Fatalf("expected p-2 by sku, got %+v", cards)
	}
}

func TestSearchEmptyTermAndLimit(t *testing.T) {
	repo := newMemoryRepository()
	for i := 0; i < SearchLimit+5; i++ {
		id := fmt.Sprintf("p-%02d", i)
		repo.products[id] = model.ProductItem{ProductID: id, Title: "Mug " + id}
	}
	svc := NewService(repo)

	cards, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("blank term should return nothing, got %d", len(cards))
	}

	cards, err = svc.Search(context.Background(), "Mug")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(cards) != SearchLimit {
		t.Fatalf("expected capped result of %d, got %d", SearchLimit, len(cards))
	}
}

func TestCardErrors(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)

	_, err := svc.Card(context.Background(), "")
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeProductRequired {
		t.Fatalf("expected product_required, got %v", err)
	}

	_, err = svc.Card(context.Background(), "missing")
	if svcErr, ok := err.(*Error); !ok || svcErr.Code != ErrorCodeProductNotFound {
		t.Fatalf("expected product_not_found, got %v", err)
	}

	repo.products["p-1"] = model.ProductItem{ProductID: "p-1", Title: "Blue Mug", Price: "12.00", SKU: "MUG-001"}
	card, err := svc.Card(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Card error: %v", err)
	}
	if card.Title != "Blue Mug" || card.SKU != "MUG-001" {
		t.Fatalf("unexpected card: %+v", card)
	}
}
