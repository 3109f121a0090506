package catalog

import (
	"context"
	"strings"

	"livechat-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeProductRequired ErrorCode = "product_required"
	ErrorCodeProductNotFound ErrorCode = "product_not_found"
	ErrorCodeInternal        ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// SearchLimit caps how many products one console search returns.
const SearchLimit = 10

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search finds products by title or SKU for the console's product picker.
// An empty term returns an empty result, not an error.
func (s *Service) Search(ctx context.Context, term string) ([]model.ProductCard, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.ProductCard{}, nil
	}

	products, err := s.repo.SearchProducts(ctx, term, SearchLimit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "product search failed", err)
	}

	cards := make([]model.ProductCard, 0, len(products))
	for _, product := range products {
		cards = append(cards, CardFromProduct(product))
	}
	return cards, nil
}

// Card resolves a single product into the card payload attached to
// product_card messages.
func (s *Service) Card(ctx context.Context, productID string) (model.ProductCard, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return model.ProductCard{}, newError(ErrorCodeProductRequired, "product id required", nil)
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if err == ErrNotFound {
			return model.ProductCard{}, newError(ErrorCodeProductNotFound, "product not found", nil)
		}
		return model.ProductCard{}, newError(ErrorCodeInternal, "failed to load product", err)
	}

	return CardFromProduct(product), nil
}

func CardFromProduct(product model.ProductItem) model.ProductCard {
	return model.ProductCard{
		ProductID: product.ProductID,
		Title:     product.Title,
		Price:     product.Price,
		Excerpt:   product.Excerpt,
		URL:       product.URL,
		Image:     product.Image,
		SKU:       product.SKU,
	}
}
