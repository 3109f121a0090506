package catalog

import (
	"context"
	"errors"
	"strings"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("catalog repository: not found")

type Repository interface {
	GetProduct(ctx context.Context, productID string) (model.ProductItem, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]model.ProductItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetProduct(ctx context.Context, productID string) (model.ProductItem, error) {
	var product model.ProductItem
	err := r.db.Client.GetItem(
		ctx,
		model.ProductsTable,
		map[string]types.AttributeValue{
			"productId": &types.AttributeValueMemberS{Value: productID},
		},
		&product,
	)
	if err != nil {
		if strings.Contains(err.Error(), "item not found") {
			return model.ProductItem{}, ErrNotFound
		}
		return model.ProductItem{}, err
	}
	return product, nil
}

// SearchProducts matches the term against title and SKU. The catalog is
// small enough that a filtered scan with in-process ranking beats
// maintaining a search index.
func (r *DynamoRepository) SearchProducts(ctx context.Context, term string, limit int) ([]model.ProductItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.ProductsTable,
		"contains(#title, :term) OR contains(#sku, :term)",
		map[string]types.AttributeValue{
			":term": &types.AttributeValueMemberS{Value: term},
		},
		map[string]string{
			"#title": "title",
			"#sku":   "sku",
		},
	)
	if err != nil {
		return nil, err
	}

	products := make([]model.ProductItem, 0, len(items))
	for _, item := range items {
		var product model.ProductItem
		if err := attributevalue.UnmarshalMap(item, &product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	return products, nil
}
