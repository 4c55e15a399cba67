package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/threadline/wardrobe-api/internal/dto"
	"github.com/threadline/wardrobe-api/internal/imagestore"
	"github.com/threadline/wardrobe-api/internal/model"
	"github.com/threadline/wardrobe-api/internal/repository"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSize   = errors.New("duplicate size in stock ledger")
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	images      imagestore.Store
	redisClient *redis.Client
	log         *slog.Logger
}

func NewProductService(productRepo repository.ProductRepository, images imagestore.Store, redisClient *redis.Client, log *slog.Logger) *ProductService {
	return &ProductService{productRepo: productRepo, images: images, redisClient: redisClient, log: log}
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sizes, err := toSizeStocks(req.Sizes)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Sizes:       sizes,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := "product:" + id.String()

	// Try cache
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	// Write to cache
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, req.Limit, offset, req.Search, req.Category)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	var items []dto.ProductResponse
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}

	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Sizes != nil {
		sizes, err := toSizeStocks(*req.Sizes)
		if err != nil {
			return nil, err
		}
		product.Sizes = sizes
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// AttachImage uploads the binary to the image host and records the returned
// URL plus the asset key on the product. A previously attached asset is
// deleted from the host.
func (s *ProductService) AttachImage(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if s.images == nil {
		return nil, errors.New("image store not configured")
	}

	asset, err := s.images.Upload(ctx, filename, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	if product.ImageAssetID != "" {
		if err := s.images.Delete(ctx, product.ImageAssetID); err != nil {
			s.log.Error("delete replaced image", "asset_id", product.ImageAssetID, "error", err)
		}
	}

	if err := s.productRepo.SetImage(ctx, id, asset.URL, asset.ID); err != nil {
		return nil, fmt.Errorf("set product image: %w", err)
	}
	product.ImageURL = asset.URL
	product.ImageAssetID = asset.ID

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if product.ImageAssetID != "" && s.images != nil {
		if err := s.images.Delete(ctx, product.ImageAssetID); err != nil {
			s.log.Error("delete product image", "asset_id", product.ImageAssetID, "error", err)
		}
	}

	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func toSizeStocks(reqs []dto.SizeStockRequest) ([]model.SizeStock, error) {
	seen := make(map[string]bool, len(reqs))
	sizes := make([]model.SizeStock, 0, len(reqs))
	for _, r := range reqs {
		if seen[r.Size] {
			return nil, fmt.Errorf("size %q: %w", r.Size, ErrDuplicateSize)
		}
		seen[r.Size] = true
		sizes = append(sizes, model.SizeStock{Size: r.Size, Quantity: r.Quantity})
	}
	return sizes, nil
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	sizes := make([]dto.SizeStockResponse, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		sizes = append(sizes, dto.SizeStockResponse{Size: s.Size, Quantity: s.Quantity})
	}
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Sizes:       sizes,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
