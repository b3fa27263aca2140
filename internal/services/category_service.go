package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"
)

// CategoryService manages the category set items may use.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, access models.AccessContext, name string) (*models.CustomCategory, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryService struct {
	db           *sql.DB
	categoryRepo repositories.CategoryRepository
	timeout      time.Duration
}

// NewCategoryService creates a new instance of CategoryService.
func NewCategoryService(db *sql.DB, cr repositories.CategoryRepository, timeout time.Duration) CategoryService {
	return &categoryService{db: db, categoryRepo: cr, timeout: timeout}
}

// ListCategories returns the default categories followed by custom ones.
func (s *categoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	custom, err := s.categoryRepo.List(ctx, s.db)
	if err != nil {
		return nil, storageErr("list categories", "", err)
	}
	result := make([]models.Category, 0, len(models.DefaultCategories)+len(custom))
	for _, name := range models.DefaultCategories {
		result = append(result, models.Category{Name: name})
	}
	for _, c := range custom {
		id := c.ID
		result = append(result, models.Category{ID: &id, Name: c.Name, Custom: true})
	}
	return result, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, access models.AccessContext, name string) (*models.CustomCategory, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	for _, c := range models.DefaultCategories {
		if strings.EqualFold(c, name) {
			return nil, ErrCategoryExists
		}
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	category := &models.CustomCategory{Name: name, CreatedBy: access.ActorID()}
	if err := s.categoryRepo.Create(ctx, s.db, category); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrCategoryExists
		}
		return nil, storageErr("create category", "", err)
	}
	return category, nil
}

// DeleteCategory removes a custom category. Items keep their category text.
func (s *categoryService) DeleteCategory(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.categoryRepo.Delete(ctx, s.db, id); err != nil {
		if isNotFound(err) {
			return ErrCategoryNotFound
		}
		return storageErr("delete category", "", err)
	}
	return nil
}
