package categories

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/arjunmehta/cartly-backend/pkg/db"
	"github.com/arjunmehta/cartly-backend/pkg/db/models"
	pkgerrors "github.com/arjunmehta/cartly-backend/pkg/errors"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
)

// maxTreeDepth bounds recursion so corrupt parent chains terminate.
const maxTreeDepth = 32

var pathSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

type categoryRepository interface {
	Create(ctx context.Context, category *models.ProductCategory) (*models.ProductCategory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error)
	FindByPath(ctx context.Context, path string) (*models.ProductCategory, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.ProductCategory, error)
	ListRoots(ctx context.Context) ([]models.ProductCategory, error)
	List(ctx context.Context, level *int, parentID *uuid.UUID) ([]models.ProductCategory, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams groups dependencies for the categories service.
type ServiceParams struct {
	Repo   categoryRepository
	Logger *logger.Logger
}

// Service exposes the category tree operations.
type Service interface {
	Create(ctx context.Context, dto CreateCategoryDTO) (*CategoryDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	List(ctx context.Context, level *int, parentID *uuid.UUID) ([]CategoryDTO, error)
	BuildTree(ctx context.Context, rootID *uuid.UUID) ([]*TreeNodeDTO, error)
	DeleteSubtree(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo categoryRepository
	logg *logger.Logger
}

// NewService builds a categories service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "categories repo is required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

// Create inserts a category under the optional parent, deriving path and level.
func (s *service) Create(ctx context.Context, dto CreateCategoryDTO) (*CategoryDTO, error) {
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	segment := normalizePathSegment(name)
	if segment == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name has no usable characters")
	}

	category := &models.ProductCategory{
		Name:        name,
		Description: dto.Description,
	}

	if dto.ParentCategoryID != nil {
		parent, err := s.loadCategory(ctx, *dto.ParentCategoryID)
		if err != nil {
			return nil, err
		}
		if err := s.guardAncestry(ctx, parent); err != nil {
			return nil, err
		}
		category.ParentCategoryID = &parent.ID
		category.Level = parent.Level + 1
		category.CategoryPath = parent.CategoryPath + "/" + segment
	} else {
		category.Level = 0
		category.CategoryPath = segment
	}

	if category.Level >= maxTreeDepth {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category tree depth limit reached")
	}

	if _, err := s.repo.FindByPath(ctx, category.CategoryPath); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category path already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category path")
	}

	created, err := s.repo.Create(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category path already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return FromModel(created), nil
}

// Get returns a single category.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.loadCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(category), nil
}

// List returns categories with optional level/parent filters.
func (s *service) List(ctx context.Context, level *int, parentID *uuid.UUID) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx, level, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// BuildTree assembles the nested tree, starting from rootID or all roots.
func (s *service) BuildTree(ctx context.Context, rootID *uuid.UUID) ([]*TreeNodeDTO, error) {
	var roots []models.ProductCategory
	if rootID != nil {
		root, err := s.loadCategory(ctx, *rootID)
		if err != nil {
			return nil, err
		}
		roots = []models.ProductCategory{*root}
	} else {
		var err error
		roots, err = s.repo.ListRoots(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list root categories")
		}
	}

	out := make([]*TreeNodeDTO, 0, len(roots))
	for i := range roots {
		node, err := s.buildSubtree(ctx, &roots[i], 0)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func (s *service) buildSubtree(ctx context.Context, category *models.ProductCategory, depth int) (*TreeNodeDTO, error) {
	if depth >= maxTreeDepth {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "category tree exceeds depth limit")
	}

	node := &TreeNodeDTO{
		CategoryDTO: *FromModel(category),
		Children:    []*TreeNodeDTO{},
	}

	children, err := s.repo.ListChildren(ctx, category.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category children")
	}
	for i := range children {
		child, err := s.buildSubtree(ctx, &children[i], depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// DeleteSubtree removes the category and all descendants, children first.
func (s *service) DeleteSubtree(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadCategory(ctx, id); err != nil {
		return err
	}
	if err := s.deleteRecursive(ctx, id, 0); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "category subtree delete incomplete", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category subtree")
	}
	return nil
}

func (s *service) deleteRecursive(ctx context.Context, id uuid.UUID, depth int) error {
	if depth >= maxTreeDepth {
		return errors.New("category tree exceeds depth limit")
	}

	children, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return err
	}

	var errs error
	for _, child := range children {
		errs = multierr.Append(errs, s.deleteRecursive(ctx, child.ID, depth+1))
	}
	if errs != nil {
		return errs
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) guardAncestry(ctx context.Context, parent *models.ProductCategory) error {
	seen := map[uuid.UUID]bool{}
	current := parent
	for depth := 0; current != nil; depth++ {
		if depth >= maxTreeDepth {
			return pkgerrors.New(pkgerrors.CodeInternal, "category ancestry exceeds depth limit")
		}
		if seen[current.ID] {
			return pkgerrors.New(pkgerrors.CodeConflict, "category ancestry contains a cycle")
		}
		seen[current.ID] = true
		if current.ParentCategoryID == nil {
			return nil
		}
		next, err := s.repo.FindByID(ctx, *current.ParentCategoryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk category ancestry")
		}
		current = next
	}
	return nil
}

func (s *service) loadCategory(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func normalizePathSegment(name string) string {
	segment := strings.ToLower(strings.TrimSpace(name))
	segment = pathSanitizeRe.ReplaceAllString(segment, "-")
	return strings.Trim(segment, "-")
}
