package reviews

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/users"
)

// ErrProductNotFound is returned when a scoped product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ratingWeights skews synthetic ratings towards 4 and 5 stars.
var ratingWeights = [...]struct {
	rating, weight int
}{
	{5, 45},
	{4, 35},
	{3, 12},
	{2, 5},
	{1, 3},
}

// ProductSource resolves the products to seed.
type ProductSource interface {
	Get(ctx context.Context, productID string) (*catalog.Product, error)
	ListByCategories(ctx context.Context, categories []string) ([]catalog.Product, error)
}

// UserWriter stores fabricated reviewers.
type UserWriter interface {
	BatchPut(ctx context.Context, us []users.User) error
}

// Writer stores reviews.
type Writer interface {
	BatchCreate(ctx context.Context, rs []Review) ([]Review, error)
}

// Counter records seeded review counts.
type Counter interface {
	Count(ctx context.Context, name string, value float64)
}

// Scope limits a seeding run. A non-empty ProductID wins over Categories;
// empty Categories mean the seeder's configured defaults.
type Scope struct {
	ProductID  string
	Categories []string
}

// Result reports what a seeding run inserted.
type Result struct {
	Reviews  int `json:"reviews"`
	Products int `json:"products"`
}

// SeederConfig bounds how many reviews each product receives.
type SeederConfig struct {
	MinPerProduct int
	MaxPerProduct int
	Categories    []string
	Templates     Templates
}

// Seeder inserts synthetic reviews. Each run adds new rows; nothing is
// deduplicated against earlier runs. Callers are responsible for
// authorization.
type Seeder struct {
	products ProductSource
	users    UserWriter
	reviews  Writer
	metrics  Counter
	log      slog.Logger
	cfg      SeederConfig

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeeder returns a Seeder. A nil cfg.Templates selects the embedded
// catalogue.
func NewSeeder(products ProductSource, us UserWriter, rs Writer, metrics Counter, log slog.Logger, cfg SeederConfig) *Seeder {
	if cfg.Templates == nil {
		cfg.Templates = DefaultTemplates()
	}
	if cfg.MinPerProduct < 1 {
		cfg.MinPerProduct = 1
	}
	if cfg.MaxPerProduct < cfg.MinPerProduct {
		cfg.MaxPerProduct = cfg.MinPerProduct
	}
	return &Seeder{
		products: products,
		users:    us,
		reviews:  rs,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Seed inserts synthetic reviews for the products in scope.
func (s *Seeder) Seed(ctx context.Context, scope Scope) (Result, error) {
	products, err := s.resolve(ctx, scope)
	if err != nil {
		return Result{}, err
	}
	if len(products) == 0 {
		s.log.Infof("No products to seed for categories %v", scope.Categories)
		return Result{}, nil
	}

	var (
		reviewers []users.User
		pending   []Review
	)
	s.mu.Lock()
	for _, p := range products {
		n := s.cfg.MinPerProduct + s.rnd.IntN(s.cfg.MaxPerProduct-s.cfg.MinPerProduct+1)
		for range n {
			u, r := s.fabricate(p)
			reviewers = append(reviewers, u)
			pending = append(pending, r)
		}
	}
	s.mu.Unlock()

	if err := s.users.BatchPut(ctx, reviewers); err != nil {
		return Result{}, fmt.Errorf("store reviewers: %w", err)
	}
	created, err := s.reviews.BatchCreate(ctx, pending)
	if err != nil {
		// Earlier batches stay written.
		s.log.Warnf("Seeding stopped after %d reviews: %v", len(created), err)
		return Result{}, fmt.Errorf("store reviews: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Count(ctx, aws.MetricReviewsSeeded, float64(len(created)))
	}
	s.log.Infof("Seeded %d reviews across %d products", len(created), len(products))
	return Result{Reviews: len(created), Products: len(products)}, nil
}

func (s *Seeder) resolve(ctx context.Context, scope Scope) ([]catalog.Product, error) {
	if scope.ProductID != "" {
		p, err := s.products.Get(ctx, scope.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load product: %w", err)
		}
		return []catalog.Product{*p}, nil
	}
	categories := scope.Categories
	if len(categories) == 0 {
		categories = s.cfg.Categories
	}
	ps, err := s.products.ListByCategories(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return ps, nil
}

// fabricate builds one reviewer and their review. s.mu must be held.
func (s *Seeder) fabricate(p catalog.Product) (users.User, Review) {
	names := s.cfg.Templates.names(p.Category)
	rating := s.rating()
	comments := s.cfg.Templates.comments(p.Category, rating)

	u := users.User{
		UserID:    "synthetic-" + uuid.NewString(),
		Name:      names[s.rnd.IntN(len(names))],
		Role:      users.RoleCustomer,
		Synthetic: true,
	}
	r := Review{
		ProductID: p.ProductID,
		UserID:    u.UserID,
		UserName:  u.Name,
		Rating:    rating,
		Comment:   comments[s.rnd.IntN(len(comments))],
		Synthetic: true,
	}
	return u, r
}

func (s *Seeder) rating() int {
	total := 0
	for _, w := range ratingWeights {
		total += w.weight
	}
	n := s.rnd.IntN(total)
	for _, w := range ratingWeights {
		if n < w.weight {
			return w.rating
		}
		n -= w.weight
	}
	return ratingWeights[0].rating
}
