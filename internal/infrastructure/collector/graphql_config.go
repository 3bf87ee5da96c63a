package collector

import (
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// Defaults for the GraphQL catalog collector
const (
	DefaultPageSize               = 100
	DefaultPageDelay              = 500 * time.Millisecond
	DefaultPageTimeout            = 30 * time.Second
	DefaultMaxPages               = 1000
	DefaultMaxConsecutiveFailures = 3

	// maxResponseSize is the largest page body read from a supplier (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Errors for GraphQL collector configuration
var (
	ErrInvalidPageSize = errors.New("graphql collector: page size must be between 1 and 500")
	ErrInvalidMaxPages = errors.New("graphql collector: max pages must be positive")
	ErrInvalidDelay    = errors.New("graphql collector: page delay cannot be negative")
)

// GraphQLConfig holds paging and throttling settings for the GraphQL
// catalog collector
type GraphQLConfig struct {
	// PageSize is the number of items requested per page
	PageSize int
	// PageDelay is the fixed interval between page requests
	PageDelay time.Duration
	// PageTimeout bounds a single page request
	PageTimeout time.Duration
	// MaxPages is the safety ceiling on pages fetched in one run
	MaxPages int
	// MaxConsecutiveFailures stops the run early when the server keeps
	// failing and never reported how many pages it has
	MaxConsecutiveFailures int
	// MaxErrors bounds how many errors are kept on the result
	MaxErrors int
	// MaxResponseSize caps the bytes read from one page response
	MaxResponseSize int64
	// StockPolicy classifies quantities the supplier reports
	StockPolicy catalog.StockPolicy
}

// DefaultGraphQLConfig returns a configuration with default values
func DefaultGraphQLConfig() GraphQLConfig {
	return GraphQLConfig{
		PageSize:               DefaultPageSize,
		PageDelay:              DefaultPageDelay,
		PageTimeout:            DefaultPageTimeout,
		MaxPages:               DefaultMaxPages,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		MaxErrors:              100,
		MaxResponseSize:        maxResponseSize,
		StockPolicy:            catalog.DefaultStockPolicy(),
	}
}

// GraphQLConfigFrom maps the collection section of the service config.
func GraphQLConfigFrom(cfg config.CollectionConfig) GraphQLConfig {
	c := DefaultGraphQLConfig()
	c.PageSize = cfg.PageSize
	c.PageDelay = cfg.PageDelay
	c.PageTimeout = cfg.PageTimeout
	c.MaxPages = cfg.MaxPages
	c.MaxErrors = cfg.MaxErrors
	c.StockPolicy = catalog.StockPolicy{LowStockThreshold: cfg.LowStockThreshold}
	return c
}

// Validate checks the configuration and fills in unset optional values
func (c *GraphQLConfig) Validate() error {
	if c.PageSize < 1 || c.PageSize > 500 {
		return ErrInvalidPageSize
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.PageDelay < 0 {
		return ErrInvalidDelay
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = DefaultPageTimeout
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = maxResponseSize
	}
	if c.StockPolicy.LowStockThreshold < 1 {
		c.StockPolicy = catalog.DefaultStockPolicy()
	}
	return nil
}
