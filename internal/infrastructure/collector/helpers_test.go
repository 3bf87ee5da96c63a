package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// fakeSink records upserts in memory and fails configured keys
type fakeSink struct {
	mu       sync.Mutex
	products map[string]catalog.Snapshot
	ids      map[string]uuid.UUID
	order    []string
	failKeys map[string]bool
}

func newFakeSink(failKeys ...string) *fakeSink {
	s := &fakeSink{
		products: make(map[string]catalog.Snapshot),
		ids:      make(map[string]uuid.UUID),
		failKeys: make(map[string]bool),
	}
	for _, k := range failKeys {
		s.failKeys[k] = true
	}
	return s
}

func (s *fakeSink) UpsertProduct(_ context.Context, snapshot catalog.Snapshot) (*collection.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failKeys[snapshot.NaturalKey] {
		return nil, errors.New("insert failed")
	}
	s.order = append(s.order, snapshot.NaturalKey)
	_, exists := s.products[snapshot.NaturalKey]
	s.products[snapshot.NaturalKey] = snapshot
	if exists {
		return &collection.UpsertResult{Action: collection.UpsertActionUpdated, ProductID: s.ids[snapshot.NaturalKey]}, nil
	}
	id := uuid.New()
	s.ids[snapshot.NaturalKey] = id
	return &collection.UpsertResult{Action: collection.UpsertActionCreated, ProductID: id}, nil
}

func (s *fakeSink) get(key string) (catalog.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[key]
	return p, ok
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// fakeArchive records stored keys
type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

// catalogServer serves pages of items as a GraphQL products query. Status
// overrides return a bare HTTP status for a page.
type catalogServer struct {
	t          *testing.T
	pages      [][]map[string]any
	statuses   map[int]int
	omitTotal  bool
	alwaysMore bool

	mu       sync.Mutex
	requests []graphQLRequest
	headers  []http.Header
	times    []time.Time
}

func (s *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := int(req.Variables["page"].(float64))

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.headers = append(s.headers, r.Header.Clone())
	s.times = append(s.times, time.Now())
	s.mu.Unlock()

	if status, ok := s.statuses[page]; ok {
		w.WriteHeader(status)
		return
	}

	items := []map[string]any{}
	if page >= 1 && page <= len(s.pages) {
		items = s.pages[page-1]
	}
	info := map[string]any{"page": page, "pageSize": int(req.Variables["pageSize"].(float64))}
	switch {
	case s.alwaysMore:
		info["hasNextPage"] = true
	case !s.omitTotal:
		info["totalPages"] = len(s.pages)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"products": map[string]any{"items": items, "pageInfo": info},
		},
	})
}

func (s *catalogServer) requestedPages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]int, 0, len(s.requests))
	for _, r := range s.requests {
		pages = append(pages, int(r.Variables["page"].(float64)))
	}
	return pages
}

func startCatalogServer(t *testing.T, s *catalogServer) *httptest.Server {
	t.Helper()
	s.t = t
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func item(key string, qty int) map[string]any {
	return map[string]any{
		"id":            "id-" + key,
		"sku":           key,
		"name":          "Product " + key,
		"price":         "12.50",
		"status":        "ACTIVE",
		"stockQuantity": qty,
		"categoryId":    "cat-1",
	}
}

// fakeItems builds n random catalog records with unique SKUs
func fakeItems(f *gofakeit.Faker, n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"id":            f.UUID(),
			"sku":           f.Numerify("SKU-######") + "-" + f.LetterN(4),
			"name":          f.ProductName(),
			"price":         f.Price(1, 500),
			"status":        "ACTIVE",
			"stockQuantity": f.IntRange(0, 200),
			"categoryId":    f.ProductCategory(),
		})
	}
	return items
}

func newTestSupplier(t *testing.T, endpoint string) *partner.Supplier {
	t.Helper()
	s, err := partner.NewSupplier("ACME", "Acme Supplies", partner.Integration{
		Type:        partner.IntegrationTypeGraphQL,
		Endpoint:    endpoint,
		Credentials: partner.Credentials{AccessToken: "secret-token", APIKey: "key-1"},
	})
	require.NoError(t, err)
	return s
}

func newTestCollector(t *testing.T, endpoint string, sink collection.ProductSink, mutate func(*GraphQLConfig), opts ...GraphQLOption) *GraphQLCollector {
	t.Helper()
	cfg := DefaultGraphQLConfig()
	cfg.PageSize = 3
	cfg.PageDelay = 0
	cfg.PageTimeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewGraphQLCollector(collection.CollectorParams{
		JobID:    uuid.New(),
		Supplier: newTestSupplier(t, endpoint),
		Sink:     sink,
	}, cfg, nil, opts...)
	require.NoError(t, err)
	return c
}

func testWindow() collection.Window {
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return collection.Window{Start: end.AddDate(0, 0, -7), End: end}
}
