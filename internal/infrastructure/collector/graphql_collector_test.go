package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/collection"
)

func TestGraphQLConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GraphQLConfig)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(*GraphQLConfig) {}},
		{name: "zero page size", mutate: func(c *GraphQLConfig) { c.PageSize = 0 }, wantErr: ErrInvalidPageSize},
		{name: "page size too large", mutate: func(c *GraphQLConfig) { c.PageSize = 501 }, wantErr: ErrInvalidPageSize},
		{name: "zero max pages", mutate: func(c *GraphQLConfig) { c.MaxPages = 0 }, wantErr: ErrInvalidMaxPages},
		{name: "negative delay", mutate: func(c *GraphQLConfig) { c.PageDelay = -time.Second }, wantErr: ErrInvalidDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGraphQLConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("fills optional values", func(t *testing.T) {
		cfg := GraphQLConfig{PageSize: 10, MaxPages: 5}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultPageTimeout, cfg.PageTimeout)
		assert.Equal(t, DefaultMaxConsecutiveFailures, cfg.MaxConsecutiveFailures)
		assert.Equal(t, int64(maxResponseSize), cfg.MaxResponseSize)
		assert.Equal(t, catalog.DefaultLowStockThreshold, cfg.StockPolicy.LowStockThreshold)
	})
}

func TestNewGraphQLCollector_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"ftp://example.com/graphql", "not a url", "http://"} {
		t.Run(endpoint, func(t *testing.T) {
			_, err := NewGraphQLCollector(collection.CollectorParams{
				JobID:    uuid.New(),
				Supplier: newTestSupplier(t, endpoint),
				Sink:     newFakeSink(),
			}, DefaultGraphQLConfig(), nil)
			assert.ErrorIs(t, err, ErrInvalidEndpoint)
		})
	}
}

func TestGraphQLCollector_ClassifiesAndCreates(t *testing.T) {
	server := &catalogServer{pages: [][]map[string]any{
		{item("A", 0), item("B", 5), item("C", 50)},
	}}
	srv := startCatalogServer(t, server)
	sink := newFakeSink()

	result, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalProducts)
	assert.Equal(t, 3, result.NewProducts)
	assert.Equal(t, 0, result.UpdatedProducts)
	assert.Equal(t, 0, result.FailedProducts)
	assert.Empty(t, result.Errors)

	a, _ := sink.get("A")
	b, _ := sink.get("B")
	c, _ := sink.get("C")
	assert.Equal(t, catalog.StockStatusOutOfStock, a.StockStatus)
	assert.Equal(t, catalog.StockStatusLowStock, b.StockStatus)
	assert.Equal(t, catalog.StockStatusInStock, c.StockStatus)
	assert.Equal(t, "Product C", c.Name)
	assert.Equal(t, "12.5", c.Price.String())
	assert.Equal(t, "cat-1", c.Metadata["category_ref"])
	assert.Contains(t, c.Metadata, "source")
}

func TestGraphQLCollector_PagesInOrderWithCredentials(t *testing.T) {
	server := &catalogServer{pages: [][]map[string]any{
		{item("A", 20), item("B", 20), item("C", 20)},
		{item("D", 20), item("E", 20), item("F", 20)},
		{item("G", 20)},
	}}
	srv := startCatalogServer(t, server)
	sink := newFakeSink()

	result, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, server.requestedPages())
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G"}, sink.order)
	assert.Equal(t, 7, result.TotalProducts)

	first := server.requests[0]
	assert.Equal(t, "Products", first.OperationName)
	assert.Contains(t, first.Query, "products(page: $page")
	assert.Equal(t, float64(3), first.Variables["pageSize"])
	assert.Equal(t, "2026-03-03T00:00:00Z", first.Variables["updatedFrom"])
	assert.Equal(t, "2026-03-10T00:00:00Z", first.Variables["updatedTo"])
	assert.Equal(t, "Bearer secret-token", server.headers[0].Get("Authorization"))
	assert.Equal(t, "key-1", server.headers[0].Get("X-API-Key"))
}

func TestGraphQLCollector_StopsOnShortPageWithoutMetadata(t *testing.T) {
	server := &catalogServer{
		omitTotal: true,
		pages: [][]map[string]any{
			{item("A", 20), item("B", 20), item("C", 20)},
			{item("D", 20)},
		},
	}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, server.requestedPages())
	assert.Equal(t, 4, result.TotalProducts)
}

func TestGraphQLCollector_PageFailureContinues(t *testing.T) {
	server := &catalogServer{
		pages: [][]map[string]any{
			{item("A", 20), item("B", 20), item("C", 20)},
			{item("D", 20), item("E", 20), item("F", 20)},
			{item("G", 20)},
		},
		statuses: map[int]int{2: http.StatusInternalServerError},
	}
	srv := startCatalogServer(t, server)
	sink := newFakeSink()

	result, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, server.requestedPages())
	assert.False(t, result.Success)
	assert.Equal(t, 4, result.NewProducts)
	assert.Equal(t, 3, result.FailedProducts)
	assert.Equal(t, 7, result.TotalProducts)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, collection.StageFetch, result.Errors[0].Stage)
	assert.Equal(t, "page 2", result.Errors[0].ItemRef)
	assert.Contains(t, result.Errors[0].Message, "HTTP 500")
}

func TestGraphQLCollector_LastPageFailureStops(t *testing.T) {
	server := &catalogServer{
		pages: [][]map[string]any{
			{item("A", 20), item("B", 20), item("C", 20)},
			{item("D", 20)},
		},
		statuses: map[int]int{2: http.StatusBadGateway},
	}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, server.requestedPages())
	assert.Equal(t, 3, result.FailedProducts)
}

func TestGraphQLCollector_FirstPageRejectionIsFatal(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := &catalogServer{
				pages:    [][]map[string]any{{item("A", 1)}},
				statuses: map[int]int{1: status},
			}
			srv := startCatalogServer(t, server)
			sink := newFakeSink()

			result, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
			require.Error(t, err)
			assert.ErrorIs(t, err, collection.ErrFatal)
			require.NotNil(t, result)
			assert.False(t, result.Success)
			assert.Equal(t, 0, sink.count())
			assert.Equal(t, []int{1}, server.requestedPages())
		})
	}
}

func TestGraphQLCollector_UnreachableEndpointIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()
	sink := newFakeSink()

	result, err := newTestCollector(t, endpoint, sink, func(c *GraphQLConfig) { c.PageSize = 3 }).
		Collect(context.Background(), testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, collection.ErrFatal)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Zero(t, result.FailedProducts)
	assert.Zero(t, result.TotalProducts)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, collection.StageFetch, result.Errors[0].Stage)
	assert.Equal(t, 0, sink.count())
}

func TestGraphQLCollector_FirstPageTimeoutIsNotFatal(t *testing.T) {
	server := &catalogServer{t: t, pages: [][]map[string]any{{item("A", 20)}, {item("B", 20)}}}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		server.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), func(c *GraphQLConfig) {
		c.PageSize = 1
		c.PageTimeout = 50 * time.Millisecond
	}).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedProducts)
	assert.Equal(t, 1, result.NewProducts)
}

func TestGraphQLCollector_FirstPageServerErrorIsNotFatal(t *testing.T) {
	server := &catalogServer{
		pages:    [][]map[string]any{{item("A", 20), item("B", 20), item("C", 20)}, {item("D", 20)}},
		statuses: map[int]int{1: http.StatusServiceUnavailable},
	}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, server.requestedPages())
	assert.Equal(t, 3, result.FailedProducts)
	assert.Equal(t, 1, result.NewProducts)
}

func TestGraphQLCollector_GraphQLAuthErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"products":null},"errors":[{"message":"invalid token","extensions":{"code":"UNAUTHENTICATED"}}]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	assert.ErrorIs(t, err, collection.ErrFatal)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestGraphQLCollector_PartialFailureIsolation(t *testing.T) {
	page := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		page = append(page, item(string(rune('A'+i-1)), 20))
	}
	server := &catalogServer{pages: [][]map[string]any{page}}
	srv := startCatalogServer(t, server)
	sink := newFakeSink("E")

	result, err := newTestCollector(t, srv.URL, sink, func(c *GraphQLConfig) { c.PageSize = 10 }).
		Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 10, result.TotalProducts)
	assert.Equal(t, 9, result.NewProducts)
	assert.Equal(t, 1, result.FailedProducts)
	assert.Equal(t, 9, sink.count())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, collection.StagePersist, result.Errors[0].Stage)
	assert.Equal(t, "E", result.Errors[0].ItemRef)
}

func TestGraphQLCollector_InvalidItemsFailAlone(t *testing.T) {
	nameless := item("B", 20)
	nameless["name"] = "   "
	server := &catalogServer{pages: [][]map[string]any{
		{item("A", 20), nameless, {"sku": []int{1}}},
	}}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewProducts)
	assert.Equal(t, 2, result.FailedProducts)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, collection.StageNormalize, result.Errors[0].Stage)
	assert.Equal(t, "B", result.Errors[0].ItemRef)
	assert.Equal(t, collection.StageNormalize, result.Errors[1].Stage)
	assert.Equal(t, "page 1", result.Errors[1].ItemRef)
}

func TestGraphQLCollector_RemoteStockLabelWhenQuantityMissing(t *testing.T) {
	labelled := item("A", 0)
	delete(labelled, "stockQuantity")
	labelled["stockStatus"] = "SOLD_OUT"
	unknown := item("B", 0)
	delete(unknown, "stockQuantity")
	unknown["stockStatus"] = "whatever"
	server := &catalogServer{pages: [][]map[string]any{{labelled, unknown}}}
	srv := startCatalogServer(t, server)
	sink := newFakeSink()

	_, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	a, _ := sink.get("A")
	b, _ := sink.get("B")
	assert.Equal(t, catalog.StockStatusOutOfStock, a.StockStatus)
	assert.Equal(t, catalog.StockStatusOutOfStock, b.StockStatus)
}

func TestGraphQLCollector_PageCeiling(t *testing.T) {
	server := &catalogServer{
		alwaysMore: true,
		pages:      [][]map[string]any{{item("A", 20)}},
	}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), func(c *GraphQLConfig) { c.MaxPages = 4 }).
		Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, server.requestedPages())
	assert.True(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1].Message, "page ceiling")
}

func TestGraphQLCollector_StopsAfterConsecutiveFailures(t *testing.T) {
	server := &catalogServer{statuses: map[int]int{
		1: http.StatusInternalServerError,
		2: http.StatusInternalServerError,
		3: http.StatusInternalServerError,
		4: http.StatusInternalServerError,
	}}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, server.requestedPages())
	assert.Equal(t, 9, result.FailedProducts)
	assert.False(t, result.Success)
}

func TestGraphQLCollector_FixedIntervalThrottle(t *testing.T) {
	server := &catalogServer{pages: [][]map[string]any{
		{item("A", 20), item("B", 20), item("C", 20)},
		{item("D", 20), item("E", 20), item("F", 20)},
		{item("G", 20)},
	}}
	srv := startCatalogServer(t, server)

	_, err := newTestCollector(t, srv.URL, newFakeSink(), func(c *GraphQLConfig) { c.PageDelay = 60 * time.Millisecond }).
		Collect(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, server.times, 3)
	for i := 1; i < len(server.times); i++ {
		assert.GreaterOrEqual(t, server.times[i].Sub(server.times[i-1]), 50*time.Millisecond)
	}
}

func TestGraphQLCollector_CancelledContextAborts(t *testing.T) {
	server := &catalogServer{alwaysMore: true, pages: [][]map[string]any{{item("A", 20)}}}
	srv := startCatalogServer(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil).Collect(ctx, testWindow())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, server.requestedPages())
}

func TestGraphQLCollector_ArchivesPages(t *testing.T) {
	server := &catalogServer{pages: [][]map[string]any{
		{item("A", 20), item("B", 20), item("C", 20)},
		{item("D", 20)},
	}}
	srv := startCatalogServer(t, server)
	archive := &fakeArchive{}

	c := newTestCollector(t, srv.URL, newFakeSink(), nil, WithArchive(archive))
	_, err := c.Collect(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, archive.keys, 2)
	prefix := c.supplier.ID.String() + "/" + c.jobID.String() + "/"
	assert.Equal(t, prefix+"page-1.json", archive.keys[0])
	assert.Equal(t, prefix+"page-2.json", archive.keys[1])
}

func TestGraphQLCollector_ArchiveFailureDoesNotFailItems(t *testing.T) {
	server := &catalogServer{pages: [][]map[string]any{{item("A", 20)}}}
	srv := startCatalogServer(t, server)

	result, err := newTestCollector(t, srv.URL, newFakeSink(), nil, WithArchive(&fakeArchive{err: errors.New("bucket gone")})).
		Collect(context.Background(), testWindow())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewProducts)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, collection.StageArchive, result.Errors[0].Stage)
}

func TestGraphQLCollector_IdempotentRerun(t *testing.T) {
	f := gofakeit.New(42)
	server := &catalogServer{pages: [][]map[string]any{fakeItems(f, 3), fakeItems(f, 3), fakeItems(f, 2)}}
	srv := startCatalogServer(t, server)
	sink := newFakeSink()

	first, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, 8, first.NewProducts)

	second, err := newTestCollector(t, srv.URL, sink, nil).Collect(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewProducts)
	assert.Equal(t, 8, second.UpdatedProducts)
	assert.Equal(t, 8, sink.count())

	for _, page := range server.pages {
		for _, it := range page {
			p, ok := sink.get(strings.TrimSpace(it["sku"].(string)))
			require.True(t, ok)
			assert.Equal(t, catalog.DefaultStockPolicy().Classify(it["stockQuantity"].(int)), p.StockStatus)
		}
	}
}
