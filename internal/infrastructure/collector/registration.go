package collector

import (
	"net/http"

	"go.uber.org/zap"

	appcollection "github.com/erp/backoffice/internal/application/collection"
	"github.com/erp/backoffice/internal/domain/collection"
	"github.com/erp/backoffice/internal/domain/partner"
)

// Dependencies are the shared collaborators of the built-in collectors
type Dependencies struct {
	GraphQL    GraphQLConfig
	Worker     RemoteWorkerConfig
	Tokens     TokenIssuer
	Archive    PayloadArchive
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// RegisterDefaults registers the built-in collectors: the GraphQL catalog
// collector for every graphql endpoint and, when a worker is configured,
// the remote worker for crawling suppliers.
func RegisterDefaults(registry *appcollection.Registry, deps Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := deps.GraphQL.Validate(); err != nil {
		return err
	}

	graphqlOpts := make([]GraphQLOption, 0, 2)
	if deps.HTTPClient != nil {
		graphqlOpts = append(graphqlOpts, WithHTTPClient(deps.HTTPClient))
	}
	if deps.Archive != nil {
		graphqlOpts = append(graphqlOpts, WithArchive(deps.Archive))
	}

	err := registry.Register(partner.IntegrationTypeGraphQL, appcollection.WildcardEndpoint,
		func(params collection.CollectorParams) (collection.Collector, error) {
			return NewGraphQLCollector(params, deps.GraphQL, logger, graphqlOpts...)
		})
	if err != nil {
		return err
	}

	if deps.Worker.URL == "" || deps.Tokens == nil {
		logger.Info("Remote worker not configured, crawling suppliers cannot be collected")
		return nil
	}
	return registry.Register(partner.IntegrationTypeCrawling, appcollection.WildcardEndpoint,
		func(params collection.CollectorParams) (collection.Collector, error) {
			return NewRemoteWorkerCollector(params, deps.Worker, deps.Tokens, logger)
		})
}
