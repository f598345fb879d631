package resolver

import (
	"context"
	"strings"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BridgeResolver resolves cross-chain routes through the remote aggregator.
// Routes are opaque and time-limited; the resolver revalidates a route before
// it is handed to execution.
type BridgeResolver struct {
	aggregator types.BridgeAggregator
	logger     *logrus.Logger
}

// NewBridgeResolver creates a resolver over the given aggregator.
func NewBridgeResolver(aggregator types.BridgeAggregator, logger *logrus.Logger) *BridgeResolver {
	return &BridgeResolver{
		aggregator: aggregator,
		logger:     logger,
	}
}

// FindRoute searches routes for the request and returns the best-ranked one.
//
// Parameters:
// - ctx: the context for managing the request.
// - req: the route search request.
//
// Returns:
// - *types.BridgeRoute: the first-ranked route.
// - error: ErrNoRouteFound when the aggregator returns zero routes.
func (r *BridgeResolver) FindRoute(ctx context.Context, req *types.RouteRequest) (*types.BridgeRoute, error) {
	routes, err := r.aggregator.SearchRoutes(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "route search failed")
	}

	if len(routes) == 0 {
		return nil, commonerrors.ErrNoRouteFound
	}

	r.logger.WithFields(logrus.Fields{
		"routes":   len(routes),
		"selected": routes[0].ID,
	}).Debug("Bridge route selected")

	return &routes[0], nil
}

// Revalidate checks that a previously issued route is still executable.
// Any reported validation error is fatal to the route; the caller must
// request a fresh quote rather than retry silently.
func (r *BridgeResolver) Revalidate(ctx context.Context, routeID string) error {
	validation, err := r.aggregator.ValidateRoute(ctx, routeID)
	if err != nil {
		return errors.Wrap(err, "route validation failed")
	}

	if !validation.Valid {
		return errors.Wrap(commonerrors.ErrRouteInvalid, strings.Join(validation.Errors, "; "))
	}

	return nil
}
