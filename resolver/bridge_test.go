package resolver

import (
	"context"
	"math/big"
	"testing"

	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAggregator struct {
	routes     []types.BridgeRoute
	searchErr  error
	validation *types.RouteValidation
}

func (a *fakeAggregator) SearchRoutes(ctx context.Context, req *types.RouteRequest) ([]types.BridgeRoute, error) {
	return a.routes, a.searchErr
}

func (a *fakeAggregator) GetExecutableSteps(ctx context.Context, routeID string) (*types.TransactionRequest, error) {
	return &types.TransactionRequest{To: "0xbridge", Value: big.NewInt(0)}, nil
}

func (a *fakeAggregator) GetStatus(ctx context.Context, routeID, txHash string) (*types.BridgeStatus, error) {
	return &types.BridgeStatus{Phase: types.PhasePending}, nil
}

func (a *fakeAggregator) ValidateRoute(ctx context.Context, routeID string) (*types.RouteValidation, error) {
	return a.validation, nil
}

func TestFindRouteSelectsFirstRanked(t *testing.T) {
	agg := &fakeAggregator{routes: []types.BridgeRoute{
		{ID: "r-best", ToAmount: big.NewInt(995)},
		{ID: "r-second", ToAmount: big.NewInt(990)},
	}}
	r := NewBridgeResolver(agg, quietLogger())

	route, err := r.FindRoute(context.Background(), &types.RouteRequest{FromAmount: big.NewInt(1000)})
	require.NoError(t, err)
	assert.Equal(t, "r-best", route.ID)
}

func TestFindRouteEmptyResult(t *testing.T) {
	r := NewBridgeResolver(&fakeAggregator{}, quietLogger())

	_, err := r.FindRoute(context.Background(), &types.RouteRequest{FromAmount: big.NewInt(1000)})
	assert.ErrorIs(t, err, commonerrors.ErrNoRouteFound)
}

func TestRevalidateReportsInvalidRoutes(t *testing.T) {
	agg := &fakeAggregator{validation: &types.RouteValidation{Valid: false, Errors: []string{"route expired"}}}
	r := NewBridgeResolver(agg, quietLogger())

	err := r.Revalidate(context.Background(), "r-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, commonerrors.ErrRouteInvalid)
	assert.Contains(t, err.Error(), "route expired")

	agg.validation = &types.RouteValidation{Valid: true}
	assert.NoError(t, r.Revalidate(context.Background(), "r-1"))
}
