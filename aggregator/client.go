package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	commonerrors "github.com/HelioDex/exchange-engine/common/errors"
	"github.com/HelioDex/exchange-engine/common/types"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// requestTimeout bounds a single HTTP request to the aggregator.
	requestTimeout = 15 * time.Second
	// maxRequestTries bounds retries of transient aggregator failures.
	maxRequestTries = 3
)

// Client is the HTTP client for the remote route aggregator. It implements
// types.BridgeAggregator; the resolver, engine, and status tracker depend
// only on that interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates an aggregator client for the given base URL.
//
// Parameters:
// - baseURL: the aggregator API base URL, without a trailing slash.
// - logger: the logger for logging events.
//
// Returns:
// - *Client: the aggregator client instance.
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// SearchRoutes returns zero or more routes ranked best-first for the request.
func (c *Client) SearchRoutes(ctx context.Context, req *types.RouteRequest) ([]types.BridgeRoute, error) {
	body := &routeRequestBody{
		FromChainID: req.FromChain,
		ToChainID:   req.ToChain,
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		FromAmount:  req.FromAmount.String(),
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
	}

	var resp routesResponseBody
	if err := c.doJSON(ctx, http.MethodPost, "/routes", body, &resp); err != nil {
		return nil, err
	}

	routes := make([]types.BridgeRoute, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		route, err := convertRoute(r)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	return routes, nil
}

// GetExecutableSteps resolves a route ID into the transaction to broadcast on
// the source chain.
func (c *Client) GetExecutableSteps(ctx context.Context, routeID string) (*types.TransactionRequest, error) {
	var resp stepTransactionBody
	path := fmt.Sprintf("/routes/%s/steps", url.PathEscape(routeID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	value := new(big.Int)
	if resp.Value != "" {
		if _, ok := value.SetString(resp.Value, 10); !ok {
			return nil, errors.Errorf("invalid step value %q", resp.Value)
		}
	}

	return &types.TransactionRequest{
		To:       resp.To,
		Value:    value,
		Data:     ethcommon.FromHex(resp.Data),
		GasLimit: resp.GasLimit,
		ChainID:  resp.ChainID,
	}, nil
}

// GetStatus reports the current status of a broadcast route.
func (c *Client) GetStatus(ctx context.Context, routeID string, txHash string) (*types.BridgeStatus, error) {
	var resp statusResponseBody
	path := fmt.Sprintf("/status?routeId=%s&txHash=%s", url.QueryEscape(routeID), url.QueryEscape(txHash))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	subStatus := types.SubStatus(resp.SubStatus)

	phase := subStatus.Phase()
	if resp.SubStatus == "" {
		switch resp.Status {
		case "DONE":
			phase = types.PhaseCompleted
		case "FAILED":
			phase = types.PhaseFailed
		default:
			phase = types.PhasePending
		}
	}

	return &types.BridgeStatus{
		Phase:             phase,
		SubStatus:         subStatus,
		DestinationTxHash: resp.DestinationTxHash,
	}, nil
}

// ValidateRoute checks whether the route is still executable server-side.
func (c *Client) ValidateRoute(ctx context.Context, routeID string) (*types.RouteValidation, error) {
	var resp validationResponseBody
	path := fmt.Sprintf("/routes/%s/validate", url.PathEscape(routeID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &types.RouteValidation{
		Valid:  resp.Valid,
		Errors: resp.Errors,
	}, nil
}

// doJSON performs one aggregator request with retries on transient failures.
// Client errors (4xx) are not retried; their payload message is surfaced.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
		if err != nil {
			return nil, backoff.Permanent(errors.Wrap(err, "failed to build request"))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(commonerrors.ErrNetworkUnavailable, err.Error())
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response body")
		}

		if resp.StatusCode >= 500 {
			return nil, errors.Wrapf(commonerrors.ErrNetworkUnavailable, "aggregator returned status %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			msg := gjson.GetBytes(respBody, "message").String()
			if msg == "" {
				msg = string(respBody)
			}
			return nil, backoff.Permanent(errors.Errorf("aggregator error (status %d): %s", resp.StatusCode, msg))
		}

		return respBody, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	respBody, err := backoff.Retry(ctx, operation, backoff.WithMaxTries(maxRequestTries), backoff.WithBackOff(b))
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"error":  err,
		}).Error("Aggregator request failed")
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, "failed to decode aggregator response")
		}
	}

	return nil
}

// convertRoute converts a wire route into the engine's route model.
func convertRoute(r routeBody) (types.BridgeRoute, error) {
	fromAmount, ok := new(big.Int).SetString(r.FromAmount, 10)
	if !ok {
		return types.BridgeRoute{}, errors.Errorf("invalid route fromAmount %q", r.FromAmount)
	}

	toAmount, ok := new(big.Int).SetString(r.ToAmount, 10)
	if !ok {
		return types.BridgeRoute{}, errors.Errorf("invalid route toAmount %q", r.ToAmount)
	}

	steps := lo.Map(r.Steps, func(s routeStepBody, _ int) types.RouteStep {
		stepFrom, _ := new(big.Int).SetString(s.FromAmount, 10)
		stepTo, _ := new(big.Int).SetString(s.ToAmount, 10)
		return types.RouteStep{
			Tool:       s.Tool,
			FromAmount: stepFrom,
			ToAmount:   stepTo,
		}
	})

	return types.BridgeRoute{
		ID:         r.ID,
		FromChain:  r.FromChainID,
		ToChain:    r.ToChainID,
		FromToken:  r.FromToken,
		ToToken:    r.ToToken,
		FromAmount: fromAmount,
		ToAmount:   toAmount,
		Steps:      steps,
		Estimate: types.RouteEstimate{
			DurationSeconds: r.Estimate.ExecutionDuration,
			Slippage:        r.Estimate.Slippage,
		},
		Fees: types.RouteFees{
			TotalPercentage: r.Fees.TotalPercentage,
			Breakdown:       r.Fees.Breakdown,
		},
	}, nil
}
