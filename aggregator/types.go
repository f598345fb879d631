package aggregator

// Wire shapes of the route aggregator's HTTP API. Amount fields travel as
// decimal strings and are converted at the package boundary.

type routeRequestBody struct {
	FromChainID uint64 `json:"fromChainId"`
	ToChainID   uint64 `json:"toChainId"`
	FromToken   string `json:"fromTokenAddress"`
	ToToken     string `json:"toTokenAddress"`
	FromAmount  string `json:"fromAmount"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

type routeStepBody struct {
	Tool       string `json:"tool"`
	FromAmount string `json:"fromAmount"`
	ToAmount   string `json:"toAmount"`
}

type routeEstimateBody struct {
	ExecutionDuration int64   `json:"executionDuration"`
	Slippage          float64 `json:"slippage"`
}

type routeFeesBody struct {
	TotalPercentage float64            `json:"totalPercentage"`
	Breakdown       map[string]float64 `json:"breakdown"`
}

type routeBody struct {
	ID          string            `json:"id"`
	FromChainID uint64            `json:"fromChainId"`
	ToChainID   uint64            `json:"toChainId"`
	FromToken   string            `json:"fromTokenAddress"`
	ToToken     string            `json:"toTokenAddress"`
	FromAmount  string            `json:"fromAmount"`
	ToAmount    string            `json:"toAmount"`
	Steps       []routeStepBody   `json:"steps"`
	Estimate    routeEstimateBody `json:"estimate"`
	Fees        routeFeesBody     `json:"fees"`
}

type routesResponseBody struct {
	Routes []routeBody `json:"routes"`
}

type stepTransactionBody struct {
	To       string `json:"to"`
	Value    string `json:"value"`
	Data     string `json:"data"`
	GasLimit uint64 `json:"gasLimit"`
	ChainID  uint64 `json:"chainId"`
}

type statusResponseBody struct {
	Status            string `json:"status"`
	SubStatus         string `json:"substatus"`
	DestinationTxHash string `json:"receivingTxHash"`
}

type validationResponseBody struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
