// Package relay is the client for the account-abstraction execution relay:
// a JSON-RPC service that creates smart accounts, prepares call batches,
// executes them gaslessly under a sponsoring policy, and reports their
// status. Response-shape quirks of the relay stay inside this package.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sigweihq/yieldpay/pkg/constants"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// Client talks to one relay endpoint. All methods are safe for concurrent
// use.
type Client struct {
	URL        string
	PolicyID   string
	HTTPClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a relay client. policyID identifies the gas
// sponsorship policy attached to prepared batches; empty disables
// sponsorship capabilities.
func NewClient(url, policyID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		URL:      url,
		PolicyID: policyID,
		HTTPClient: &http.Client{
			Timeout: constants.RelayTimeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
				ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
				ExpectContinueTimeout: constants.ExpectContinueTimeout,
			},
		},
		logger: logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// call performs one JSON-RPC request and returns the raw result payload.
func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, int64(constants.MaxResponseBodySize))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(limitedReader)
		return nil, fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(limitedReader).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, fmt.Errorf("%s returned no result", method)
	}

	return rpcResp.Result, nil
}

type requestAccountResult struct {
	AccountAddress string `json:"accountAddress"`
	ID             string `json:"id"`
}

// RequestAccount requests (or deterministically re-derives) the smart
// account for the signer/salt pair. Idempotent: the same salt for the same
// signer always yields the same address.
func (c *Client) RequestAccount(ctx context.Context, signerAddress common.Address, salt string) (string, error) {
	params := []any{map[string]any{
		"signerAddress": signerAddress.Hex(),
		"creationHint": map[string]any{
			"salt":             salt,
			"createAdditional": true,
		},
	}}

	raw, err := c.call(ctx, "wallet_requestAccount", params)
	if err != nil {
		return "", err
	}

	var result requestAccountResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode wallet_requestAccount result: %w", err)
	}
	if result.AccountAddress == "" {
		return "", fmt.Errorf("wallet_requestAccount returned no account address")
	}

	c.logger.Info("smart account requested", "account", result.AccountAddress)
	return result.AccountAddress, nil
}

// SignatureRequest is the relay-issued challenge the signer must authorize.
type SignatureRequest struct {
	Type string `json:"type"`
	Data struct {
		Raw string `json:"raw"`
	} `json:"data"`
	RawPayload string `json:"rawPayload,omitempty"`
}

// PreparedCalls is the relay's execution-ready package for a batch. Data
// is kept opaque and echoed back verbatim on submission.
type PreparedCalls struct {
	Type             string           `json:"type"`
	Data             json.RawMessage  `json:"data"`
	ChainID          string           `json:"chainId"`
	SignatureRequest SignatureRequest `json:"signatureRequest"`
}

// ChallengeDigest returns the hex digest one signature over which
// authorizes the entire batch.
func (p *PreparedCalls) ChallengeDigest() string {
	return p.SignatureRequest.Data.Raw
}

type callParam struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
}

// PrepareCalls asks the relay to prepare the ordered batch for execution
// from the given account. Call order is preserved exactly as built.
func (c *Client) PrepareCalls(ctx context.Context, from common.Address, calls types.CallBatch, chainID string) (*PreparedCalls, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("empty call batch")
	}

	callParams := make([]callParam, len(calls))
	for i, call := range calls {
		callParams[i] = callParam{
			To:   call.To.Hex(),
			Data: hexutil.Encode(call.Data),
		}
		if call.Value != nil {
			callParams[i].Value = hexutil.EncodeBig(call.Value)
		}
	}

	param := map[string]any{
		"calls":   callParams,
		"from":    from.Hex(),
		"chainId": chainID,
	}
	if c.PolicyID != "" {
		param["capabilities"] = map[string]any{
			"paymasterService": map[string]any{
				"policyId": c.PolicyID,
			},
		}
	}

	raw, err := c.call(ctx, "wallet_prepareCalls", []any{param})
	if err != nil {
		return nil, err
	}

	var prepared PreparedCalls
	if err := json.Unmarshal(raw, &prepared); err != nil {
		return nil, fmt.Errorf("failed to decode wallet_prepareCalls result: %w", err)
	}
	if prepared.ChallengeDigest() == "" {
		return nil, fmt.Errorf("wallet_prepareCalls returned no signature request")
	}

	return &prepared, nil
}

// SendPreparedCalls submits the signed package and returns the relay's
// batch identifier. Acceptance means queued for execution, not settled.
func (c *Client) SendPreparedCalls(ctx context.Context, prepared *PreparedCalls, signature string) (string, error) {
	params := []any{map[string]any{
		"type":    prepared.Type,
		"data":    prepared.Data,
		"chainId": prepared.ChainID,
		"signature": map[string]any{
			"type": "secp256k1",
			"data": signature,
		},
	}}

	raw, err := c.call(ctx, "wallet_sendPreparedCalls", params)
	if err != nil {
		return "", err
	}

	return normalizeBatchID(raw)
}

// normalizeBatchID folds the relay's three batch-identifier response
// shapes (a bare string, {"callsId": ...} and {"preparedCallIds": [...]})
// into one identifier. Shape ambiguity never leaks past this function.
func normalizeBatchID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}

	var obj struct {
		CallsID         string   `json:"callsId"`
		PreparedCallIDs []string `json:"preparedCallIds"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("unexpected wallet_sendPreparedCalls response shape: %s", string(raw))
	}

	if len(obj.PreparedCallIDs) > 0 {
		return obj.PreparedCallIDs[0], nil
	}
	if obj.CallsID != "" {
		return obj.CallsID, nil
	}

	return "", fmt.Errorf("wallet_sendPreparedCalls returned no batch identifier: %s", string(raw))
}

// GetCallsStatus returns the relay's current view of a submitted batch.
func (c *Client) GetCallsStatus(ctx context.Context, batchID string) (*types.BatchStatus, error) {
	raw, err := c.call(ctx, "wallet_getCallsStatus", []any{batchID})
	if err != nil {
		return nil, err
	}

	var status types.BatchStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode wallet_getCallsStatus result: %w", err)
	}

	return &status, nil
}
