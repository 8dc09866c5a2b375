package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const defaultNodeTimeout = 15 * time.Second

// ErrNodeRequest is returned when the node answers with a non-2xx status.
var ErrNodeRequest = errors.New("node request failed")

// NodeClient talks to the REST API of a Cedra full node.
// It only reads: views, transaction lookups and balances.
type NodeClient struct {
	http *resty.Client
	l    *zap.Logger
}

// NewNodeClient creates a client for baseURL, e.g. https://testnet.cedra.dev.
func NewNodeClient(baseURL string, timeout time.Duration, l *zap.Logger) *NodeClient {
	if l == nil {
		l = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultNodeTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &NodeClient{http: client, l: l}
}

type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// View calls a view function and returns its results as strings.
// Numbers and strings are returned verbatim, other values as raw JSON.
func (c *NodeClient) View(ctx context.Context, payload domain.TransactionPayload) ([]string, error) {
	p := payload.Clone()

	var raw []json.RawMessage
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(viewRequest{
			Function:      p.Function,
			TypeArguments: p.TypeArguments,
			Arguments:     p.FunctionArguments,
		}).
		SetResult(&raw).
		Post("/v1/view")
	if err != nil {
		return nil, errors.Wrapf(err, "view %s", payload.Function)
	}
	if err := checkResponse(resp); err != nil {
		return nil, errors.Wrapf(err, "view %s", payload.Function)
	}

	values := make([]string, 0, len(raw))
	for _, item := range raw {
		values = append(values, decodeViewValue(item))
	}

	c.l.Debug("view call", zap.String("function", payload.Function), zap.Strings("result", values))

	return values, nil
}

type transactionResponse struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
}

// TransactionStatus maps the node's view of a transaction onto the record status.
// Unknown hashes return ErrTransactionNotFound.
func (c *NodeClient) TransactionStatus(ctx context.Context, hash string) (domain.TxStatus, error) {
	var tx transactionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("hash", hash).
		SetResult(&tx).
		Get("/v1/transactions/by_hash/{hash}")
	if err != nil {
		return "", errors.Wrapf(err, "lookup transaction %s", hash)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", errors.Wrap(ErrTransactionNotFound, hash)
	}
	if err := checkResponse(resp); err != nil {
		return "", errors.Wrapf(err, "lookup transaction %s", hash)
	}

	if tx.Type == "pending_transaction" {
		return domain.TxStatusPending, nil
	}
	if tx.Success {
		return domain.TxStatusSuccess, nil
	}

	c.l.Info("transaction failed on chain", zap.String("hash", hash), zap.String("vm_status", tx.VMStatus))

	return domain.TxStatusFailed, nil
}

// CoinBalance returns the balance of coinType held by address in smallest units.
func (c *NodeClient) CoinBalance(ctx context.Context, address, coinType string) (decimal.Decimal, error) {
	addr, err := domain.PadAddress(address)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"address": addr, "coin": coinType}).
		Get("/v1/accounts/{address}/balance/{coin}")
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "balance of %s", addr)
	}
	if err := checkResponse(resp); err != nil {
		return decimal.Zero, errors.Wrapf(err, "balance of %s", addr)
	}

	balance, err := domain.ParseUnits(strings.Trim(strings.TrimSpace(resp.String()), `"`))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "decode balance")
	}

	return balance, nil
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	return errors.Wrap(ErrNodeRequest, fmt.Sprintf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())))
}

func decodeViewValue(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}

	return strings.TrimSpace(string(item))
}
