package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ticketmarket/config"
	"ticketmarket/internal/status"
	"ticketmarket/models"
	"ticketmarket/monitoring"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// amountEpsilon is the tolerance when comparing the callback amount with
// the stored order total. Both sides are on the minor-unit scale, so one
// minor unit equals the allowed 0.01 currency-unit drift.
var amountEpsilon = decimal.NewFromInt(1)

// auditTTL bounds how long raw callback payloads stay queryable.
const auditTTL = 7 * 24 * time.Hour

// OrderReconciler is the slice of the order service the gateway needs to
// settle callbacks against.
type OrderReconciler interface {
	Lookup(ctx context.Context, orderID string) (*core.Record, error)
	Confirm(ctx context.Context, orderID string, purchaser models.Purchaser, trigger string) (*core.Record, error)
	Cancel(ctx context.Context, orderID, actorID, trigger string) (*core.Record, error)
}

// Client builds hosted-payment-page URLs and reconciles the two inbound
// callback channels. The server-to-server notification is the only
// channel that mutates order state; the browser return is display only.
type Client struct {
	cfg     config.GatewayConfig
	orders  OrderReconciler
	redis   *redis.Client
	monitor *monitoring.Monitor
	now     func() time.Time
}

func New(cfg config.GatewayConfig, orders OrderReconciler, redisClient *redis.Client, monitor *monitoring.Monitor) *Client {
	return &Client{
		cfg:     cfg,
		orders:  orders,
		redis:   redisClient,
		monitor: monitor,
		now:     time.Now,
	}
}

// BuildPaymentURL signs a redirect URL for a pending order. The
// transaction reference embeds the order id before the first hyphen so
// callbacks can be traced back, with a timestamp suffix keeping retried
// payment attempts distinct at the gateway.
func (c *Client) BuildPaymentURL(ctx context.Context, order *core.Record, clientIP string) (string, error) {
	if models.OrderStatus(order.GetString("status")) != models.OrderPending {
		return "", status.ErrNotPaid
	}

	total := decimal.NewFromFloat(order.GetFloat("total"))
	// Amount travels in minor units.
	amount := total.Mul(decimal.NewFromInt(100)).Truncate(0)

	now := c.now()
	params := url.Values{}
	params.Set(ParamVersion, protocolVersion)
	params.Set(ParamCommand, commandPay)
	params.Set(ParamMerchant, c.cfg.MerchantCode)
	params.Set(ParamAmount, amount.String())
	params.Set(ParamCurrency, "VND")
	params.Set(ParamTxnRef, fmt.Sprintf("%s-%s", order.Id, now.Format(timeLayout)))
	params.Set(ParamOrderInfo, fmt.Sprintf("Order %s", order.Id))
	params.Set(ParamLocale, "en")
	params.Set(ParamIPAddr, clientIP)
	params.Set(ParamCreateDate, now.Format(timeLayout))
	params.Set(ParamExpireDate, now.Add(c.cfg.PayWindow).Format(timeLayout))
	params.Set(ParamReturnURL, c.cfg.ReturnURL)

	params.Set(ParamSecureHash, Sign(params, c.cfg.Secret))

	return c.cfg.BaseURL + "?" + params.Encode(), nil
}

// NotificationResult is the acknowledgement body the gateway expects.
// Every notification is answered with HTTP 200; RspCode tells the
// gateway whether to stop redelivering.
type NotificationResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Gateway acknowledgement vocabulary.
var (
	rspConfirmed     = NotificationResult{RspCode: "00", Message: "Confirm Success"}
	rspOrderNotFound = NotificationResult{RspCode: "01", Message: "Order not found"}
	rspAlreadyDone   = NotificationResult{RspCode: "02", Message: "Order already confirmed"}
	rspInvalidAmount = NotificationResult{RspCode: "04", Message: "Invalid amount"}
	rspInvalidSig    = NotificationResult{RspCode: "97", Message: "Invalid signature"}
	rspUnknownError  = NotificationResult{RspCode: "99", Message: "Unknown error"}
)

// HandleNotification processes the asynchronous server-to-server
// callback. Verification order is fixed: signature first, then reference,
// then order lookup, then amount. Only a verified success code flips the
// order to paid; a verified failure code cancels it and releases the
// reservation. Redelivery of an already settled notification is
// acknowledged with code 02 and no state change.
func (c *Client) HandleNotification(ctx context.Context, params url.Values) NotificationResult {
	result := c.reconcile(ctx, params)
	c.monitor.TrackGatewayCallback("notification", result.RspCode)
	c.audit(ctx, params, result.RspCode)
	return result
}

func (c *Client) reconcile(ctx context.Context, params url.Values) NotificationResult {
	if !VerifySignature(params, c.cfg.Secret) {
		slog.Warn("gateway: notification with invalid signature", "txn_ref", params.Get(ParamTxnRef))
		return rspInvalidSig
	}

	orderID, err := ParseTxnRef(params.Get(ParamTxnRef))
	if err != nil {
		return rspOrderNotFound
	}

	order, err := c.orders.Lookup(ctx, orderID)
	if err != nil {
		return rspOrderNotFound
	}

	if models.OrderStatus(order.GetString("status")).Terminal() ||
		models.OrderStatus(order.GetString("status")) == models.OrderPaid {
		return rspAlreadyDone
	}

	callbackAmount, err := decimal.NewFromString(params.Get(ParamAmount))
	if err != nil {
		return rspInvalidAmount
	}
	total := decimal.NewFromFloat(order.GetFloat("total")).Mul(decimal.NewFromInt(100))
	if callbackAmount.Sub(total).Abs().GreaterThan(amountEpsilon) {
		slog.Warn("gateway: amount mismatch",
			"order_id", orderID,
			"expected", total.String(),
			"received", callbackAmount.String(),
		)
		return rspInvalidAmount
	}

	if params.Get(ParamResponseCode) == "00" {
		if _, err := c.orders.Confirm(ctx, orderID, models.Purchaser{}, "gateway"); err != nil {
			slog.Error("gateway: confirm failed", "order_id", orderID, "error", err)
			return rspUnknownError
		}
		return rspConfirmed
	}

	// Verified failure at the gateway: close the order and return the
	// reservation so the seats go back on sale.
	if _, err := c.orders.Cancel(ctx, orderID, "", "gateway"); err != nil {
		slog.Error("gateway: cancel failed", "order_id", orderID, "error", err)
		return rspUnknownError
	}
	return rspConfirmed
}

// ReturnView is the read-only summary shown when the customer's browser
// lands back on the return URL.
type ReturnView struct {
	OrderID      string `json:"order_id"`
	OrderStatus  string `json:"order_status"`
	ResponseCode string `json:"response_code"`
	Amount       string `json:"amount"`
}

// HandleReturn validates the browser return and reports what the order
// currently looks like. It never mutates anything: the notification
// channel owns settlement, and this channel may arrive first, late, or
// not at all.
func (c *Client) HandleReturn(ctx context.Context, params url.Values) (*ReturnView, error) {
	if !VerifySignature(params, c.cfg.Secret) {
		c.monitor.TrackGatewayCallback("return", "97")
		return nil, status.ErrInvalidSignature
	}

	orderID, err := ParseTxnRef(params.Get(ParamTxnRef))
	if err != nil {
		c.monitor.TrackGatewayCallback("return", "01")
		return nil, err
	}

	order, err := c.orders.Lookup(ctx, orderID)
	if err != nil {
		c.monitor.TrackGatewayCallback("return", "01")
		return nil, err
	}

	c.monitor.TrackGatewayCallback("return", params.Get(ParamResponseCode))
	return &ReturnView{
		OrderID:      order.Id,
		OrderStatus:  order.GetString("status"),
		ResponseCode: params.Get(ParamResponseCode),
		Amount:       params.Get(ParamAmount),
	}, nil
}

// ParseTxnRef extracts the order id from a transaction reference of the
// form "{orderId}-{timestamp}".
func ParseTxnRef(ref string) (string, error) {
	orderID, _, found := strings.Cut(ref, "-")
	if !found || orderID == "" {
		return "", status.ErrMalformedRef
	}
	return orderID, nil
}

// audit keeps the raw callback parameters in Redis for dispute handling.
// Best effort: a cache failure never affects the acknowledgement.
func (c *Client) audit(ctx context.Context, params url.Values, rspCode string) {
	if c.redis == nil {
		return
	}

	orderID, err := ParseTxnRef(params.Get(ParamTxnRef))
	if err != nil {
		orderID = "unknown"
	}

	entry, err := json.Marshal(map[string]any{
		"received_at": c.now().UTC().Format(time.RFC3339),
		"rsp_code":    rspCode,
		"params":      flatten(params),
	})
	if err != nil {
		return
	}

	key := fmt.Sprintf("gateway:callbacks:%s", orderID)
	if err := c.redis.LPush(ctx, key, entry).Err(); err != nil {
		slog.Warn("gateway: audit write failed", "order_id", orderID, "error", err)
		return
	}
	c.redis.Expire(ctx, key, auditTTL)
}

func flatten(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k := range params {
		out[k] = params.Get(k)
	}
	return out
}
