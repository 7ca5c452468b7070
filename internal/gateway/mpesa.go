package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	InitiatorName  string
	CallbackURL    string
	ResultURL      string
	TimeoutURL     string
}

type mpesaGateway struct {
	cfg     MpesaConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewMpesaGateway(cfg MpesaConfig, logger *zap.Logger) MobileGateway {
	return &mpesaGateway{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "mpesa",
		}),
		logger: logger,
		tracer: otel.Tracer("gateway/mpesa"),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// token returns a cached OAuth token, fetching a fresh one when the cached
// token is within a minute of expiry.
func (g *mpesaGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Until(g.tokenExpiry) > time.Minute {
		return g.accessToken, nil
	}

	url := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	g.accessToken = tr.AccessToken
	g.tokenExpiry = time.Now().Add(50 * time.Minute)

	return g.accessToken, nil
}

func (g *mpesaGateway) post(ctx context.Context, path string, body any, out any) error {
	token, err := g.token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	_, err = utils.ExecuteWithBreaker(g.breaker, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := g.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("daraja returned %d", resp.StatusCode)
		}

		return struct{}{}, json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return nil
}

// password builds the Lipa Na M-Pesa request credential for a timestamp.
func (g *mpesaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp),
	)
}

type stkPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
}

func (g *mpesaGateway) STKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*STKPush, error) {
	ctx, span := g.tracer.Start(ctx, "MpesaGateway.STKPush")
	defer span.End()

	span.SetAttributes(
		attribute.String("reference", reference),
		attribute.String("amount", amount.String()),
	)

	timestamp := time.Now().Format("20060102150405")

	body := map[string]any{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount.Round(0).IntPart(),
		"PartyA":            phone,
		"PartyB":            g.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   "Order " + reference,
	}

	var resp stkPushResponse
	if err := g.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, g.logger, "STK push failed",
			zap.String("reference", reference),
			zap.Error(err),
		)

		return nil, err
	}

	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: %s", resp.ResponseDesc)
	}

	return &STKPush{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		ResponseCode:      resp.ResponseCode,
	}, nil
}

type b2cResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDesc             string `json:"ResponseDescription"`
}

func (g *mpesaGateway) B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, remarks string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "MpesaGateway.B2CPayment")
	defer span.End()

	span.SetAttributes(attribute.String("amount", amount.String()))

	body := map[string]any{
		"InitiatorName":   g.cfg.InitiatorName,
		"CommandID":       "BusinessPayment",
		"Amount":          amount.Round(0).IntPart(),
		"PartyA":          g.cfg.Shortcode,
		"PartyB":          phone,
		"Remarks":         remarks,
		"QueueTimeOutURL": g.cfg.TimeoutURL,
		"ResultURL":       g.cfg.ResultURL,
		"Occasion":        "Refund",
	}

	var resp b2cResponse
	if err := g.post(ctx, "/mpesa/b2c/v1/paymentrequest", body, &resp); err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, g.logger, "B2C payment failed", zap.Error(err))

		return "", err
	}

	if resp.ResponseCode != "0" {
		return "", fmt.Errorf("b2c payment rejected: %s", resp.ResponseDesc)
	}

	return resp.ConversationID, nil
}
