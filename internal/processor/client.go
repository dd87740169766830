// Package processor is the HTTP client of the remote card processor.
// Declines and processor-side errors are returned as a Result, not as Go
// errors.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	sandboxURL    = "https://apitest.authorize.net/xml/v1/request.api"
	productionURL = "https://api.authorize.net/xml/v1/request.api"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of a transaction call.
type Result struct {
	Status        string
	TransactionID string
	Code          string
	Message       string
	Amount        decimal.Decimal
	Currency      string
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

type Card struct {
	Number     string
	ExpMonth   string
	ExpYear    string
	Code       string
	HolderName string
}

type BillTo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

type ChargeRequest struct {
	Amount   decimal.Decimal
	Currency string
	Card     Card
	BillTo   *BillTo
}

// CardDetail is the masked card data of a settled transaction.
type CardDetail struct {
	CardNumber     string
	ExpirationDate string
	CardType       string
}

type Client struct {
	http            *http.Client
	url             string
	loginID         string
	transactionKey  string
	currencies      []string
	defaultCurrency string
	logger          zerolog.Logger
}

// New fails with domain.ErrConfiguration when credentials are missing.
func New(cfg config.ProcessorConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.LoginID == "" || cfg.TransactionKey == "" {
		return nil, fmt.Errorf("%w: processor login id and transaction key are required", domain.ErrConfiguration)
	}
	url := cfg.URL
	if url == "" {
		url = sandboxURL
		if cfg.Environment == "production" {
			url = productionURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	def := strings.ToUpper(cfg.DefaultCurrency)
	if def == "" {
		def = "USD"
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		url:             url,
		loginID:         cfg.LoginID,
		transactionKey:  cfg.TransactionKey,
		currencies:      cfg.Currencies,
		defaultCurrency: def,
		logger:          logger,
	}, nil
}

// Supports reports whether the processor settles in currency.
func (c *Client) Supports(currency string) bool {
	return slices.Contains(c.currencies, strings.ToUpper(currency))
}

func (c *Client) DefaultCurrency() string { return c.defaultCurrency }

// Charge authorizes and captures amount in one call.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) Result {
	tx := transactionRequest{
		TransactionType: "authCaptureTransaction",
		Amount:          req.Amount.StringFixed(2),
		CurrencyCode:    strings.ToUpper(req.Currency),
		Payment: &payment{CreditCard: creditCard{
			CardNumber:     req.Card.Number,
			ExpirationDate: req.Card.ExpYear + "-" + req.Card.ExpMonth,
			CardCode:       req.Card.Code,
		}},
		BillTo: req.BillTo,
	}
	res := c.transact(ctx, tx)
	if res.OK() {
		res.Amount = req.Amount
		res.Currency = tx.CurrencyCode
	}
	return res
}

// Refund returns amount of a settled transaction to the card ending in last4.
func (c *Client) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, last4 string) Result {
	res := c.transact(ctx, transactionRequest{
		TransactionType: "refundTransaction",
		Amount:          amount.StringFixed(2),
		Payment:         &payment{CreditCard: creditCard{CardNumber: last4, ExpirationDate: "XXXX"}},
		RefTransID:      transactionID,
	})
	if res.OK() {
		res.Amount = amount
	}
	return res
}

// Void cancels an unsettled transaction.
func (c *Client) Void(ctx context.Context, transactionID string) Result {
	return c.transact(ctx, transactionRequest{TransactionType: "voidTransaction", RefTransID: transactionID})
}

// TransactionDetail fetches the masked card of a transaction.
func (c *Client) TransactionDetail(ctx context.Context, transactionID string) (*CardDetail, error) {
	var out detailResponse
	err := c.call(ctx, map[string]any{
		"getTransactionDetailsRequest": map[string]any{
			"merchantAuthentication": c.auth(),
			"transId":                transactionID,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Messages.ResultCode, "Ok") {
		code, text := out.Messages.first()
		return nil, fmt.Errorf("transaction detail %s: %s %s", transactionID, code, text)
	}
	card := out.Transaction.Payment.CreditCard
	return &CardDetail{CardNumber: card.CardNumber, ExpirationDate: card.ExpirationDate, CardType: card.CardType}, nil
}

func (c *Client) transact(ctx context.Context, tx transactionRequest) Result {
	var out transactionResponse
	err := c.call(ctx, map[string]any{
		"createTransactionRequest": map[string]any{
			"merchantAuthentication": c.auth(),
			"refId":                  "ref" + strconv.FormatInt(time.Now().Unix(), 10),
			"transactionRequest":     tx,
		},
	}, &out)
	if err != nil {
		c.logger.Error().Err(err).Str("type", tx.TransactionType).Msg("processor: call failed")
		return Result{Status: StatusError, Message: err.Error()}
	}

	tr := out.TransactionResponse
	if strings.EqualFold(out.Messages.ResultCode, "Ok") && tr != nil && len(tr.Messages) > 0 {
		return Result{
			Status:        StatusSuccess,
			TransactionID: tr.TransID,
			Code:          tr.ResponseCode,
			Message:       tr.Messages[0].Description,
		}
	}
	if tr != nil && len(tr.Errors) > 0 {
		return Result{Status: StatusError, Code: tr.Errors[0].ErrorCode, Message: tr.Errors[0].ErrorText}
	}
	code, text := out.Messages.first()
	if code == "" && text == "" {
		text = "no response received"
	}
	return Result{Status: StatusError, Code: code, Message: text}
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{Name: c.loginID, TransactionKey: c.transactionKey}
}

func (c *Client) call(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("processor responded %d", resp.StatusCode)
	}
	// The processor prefixes JSON bodies with a byte order mark.
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	return json.Unmarshal(raw, out)
}

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
	CardType       string `json:"cardType,omitempty"`
}

type payment struct {
	CreditCard creditCard `json:"creditCard"`
}

type transactionRequest struct {
	TransactionType string   `json:"transactionType"`
	Amount          string   `json:"amount,omitempty"`
	CurrencyCode    string   `json:"currencyCode,omitempty"`
	Payment         *payment `json:"payment,omitempty"`
	RefTransID      string   `json:"refTransId,omitempty"`
	BillTo          *BillTo  `json:"billTo,omitempty"`
}

type resultMessages struct {
	ResultCode string `json:"resultCode"`
	Message    []struct {
		Code string `json:"code"`
		Text string `json:"text"`
	} `json:"message"`
}

func (m resultMessages) first() (string, string) {
	if len(m.Message) == 0 {
		return "", ""
	}
	return m.Message[0].Code, m.Message[0].Text
}

type transactionResponse struct {
	TransactionResponse *struct {
		ResponseCode string `json:"responseCode"`
		TransID      string `json:"transId"`
		Messages     []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"messages"`
		Errors []struct {
			ErrorCode string `json:"errorCode"`
			ErrorText string `json:"errorText"`
		} `json:"errors"`
	} `json:"transactionResponse"`
	Messages resultMessages `json:"messages"`
}

type detailResponse struct {
	Transaction struct {
		Payment payment `json:"payment"`
	} `json:"transaction"`
	Messages resultMessages `json:"messages"`
}
