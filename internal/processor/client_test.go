package processor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(config.ProcessorConfig{
		URL:             srv.URL,
		LoginID:         "login",
		TransactionKey:  "key",
		Currencies:      []string{"USD", "CAD"},
		DefaultCurrency: "usd",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(config.ProcessorConfig{LoginID: "x"}, zerolog.Nop()); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCharge_Approved(t *testing.T) {
	var got map[string]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("\xef\xbb\xbf" + `{"transactionResponse":{"responseCode":"1","transId":"6001","messages":[{"code":"1","description":"This transaction has been approved."}]},"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`))
	})

	res := c.Charge(t.Context(), ChargeRequest{
		Amount:   decimal.RequireFromString("12.5"),
		Currency: "usd",
		Card:     Card{Number: "4111111111111111", ExpMonth: "12", ExpYear: "2030", Code: "123"},
	})
	if !res.OK() || res.TransactionID != "6001" || res.Currency != "USD" || !res.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected result %+v", res)
	}
	req := got["createTransactionRequest"]
	tx := req["transactionRequest"].(map[string]any)
	if tx["amount"] != "12.50" || tx["transactionType"] != "authCaptureTransaction" {
		t.Fatalf("unexpected request %+v", tx)
	}
	card := tx["payment"].(map[string]any)["creditCard"].(map[string]any)
	if card["expirationDate"] != "2030-12" {
		t.Fatalf("unexpected card %+v", card)
	}
	auth := req["merchantAuthentication"].(map[string]any)
	if auth["name"] != "login" || auth["transactionKey"] != "key" {
		t.Fatalf("unexpected auth %+v", auth)
	}
}

func TestCharge_DeclinedIsResultNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transactionResponse":{"responseCode":"2","errors":[{"errorCode":"2","errorText":"This transaction has been declined."}]},"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`))
	})
	res := c.Charge(t.Context(), ChargeRequest{Amount: decimal.NewFromInt(1), Currency: "USD"})
	if res.OK() || res.Code != "2" || res.Message != "This transaction has been declined." {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCharge_TransportFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	res := c.Charge(t.Context(), ChargeRequest{Amount: decimal.NewFromInt(1), Currency: "USD"})
	if res.OK() || res.Status != StatusError || res.Message == "" {
		t.Fatalf("expected error result, got %+v", res)
	}
}

func TestTransactionDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"transaction":{"payment":{"creditCard":{"cardNumber":"XXXX1111","expirationDate":"XXXX","cardType":"Visa"}}},"messages":{"resultCode":"Ok","message":[]}}`))
	})
	d, err := c.TransactionDetail(t.Context(), "6001")
	if err != nil {
		t.Fatalf("TransactionDetail: %v", err)
	}
	if d.CardNumber != "XXXX1111" || d.CardType != "Visa" {
		t.Fatalf("unexpected detail %+v", d)
	}
}

func TestRefundAndVoid(t *testing.T) {
	var types []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Req struct {
				Tx transactionRequest `json:"transactionRequest"`
			} `json:"createTransactionRequest"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		types = append(types, body.Req.Tx.TransactionType+":"+body.Req.Tx.RefTransID)
		_, _ = w.Write([]byte(`{"transactionResponse":{"responseCode":"1","transId":"7","messages":[{"code":"1","description":"ok"}]},"messages":{"resultCode":"Ok"}}`))
	})
	if res := c.Refund(t.Context(), "6001", decimal.NewFromInt(5), "1111"); !res.OK() {
		t.Fatalf("Refund: %+v", res)
	}
	if res := c.Void(t.Context(), "6002"); !res.OK() {
		t.Fatalf("Void: %+v", res)
	}
	if len(types) != 2 || types[0] != "refundTransaction:6001" || types[1] != "voidTransaction:6002" {
		t.Fatalf("unexpected calls %v", types)
	}
}

func TestSupports(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if !c.Supports("cad") || c.Supports("EUR") || c.DefaultCurrency() != "USD" {
		t.Fatalf("unexpected currency support")
	}
}
