package pay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client talks to the PayPal REST API. Amounts are formatted to two decimal
// places on the wire; PayPal rejects anything finer.
type Client struct {
	baseURL   string
	clientID  string
	appSecret string
	http      *http.Client
}

// Capture is the outcome of a capture call. Status is "COMPLETED" for a
// settled payment; anything else means the money did not move.
type Capture struct {
	ID         string
	Status     string
	PayerEmail string
	Amount     float64
}

func NewClient() *Client {
	base := os.Getenv("PAYPAL_API_URL")
	if base == "" {
		base = "https://api-m.sandbox.paypal.com"
	}
	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		clientID:  os.Getenv("PAYPAL_CLIENT_ID"),
		appSecret: os.Getenv("PAYPAL_APP_SECRET"),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.appSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token: %s: %s", resp.Status, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal %s: %s: %s", path, resp.Status, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateOrder registers a payment intent for the given total and returns the
// provider's order id.
func (c *Client) CreateOrder(ctx context.Context, total float64) (string, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": "USD",
				"value":         strconv.FormatFloat(total, 'f', 2, 64),
			},
		}},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v2/checkout/orders", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CapturePayment captures a previously created PayPal order and reports what
// actually settled.
func (c *Client) CapturePayment(ctx context.Context, providerOrderID string) (*Capture, error) {
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					Amount struct {
						Value string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := c.post(ctx, "/v2/checkout/orders/"+providerOrderID+"/capture", nil, &out); err != nil {
		return nil, err
	}

	cap := &Capture{ID: out.ID, Status: out.Status, PayerEmail: out.Payer.EmailAddress}
	if len(out.PurchaseUnits) > 0 {
		caps := out.PurchaseUnits[0].Payments.Captures
		if len(caps) > 0 {
			cap.Amount, _ = strconv.ParseFloat(caps[0].Amount.Value, 64)
		}
	}
	return cap, nil
}
