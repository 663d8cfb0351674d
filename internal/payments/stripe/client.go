package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
)

const (
	defaultAPIBase    = "https://api.stripe.com"
	defaultListLimit  = 100
	savedMethodType   = "card"
	clientSecretParam = "client_secret"
)

// Client implements the payments.Gateway interface for Stripe using direct
// HTTP calls against the intents and payment methods APIs.
type Client struct {
	secretKey  string
	httpClient *http.Client
	apiBaseURL string
	userAgent  string
}

// NewClient constructs a Stripe gateway client using the supplied secret API key.
func NewClient(secretKey string) (*Client, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}

	return &Client{
		secretKey:  key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBaseURL: defaultAPIBase,
		userAgent:  "payflow-backend/stripe-gateway",
	}, nil
}

// WithAPIBase overrides the Stripe API base URL. Used by tests.
func (c *Client) WithAPIBase(base string) *Client {
	if trimmed := strings.TrimSpace(base); trimmed != "" {
		c.apiBaseURL = trimmed
	}
	return c
}

type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

type intentPayload struct {
	ID                 string   `json:"id"`
	Object             string   `json:"object"`
	ClientSecret       string   `json:"client_secret"`
	Status             string   `json:"status"`
	Amount             int64    `json:"amount"`
	Currency           string   `json:"currency"`
	Usage              string   `json:"usage"`
	PaymentMethodTypes []string `json:"payment_method_types"`
	Created            int64    `json:"created"`

	LastPaymentError *apiError `json:"last_payment_error"`
	LastSetupError   *apiError `json:"last_setup_error"`

	NextAction *struct {
		Type          string `json:"type"`
		RedirectToURL *struct {
			URL string `json:"url"`
		} `json:"redirect_to_url"`
	} `json:"next_action"`

	Error *apiError `json:"error"`
}

type methodPayload struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Customer string `json:"customer"`
	Created  int64  `json:"created"`
	Card     *struct {
		Brand    string `json:"brand"`
		Last4    string `json:"last4"`
		ExpMonth int    `json:"exp_month"`
		ExpYear  int    `json:"exp_year"`
	} `json:"card"`
}

type methodListPayload struct {
	Data  []methodPayload `json:"data"`
	Error *apiError       `json:"error"`
}

func (e *apiError) toIntentError() *models.IntentError {
	if e == nil {
		return nil
	}
	return &models.IntentError{
		Type:        e.Type,
		Code:        e.Code,
		DeclineCode: e.DeclineCode,
		Message:     e.Message,
	}
}

func apiErrorToErr(e *apiError, statusCode int) error {
	message := ""
	if e != nil {
		message = strings.TrimSpace(e.Message)
	}
	if message == "" {
		message = fmt.Sprintf("stripe returned status %d", statusCode)
	}
	return errors.New(message)
}

// intentIDFromSecret extracts the intent identifier prefix of a client secret.
func intentIDFromSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if idx <= 0 {
		return "", models.ErrInvalidClientSecret
	}
	return clientSecret[:idx], nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values, bearer string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := strings.TrimRight(c.apiBaseURL, "/") + path

	var req *http.Request
	var err error
	if method == http.MethodGet {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	}
	if err != nil {
		return nil, err
	}

	if bearer == "" {
		bearer = c.secretKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

func (c *Client) doIntent(req *http.Request) (*intentPayload, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload intentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("stripe response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apiErrorToErr(payload.Error, resp.StatusCode)
	}

	if payload.ID == "" {
		return nil, errors.New("stripe response missing intent details")
	}

	return &payload, nil
}

func (p *intentPayload) toIntent(kind models.IntentKind) models.Intent {
	switch kind {
	case models.IntentKindSetup:
		return &models.SetupIntent{
			ID:                 p.ID,
			ClientSecret:       p.ClientSecret,
			Status:             models.IntentStatus(p.Status),
			Usage:              p.Usage,
			PaymentMethodTypes: p.PaymentMethodTypes,
			LastSetupError:     p.LastSetupError.toIntentError(),
			Created:            p.Created,
		}
	default:
		return &models.PaymentIntent{
			ID:                 p.ID,
			ClientSecret:       p.ClientSecret,
			Status:             models.IntentStatus(p.Status),
			Amount:             p.Amount,
			Currency:           p.Currency,
			PaymentMethodTypes: p.PaymentMethodTypes,
			LastPaymentError:   p.LastPaymentError.toIntentError(),
			Created:            p.Created,
		}
	}
}

func (p *intentPayload) redirectURL() string {
	if p.NextAction != nil && p.NextAction.RedirectToURL != nil {
		return p.NextAction.RedirectToURL.URL
	}
	return ""
}

func intentBasePath(kind models.IntentKind) string {
	if kind == models.IntentKindSetup {
		return "/v1/setup_intents/"
	}
	return "/v1/payment_intents/"
}

// FetchIntent retrieves the payment or setup intent a client secret points at.
func (c *Client) FetchIntent(ctx context.Context, clientSecret string) (models.Intent, error) {
	if c == nil {
		return nil, errors.New("stripe client is not configured")
	}

	kind, err := models.KindOfClientSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	intentID, err := intentIDFromSecret(strings.TrimSpace(clientSecret))
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set(clientSecretParam, strings.TrimSpace(clientSecret))

	req, err := c.newRequest(ctx, http.MethodGet, intentBasePath(kind)+intentID, form, "")
	if err != nil {
		return nil, err
	}

	payload, err := c.doIntent(req)
	if err != nil {
		return nil, err
	}

	return payload.toIntent(kind), nil
}

// FetchSavedMethods lists a customer's stored card instruments in the order
// the gateway returns them. The ephemeral key scopes the read when present.
func (c *Client) FetchSavedMethods(ctx context.Context, params payments.MethodListParams) ([]models.PaymentMethod, error) {
	if c == nil {
		return nil, errors.New("stripe client is not configured")
	}

	customer := strings.TrimSpace(params.CustomerID)
	if customer == "" {
		return nil, errors.New("customer id is required to list saved methods")
	}

	methodType := params.Type
	if methodType == "" {
		methodType = savedMethodType
	}
	limit := params.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	form := url.Values{}
	form.Set("type", methodType)
	form.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/customers/"+customer+"/payment_methods", form, params.EphemeralKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload methodListPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("stripe response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apiErrorToErr(payload.Error, resp.StatusCode)
	}

	methods := make([]models.PaymentMethod, 0, len(payload.Data))
	for _, item := range payload.Data {
		method := models.PaymentMethod{
			ID:       item.ID,
			Type:     item.Type,
			Customer: item.Customer,
			Created:  item.Created,
		}
		if item.Card != nil {
			method.Card = &models.CardDetails{
				Brand:    models.ParseCardBrand(item.Card.Brand),
				Last4:    item.Card.Last4,
				ExpMonth: item.Card.ExpMonth,
				ExpYear:  item.Card.ExpYear,
			}
		}
		methods = append(methods, method)
	}

	return methods, nil
}

func confirmForm(params payments.ConfirmParams) (url.Values, error) {
	form := url.Values{}
	form.Set(clientSecretParam, strings.TrimSpace(params.ClientSecret))

	switch {
	case params.PaymentMethodID != "":
		form.Set("payment_method", params.PaymentMethodID)
	case params.NewCard != nil:
		card := params.NewCard
		if strings.TrimSpace(card.Number) == "" {
			return nil, errors.New("card number is required")
		}
		form.Set("payment_method_data[type]", "card")
		form.Set("payment_method_data[card][number]", strings.TrimSpace(card.Number))
		form.Set("payment_method_data[card][exp_month]", strconv.Itoa(card.ExpMonth))
		form.Set("payment_method_data[card][exp_year]", strconv.Itoa(card.ExpYear))
		if card.CVC != "" {
			form.Set("payment_method_data[card][cvc]", card.CVC)
		}
	default:
		return nil, errors.New("confirmation requires a payment method")
	}

	if params.SaveForFuture {
		form.Set("setup_future_usage", "off_session")
	}
	if returnURL := strings.TrimSpace(params.ReturnURL); returnURL != "" {
		form.Set("return_url", returnURL)
	}

	return form, nil
}

// ConfirmIntent confirms the intent behind the client secret with the chosen
// instrument and reports the redirect the customer must complete, if any.
func (c *Client) ConfirmIntent(ctx context.Context, params payments.ConfirmParams) (*payments.ConfirmOutcome, error) {
	if c == nil {
		return nil, errors.New("stripe client is not configured")
	}

	kind, err := models.KindOfClientSecret(params.ClientSecret)
	if err != nil {
		return nil, err
	}

	intentID, err := intentIDFromSecret(strings.TrimSpace(params.ClientSecret))
	if err != nil {
		return nil, err
	}

	form, err := confirmForm(params)
	if err != nil {
		return nil, err
	}
	if kind == models.IntentKindSetup {
		form.Del("setup_future_usage")
	}

	req, err := c.newRequest(ctx, http.MethodPost, intentBasePath(kind)+intentID+"/confirm", form, "")
	if err != nil {
		return nil, err
	}

	payload, err := c.doIntent(req)
	if err != nil {
		return nil, err
	}

	return &payments.ConfirmOutcome{
		Intent:      payload.toIntent(kind),
		RedirectURL: payload.redirectURL(),
	}, nil
}
