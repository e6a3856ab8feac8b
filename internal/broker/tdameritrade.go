package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"slamtrader/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*TDAmeritradeBroker)(nil)

// DefaultTDAmeritradeURL is the production REST endpoint.
const DefaultTDAmeritradeURL = "https://api.tdameritrade.com"

const tdAuthURL = "https://auth.tdameritrade.com/auth"

// TDAmeritradeOpts configures a TDAmeritradeBroker.
type TDAmeritradeOpts struct {
	AccountID   string
	APIKey      string
	TokenPath   string
	RedirectURI string
	BaseURL     string
}

// TDAmeritradeBroker implements the Broker interface against the TD
// Ameritrade REST API, authenticating with an OAuth token file produced by
// the browser login flow.
type TDAmeritradeBroker struct {
	accountID  string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time
}

// NewTDAmeritradeBroker loads the OAuth token from opts.TokenPath and
// returns a broker whose HTTP client refreshes the token as needed. When
// the token file is missing the returned error wraps ErrNoToken and names
// the authorization URL the user has to visit.
func NewTDAmeritradeBroker(ctx context.Context, opts TDAmeritradeOpts) (*TDAmeritradeBroker, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultTDAmeritradeURL
	}

	conf := &oauth2.Config{
		ClientID:    opts.APIKey + "@AMER.OAUTHAP",
		RedirectURL: opts.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   tdAuthURL,
			TokenURL:  strings.TrimRight(baseURL, "/") + "/v1/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tok, err := readToken(opts.TokenPath)
	if errors.Is(err, ErrNoToken) {
		return nil, fmt.Errorf("%w; log in at %s", err, conf.AuthCodeURL("slamtrader"))
	}
	if err != nil {
		return nil, err
	}

	src := &fileTokenSource{
		base: conf.TokenSource(ctx, tok),
		path: opts.TokenPath,
		last: tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, src)
	client.Timeout = 30 * time.Second

	return newTDAmeritradeBroker(opts.AccountID, baseURL, client), nil
}

func newTDAmeritradeBroker(accountID, baseURL string, client *http.Client) *TDAmeritradeBroker {
	return &TDAmeritradeBroker{
		accountID:  accountID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		log:        slog.Default().With("broker", "tdameritrade"),
		now:        time.Now,
	}
}

// Name returns "tdameritrade".
func (b *TDAmeritradeBroker) Name() string {
	return "tdameritrade"
}

// Positions fetches the account with its positions field.
func (b *TDAmeritradeBroker) Positions(ctx context.Context) ([]domain.RawPosition, error) {
	var account struct {
		SecuritiesAccount struct {
			Positions []domain.RawPosition `json:"positions"`
		} `json:"securitiesAccount"`
	}
	q := url.Values{"fields": {"positions"}}
	if _, err := b.do(ctx, "get positions", http.MethodGet, b.accountPath(), q, nil, &account); err != nil {
		return nil, err
	}
	return account.SecuritiesAccount.Positions, nil
}

// Orders fetches the order history entered since the given time, up to
// tomorrow. The API requires fromEnteredTime and toEnteredTime together and
// returns nothing without a window. No status filter is sent because
// filtered queries omit OCO orders.
func (b *TDAmeritradeBroker) Orders(ctx context.Context, since time.Time) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder
	q := url.Values{
		"fromEnteredTime": {since.Format(time.DateOnly)},
		"toEnteredTime":   {b.now().AddDate(0, 0, 1).Format(time.DateOnly)},
	}
	if _, err := b.do(ctx, "get orders", http.MethodGet, b.accountPath("orders"), q, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Order fetches one order by id.
func (b *TDAmeritradeBroker) Order(ctx context.Context, id domain.OrderID) (domain.RawOrder, error) {
	var order domain.RawOrder
	if _, err := b.do(ctx, "get order", http.MethodGet, b.accountPath("orders", id.String()), nil, nil, &order); err != nil {
		return domain.RawOrder{}, err
	}
	return order, nil
}

// CancelOrder deletes an order.
func (b *TDAmeritradeBroker) CancelOrder(ctx context.Context, id domain.OrderID) error {
	_, err := b.do(ctx, "cancel order", http.MethodDelete, b.accountPath("orders", id.String()), nil, nil, nil)
	return err
}

// PlaceOrder posts the request and reads the new order id from the last
// path segment of the Location header.
func (b *TDAmeritradeBroker) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderID, error) {
	resp, err := b.do(ctx, "place order", http.MethodPost, b.accountPath("orders"), nil, req, nil)
	if err != nil {
		return "", err
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &TransportError{Op: "place order", Message: "response carries no Location header"}
	}
	id := path.Base(strings.TrimRight(loc, "/"))
	if id == "" || id == "." || id == "/" {
		return "", &TransportError{Op: "place order", Message: fmt.Sprintf("cannot read order id from Location %q", loc)}
	}
	return domain.OrderID(id), nil
}

func (b *TDAmeritradeBroker) accountPath(elems ...string) string {
	parts := append([]string{"/v1/accounts", url.PathEscape(b.accountID)}, elems...)
	return strings.Join(parts, "/")
}

// do performs one API call. A non-nil body is sent as JSON; a non-nil out
// receives the decoded response body. Any failure is a *TransportError.
func (b *TDAmeritradeBroker) do(ctx context.Context, op, method, p string, q url.Values, body, out any) (*http.Response, error) {
	u := b.baseURL + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	b.log.Debug("request", "op", op, "method", method, "url", u)
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}
	b.log.Debug("response", "op", op, "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err), Message: string(data)}
		}
	}
	return resp, nil
}
