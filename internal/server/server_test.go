package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	notificationdomain "github.com/smallbiznis/orderdesk/internal/notification/domain"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedOrder struct {
	ID   int64
	Item string
	Slug string
}

func (ts *testServer) orders() []storedOrder {
	ts.t.Helper()
	var rows []storedOrder
	require.NoError(ts.t, ts.db.Raw("SELECT id, item, slug FROM orders ORDER BY id").Scan(&rows).Error)
	return rows
}

func (ts *testServer) customerID(code string) string {
	ts.t.Helper()
	var id int64
	require.NoError(ts.t, ts.db.Raw("SELECT id FROM customers WHERE code = ?", code).Scan(&id).Error)
	require.NotZero(ts.t, id)
	return fmt.Sprint(id)
}

func (ts *testServer) createAcme(token string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": "Acme", "code": "ACME1", "active": true})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return ts.customerID("ACME1")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateCustomer(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	rec := ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": "Acme", "code": "ACME1", "active": true})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(http.MethodPost, "/customers", token, map[string]any{"name": "Beta", "code": "BETA1"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, int64(2), ts.count("customers"))

	id := ts.customerID("ACME1")
	rec = ts.do(http.MethodGet, "/customers/"+id+"/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}
	decode(t, rec, &got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "ACME1", got.Code)
	assert.True(t, got.Active)
}

func TestCreateCustomerDuplicateCode(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	ts.createAcme(token)

	rec := ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": "Other", "code": "ACME1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":["customer with this code already exists."]}`, rec.Body.String())
	assert.Equal(t, int64(1), ts.count("customers"))
}

func TestCreateCustomerValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	rec := ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": " ", "active": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"active":["Must be a valid boolean."]}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"name":["This field may not be blank."],"code":["This field is required."]}`, rec.Body.String())
	assert.Zero(t, ts.count("customers"))
}

func TestCreateCustomerRejectsNonTextValues(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	cases := []struct {
		name string
		body string
		want string
	}{
		{"list and object", `{"name": ["Acme"], "code": {"x": 1}}`, `{"name":["Not a valid string."],"code":["Not a valid string."]}`},
		{"bool name", `{"name": true, "code": "B2"}`, `{"name":["Not a valid string."]}`},
		{"bool code", `{"name": "Acme", "code": false}`, `{"code":["Not a valid string."]}`},
		{"list active", `{"name": "Acme", "code": "B3", "active": [true]}`, `{"active":["Must be a valid boolean."]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/customers/", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
	assert.Zero(t, ts.count("customers"))

	rec := ts.do(http.MethodPost, "/customers/", token, `{"name": "Acme", "code": 42}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ts.customerID("42")
}

func TestGetCustomerNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	rec := ts.do(http.MethodGet, "/customers/12345/", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/customers/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderSlugScenario(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	acmeID := ts.createAcme(token)

	rec := ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": acmeID, "item": "Widget", "amount": "10.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Body.String())

	orders := ts.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "widget", orders[0].Slug)

	rec = ts.do(http.MethodPost, "/orders", token, fmt.Sprintf(`{"customer": %s, "item": "Widget", "amount": 10}`, acmeID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	orders = ts.orders()
	require.Len(t, orders, 2)
	assert.Equal(t, fmt.Sprintf("widget-%d", orders[0].ID), orders[1].Slug)
	assert.NotEqual(t, orders[0].Slug, orders[1].Slug)

	messages := ts.gateway.messages()
	require.Len(t, messages, 2)
	assert.Equal(t, testDestination, messages[0].Destination)
	assert.Equal(t, "Dear Acme, your order for Widget has been successfully placed.", messages[0].Body)
	assert.Equal(t, int64(2), ts.count("notifications"))

	rec = ts.do(http.MethodGet, "/orders/"+orders[1].Slug+"/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Item     string `json:"item"`
		Amount   string `json:"amount"`
		Active   bool   `json:"active"`
		Slug     string `json:"slug"`
	}
	decode(t, rec, &got)
	assert.Equal(t, fmt.Sprint(orders[1].ID), got.ID)
	assert.Equal(t, acmeID, got.Customer)
	assert.Equal(t, "Widget", got.Item)
	assert.Equal(t, "10.00", got.Amount)
	assert.True(t, got.Active)
	assert.Equal(t, orders[1].Slug, got.Slug)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	rec := ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": "424242", "item": "Widget", "amount": "1.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"customer":["Invalid pk \"424242\" - object does not exist."]}`, rec.Body.String())
	assert.Zero(t, ts.count("orders"))
	assert.Empty(t, ts.gateway.messages())
}

func TestCreateOrderValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	acmeID := ts.createAcme(token)

	rec := ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": acmeID, "item": "", "amount": "12.345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"item": ["This field may not be blank."],
		"amount": ["Ensure that there are no more than 2 decimal places."]
	}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": nil, "item": "Widget", "amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"customer": ["This field may not be null."],
		"amount": ["A valid number is required."]
	}`, rec.Body.String())

	assert.Zero(t, ts.count("orders"))
}

func TestCreateOrderRejectsNonTextValues(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	acmeID := ts.createAcme(token)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"list item", fmt.Sprintf(`{"customer": %s, "item": ["Widget"], "amount": "1.00"}`, acmeID), `{"item":["Not a valid string."]}`},
		{"object item", fmt.Sprintf(`{"customer": %s, "item": {"name": "Widget"}, "amount": "1.00"}`, acmeID), `{"item":["Not a valid string."]}`},
		{"bool item", fmt.Sprintf(`{"customer": %s, "item": false, "amount": "1.00"}`, acmeID), `{"item":["Not a valid string."]}`},
		{"list customer", fmt.Sprintf(`{"customer": [%s], "item": "Widget", "amount": "1.00"}`, acmeID), `{"customer":["Incorrect type. Expected pk value, received list."]}`},
		{"object customer", `{"customer": {"id": 1}, "item": "Widget", "amount": "1.00"}`, `{"customer":["Incorrect type. Expected pk value, received dict."]}`},
		{"bool customer", `{"customer": true, "item": "Widget", "amount": "1.00"}`, `{"customer":["Incorrect type. Expected pk value, received bool."]}`},
		{"list amount", fmt.Sprintf(`{"customer": %s, "item": "Widget", "amount": [1]}`, acmeID), `{"amount":["A valid number is required."]}`},
		{"bool amount", fmt.Sprintf(`{"customer": %s, "item": "Widget", "amount": true}`, acmeID), `{"amount":["A valid number is required."]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/orders/", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
	assert.Zero(t, ts.count("orders"))
	assert.Empty(t, ts.gateway.messages())
}

func TestCreateOrderNotificationFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	acmeID := ts.createAcme(token)
	ts.gateway.err = &notificationdomain.DeliveryError{
		Provider: "fake",
		Reason:   "sms gateway unreachable",
	}

	rec := ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": acmeID, "item": "Widget", "amount": "10.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"sms gateway unreachable"}`, rec.Body.String())

	orders := ts.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "widget", orders[0].Slug)

	var status string
	require.NoError(t, ts.db.Raw("SELECT status FROM notifications").Scan(&status).Error)
	assert.Equal(t, "failed", status)
}

func TestCreateOrderUnexpectedNotificationError(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")
	acmeID := ts.createAcme(token)
	ts.gateway.err = errors.New("build request: invalid endpoint")

	rec := ts.do(http.MethodPost, "/orders/", token, map[string]any{"customer": acmeID, "item": "Widget", "amount": "10.00"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "invalid endpoint")
	assert.Len(t, ts.orders(), 1)
}

func TestSignupRejectsNonTextValues(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/signup/", "", `{"username": ["bob"], "password": {"p": 1}, "email": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"username": ["Not a valid string."],
		"password": ["Not a valid string."],
		"email": ["Not a valid string."]
	}`, rec.Body.String())
	assert.Zero(t, ts.count("users"))

	rec = ts.do(http.MethodPost, "/token/refresh/", "", `{"refresh": ["x"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"refresh":["Not a valid string."]}`, rec.Body.String())
}

func TestUnauthenticatedWritesAreRejected(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name  string
		path  string
		token string
		body  any
	}{
		{name: "customer without token", path: "/customers/", body: map[string]any{"name": "Acme", "code": "ACME1"}},
		{name: "customer with invalid body", path: "/customers/", body: `{"name": `},
		{name: "customer with unknown token", path: "/customers/", token: "not-a-token", body: map[string]any{"name": "Acme", "code": "ACME1"}},
		{name: "order without token", path: "/orders/", body: map[string]any{"customer": "1", "item": "Widget", "amount": "1"}},
		{name: "order with empty body", path: "/orders/", body: map[string]any{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, tc.path, tc.token, tc.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}

	assert.Zero(t, ts.count("customers"))
	assert.Zero(t, ts.count("orders"))
	assert.Empty(t, ts.gateway.messages())
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	ts.clock.Advance(6 * time.Minute)
	rec := ts.do(http.MethodPost, "/customers/", token, map[string]any{"name": "Acme", "code": "ACME1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Given token not valid for any token type"}`, rec.Body.String())
	assert.Zero(t, ts.count("customers"))
}

func TestMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice")

	rec := ts.do(http.MethodPost, "/customers/", token, `{"name": "Acme",`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"JSON parse error"}`, rec.Body.String())
}

func TestTokenEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/signup/", "", map[string]string{"username": "alice", "password": "pw", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"username":"alice","email":"alice@example.com"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/signup/", "", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"username":["A user with that username already exists."]}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/token/", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"No active account found with the given credentials"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/token/", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"password":["This field is required."]}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/token", "", map[string]string{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	decode(t, rec, &pair)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	rec = ts.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed struct {
		Access string `json:"access"`
	}
	decode(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Access)

	rec = ts.do(http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": pair.Access})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Token is invalid or expired"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/token/refresh/", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"refresh":["This field is required."]}`, rec.Body.String())
}

type denyingLimiter struct {
	calls int
}

func (l *denyingLimiter) AllowTokenRequest(context.Context, string) (ratelimit.Decision, error) {
	l.calls++
	return ratelimit.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil
}

func TestTokenEndpointThrottled(t *testing.T) {
	ts := newTestServer(t)
	limiter := &denyingLimiter{}
	ts.server.tokenLimiter = limiter

	rec := ts.do(http.MethodPost, "/token/", "", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Request was throttled. Expected available in 2 seconds."}`, rec.Body.String())
	assert.Equal(t, 1, limiter.calls)

	rec = ts.do(http.MethodPost, "/signup/", "", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
