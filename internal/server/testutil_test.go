package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/orderdesk/internal/auth/password"
	authrepo "github.com/smallbiznis/orderdesk/internal/auth/repository"
	authservice "github.com/smallbiznis/orderdesk/internal/auth/service"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerrepo "github.com/smallbiznis/orderdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/orderdesk/internal/customer/service"
	"github.com/smallbiznis/orderdesk/internal/migration"
	notificationdomain "github.com/smallbiznis/orderdesk/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/orderdesk/internal/notification/repository"
	notificationservice "github.com/smallbiznis/orderdesk/internal/notification/service"
	"github.com/smallbiznis/orderdesk/internal/observability"
	orderrepo "github.com/smallbiznis/orderdesk/internal/order/repository"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testDestination = "+254704205757"

type sentMessage struct {
	Destination string
	Body        string
}

// fakeGateway records messages and fails when err is set.
type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Send(_ context.Context, destination, body string) (notificationdomain.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{Destination: destination, Body: body})
	if g.err != nil {
		return notificationdomain.Receipt{}, g.err
	}
	return notificationdomain.Receipt{MessageID: "msg-1", Status: "Success"}, nil
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	clock   *clock.FakeClock
	gateway *fakeGateway
	server  *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{}
	holder, err := config.NewStaticNotificationConfigHolder(config.NotificationConfig{
		Destination:         testDestination,
		OrderPlacedTemplate: config.DefaultOrderPlacedTemplate,
	})
	if err != nil {
		t.Fatalf("notification config: %v", err)
	}

	usersRepo, tokensRepo := authrepo.New(conn)
	hashParams := password.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}
	authSvc := authservice.New(authservice.Params{
		Log:            log,
		Repo:           usersRepo,
		TokenRepo:      tokensRepo,
		GenID:          node,
		Clock:          fake,
		Config:         config.Config{},
		PasswordParams: &hashParams,
	})
	customers := customerrepo.Provide()
	customerSvc := customerservice.New(customerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: customers,
	})
	orderSvc := orderservice.New(orderservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake,
		Repo: orderrepo.Provide(), Customers: customers,
	})
	notificationSvc := notificationservice.New(notificationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake,
		Repo: notificationrepo.Provide(), Gateway: gateway, Config: holder,
	})

	srv := NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{}, nil),
		Authsvc:         authSvc,
		CustomerSvc:     customerSvc,
		OrderSvc:        orderSvc,
		NotificationSvc: notificationSvc,
	})

	return &testServer{t: t, db: conn, clock: fake, gateway: gateway, server: srv}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

// login signs up a user and returns an access token.
func (ts *testServer) login(username string) string {
	ts.t.Helper()

	rec := ts.do(http.MethodPost, "/signup/", "", map[string]string{"username": username, "password": "pw-" + username})
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("signup: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(http.MethodPost, "/token/", "", map[string]string{"username": username, "password": "pw-" + username})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("token: status %d body %s", rec.Code, rec.Body.String())
	}
	var pair struct {
		Access string `json:"access"`
	}
	decode(ts.t, rec, &pair)
	return pair.Access
}

func (ts *testServer) count(table string) int64 {
	ts.t.Helper()
	var n int64
	if err := ts.db.Table(table).Count(&n).Error; err != nil {
		ts.t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}
