package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/auth"
	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging/inproc"
	"github.com/egannguyen/pharma-storefront/internal/pricing"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/egannguyen/pharma-storefront/internal/repository/memory"
	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var lagos = entity.ShippingAddress{
	FullName: "Ada Obi", Phone: "08030000000", Address: "12 Marina",
	City: "Lagos", State: "Lagos", PostalCode: "100001",
}

type testServer struct {
	router *gin.Engine
	gw     repository.Gateway
	tokens *auth.Tokens
	bus    *inproc.Bus
}

type brokenOrders struct {
	repository.Gateway
}

func (brokenOrders) FindOrdersByUser(context.Context, string) ([]entity.Order, error) {
	return nil, errors.New("pq: connection refused")
}

func newTestServer(t *testing.T, wrap func(repository.Gateway) repository.Gateway) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := memory.NewGateway()
	for _, p := range []entity.Product{
		{ID: "p1", Name: "Paracetamol 500mg", Category: "Analgesics", Price: 150},
		{ID: "p2", Name: "Vitamin C 1000mg", Category: "Supplements", Price: 300},
	} {
		_, err := gw.CreateProduct(context.Background(), p)
		require.NoError(t, err)
	}
	for _, u := range []entity.User{
		{ID: "admin-1", Name: "Admin", Email: "admin@emzor.com", Role: entity.RoleAdmin},
		{ID: "cust-1", Name: "Ada", Email: "ada@emzor.com", Role: entity.RoleCustomer},
		{ID: "cust-2", Name: "Bola", Email: "bola@emzor.com", Role: entity.RoleCustomer},
	} {
		_, err := gw.CreateUser(context.Background(), u)
		require.NoError(t, err)
	}

	var api repository.Gateway = gw
	if wrap != nil {
		api = wrap(gw)
	}

	tokens := auth.NewTokens("test-secret", time.Hour)
	bus := inproc.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { bus.Close() })
	carts := memory.NewCartStore()

	h := NewHandler(Deps{
		Orders:     service.NewOrderService(api, api, carts, bus, pricing.DefaultPolicy()),
		Carts:      service.NewCartService(carts, api, pricing.DefaultPolicy()),
		Products:   service.NewProductService(api),
		Users:      service.NewUserService(api, auth.NewHasher(bcrypt.MinCost), tokens),
		Identities: tokens,
		Events:     bus,
		Health:     []Pinger{api},
	}, Config{CookieName: "auth-token"})

	return &testServer{router: h.Router(), gw: gw, tokens: tokens, bus: bus}
}

func (s *testServer) token(t *testing.T, userID string, role entity.Role) string {
	t.Helper()
	token, _, err := s.tokens.Issue(entity.User{ID: userID, Role: role})
	require.NoError(t, err)
	return token
}

type response struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func orderBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "quantity": 2},
			{"productId": "p2", "quantity": 1},
		},
		"shippingAddress": lagos,
	}
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t, nil)

	code, resp := s.do(t, http.MethodPost, "/api/orders", "", orderBody())
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, resp = s.do(t, http.MethodPost, "/api/orders", s.token(t, "cust-1", entity.RoleCustomer), orderBody())
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.True(t, resp.Success)

	order := decode[entity.Order](t, resp.Data)
	assert.Equal(t, entity.Money(600), order.Subtotal)
	assert.Equal(t, entity.Money(500), order.DeliveryFee)
	assert.Equal(t, entity.Money(1100), order.Total)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, "cust-1", order.UserID)
}

func TestCreateOrderValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, "cust-1", entity.RoleCustomer)

	body := orderBody()
	addr := lagos
	addr.City = ""
	body["shippingAddress"] = addr

	code, resp := s.do(t, http.MethodPost, "/api/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "is required", resp.Errors["shippingAddress.city"])
	assert.Contains(t, resp.Message, "shippingAddress.city")

	code, resp = s.do(t, http.MethodPost, "/api/orders", token, map[string]any{"shippingAddress": lagos})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Errors, "items")

	orders, err := s.gw.FindAllOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+s.token(t, "cust-1", entity.RoleCustomer))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnonymousMalformedBodyIsUnauthenticated(t *testing.T) {
	s := newTestServer(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/orders"},
		{http.MethodPut, "/api/orders/any"},
		{http.MethodPost, "/api/cart/items"},
		{http.MethodPut, "/api/cart/items/p1"},
		{http.MethodPost, "/api/products"},
		{http.MethodPut, "/api/users/cust-1"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestOversizedQuantityIsBadRequest(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, "cust-1", entity.RoleCustomer)

	body := orderBody()
	body["items"] = []map[string]any{{"productId": "p1", "quantity": int64(1) << 62}}
	code, resp := s.do(t, http.MethodPost, "/api/orders", token, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Errors, "items[0].quantity")

	orders, err := s.gw.FindAllOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderAccessAndStatus(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.token(t, "cust-1", entity.RoleCustomer)
	stranger := s.token(t, "cust-2", entity.RoleCustomer)
	admin := s.token(t, "admin-1", entity.RoleAdmin)

	_, resp := s.do(t, http.MethodPost, "/api/orders", owner, orderBody())
	order := decode[entity.Order](t, resp.Data)
	path := "/api/orders/" + order.ID

	code, _ := s.do(t, http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/orders/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPut, path, owner, map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, code)
	stored, err := s.gw.FindOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, stored.Status)

	code, resp = s.do(t, http.MethodPut, path, admin, map[string]string{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.OrderStatusConfirmed, decode[entity.Order](t, resp.Data).Status)

	code, _ = s.do(t, http.MethodPut, path, admin, map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPut, "/api/orders/missing", admin, map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, path+"/cancel", owner, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = s.do(t, http.MethodPost, path+"/cancel", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.OrderStatusCancelled, decode[entity.Order](t, resp.Data).Status)

	code, resp = s.do(t, http.MethodGet, "/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]entity.Order](t, resp.Data), 1)
	code, resp = s.do(t, http.MethodGet, "/api/orders", stranger, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]entity.Order](t, resp.Data))
}

func TestPersistenceFailureIsGeneric500(t *testing.T) {
	s := newTestServer(t, func(gw repository.Gateway) repository.Gateway { return brokenOrders{Gateway: gw} })

	code, resp := s.do(t, http.MethodGet, "/api/orders", s.token(t, "cust-1", entity.RoleCustomer), nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, resp.Message, "pq")
}

func TestCartCheckoutFlow(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, "cust-1", entity.RoleCustomer)

	code, _ := s.do(t, http.MethodPost, "/api/cart/items", token, map[string]any{"productId": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	code, resp := s.do(t, http.MethodPut, "/api/cart/items/p2", token, map[string]int{"quantity": 1})
	require.Equal(t, http.StatusOK, code)
	view := decode[service.CartView](t, resp.Data)
	assert.Equal(t, entity.Money(1100), view.Total)

	code, resp = s.do(t, http.MethodPost, "/api/orders", token, map[string]any{"shippingAddress": lagos})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, entity.Money(1100), decode[entity.Order](t, resp.Data).Total)

	code, resp = s.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[service.CartView](t, resp.Data).Items)

	code, _ = s.do(t, http.MethodPut, "/api/cart/items/ghost", token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRegisterLoginCookie(t *testing.T) {
	s := newTestServer(t, nil)

	code, resp := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Chi", "email": "chi@emzor.com", "password": "secret1", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	user := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "CUSTOMER", user["role"])
	assert.NotContains(t, user, "passwordHash")

	code, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Chi", "email": "CHI@emzor.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)

	raw, _ := json.Marshal(map[string]string{"email": "chi@emzor.com", "password": "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth-token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chi@emzor.com")

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "chi@emzor.com", "password": "nope00"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProductsAndUsersEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(t, "admin-1", entity.RoleAdmin)
	customer := s.token(t, "cust-1", entity.RoleCustomer)

	code, resp := s.do(t, http.MethodGet, "/api/products?category=supplements", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]entity.Product](t, resp.Data), 1)

	product := map[string]any{"name": "Ibuprofen 400mg", "category": "Analgesics", "price": 180, "stock": 20}
	code, _ = s.do(t, http.MethodPost, "/api/products", customer, product)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = s.do(t, http.MethodPost, "/api/products", admin, product)
	require.Equal(t, http.StatusCreated, code)
	created := decode[entity.Product](t, resp.Data)
	assert.NotEmpty(t, created.ID)

	code, _ = s.do(t, http.MethodDelete, "/api/products/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/users", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = s.do(t, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]entity.User](t, resp.Data), 3)

	code, resp = s.do(t, http.MethodDelete, "/api/users/admin-1", admin, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, resp.Message, "cannot be deleted")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	code, resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestOrderFeed(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	owner := s.token(t, "cust-1", entity.RoleCustomer)
	admin := s.token(t, "admin-1", entity.RoleAdmin)
	stranger := s.token(t, "cust-2", entity.RoleCustomer)

	dial := func(token string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/events"
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	ownerFeed := dial(owner)
	strangerFeed := dial(stranger)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/events"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	code, resp := s.do(t, http.MethodPost, "/api/orders", owner, orderBody())
	require.Equal(t, http.StatusCreated, code)
	order := decode[entity.Order](t, resp.Data)

	code, _ = s.do(t, http.MethodPut, "/api/orders/"+order.ID, admin, map[string]string{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, code)

	ownerFeed.SetReadDeadline(time.Now().Add(2 * time.Second))
	var placed, changed entity.EventEnvelope
	require.NoError(t, ownerFeed.ReadJSON(&placed))
	require.NoError(t, ownerFeed.ReadJSON(&changed))
	types := []string{placed.Type, changed.Type}
	assert.ElementsMatch(t, []string{"OrderPlaced", "OrderStatusChanged"}, types)
	assert.Equal(t, order.ID, placed.OrderID)
	assert.Equal(t, order.ID, changed.OrderID)
	assert.Equal(t, "cust-1", changed.UserID)

	strangerFeed.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var leaked entity.EventEnvelope
	assert.Error(t, strangerFeed.ReadJSON(&leaked), "other customers' events are not delivered")
}
