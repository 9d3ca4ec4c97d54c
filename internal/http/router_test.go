package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/soundpack-store/internal/catalog"
	"github.com/fjod/soundpack-store/internal/checkout"
	"github.com/fjod/soundpack-store/internal/contact"
	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/fjod/soundpack-store/internal/repository"
	"github.com/fjod/soundpack-store/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	products []domain.Product
	err      error
}

func (m *mockCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

func (m *mockCatalog) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	return m.find(func(p *domain.Product) bool { return p.Slug == slug })
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	return m.find(func(p *domain.Product) bool { return p.ID == id })
}

func (m *mockCatalog) find(match func(*domain.Product) bool) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if match(&m.products[i]) {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

type mockRequester struct {
	calls  atomic.Int32
	secret string
	err    error
}

func (m *mockRequester) RequestIntent(context.Context, *domain.PaymentIntentRequest) (string, error) {
	m.calls.Add(1)
	return m.secret, m.err
}

type mockMailer struct {
	mu   sync.Mutex
	sent []contact.Message
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg contact.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var testProducts = []domain.Product{
	{ID: "p1", Name: "Yamaha Genos Pop", Slug: "genos-pop", Price: decimal.NewFromInt(25), Image: "https://cdn.example/p1.png"},
	{ID: "p2", Name: "Korg Pa5X Jazz", Slug: "pa5x-jazz", Price: decimal.RequireFromString("10.50")},
}

type testEnv struct {
	router    http.Handler
	carts     *service.CartService
	requester *mockRequester
	catalog   *mockCatalog
	mailer    *mockMailer
	sessionID string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := discardLogger()
	carts := service.NewCartService(repository.NewRedisRepository(client, time.Hour), log)
	requester := &mockRequester{secret: "pi_1_secret_1"}
	registry := checkout.NewRegistry(requester, carts, pricing.Default(), time.Hour, log)
	carts.Subscribe(registry.OnCartChanged)

	cat := &mockCatalog{products: testProducts}
	mailer := &mockMailer{}

	router := NewRouter(RouterConfig{
		RequestTimeout:     5 * time.Second,
		SessionTTL:         time.Hour,
		MaxRequestBodySize: 1 << 20,
	}, Handlers{
		Products: NewProductHandler(cat, time.Second, log),
		Cart:     NewCartHandler(carts, cat, time.Second, log),
		Checkout: NewCheckoutHandler(carts, registry, "/checkout/success", time.Second, log),
		Contact:  NewContactHandler(mailer, time.Second, log),
	}, log)

	return &testEnv{
		router:    router,
		carts:     carts,
		requester: requester,
		catalog:   cat,
		mailer:    mailer,
		sessionID: uuid.NewString(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: e.sessionID})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
