package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
	"github.com/utafrali/schoolwear/pkg/httpclient"
	"github.com/utafrali/schoolwear/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 4,
	})
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
		Name:         t.Name(),
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, logger.Discard())
	return NewClient(server.URL+"/", cb, logger.Discard())
}

func TestClient_GetProduct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/produtos/42", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":true,"dados":{"id":42,"categoria":"Polos","modelo":"Polo Piqué",
			"tecido":"Algodão","imagem":"polo.png","preco":"19.90",
			"tamanhos":[{"tamanho":"S","stock":1},{"tamanho":" M ","stock":4}]}}`)
	})

	p, err := c.GetProduct(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, &domain.Product{
		ID: 42, CategoryName: "Polos", ModelName: "Polo Piqué", FabricName: "Algodão",
		ImageURL: "polo.png", Price: 1990,
		Sizes: []domain.SizeStock{{Size: "S", Stock: 1}, {Size: "M", Stock: 4}},
	}, p)
}

func TestClient_GetProduct_NumericPriceAndDataKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":true,"data":{"id":7,"preco":4.5,"stock":3}}`)
	})

	p, err := c.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(450), p.Price)
	assert.Equal(t, 3, p.Stock)
	assert.False(t, p.HasSizes())
}

func TestClient_GetProduct_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status":false,"mensagem":"Produto não encontrado"}`)
	})

	_, err := c.GetProduct(context.Background(), 9)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestClient_ListOrders_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encomendas", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":true,"dados":[
			{"id":1,"data_encomenda":"2024-03-01","data_entrega":"2024-03-13","estado":"Pendente","total":"39.80"},
			{"id":2,"estado":"entregue","total":12}]}`)
	})

	orders, err := c.ListOrders(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.OrderSummary{
		{ID: 1, CreatedAt: "2024-03-01", DeliveryDate: "2024-03-13", Status: "Pendente", Total: 3980},
		{ID: 2, Status: "entregue", Total: 1200},
	}, orders)
}

func TestClient_ListAllOrders_Path(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/encomendas", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":true,"dados":[]}`)
	})

	orders, err := c.ListAllOrders(context.Background(), "admin")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestClient_GetOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encomendas/5", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":true,"dados":{"id":5,"estado":"enviada","total":"59.70","itens":[
			{"produto":"Polo","tecido":"Algodão","tamanho":"M","quantidade":3,"preco_unitario":"19.90","subtotal":"59.70"},
			{"produto":"Boné","quantidade":2,"preco_unitario":"4.50"}]}}`)
	})

	o, err := c.GetOrder(context.Background(), "tok", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5970), o.Total)
	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(5970), o.Items[0].LineTotal)
	assert.Equal(t, int64(900), o.Items[1].LineTotal)
}

func TestClient_CreateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get(httpclient.IdempotencyKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"escola_id":3,"total":39.80,"itens":[
			{"produto_id":42,"tamanho":"M","quantidade":2,"preco_unitario":19.90}]}`, string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":true,"mensagem":"Encomenda criada","dados":{"id":77}}`)
	})

	req := domain.NewOrderRequest(3, domain.Lines{{ProductID: 42, Size: "M", Quantity: 2, UnitPrice: 1990}})
	id, err := c.CreateOrder(context.Background(), "tok", req, "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
}

func TestClient_CreateOrder_RejectedKeepsServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":false,"mensagem":"Stock insuficiente para Polo (M)"}`)
	})

	_, err := c.CreateOrder(context.Background(), "tok", domain.OrderRequest{SchoolID: 1}, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRejected)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Stock insuficiente para Polo (M)", appErr.Message)
}

func TestClient_CreateOrder_422(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"status":false,"message":"School closed for orders"}`)
	})

	_, err := c.CreateOrder(context.Background(), "tok", domain.OrderRequest{SchoolID: 1}, "k")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "School closed for orders", appErr.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(err))
}

func TestClient_CancelOrder_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/encomendas/5/cancelar", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, c.CancelOrder(context.Background(), "tok", 5))
}

func TestClient_Profile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/utilizadores/me", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":true,"dados":{"id":9,"nome":"Ana","email":"ana@example.com","escola_id":3}}`)
	})

	p, err := c.Profile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{ID: 9, Name: "Ana", Email: "ana@example.com", SchoolID: 3}, p)
}

func TestClient_ServerErrorThenCircuitOpens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"status":false,"mensagem":"Erro interno"}`)
	})
	ctx := context.Background()

	_, err := c.ListOrders(ctx, "tok")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Erro interno", appErr.Message)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	_, _ = c.ListOrders(ctx, "tok")
	assert.ErrorIs(t, c.Ping(ctx), httpclient.ErrCircuitOpen)

	_, err = c.ListOrders(ctx, "tok")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
}

func TestClient_MissingPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":true}`)
	})

	_, err := c.GetProduct(context.Background(), 1)
	assert.ErrorIs(t, err, errEmptyPayload)
}

func TestMoney_JSON(t *testing.T) {
	var m money
	require.NoError(t, json.Unmarshal([]byte(`"19.90"`), &m))
	assert.Equal(t, money(1990), m)
	require.NoError(t, json.Unmarshal([]byte(`19.9`), &m))
	assert.Equal(t, money(1990), m)
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, money(0), m)
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))

	out, err := json.Marshal(money(3980))
	require.NoError(t, err)
	assert.Equal(t, "39.80", string(out))
}

func TestClient_RateLimitFailsFastWhenContextExpires(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"status":true,"dados":{"id":1}}`)
	})
	WithRateLimit(1, 1)(c)

	_, err := c.Profile(context.Background(), "tok")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Profile(ctx, "tok")

	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithRateLimit_ZeroDisables(t *testing.T) {
	c := NewClient("http://backend", nil, logger.Discard(), WithRateLimit(0, 10))
	assert.Nil(t, c.limiter)

	c = NewClient("http://backend", nil, logger.Discard(), WithRateLimit(5, 0))
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
}
