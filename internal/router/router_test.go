package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/memory"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testApp struct {
	engine  *gin.Engine
	catalog *memory.Catalog
	hub     *chat.Hub
	cfg     global.Config
}

func newTestApp(t *testing.T, health map[string]HealthCheck) *testApp {
	t.Helper()
	cfg := global.Config{
		Env:           "test",
		PublicBaseURL: "http://localhost:8080",
		UploadDir:     t.TempDir(),
		CORSOrigins:   []string{"http://localhost:3000"},
	}

	catalog := memory.NewCatalog()
	hub := chat.NewHub()
	t.Cleanup(hub.Close)

	products := services.NewProductService(catalog, cfg.PublicBaseURL, services.WithEvents(hub))
	carts := services.NewCartService(memory.NewCarts(catalog))
	deps := Dependencies{
		Products: products,
		Carts:    carts,
		Workflow: services.NewCartWorkflow(products, carts),
		Chat:     services.NewChatService(memory.NewMessages(), hub),
		Reports:  services.NewReportService(catalog, nil),
		Hub:      hub,
		Health:   health,
	}
	return &testApp{
		engine:  NewEngine(cfg, deps, logrus.NewEntry(logrus.StandardLogger())),
		catalog: catalog,
		hub:     hub,
		cfg:     cfg,
	}
}

func (a *testApp) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) seed(t *testing.T, category string, price float64) models.Product {
	t.Helper()
	p := &models.Product{
		Title:       gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Code:        gofakeit.UUID(),
		Price:       price,
		Stock:       5,
		Category:    category,
		Status:      true,
		Thumbnails:  []string{},
	}
	require.NoError(t, a.catalog.Insert(context.Background(), p))
	return *p
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type mutationBody struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Product *models.Product `json:"product"`
	Cart    *models.Cart    `json:"cart"`
}

func productBody() map[string]interface{} {
	return map[string]interface{}{
		"title":       "Lamp",
		"description": "Desk lamp",
		"code":        gofakeit.UUID(),
		"price":       19.5,
		"stock":       3,
		"category":    "home",
	}
}

// postProduct sends fields as a multipart form with one thumbnails part per
// file name.
func (a *testApp) postProduct(t *testing.T, fields map[string]interface{}, files ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, fmt.Sprint(v)))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("thumbnails", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("png bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestCreateProductSavesThumbnails(t *testing.T) {
	app := newTestApp(t, nil)

	fields := productBody()
	fields["price"] = "4.25"
	w := app.postProduct(t, fields, "front.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[mutationBody](t, w)
	assert.True(t, body.Success)
	product := body.Product
	require.NotNil(t, product)
	assert.True(t, product.Status)
	assert.Equal(t, 4.25, product.Price)
	require.Len(t, product.Thumbnails, 1)
	assert.True(t, strings.HasPrefix(product.Thumbnails[0], "/static/uploads/"))
	assert.True(t, strings.HasSuffix(product.Thumbnails[0], ".png"))

	saved, err := os.ReadFile(filepath.Join(app.cfg.UploadDir, filepath.Base(product.Thumbnails[0])))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(saved))

	get := app.do(t, http.MethodGet, "/api/products/"+product.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, get.Code)
	got := decode[models.Product](t, get)
	assert.Equal(t, *product, got)
	assert.Empty(t, get.Header().Get("X-Cache"))
}

func TestCreateProductRequiresThumbnails(t *testing.T) {
	app := newTestApp(t, nil)

	for name, w := range map[string]*httptest.ResponseRecorder{
		"json body":         app.do(t, http.MethodPost, "/api/products/", productBody()),
		"form without file": app.postProduct(t, productBody()),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[mutationBody](t, w)
			assert.False(t, body.Success)
			assert.Equal(t, "error uploading image", body.Error)
		})
	}

	list := app.do(t, http.MethodGet, "/api/products/", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, int64(0), decode[models.ProductPage](t, list).TotalDocs)
}

func TestCreateProductRejectsMissingFieldsAndDuplicates(t *testing.T) {
	app := newTestApp(t, nil)

	missing := productBody()
	delete(missing, "price")
	w := app.postProduct(t, missing, "a.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[mutationBody](t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "price is required", body.Error)

	first := productBody()
	require.Equal(t, http.StatusCreated, app.postProduct(t, first, "a.png").Code)
	dup := productBody()
	dup["code"] = first["code"]
	w = app.postProduct(t, dup, "b.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrDuplicateCode.Error(), decode[mutationBody](t, w).Error)

	entries, err := os.ReadDir(app.cfg.UploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected uploads are removed")
}

func TestGetProductErrors(t *testing.T) {
	app := newTestApp(t, nil)

	for _, id := range []string{"zzz", bson.NewObjectID().Hex()} {
		w := app.do(t, http.MethodGet, "/api/products/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "product not found", decode[global.ErrorBody](t, w).Error)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.seed(t, "home", 10)

	w := app.do(t, http.MethodPut, "/api/products/"+p.ID.Hex(), map[string]interface{}{"stock": 0})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	updated := decode[mutationBody](t, w)
	assert.True(t, updated.Success)
	assert.Equal(t, 0, updated.Product.Stock)
	assert.Equal(t, p.Title, updated.Product.Title)

	w = app.do(t, http.MethodDelete, "/api/products/"+p.ID.Hex(), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	deleted := decode[mutationBody](t, w)
	assert.True(t, deleted.Success)
	assert.Contains(t, deleted.Message, p.ID.Hex())

	w = app.do(t, http.MethodDelete, "/api/products/"+p.ID.Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decode[mutationBody](t, w).Success)
}

func TestListProductsResponseShape(t *testing.T) {
	app := newTestApp(t, nil)
	for i := 0; i < 25; i++ {
		app.seed(t, "home", float64(i))
	}

	w := app.do(t, http.MethodGet, "/api/products/?limit=10&sort=desc&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Len(t, body["payload"], 10)
	assert.EqualValues(t, 3, body["totalPages"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 2, body["currentPage"])
	assert.EqualValues(t, 1, body["prevPage"])
	assert.EqualValues(t, 3, body["nextPage"])
	assert.Equal(t, true, body["hasPrevPage"])
	assert.Equal(t, true, body["hasNextPage"])
	assert.Equal(t, true, body["isValid"])
	assert.Equal(t, "http://localhost:8080/api/products?page=1&limit=10&sort=desc", body["prevLink"])
	assert.Equal(t, "http://localhost:8080/api/products?page=3&limit=10&sort=desc", body["nextLink"])

	w = app.do(t, http.MethodGet, "/api/products/?page=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["isValid"])
	assert.Empty(t, body["payload"])
	assert.Nil(t, body["nextPage"])
	assert.Equal(t, "", body["nextLink"])
}

func TestCartEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	p := app.seed(t, "home", 2.5)
	other := app.seed(t, "home", 4)

	w := app.do(t, http.MethodPost, "/api/carts/", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[mutationBody](t, w)
	require.True(t, created.Success)
	cid := created.Cart.ID.Hex()
	base := "/api/carts/" + cid

	for i := 0; i < 2; i++ {
		w = app.do(t, http.MethodPost, base+"/product/"+p.ID.Hex(), nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	assert.Equal(t, []models.CartItem{{Product: p.ID, Quantity: 2}}, decode[mutationBody](t, w).Cart.Products)

	w = app.do(t, http.MethodPost, base+"/product/"+bson.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	populated := decode[struct {
		Carts models.PopulatedCart `json:"carts"`
	}](t, w).Carts
	require.Len(t, populated.Products, 1)
	assert.Equal(t, p.Title, populated.Products[0].Product.Title)
	assert.Equal(t, "5.00", populated.Total)

	w = app.do(t, http.MethodPut, base+"/product/"+p.ID.Hex(), map[string]interface{}{"quantity": 7})
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodPut, base+"/product/"+p.ID.Hex(), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quantity is required", decode[global.ErrorBody](t, w).Error)

	w = app.do(t, http.MethodPut, base, map[string]interface{}{"products": []map[string]interface{}{
		{"product": other.ID.Hex(), "quantity": 1},
		{"product": bson.NewObjectID().Hex(), "quantity": 1},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(t, http.MethodGet, base, nil)
	still := decode[struct {
		Carts models.PopulatedCart `json:"carts"`
	}](t, w).Carts
	require.Len(t, still.Products, 1)
	assert.Equal(t, 7, still.Products[0].Quantity)

	for _, items := range [][]map[string]interface{}{
		{{"product": other.ID.Hex(), "quantity": 1}, {"product": other.ID.Hex(), "quantity": 4}},
		{{"product": other.ID.Hex(), "quantity": -3}},
	} {
		w = app.do(t, http.MethodPut, base, map[string]interface{}{"products": items})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	w = app.do(t, http.MethodDelete, base+"/product/"+other.ID.Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	emptied := decode[struct {
		Carts models.Cart `json:"carts"`
	}](t, w).Carts
	assert.Equal(t, created.Cart.ID, emptied.ID)
	assert.Empty(t, emptied.Products)

	w = app.do(t, http.MethodGet, "/api/carts/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cart not found", decode[global.ErrorBody](t, w).Error)
}

func TestMessagesEndpoints(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/api/messages/", map[string]string{"user": "ana", "message": "hola"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodPost, "/api/messages/", map[string]string{"user": "ana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "message is required", decode[mutationBody](t, w).Error)

	w = app.do(t, http.MethodGet, "/api/messages/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, w).Messages
	require.Len(t, history, 1)
	assert.Equal(t, "hola", history[0].Message)
}

func TestCatalogReportEndpoint(t *testing.T) {
	app := newTestApp(t, nil)
	app.seed(t, "home", 10)
	app.seed(t, "home", 20)

	w := app.do(t, http.MethodGet, "/api/products/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[models.CatalogReport](t, w)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "home", report.Categories[0].Category)
	assert.Equal(t, 15.0, report.Categories[0].AvgPrice)
	assert.Empty(t, report.Narrative)
}

func TestHealthCheck(t *testing.T) {
	ok := newTestApp(t, map[string]HealthCheck{"store": func(context.Context) error { return nil }})
	w := ok.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestApp(t, map[string]HealthCheck{"store": func(context.Context) error { return errors.New("no route to host") }})
	w = down.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "no route to host")
}

func TestRecoveryReturnsPanicMessage(t *testing.T) {
	app := newTestApp(t, nil)
	app.engine.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := app.do(t, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "kaboom", decode[global.ErrorBody](t, w).Error)
}

func TestViewsRender(t *testing.T) {
	app := newTestApp(t, nil)
	var ids []string
	for i := 0; i < 7; i++ {
		ids = append(ids, app.seed(t, "home", float64(i)).ID.Hex())
	}

	w := app.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, id := range ids {
		assert.Contains(t, w.Body.String(), id)
	}

	w = app.do(t, http.MethodGet, "/products?page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 1 of 2")
	assert.Contains(t, w.Body.String(), "http://localhost:8080/products?page=2")

	w = app.do(t, http.MethodGet, "/products?page=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "That page does not exist.")

	w = app.do(t, http.MethodGet, "/realtimeproducts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodGet, "/chat", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/carts/"+bson.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart not found")
}

func TestProductStreamSendsSnapshotThenChanges(t *testing.T) {
	app := newTestApp(t, nil)
	existing := app.seed(t, "home", 1)
	srv := httptest.NewServer(app.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/products/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := bufio.NewReader(resp.Body)
	name, data := readEvent(t, events)
	assert.Equal(t, "products", name)
	assert.Contains(t, data, existing.ID.Hex())

	require.Eventually(t, func() bool { return app.hub.Subscribers(chat.TopicProducts) == 1 }, time.Second, 10*time.Millisecond)
	w := app.postProduct(t, productBody(), "a.png")
	require.Equal(t, http.StatusCreated, w.Code)

	name, data = readEvent(t, events)
	assert.Equal(t, "product", name)
	assert.Contains(t, data, `"type":"created"`)
}

// readEvent reads one server-sent event.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
}
