package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/erazemk/powerlister/internal/analysis"
	"github.com/erazemk/powerlister/internal/db"
	"github.com/erazemk/powerlister/internal/listing"
	"github.com/erazemk/powerlister/internal/marketplace"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/secrets"
	"github.com/erazemk/powerlister/internal/store"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return setupTestServerWithKV(t, store.NewSQLKV(db.NewTestDB(t), db.DialectSQLite))
}

func setupTestServerWithKV(t *testing.T, kv store.KV) *httptest.Server {
	t.Helper()

	// No simulated delays and no breakers.
	registry := marketplace.DefaultRegistry(marketplace.Options{})

	router := NewRouter(Deps{
		KV:        kv,
		Registry:  registry,
		Lifecycle: listing.NewController(kv, registry, nil, nil),
		Box:       secrets.NewBox([32]byte{1, 2, 3}),
		Analyzer:  &analysis.Analyzer{},
	})
	server := httptest.NewServer(RequestIDMiddleware(router))
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func createItem(t *testing.T, server *httptest.Server, fields map[string]any) model.Item {
	t.Helper()
	resp := doRequest(t, "POST", server.URL+"/api/items", fields)
	expectStatus(t, resp, http.StatusCreated)
	return decodeBody[model.Item](t, resp)
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func uploadPhoto(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(data)
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("uploading photo: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestItemCRUD(t *testing.T) {
	server := setupTestServer(t)

	item := createItem(t, server, map[string]any{
		"title":    "Desk Lamp",
		"price":    "25",
		"msrp":     "40",
		"category": "Home & Garden",
	})
	if item.ID == "" {
		t.Fatal("expected item id")
	}
	if item.Price != 25 || item.MSRP != 40 {
		t.Errorf("expected price 25 and msrp 40, got %v and %v", item.Price, item.MSRP)
	}
	if item.Status() != model.ItemStatusDraft {
		t.Errorf("expected draft, got %s", item.Status())
	}

	resp := doRequest(t, "GET", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	raw := decodeBody[map[string]any](t, resp)
	if raw["status"] != "draft" {
		t.Errorf("expected encoded status draft, got %v", raw["status"])
	}

	resp = doRequest(t, "GET", server.URL+"/api/items?status=draft&q=lamp", nil)
	expectStatus(t, resp, http.StatusOK)
	if items := decodeBody[[]model.Item](t, resp); len(items) != 1 {
		t.Errorf("expected 1 matching item, got %d", len(items))
	}

	resp = doRequest(t, "GET", server.URL+"/api/items?status=listed", nil)
	expectStatus(t, resp, http.StatusOK)
	if items := decodeBody[[]model.Item](t, resp); len(items) != 0 {
		t.Errorf("expected no listed items, got %d", len(items))
	}

	resp = doRequest(t, "PATCH", server.URL+"/api/items/"+item.ID, map[string]string{"field": "price", "value": "30.5"})
	expectStatus(t, resp, http.StatusOK)
	if updated := decodeBody[model.Item](t, resp); updated.Price != 30.5 {
		t.Errorf("expected price 30.5, got %v", updated.Price)
	}

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "GET", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestItemValidation(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, map[string]any{"title": "Jacket"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing title", "POST", "/api/items", map[string]any{"price": "10"}, http.StatusBadRequest},
		{"invalid price on create", "POST", "/api/items", map[string]any{"title": "x", "price": "abc"}, http.StatusBadRequest},
		{"negative msrp", "POST", "/api/items", map[string]any{"title": "x", "msrp": "-5"}, http.StatusBadRequest},
		{"invalid price edit", "PATCH", "/api/items/" + item.ID, map[string]string{"field": "price", "value": "NaN"}, http.StatusBadRequest},
		{"unknown field", "PATCH", "/api/items/" + item.ID, map[string]string{"field": "sku", "value": "1"}, http.StatusBadRequest},
		{"edit missing item", "PATCH", "/api/items/nope", map[string]string{"field": "title", "value": "x"}, http.StatusNotFound},
		{"invalid status filter", "GET", "/api/items?status=archived", nil, http.StatusBadRequest},
		{"missing item", "GET", "/api/items/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, tt.method, server.URL+tt.path, tt.body)
			expectStatus(t, resp, tt.want)
			if body := decodeBody[map[string]string](t, resp); body["error"] == "" {
				t.Error("expected error message")
			}
		})
	}

	// The rejected edit left the item untouched.
	resp := doRequest(t, "GET", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decodeBody[model.Item](t, resp); got.Price != 0 {
		t.Errorf("expected price 0 after rejected edit, got %v", got.Price)
	}
}

func TestListingLifecycle(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, map[string]any{"title": "Sneakers", "price": "120"})
	base := server.URL + "/api/items/" + item.ID + "/listings/"

	resp := doRequest(t, "POST", base+"mercari", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = doRequest(t, "POST", base+"craigslist", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, "POST", base+"ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	listed := decodeBody[model.Item](t, resp)
	if listed.Status() != model.ItemStatusListed {
		t.Errorf("expected listed, got %s", listed.Status())
	}
	if !strings.HasPrefix(listed.ListingID(marketplace.EBay), "ebay-") {
		t.Errorf("expected ebay listing id, got %q", listed.ListingID(marketplace.EBay))
	}

	// Listing twice keeps a single entry.
	resp = doRequest(t, "POST", base+"ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	if again := decodeBody[model.Item](t, resp); len(again.Marketplaces) != 1 {
		t.Errorf("expected 1 marketplace, got %v", again.Marketplaces)
	}

	resp = doRequest(t, "PUT", base+"ebay", map[string]any{"updates": map[string]any{"price": 110}})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "PUT", base+"ebay", map[string]any{"updates": map[string]any{}})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, "DELETE", base+"facebook", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, "DELETE", base+"ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	unlisted := decodeBody[model.Item](t, resp)
	if unlisted.Status() != model.ItemStatusDraft || len(unlisted.Marketplaces) != 0 {
		t.Errorf("expected draft with no marketplaces, got %s %v", unlisted.Status(), unlisted.Marketplaces)
	}
}

func TestDeleteListedItem(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, map[string]any{"title": "Camera"})

	resp := doRequest(t, "POST", server.URL+"/api/items/"+item.ID+"/listings/facebook", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestMarkSoldAndStats(t *testing.T) {
	server := setupTestServer(t)
	sold := createItem(t, server, map[string]any{"title": "Watch", "price": "100"})
	createItem(t, server, map[string]any{"title": "Belt", "price": "20"})

	resp := doRequest(t, "POST", server.URL+"/api/items/"+sold.ID+"/sold", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decodeBody[model.Item](t, resp); got.Status() != model.ItemStatusSold {
		t.Errorf("expected sold, got %s", got.Status())
	}

	resp = doRequest(t, "GET", server.URL+"/api/stats", nil)
	expectStatus(t, resp, http.StatusOK)
	stats := decodeBody[model.Stats](t, resp)
	if stats.TotalItems != 2 || stats.SoldItems != 1 || stats.DraftItems != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.SoldValue != 100 || stats.ConversionRate != 50 {
		t.Errorf("unexpected values: %+v", stats)
	}

	resp = doRequest(t, "GET", server.URL+"/api/profile", nil)
	expectStatus(t, resp, http.StatusOK)
	profile := decodeBody[model.Profile](t, resp)
	if profile.TotalSales != 100 || profile.TotalListings != 2 {
		t.Errorf("expected derived sales 100 over 2 items, got %v over %d", profile.TotalSales, profile.TotalListings)
	}
}

func TestItemImages(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, map[string]any{"title": "Chair"})
	photo := testJPEG(t)

	resp := uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", photo)
	expectStatus(t, resp, http.StatusCreated)
	uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", photo)

	resp = doRequest(t, "GET", server.URL+"/api/items/"+item.ID, nil)
	expectStatus(t, resp, http.StatusOK)
	got := decodeBody[model.Item](t, resp)
	if len(got.Images) != 2 || got.Image != got.Images[0] {
		t.Fatalf("expected 2 images with primary first, got %v (primary %q)", got.Images, got.Image)
	}
	first, second := got.Images[0], got.Images[1]

	resp = doRequest(t, "GET", server.URL+first, nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
	resp = doRequest(t, "GET", server.URL+first+"/thumb", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "POST", server.URL+"/api/items/"+item.ID+"/images/move", map[string]int{"from": 1, "to": 0})
	expectStatus(t, resp, http.StatusOK)
	moved := decodeBody[model.Item](t, resp)
	if moved.Images[0] != second || moved.Image != second {
		t.Errorf("expected %q first after move, got %v", second, moved.Images)
	}

	resp = doRequest(t, "POST", server.URL+"/api/items/"+item.ID+"/images/move", map[string]int{"from": 0})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID+"/images/0", nil)
	expectStatus(t, resp, http.StatusOK)
	if remaining := decodeBody[model.Item](t, resp); len(remaining.Images) != 1 || remaining.Image != first {
		t.Errorf("expected only %q left, got %v", first, remaining.Images)
	}

	resp = doRequest(t, "GET", server.URL+second, nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID+"/images/0", nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID+"/images/x", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", []byte("not an image"))
	expectStatus(t, resp, http.StatusUnsupportedMediaType)

	resp = uploadPhoto(t, server.URL+"/api/items/nope/images", photo)
	expectStatus(t, resp, http.StatusNotFound)
}

// hookedKV runs a one-shot hook before the wrapped store sees a read or
// compare-and-set, letting tests interleave a concurrent writer.
type hookedKV struct {
	store.KV

	mu    sync.Mutex
	onGet func(key string)
	onCAS func(key string)
	puts  []string
}

func (k *hookedKV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	k.mu.Lock()
	hook := k.onGet
	k.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return k.KV.Get(ctx, key)
}

func (k *hookedKV) CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	k.mu.Lock()
	hook := k.onCAS
	k.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return k.KV.CompareAndSet(ctx, key, value, expected)
}

func (k *hookedKV) Put(ctx context.Context, key string, value []byte) (int64, error) {
	k.mu.Lock()
	k.puts = append(k.puts, key)
	k.mu.Unlock()
	return k.KV.Put(ctx, key, value)
}

func (k *hookedKV) setGet(fn func(key string)) {
	k.mu.Lock()
	k.onGet = fn
	k.mu.Unlock()
}

func (k *hookedKV) setCAS(fn func(key string)) {
	k.mu.Lock()
	k.onCAS = fn
	k.mu.Unlock()
}

func TestDeleteImageAfterConcurrentMove(t *testing.T) {
	inner := store.NewSQLKV(db.NewTestDB(t), db.DialectSQLite)
	kv := &hookedKV{KV: inner}
	server := setupTestServerWithKV(t, kv)

	item := createItem(t, server, map[string]any{"title": "Lamp"})
	photo := testJPEG(t)
	uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", photo)
	resp := uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", photo)
	expectStatus(t, resp, http.StatusCreated)
	uploaded := decodeBody[model.Item](t, resp)
	first, second := uploaded.Images[0], uploaded.Images[1]

	// Another writer swaps the gallery just before the delete commits, so
	// the delete retries against [second, first] and removes second.
	kv.setCAS(func(key string) {
		if key != store.KeyItems {
			return
		}
		kv.setCAS(nil)
		if _, err := store.MoveItemImage(context.Background(), inner, item.ID, 1, 0); err != nil {
			t.Errorf("moving image: %v", err)
		}
	})

	resp = doRequest(t, "DELETE", server.URL+"/api/items/"+item.ID+"/images/0", nil)
	expectStatus(t, resp, http.StatusOK)
	remaining := decodeBody[model.Item](t, resp)
	if len(remaining.Images) != 1 || remaining.Images[0] != first {
		t.Fatalf("expected only %q left, got %v", first, remaining.Images)
	}

	resp = doRequest(t, "GET", server.URL+first, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = doRequest(t, "GET", server.URL+second, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestUploadToItemDeletedMidway(t *testing.T) {
	inner := store.NewSQLKV(db.NewTestDB(t), db.DialectSQLite)
	kv := &hookedKV{KV: inner}
	server := setupTestServerWithKV(t, kv)
	item := createItem(t, server, map[string]any{"title": "Vase"})

	// The upload checks the item exists, stores the blob, then attaches it.
	// The item disappears between the check and the attach.
	reads := 0
	kv.setGet(func(key string) {
		if key != store.KeyItems {
			return
		}
		reads++
		if reads < 2 {
			return
		}
		kv.setGet(nil)
		if err := store.DeleteItem(context.Background(), inner, item.ID); err != nil {
			t.Errorf("deleting item: %v", err)
		}
	})

	resp := uploadPhoto(t, server.URL+"/api/items/"+item.ID+"/images", testJPEG(t))
	expectStatus(t, resp, http.StatusNotFound)

	kv.mu.Lock()
	puts := slices.Clone(kv.puts)
	kv.mu.Unlock()
	var blobs []string
	for _, key := range puts {
		if key != store.KeyItems {
			blobs = append(blobs, key)
		}
	}
	if len(blobs) != 1 {
		t.Fatalf("expected one stored blob, got %v", blobs)
	}
	if data, _, err := inner.Get(context.Background(), blobs[0]); err != nil || data != nil {
		t.Errorf("expected orphaned blob %s to be discarded, got %d bytes (err %v)", blobs[0], len(data), err)
	}
}

func TestSession(t *testing.T) {
	server := setupTestServer(t)

	check := func(want bool) {
		t.Helper()
		resp := doRequest(t, "GET", server.URL+"/api/session", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decodeBody[sessionResponse](t, resp); got.LoggedIn != want {
			t.Errorf("expected logged_in=%v, got %v", want, got.LoggedIn)
		}
	}

	check(false)
	expectStatus(t, doRequest(t, "POST", server.URL+"/api/session", nil), http.StatusOK)
	check(true)
	expectStatus(t, doRequest(t, "DELETE", server.URL+"/api/session", nil), http.StatusOK)
	check(false)
}

func TestProfile(t *testing.T) {
	server := setupTestServer(t)

	resp := doRequest(t, "GET", server.URL+"/api/profile", nil)
	expectStatus(t, resp, http.StatusOK)
	if p := decodeBody[model.Profile](t, resp); p.Name != "Alex Johnson" {
		t.Errorf("expected default profile, got %q", p.Name)
	}

	resp = doRequest(t, "PUT", server.URL+"/api/profile", map[string]any{"name": "Sam", "email": "not-an-email"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, "PUT", server.URL+"/api/profile", map[string]any{"name": "Sam", "email": "sam@example.com", "rating": 7})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, "PUT", server.URL+"/api/profile", map[string]any{
		"name":      "Sam Rivera",
		"email":     "sam@example.com",
		"location":  "Austin, TX",
		"rating":    4.5,
		"join_date": "2024-01-02",
	})
	expectStatus(t, resp, http.StatusOK)
	p := decodeBody[model.Profile](t, resp)
	if p.Name != "Sam Rivera" || p.Email != "sam@example.com" || p.JoinDate != "2024-01-02" {
		t.Errorf("profile not updated: %+v", p)
	}
	if p.Avatar != "/placeholder.svg" {
		t.Errorf("expected default avatar kept, got %q", p.Avatar)
	}
}

func TestCatalog(t *testing.T) {
	server := setupTestServer(t)

	resp := doRequest(t, "GET", server.URL+"/api/catalog", nil)
	expectStatus(t, resp, http.StatusOK)
	catalog := decodeBody[map[string][]string](t, resp)
	if len(catalog["categories"]) != len(model.Categories) || len(catalog["conditions"]) != len(model.Conditions) {
		t.Errorf("unexpected catalog: %v", catalog)
	}
}

func TestMarketplaceConnections(t *testing.T) {
	server := setupTestServer(t)

	resp := doRequest(t, "GET", server.URL+"/api/marketplaces", nil)
	expectStatus(t, resp, http.StatusOK)
	if all := decodeBody[[]marketplaceView](t, resp); len(all) != 5 {
		t.Fatalf("expected 5 marketplaces, got %d", len(all))
	}

	resp = doRequest(t, "GET", server.URL+"/api/marketplaces/etsy", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, "PUT", server.URL+"/api/marketplaces/mercari/connection", map[string]string{"api_key": "k", "api_secret": "s"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = doRequest(t, "PUT", server.URL+"/api/marketplaces/ebay/connection", map[string]string{"api_key": "key-123456"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = doRequest(t, "PUT", server.URL+"/api/marketplaces/ebay/connection", map[string]string{
		"api_key":    "key-123456",
		"api_secret": "top-secret-value",
	})
	expectStatus(t, resp, http.StatusOK)
	if conn := decodeBody[connectionView](t, resp); conn.APIKey != "****3456" {
		t.Errorf("expected masked key, got %q", conn.APIKey)
	}

	resp = doRequest(t, "GET", server.URL+"/api/marketplaces/ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	if def := decodeBody[marketplaceView](t, resp); !def.Connected {
		t.Error("expected ebay to be connected")
	}

	resp = doRequest(t, "GET", server.URL+"/api/connections", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "sealed_secret") || strings.Contains(string(body), "top-secret-value") {
		t.Errorf("connection listing leaks the secret: %s", body)
	}

	resp = doRequest(t, "DELETE", server.URL+"/api/marketplaces/ebay/connection", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "GET", server.URL+"/api/connections", nil)
	expectStatus(t, resp, http.StatusOK)
	if conns := decodeBody[[]connectionView](t, resp); len(conns) != 0 {
		t.Errorf("expected no connections, got %v", conns)
	}
}

func TestUnreadableConnectionIsNotConnected(t *testing.T) {
	kv := store.NewSQLKV(db.NewTestDB(t), db.DialectSQLite)
	server := setupTestServerWithKV(t, kv)

	err := store.PutConnection(context.Background(), kv, model.Connection{
		MarketplaceID: "ebay",
		APIKey:        "key-123456",
		SealedSecret:  []byte("sealed with another key"),
	})
	if err != nil {
		t.Fatalf("storing connection: %v", err)
	}

	resp := doRequest(t, "GET", server.URL+"/api/marketplaces/ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	if def := decodeBody[marketplaceView](t, resp); def.Connected {
		t.Error("expected a connection with an unreadable secret to report disconnected")
	}

	resp = doRequest(t, "PUT", server.URL+"/api/marketplaces/ebay/connection", map[string]string{
		"api_key":    "key-123456",
		"api_secret": "top-secret-value",
	})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, "GET", server.URL+"/api/marketplaces/ebay", nil)
	expectStatus(t, resp, http.StatusOK)
	if def := decodeBody[marketplaceView](t, resp); !def.Connected {
		t.Error("expected ebay to be connected after reconnecting")
	}
}

func TestAnalyze(t *testing.T) {
	server := setupTestServer(t)
	photo := testJPEG(t)

	resp := uploadPhoto(t, server.URL+"/api/analyze", photo)
	expectStatus(t, resp, http.StatusOK)
	result := decodeBody[analyzeResponse](t, resp)
	if result.Fields.Title != "Apple iPhone 14 Pro" {
		t.Errorf("unexpected title %q", result.Fields.Title)
	}
	if !strings.HasPrefix(result.Image, "/api/images/") {
		t.Errorf("expected stored image reference, got %q", result.Image)
	}
	expectStatus(t, doRequest(t, "GET", server.URL+result.Image, nil), http.StatusOK)

	// The result feeds straight into item creation.
	item := createItem(t, server, map[string]any{
		"title":  result.Fields.Title,
		"price":  result.Fields.Price,
		"msrp":   result.Fields.MSRP,
		"images": []string{result.Image},
	})
	if item.Price != 899 || item.Image != result.Image {
		t.Errorf("unexpected item from analysis: %+v", item)
	}
}

func TestAnalyzeStream(t *testing.T) {
	server := setupTestServer(t)

	resp := uploadPhoto(t, server.URL+"/api/analyze?stream=1", testJPEG(t))
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("expected ndjson, got %s", ct)
	}

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 51 {
		t.Fatalf("expected 50 progress lines and a result, got %d lines", len(lines))
	}

	var last analysis.Progress
	if err := json.Unmarshal([]byte(lines[49]), &last); err != nil {
		t.Fatalf("decoding progress: %v", err)
	}
	if !last.Done || last.Percent != 100 {
		t.Errorf("expected final progress at 100%%, got %+v", last)
	}

	var result analyzeResponse
	if err := json.Unmarshal([]byte(lines[50]), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Fields.Brand != "Apple" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestAnalyzeRejectsBadUpload(t *testing.T) {
	server := setupTestServer(t)

	resp := uploadPhoto(t, server.URL+"/api/analyze", []byte("GIF89a"))
	expectStatus(t, resp, http.StatusUnsupportedMediaType)

	resp = doRequest(t, "POST", server.URL+"/api/analyze", map[string]string{"photo": "x"})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestRequestID(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(RequestIDFromContext(r.Context())))
	}))

	const given = "0f8fad5b-d9cb-469f-a165-70867728950e"
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, given)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != given || rec.Body.String() != given {
		t.Errorf("expected request id %s echoed, got header %q body %q", given, rec.Header().Get(RequestIDHeader), rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if id := rec.Header().Get(RequestIDHeader); id == "not a uuid" || id == "" {
		t.Errorf("expected generated request id, got %q", id)
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusTeapot, "short and stout")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/items", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
