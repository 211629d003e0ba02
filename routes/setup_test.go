package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/auth"
	"github.com/sidhant-sriv/looply-api/cache"
	"github.com/sidhant-sriv/looply-api/db/dbtest"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/routes"
	"github.com/sidhant-sriv/looply-api/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImages struct {
	mu       sync.Mutex
	uploaded []storage.Image
	deleted  []string
}

func (f *fakeImages) Upload(_ context.Context, img storage.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, img)
	return "http://images.test/" + img.ObjectName, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	cache  *cache.Memory
	events *events.Recorder
	images *fakeImages
	router *gin.Engine
}

// newTestEnv wires a Handler over a fresh sqlite database. opts may adjust
// the handler before routes are registered.
func newTestEnv(t *testing.T, opts ...func(*routes.Handler)) *testEnv {
	t.Helper()
	env := &testEnv{
		t:      t,
		db:     dbtest.Open(t),
		cache:  cache.NewMemory(),
		events: &events.Recorder{},
		images: &fakeImages{},
		router: gin.New(),
	}
	h := &routes.Handler{
		DB:          env.db,
		Cache:       env.cache,
		Events:      env.events,
		Images:      env.images,
		Tokens:      auth.NewTokenService("test-secret", "looply-test", time.Hour, 24*time.Hour, env.cache),
		Log:         zap.NewNop(),
		FeedTTL:     time.Minute,
		AuthLimiter: middleware.NewRateLimiter(1000),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Mount(env.router)
	return env
}

// do sends a JSON request and decodes the JSON response into a map.
func (e *testEnv) do(method, path string, body interface{}, token string) (int, map[string]interface{}) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

type account struct {
	ID    uuid.UUID
	Token string
}

func (e *testEnv) register(name, email, role string) account {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/auth/register", map[string]interface{}{
		"name":             name,
		"email":            email,
		"password":         "secret123",
		"confirm_password": "secret123",
		"role":             role,
		"location":         "Springfield",
	}, "")
	require.Equal(e.t, http.StatusCreated, code, body)

	user := body["user"].(map[string]interface{})
	return account{ID: uuid.MustParse(user["id"].(string)), Token: body["access_token"].(string)}
}

func itemBody(title, mode string) map[string]interface{} {
	body := map[string]interface{}{
		"title":       title,
		"description": "A well kept " + title + " looking for a new home",
		"category":    "Home",
		"condition":   "good",
		"mode":        mode,
		"tags":        []string{"home", "reuse"},
		"location":    map[string]interface{}{"address": "12 Main St", "lat": 51.5, "lng": -0.12},
		"images":      []string{"http://images.test/1.jpg"},
	}
	if mode == "sell" {
		body["price"] = 25
	}
	return body
}

func (e *testEnv) createItem(owner account, title, mode string) string {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/items", itemBody(title, mode), owner.Token)
	require.Equal(e.t, http.StatusCreated, code, body)
	return body["item"].(map[string]interface{})["id"].(string)
}

func field(body map[string]interface{}, path ...string) interface{} {
	var cur interface{} = body
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// beforeUpdate runs sql once, inside the same transaction, right before the
// next UPDATE statement on table. It stands in for a concurrent writer that
// commits between a handler's read and its write.
func (e *testEnv) beforeUpdate(table, sql string, args ...interface{}) {
	e.t.Helper()
	var once sync.Once
	err := e.db.Callback().Update().Before("gorm:update").Register("test:interleave_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() {
			if err := tx.Session(&gorm.Session{NewDB: true}).Exec(sql, args...).Error; err != nil {
				_ = tx.AddError(err)
			}
		})
	})
	require.NoError(e.t, err)
}
