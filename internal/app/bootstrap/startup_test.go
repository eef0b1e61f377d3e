package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/newsdesk/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func memoryConfig(t *testing.T) AppConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return AppConfig{
		DocStore:          docStoreMemory,
		SessionKey:        "test-session-key-0123456789ABCDEFGHIJ",
		SessionName:       "newsdesk-test",
		SessionMaxAge:     time.Hour,
		StaffEmail:        "staff@example.ac.jp",
		StaffName:         "Staff",
		StaffPasswordHash: string(hash),
		BlobBucket:        "thumbnails",
		BlobURLPrefix:     "/files",
		MaxThumbnailBytes: 5 << 20,
		DisplayTimezone:   "Asia/Tokyo",
		DisplayLocale:     "ja",
	}
}

func startMemory(t *testing.T) (AppConfig, DBDeps) {
	t.Helper()
	cfg := memoryConfig(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps, err := ConnectDB(ctx, &config.CoreConfig{}, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := EnsureSchema(ctx, &config.CoreConfig{}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Startup(ctx, &config.CoreConfig{}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() {
		_ = Shutdown(context.Background(), &config.CoreConfig{}, cfg, deps, testLogger())
	})
	return cfg, deps
}

func TestValidateConfig(t *testing.T) {
	base := memoryConfig(t)

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"memory ok", "dev", func(*AppConfig) {}, false},
		{"mongo ok", "dev", func(c *AppConfig) { c.DocStore = docStoreMongo; c.MongoURI = "mongodb://localhost:27017"; c.MongoDatabase = "newsdesk" }, false},
		{"bad mongo uri", "dev", func(c *AppConfig) { c.DocStore = docStoreMongo; c.MongoURI = ""; c.MongoDatabase = "newsdesk" }, true},
		{"unknown docstore", "dev", func(c *AppConfig) { c.DocStore = "firestore" }, true},
		{"bad timezone", "dev", func(c *AppConfig) { c.DisplayTimezone = "Mars/Olympus" }, true},
		{"bad locale", "dev", func(c *AppConfig) { c.DisplayLocale = "xx" }, true},
		{"zero thumbnail limit", "dev", func(c *AppConfig) { c.MaxThumbnailBytes = 0 }, true},
		{"root blob prefix", "dev", func(c *AppConfig) { c.BlobURLPrefix = "/" }, true},
		{"local blobs", "dev", func(c *AppConfig) { c.BlobBackend = blobLocal; c.BlobLocalPath = "/tmp/newsdesk" }, false},
		{"local blobs without path", "dev", func(c *AppConfig) { c.BlobBackend = blobLocal; c.BlobLocalPath = " " }, true},
		{"gridfs without mongo", "dev", func(c *AppConfig) { c.BlobBackend = blobGridFS }, true},
		{"unknown blob backend", "dev", func(c *AppConfig) { c.BlobBackend = "s3" }, true},
		{"no staff in dev", "dev", func(c *AppConfig) { c.StaffPasswordHash = "" }, false},
		{"no staff in prod", "prod", func(c *AppConfig) { c.StaffPasswordHash = "" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tc.env}, cfg, testLogger())
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateConfig err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConnectDB_Memory(t *testing.T) {
	_, deps := startMemory(t)

	if deps.MongoClient != nil {
		t.Error("memory backend should not open a MongoDB client")
	}
	if deps.Docs == nil || deps.Blobs == nil || deps.Articles == nil || deps.Notifications == nil {
		t.Fatalf("services not built: %+v", deps)
	}
	if got := deps.Normalizer.Location().String(); got != "Asia/Tokyo" {
		t.Errorf("normalizer location = %q, want Asia/Tokyo", got)
	}
}

func TestOpenBlobs(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*AppConfig)
		wantBackend string
		wantErr     bool
	}{
		{"follows memory docstore", func(*AppConfig) {}, "memory", false},
		{"local directory", func(c *AppConfig) { c.BlobBackend = blobLocal; c.BlobLocalPath = t.TempDir() }, "local", false},
		{"gridfs needs a database", func(c *AppConfig) { c.BlobBackend = blobGridFS }, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := memoryConfig(t)
			tc.mutate(&cfg)
			s, err := openBlobs(cfg, nil, testLogger())
			if (err != nil) != tc.wantErr {
				t.Fatalf("openBlobs err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if s.Backend() != tc.wantBackend {
				t.Errorf("backend = %q, want %q", s.Backend(), tc.wantBackend)
			}
			if got := s.URL("news/a.png"); got != "/files/news/a.png" {
				t.Errorf("URL = %q", got)
			}
		})
	}
}

func TestMonitors_WarmOwnerDirectory(t *testing.T) {
	_, deps := startMemory(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	seeder, ok := deps.Docs.(testutil.Seeder)
	if !ok {
		t.Fatalf("memory document store %T cannot seed fixtures", deps.Docs)
	}
	fx := testutil.NewFixtures(t, ctx, seeder)
	fx.Owner(models.OwnerCompanies, "acme", "Acme Corp", "")
	fx.Article(models.Article{Title: "Hello", URL: "https://acme.example/hello", OwnerType: models.OwnerCompanies, OwnerID: "acme"})

	deadline := time.Now().Add(3 * time.Second)
	for {
		if o, ok := deps.Owners.Lookup(models.OwnerCompanies, "acme"); ok {
			if o.Name != "Acme Corp" {
				t.Errorf("owner name = %q", o.Name)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("owner was never loaded by the article monitor")
		}
		time.Sleep(10 * time.Millisecond)
	}

	list, ok := deps.Monitors.Articles()
	for !ok || len(list) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("article monitor has no snapshot")
		}
		time.Sleep(10 * time.Millisecond)
		list, ok = deps.Monitors.Articles()
	}
	if list[0].Title != "Hello" {
		t.Errorf("monitor article = %+v", list[0])
	}
	if _, ok := deps.Monitors.Notifications(); !ok {
		t.Error("notification monitor has no snapshot")
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	cfg, deps := startMemory(t)
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	get := func(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept", "application/json")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := get("/health", nil); rec.Code != http.StatusOK {
		t.Errorf("/health = %d", rec.Code)
	}
	if rec := get("/metrics", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("/metrics = %d", rec.Code)
	}
	if rec := get("/api/articles", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/articles without session = %d, want 401", rec.Code)
	}
	if rec := get("/no/such/page", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", rec.Code)
	}

	// Wrong password is rejected.
	bad := testutil.NewJSONRequest(http.MethodPost, "/login", `{"email":"staff@example.ac.jp","password":"nope"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", rec.Code)
	}

	login := testutil.NewJSONRequest(http.MethodPost, "/login", `{"email":"staff@example.ac.jp","password":"s3cret-pass"}`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()

	for _, path := range []string{"/api/owners", "/api/dashboard", "/api/articles", "/api/notifications"} {
		if rec := get(path, cookies); rec.Code != http.StatusOK {
			t.Errorf("%s with session = %d: %s", path, rec.Code, rec.Body.String())
		}
	}
}
