package notifications_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/features/notifications"
	notificationstore "github.com/dalemusser/newsdesk/internal/app/store/notifications"
	"github.com/dalemusser/newsdesk/internal/app/system/clock"
	"github.com/dalemusser/newsdesk/internal/app/system/docstore/memstore"
	"github.com/dalemusser/newsdesk/internal/domain/models"
	"github.com/dalemusser/newsdesk/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h      *notifications.Handler
	docs   *memstore.Store
	clk    *clock.Manual
	fx     *testutil.Fixtures
	router http.Handler
}

func setup(t *testing.T) env {
	t.Helper()
	docs := testutil.NewMemStore()
	n, clk := testutil.NewNormalizer()
	h := notifications.NewHandler(notificationstore.New(docs, n, zap.NewNop()), docs, n, zap.NewNop())
	return env{
		h:      h,
		docs:   docs,
		clk:    clk,
		fx:     testutil.NewFixtures(t, context.Background(), docs),
		router: notifications.Routes(h),
	}
}

func (e env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, testutil.WithStaff(req))
	return rec
}

func day(d int) time.Time { return time.Date(2024, 6, d, 9, 0, 0, 0, time.UTC) }

type row struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	CurrentStatus string `json:"currentStatus"`
	Targets       string `json:"targets"`
	UtasLabel     string `json:"utasLabel"`
}

type listBody struct {
	Rows  []row `json:"rows"`
	Range struct {
		Total int `json:"total"`
	} `json:"range"`
	Sort struct {
		Key string `json:"key"`
		Dir string `json:"dir"`
	} `json:"sort"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func ids(rows []row) string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return strings.Join(out, ",")
}

func seed(e env) {
	e.fx.Notification(models.Notification{
		ID: "n1", Title: "Exam schedule", Department: "Academic Affairs", IsImportant: true,
		TargetFaculties: []string{"law"}, TargetGrades: []string{"undergraduate-1"},
		UtasPublishedDate: "2024-06-05", UtasPublishedTime: "09:00", PublishedAt: day(5),
	})
	e.fx.Notification(models.Notification{
		ID: "n2", Title: "Library hours", Department: "Library",
		UtasPublishedDate: "2024-06-08", UtasPublishedTime: "12:00", PublishedAt: day(8),
	})
	e.fx.Notification(models.Notification{
		ID: "n3", Title: "Festival volunteers", Department: "Student Affairs",
		TargetFaculties: []string{"science", "engineering"}, TargetGrades: []string{"master"},
		DeliveryType: models.DeliveryScheduled, PublishedAt: day(20),
	})
}

func TestServeList(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"default latest first", "/", "n3,n2,n1"},
		{"app ascending", "/?sort=app&dir=asc", "n1,n2,n3"},
		{"utas toggled, missing last", "/?toggle=utas", "n2,n1,n3"},
		{"utas ascending, missing last", "/?sort=utas&dir=asc", "n1,n2,n3"},
		{"faculty", "/?faculty=science", "n3,n2"},
		{"faculty all", "/?faculty=all", "n3,n2,n1"},
		{"grade", "/?grade=undergraduate-1", "n2,n1"},
		{"status scheduled", "/?status=scheduled", "n3"},
		{"status published", "/?status=published", "n2,n1"},
		{"important", "/?important=true", "n1"},
		{"not important", "/?important=false", "n3,n2"},
		{"search department", "/?q=library", "n2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := setup(t)
			seed(e)
			rec := e.do(testutil.NewRequest("GET", tc.target))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got := ids(decode[listBody](t, rec).Rows); got != tc.want {
				t.Errorf("rows = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestServeList_Labels(t *testing.T) {
	e := setup(t)
	seed(e)
	body := decode[listBody](t, e.do(testutil.NewRequest("GET", "/")))

	byID := map[string]row{}
	for _, r := range body.Rows {
		byID[r.ID] = r
	}
	if got := byID["n1"].Targets; got != "law / undergraduate-1" {
		t.Errorf("n1 targets = %q", got)
	}
	if got := byID["n2"].Targets; got != "all faculties / all grades" {
		t.Errorf("n2 targets = %q", got)
	}
	if got := byID["n1"].UtasLabel; got != "2024/06/05 09:00" {
		t.Errorf("n1 utas label = %q", got)
	}
	if got := byID["n3"].UtasLabel; got != "未設定" {
		t.Errorf("n3 utas label = %q", got)
	}
}

func TestServeGet(t *testing.T) {
	e := setup(t)
	seed(e)

	rec := e.do(testutil.NewRequest("GET", "/n3"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[row](t, rec); got.CurrentStatus != "scheduled" || got.Title != "Festival volunteers" {
		t.Errorf("got %+v", got)
	}

	if rec := e.do(testutil.NewRequest("GET", "/missing")); rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", rec.Code)
	}
}

const createBody = `{
	"title": "Scholarship applications",
	"content": "<p>Apply by Friday.</p><script>alert(1)</script>",
	"department": "Student Support",
	"isImportant": true,
	"targetFaculties": ["all"],
	"targetGrades": ["undergraduate-1", "undergraduate-2"],
	"links": ["https://example.ac.jp/apply", " "],
	"utasPublishedDate": "2024-06-10",
	"utasPublishedTime": "08:30",
	"deliveryType": "scheduled",
	"scheduledDate": "2024-06-15",
	"scheduledTime": "09:00"
}`

func TestHandleCreate(t *testing.T) {
	e := setup(t)

	rec := e.do(testutil.NewJSONRequest("POST", "/", createBody))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	nt := decode[models.Notification](t, rec)
	if nt.ID == "" || nt.Status != models.StatusScheduled {
		t.Errorf("created = %+v", nt)
	}
	if want := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC); !nt.PublishedAt.Equal(want) {
		t.Errorf("publishedAt = %v, want %v", nt.PublishedAt, want)
	}
	if strings.Contains(nt.Content, "<script>") {
		t.Errorf("content not sanitized: %q", nt.Content)
	}
	if len(nt.Links) != 1 {
		t.Errorf("links = %v", nt.Links)
	}
	if e.docs.Len(models.NotificationsCollection) != 1 {
		t.Errorf("documents = %d, want 1", e.docs.Len(models.NotificationsCollection))
	}
}

func TestHandleCreate_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"malformed", `{"title":`, http.StatusBadRequest, ""},
		{"missing title", strings.Replace(createBody, `"Scholarship applications"`, `"  "`, 1), http.StatusUnprocessableEntity, "title"},
		{"unknown faculty", strings.Replace(createBody, `["all"]`, `["astrology"]`, 1), http.StatusUnprocessableEntity, "targetFaculties"},
		{"missing schedule", strings.Replace(createBody, `"scheduledDate": "2024-06-15",`, ``, 1), http.StatusUnprocessableEntity, "scheduledDate"},
		{"bad link", strings.Replace(createBody, `https://example.ac.jp/apply`, `ftp://example`, 1), http.StatusUnprocessableEntity, "links"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := setup(t)
			rec := e.do(testutil.NewJSONRequest("POST", "/", tc.body))
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.wantField != "" {
				body := decode[struct {
					Fields map[string]string `json:"fields"`
				}](t, rec)
				if body.Fields[tc.wantField] == "" {
					t.Errorf("fields = %v, want %q", body.Fields, tc.wantField)
				}
			}
			if e.docs.Len(models.NotificationsCollection) != 0 {
				t.Error("nothing should be written")
			}
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	e := setup(t)
	seed(e)

	body := strings.Replace(createBody, `"scheduled"`, `"immediate"`, 1)
	rec := e.do(testutil.NewJSONRequest("PUT", "/n3", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	nt := decode[models.Notification](t, rec)
	if nt.ID != "n3" || nt.Status != models.StatusPublished || !nt.PublishedAt.Equal(testutil.FixedNow) {
		t.Errorf("updated = %+v", nt)
	}
	if nt.ScheduledDate != "" {
		t.Errorf("scheduledDate = %q, want cleared", nt.ScheduledDate)
	}

	if rec := e.do(testutil.NewJSONRequest("PUT", "/missing", body)); rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", rec.Code)
	}
}

func TestHandleDelete(t *testing.T) {
	e := setup(t)
	seed(e)

	if rec := e.do(testutil.NewRequest("DELETE", "/n1")); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec := e.do(testutil.NewRequest("DELETE", "/n1")); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleDelete_StoreFailure(t *testing.T) {
	e := setup(t)
	seed(e)
	e.docs.FailNextWrite(context.DeadlineExceeded)

	if rec := e.do(testutil.NewRequest("DELETE", "/n1")); rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if e.docs.Len(models.NotificationsCollection) != 3 {
		t.Error("failed delete must not remove the document")
	}
}

func nextRows(t *testing.T, sc *bufio.Scanner) listBody {
	t.Helper()
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "rows":
			var b listBody
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &b); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			return b
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return listBody{}
}

func TestServeStream_StatusFlipsOnTick(t *testing.T) {
	e := setup(t)
	e.h.Tick = 20 * time.Millisecond
	e.fx.Notification(models.Notification{ID: "later", Title: "Later", DeliveryType: models.DeliveryScheduled, PublishedAt: day(11)})

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)

	first := nextRows(t, sc)
	if len(first.Rows) != 1 || first.Rows[0].CurrentStatus != "scheduled" {
		t.Fatalf("first = %+v", first.Rows)
	}

	e.clk.Set(day(12))
	for i := 0; i < 50; i++ {
		if rows := nextRows(t, sc).Rows; len(rows) == 1 && rows[0].CurrentStatus == "published" {
			return
		}
	}
	t.Fatal("status never flipped to published")
}

func TestServeStream_NewNotification(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/stream?important=true", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)

	if first := nextRows(t, sc); first.Range.Total != 0 {
		t.Fatalf("first total = %d, want 0", first.Range.Total)
	}
	e.fx.Notification(models.Notification{ID: "plain", Title: "Plain"})
	e.fx.Notification(models.Notification{ID: "urgent", Title: "Urgent", IsImportant: true})

	for i := 0; i < 5; i++ {
		if got := nextRows(t, sc); ids(got.Rows) == "urgent" {
			return
		}
	}
	t.Fatal("important notification never streamed")
}
