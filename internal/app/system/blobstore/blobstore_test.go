package blobstore_test

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/blobstore"
	"github.com/dalemusser/newsdesk/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
)

func TestUploadPath(t *testing.T) {
	now := time.UnixMilli(1717200000000)
	p := blobstore.UploadPath(now, "My Photo (1).PNG")
	re := regexp.MustCompile(`^news/1717200000000_[0-9a-f]{8}-My_Photo__1_\.PNG$`)
	if !re.MatchString(p) {
		t.Errorf("UploadPath = %q", p)
	}
	if blobstore.UploadPath(now, "a.png") == blobstore.UploadPath(now, "a.png") {
		t.Error("paths for the same name and time should differ")
	}
}

func TestSanitizeFilename(t *testing.T) {
	long := strings.Repeat("a", 150) + ".jpeg"
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\pic.png`, "pic.png"},
		{"写真.png", "______.png"},
		{"", "file"},
		{long, strings.Repeat("a", 95) + ".jpeg"},
	}
	for _, tt := range tests {
		if got := blobstore.SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckImage(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		size int64
		max  int64
		want error
	}{
		{"png ok", "image/png", 100, 1000, nil},
		{"upper case", "IMAGE/JPEG", 100, 1000, nil},
		{"at limit", "image/webp", 1000, 1000, nil},
		{"no limit", "image/gif", 1 << 30, 0, nil},
		{"pdf", "application/pdf", 100, 1000, blobstore.ErrNotImage},
		{"empty type", "", 100, 1000, blobstore.ErrNotImage},
		{"too big", "image/png", 1001, 1000, blobstore.ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := blobstore.CheckImage(tt.ct, tt.size, tt.max)
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func exercise(t *testing.T, store storage.Store) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	url, err := blobstore.PutImage(ctx, store, "news/1_abc-a.png", "image/png", strings.NewReader("PNGDATA"))
	if err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}
	if url != "/files/news/1_abc-a.png" {
		t.Errorf("url = %q", url)
	}

	rc, info, err := store.GetWithInfo(ctx, "news/1_abc-a.png")
	if err != nil {
		t.Fatalf("GetWithInfo failed: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "PNGDATA" {
		t.Errorf("body = %q", body)
	}
	if info.ContentType != "image/png" || info.Size != 7 {
		t.Errorf("info = %+v", info)
	}

	if _, _, err := store.GetWithInfo(ctx, "news/missing.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing GetWithInfo err = %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, storage.NewMemory(storage.MemoryConfig{BaseURL: "/files"}))
}

func TestLocal(t *testing.T) {
	local, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, local)
}

func TestGridFS(t *testing.T) {
	db := testutil.SetupTestDB(t)
	g := blobstore.NewGridFS(db, "uploads", "/files")
	exercise(t, g)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	// A second Put replaces the first revision.
	if err := g.PutBytes(ctx, "news/1_abc-a.png", []byte("NEWER"), nil); err != nil {
		t.Fatal(err)
	}
	got, err := g.GetBytes(ctx, "news/1_abc-a.png")
	if err != nil || string(got) != "NEWER" {
		t.Errorf("GetBytes = %q, %v", got, err)
	}
	res, err := g.List(ctx, "news/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 1 || res.Objects[0].ContentType != "image/png" {
		t.Errorf("List = %+v", res.Objects)
	}

	err = g.Put(ctx, "news/1_abc-a.png", strings.NewReader("x"), &storage.PutOptions{IfNotExists: true})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("IfNotExists err = %v", err)
	}

	if err := g.Move(ctx, "news/1_abc-a.png", "news/2_def-b.png"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := g.Exists(ctx, "news/1_abc-a.png"); ok {
		t.Error("source still exists after Move")
	}
	if ok, _ := g.Exists(ctx, "news/2_def-b.png"); !ok {
		t.Error("destination missing after Move")
	}
	if err := g.Delete(ctx, "news/2_def-b.png"); err != nil {
		t.Fatal(err)
	}
	if err := g.Delete(ctx, "news/2_def-b.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
	if _, err := g.Head(ctx, "../etc/passwd"); !errors.Is(err, storage.ErrInvalidPath) {
		t.Errorf("traversal Head err = %v", err)
	}
}
