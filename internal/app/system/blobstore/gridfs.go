package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	metaContentType  = "contentType"
	metaCacheControl = "cacheControl"
	metaUser         = "user"
)

// GridFS keeps files in a MongoDB GridFS bucket, one GridFS file per path.
// It implements waffle's storage.Store so thumbnails live next to the
// documents that reference them.
type GridFS struct {
	db        *mongo.Database
	bucket    string
	urlPrefix string
}

var _ storage.Store = (*GridFS)(nil)

// NewGridFS stores files in the named bucket and serves them under
// urlPrefix (e.g. "/files").
func NewGridFS(db *mongo.Database, bucket, urlPrefix string) *GridFS {
	if bucket == "" {
		bucket = options.DefaultName
	}
	return &GridFS{db: db, bucket: bucket, urlPrefix: urlPrefix}
}

// open returns a bucket bound to ctx's deadline. Buckets carry their
// deadlines as state, so each call gets its own.
func (g *GridFS) open(ctx context.Context) (*gridfs.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(g.bucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (g *GridFS) Backend() string { return "gridfs" }

func (g *GridFS) URL(path string) string {
	return joinURL(g.urlPrefix, storage.NormalizePath(path))
}

func cleanPath(path string) (string, error) {
	path = storage.NormalizePath(path)
	if err := storage.ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}

// revisions lists the stored revisions of path, newest first.
func (g *GridFS) revisions(ctx context.Context, b *gridfs.Bucket, path string) ([]gridfs.File, error) {
	return g.find(ctx, b, bson.M{"filename": path}, 0)
}

func (g *GridFS) find(ctx context.Context, b *gridfs.Bucket, filter bson.M, limit int) ([]gridfs.File, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int32(limit))
	}
	cur, err := b.FindContext(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var files []gridfs.File
	if err := cur.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func toInfo(f gridfs.File) *storage.ObjectInfo {
	info := &storage.ObjectInfo{Path: f.Name, Size: f.Length, LastModified: f.UploadDate}
	if f.Metadata == nil {
		return info
	}
	if ct, ok := f.Metadata.Lookup(metaContentType).StringValueOK(); ok {
		info.ContentType = ct
	}
	if raw, err := f.Metadata.LookupErr(metaUser); err == nil {
		var user map[string]string
		if raw.Unmarshal(&user) == nil && len(user) > 0 {
			info.Metadata = user
		}
	}
	return info
}

// Put stores r at path. Older revisions of the same path are removed once
// the new one is written.
func (g *GridFS) Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if opts == nil {
		opts = &storage.PutOptions{}
	}
	b, err := g.open(ctx)
	if err != nil {
		return err
	}
	old, err := g.revisions(ctx, b, path)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", path, err)
	}
	if opts.IfNotExists && len(old) > 0 {
		return storage.ErrAlreadyExists
	}

	// Sniff the content type from the first bytes when none is given.
	contentType := opts.ContentType
	if contentType == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(r, head)
		head = head[:n]
		contentType = storage.DetectContentType(path, head)
		r = io.MultiReader(bytes.NewReader(head), r)
	}

	meta := bson.M{metaContentType: contentType}
	if opts.CacheControl != "" {
		meta[metaCacheControl] = opts.CacheControl
	}
	if len(opts.Metadata) > 0 {
		meta[metaUser] = opts.Metadata
	}
	if _, err := b.UploadFromStream(path, r, options.GridFSUpload().SetMetadata(meta)); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	for _, f := range old {
		_ = b.DeleteContext(ctx, f.ID)
	}
	return nil
}

func (g *GridFS) PutBytes(ctx context.Context, path string, data []byte, opts *storage.PutOptions) error {
	return g.Put(ctx, path, bytes.NewReader(data), opts)
}

func (g *GridFS) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, _, err := g.GetWithInfo(ctx, path)
	return rc, err
}

func (g *GridFS) GetBytes(ctx context.Context, path string) ([]byte, error) {
	rc, err := g.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (g *GridFS) GetWithInfo(ctx context.Context, path string) (io.ReadCloser, *storage.ObjectInfo, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := g.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	ds, err := b.OpenDownloadStreamByName(path)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return ds, toInfo(*ds.GetFile()), nil
}

func (g *GridFS) Head(ctx context.Context, path string) (*storage.ObjectInfo, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	b, err := g.open(ctx)
	if err != nil {
		return nil, err
	}
	files, err := g.find(ctx, b, bson.M{"filename": path}, 1)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, storage.ErrNotFound
	}
	return toInfo(files[0]), nil
}

func (g *GridFS) Delete(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	b, err := g.open(ctx)
	if err != nil {
		return err
	}
	files, err := g.revisions(ctx, b, path)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", path, err)
	}
	if len(files) == 0 {
		return storage.ErrNotFound
	}
	for _, f := range files {
		if err := b.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return nil
}

func (g *GridFS) DeleteMany(ctx context.Context, paths []string) (int, error) {
	n := 0
	for _, p := range paths {
		err := g.Delete(ctx, p)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (g *GridFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.Head(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns the newest revision of each file under prefix, ordered by
// upload time. Delimiters and continuation tokens are not supported.
func (g *GridFS) List(ctx context.Context, prefix string, opts *storage.ListOptions) (*storage.ListResult, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}
	limit := opts.MaxKeys
	if limit <= 0 {
		limit = 1000
	}
	b, err := g.open(ctx)
	if err != nil {
		return nil, err
	}
	filter := bson.M{}
	if p := storage.NormalizePath(prefix); p != "" && p != "." {
		filter["filename"] = bson.M{"$regex": "^" + regexp.QuoteMeta(p)}
	}
	files, err := g.find(ctx, b, filter, 0)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	res := &storage.ListResult{}
	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		if len(res.Objects) == limit {
			res.IsTruncated = true
			break
		}
		res.Objects = append(res.Objects, *toInfo(f))
	}
	return res, nil
}

func (g *GridFS) Copy(ctx context.Context, src, dst string) error {
	rc, info, err := g.GetWithInfo(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()
	return g.Put(ctx, dst, rc, &storage.PutOptions{ContentType: info.ContentType, Metadata: info.Metadata})
}

func (g *GridFS) Move(ctx context.Context, src, dst string) error {
	if err := g.Copy(ctx, src, dst); err != nil {
		return err
	}
	return g.Delete(ctx, src)
}

func (g *GridFS) PresignedURL(context.Context, string, *storage.PresignOptions) (string, error) {
	return "", storage.ErrPresignNotSupported
}

func (g *GridFS) PresignedUploadURL(context.Context, string, *storage.PresignUploadOptions) (*storage.PresignedUpload, error) {
	return nil, storage.ErrPresignNotSupported
}
