// internal/app/features/articles/edit.go
package articles

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	uierrors "github.com/dalemusser/newsdesk/internal/app/features/errors"
	articlestore "github.com/dalemusser/newsdesk/internal/app/store/articles"
	"github.com/dalemusser/newsdesk/internal/app/system/limits"
	"github.com/dalemusser/newsdesk/internal/app/system/timeouts"
)

// editForm is a parsed multipart edit request. close releases the uploaded
// file.
type editForm struct {
	in    articlestore.ArticleInput
	thumb *articlestore.Thumbnail
	close func()
}

// parseForm reads title, url, owner, date and an optional thumbnail file.
// It answers the request itself and reports false when the body is unusable.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (editForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload+limits.MultipartOverhead)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.WriteJSON(w, http.StatusRequestEntityTooLarge, uierrors.Body{Error: "The upload is too large."})
			return editForm{}, false
		}
		h.ErrLog.LogBadRequest(w, r, "article form: parse", err, "Invalid form data.")
		return editForm{}, false
	}

	f := editForm{
		in: articlestore.ArticleInput{
			Title: r.PostFormValue("title"),
			URL:   r.PostFormValue("url"),
			Owner: r.PostFormValue("owner"),
			Date:  r.PostFormValue("date"),
		},
		close: func() {},
	}

	file, hdr, err := r.FormFile("thumbnail")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.ErrLog.LogBadRequest(w, r, "article form: thumbnail", err, "Could not read the thumbnail.")
		return editForm{}, false
	default:
		f.thumb = &articlestore.Thumbnail{
			Filename:    hdr.Filename,
			ContentType: contentType(hdr),
			Size:        hdr.Size,
			Body:        file,
		}
		f.close = func() { _ = file.Close() }
	}
	return f, true
}

func contentType(hdr *multipart.FileHeader) string {
	if ct := hdr.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return mime.TypeByExtension(filepath.Ext(hdr.Filename))
}

// HandleCreate handles POST /api/articles. The thumbnail is required.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	defer f.close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	var thumb articlestore.Thumbnail
	if f.thumb != nil {
		thumb = *f.thumb
	}
	a, err := h.Articles.Create(ctx, f.in, thumb)
	if err != nil {
		h.ErrLog.Handle(w, r, "create article", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, a)
}

// HandleUpdate handles POST /api/articles/{ownerType}/{ownerID}/{id}. When
// the owner changes the response carries the article's new identity.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	defer f.close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	t, ownerID, id := identity(r)
	current, err := h.Articles.Get(ctx, t, ownerID, id)
	if err != nil {
		h.ErrLog.Handle(w, r, "load article", err, articlestore.ErrNotFound)
		return
	}
	a, err := h.Articles.Update(ctx, current, f.in, f.thumb)
	if err != nil {
		h.ErrLog.Handle(w, r, "update article", err, articlestore.ErrNotFound)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, a)
}

// HandleDelete handles DELETE /api/articles/{ownerType}/{ownerID}/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, ownerID, id := identity(r)
	if err := h.Articles.Delete(ctx, t, ownerID, id); err != nil {
		h.ErrLog.Handle(w, r, "delete article", err, articlestore.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
