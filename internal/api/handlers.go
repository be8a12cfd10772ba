package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/efebarandurmaz/docqa/internal/extract"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/resolve"
)

// Handler serves the ingestion and query endpoints.
type Handler struct {
	extractor Extractor
	ingester  Ingester
	resolver  Resolver
	maxUpload int64
	logger    *slog.Logger
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
}

// POST /upload
// Multipart form with one "file" field. Replaces everything stored for the
// file name and makes it the latest source.
func (h *Handler) Upload(c *gin.Context) {
	h.limitBody(c)
	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		h.fail(c, badRequest(`multipart field "file" is required`))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	name := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	src, pairs, err := h.extractor.Extract(name, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.store(c, src, pairs)
}

// POST /cms
// Any JSON document. Stored under the "cms" source.
func (h *Handler) CMS(c *gin.Context) {
	h.limitBody(c)
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if tooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		h.fail(c, badRequest("reading request body: "+err.Error()))
		return
	}
	if !json.Valid(data) {
		h.fail(c, badRequest("request body is not valid JSON"))
		return
	}
	src, pairs, err := h.extractor.ExtractCMS(data)
	if err != nil {
		h.fail(c, badRequest(err.Error()))
		return
	}
	h.store(c, src, pairs)
}

func (h *Handler) store(c *gin.Context, src ingest.Source, pairs []extract.Pair) {
	res, err := h.ingester.Ingest(c.Request.Context(), src, pairs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /query
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("invalid query body: "+err.Error()))
		return
	}
	h.answer(c, req)
}

// GET /query?q=...&source=...
func (h *Handler) QueryGet(c *gin.Context) {
	h.answer(c, QueryRequest{Query: c.Query("q"), Source: c.Query("source")})
}

func (h *Handler) answer(c *gin.Context, req QueryRequest) {
	if strings.TrimSpace(req.Query) == "" {
		h.fail(c, badRequest("query is required"))
		return
	}

	var (
		ans resolve.Answer
		err error
	)
	if req.Source != "" {
		ans, err = h.resolver.ResolveIn(c.Request.Context(), req.Query, req.Source)
	} else {
		ans, err = h.resolver.Resolve(c.Request.Context(), req.Query)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (h *Handler) limitBody(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	respondError(c, status, err)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
