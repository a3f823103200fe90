package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/sdimg/internal/cache"
	"github.com/jo-hoe/sdimg/internal/catalog"
	"github.com/jo-hoe/sdimg/internal/metadata"
)

const defaultQuality = 75

// Entry is one uploaded image that carried a payload
type Entry struct {
	Path    string `json:"path"`
	Payload string `json:"payload"`
}

// ReadResponse lists the payloads found in a read request
type ReadResponse struct {
	Entries []Entry  `json:"entries"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteRequest holds the form fields of a write request; the image is the "image" file
type WriteRequest struct {
	Payload string `form:"payload"`
	Format  string `form:"format" validate:"required,oneof=png jpeg jpg"`
	Quality string `form:"quality" validate:"omitempty,numeric"`
}

func (s *Server) setRoutes() {
	// Set probe route
	s.echo.GET("/probe", s.handleProbe)

	api := s.echo.Group("/api")
	api.POST("/read", s.handleRead)
	api.POST("/write", s.handleWrite)
	api.GET("/entries", s.handleListEntries)
	api.DELETE("/entries/:id", s.handleDeleteEntry)
}

// handleProbe reports readiness; an enabled catalog must be reachable
func (s *Server) handleProbe(c echo.Context) error {
	if s.catalog != nil && !s.catalog.DoesDatabaseExist() {
		slog.Warn("Server: catalog unreachable")
		return c.String(http.StatusServiceUnavailable, "catalog unavailable")
	}
	return c.String(http.StatusOK, "sdimg is running")
}

func (s *Server) handleRead(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("expected multipart form: %v", err))
	}
	files := form.File["image"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no image uploaded")
	}

	ctx := c.Request().Context()
	resp := ReadResponse{Entries: []Entry{}}
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}
		payload, found, err := cache.Extract(ctx, s.cache, s.codec, fh.Filename, data)
		if err != nil {
			slog.Debug("Server: skipping undecodable upload", "name", fh.Filename, "error", err)
			resp.Errors = append(resp.Errors, err.Error())
			continue
		}
		if found {
			resp.Entries = append(resp.Entries, Entry{Path: fh.Filename, Payload: payload})
		}
	}

	if len(resp.Entries) == 0 {
		return c.JSON(http.StatusNotFound, resp)
	}

	if s.catalog != nil {
		for _, entry := range resp.Entries {
			if _, err := s.catalog.Record(entry.Path, entry.Payload); err != nil {
				slog.Warn("Server: failed to record entry in catalog", "name", entry.Path, "error", err)
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWrite(c echo.Context) error {
	var req WriteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	quality := defaultQuality
	if req.Quality != "" {
		q, err := strconv.Atoi(req.Quality)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid quality: %s", req.Quality))
		}
		quality = q
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image uploaded")
	}
	data, err := readUpload(fh)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	kind := metadata.FormatPNG
	if req.Format != "png" {
		kind = metadata.FormatJPEG
	}

	out, err := s.codec.Encode(fh.Filename, data, req.Payload, kind, quality)
	switch {
	case err == nil:
	case errors.Is(err, metadata.ErrInvalidArgument), errors.Is(err, metadata.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case metadata.IsDecodeError(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fmt.Errorf("failed to embed payload: %w", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", outputName(fh.Filename, kind)))
	return c.Blob(http.StatusOK, contentType(kind), out)
}

// handleListEntries returns the recorded entries, optionally only those of the "path" query parameter
func (s *Server) handleListEntries(c echo.Context) error {
	if s.catalog == nil {
		return echo.NewHTTPError(http.StatusNotFound, "catalog is disabled")
	}

	var (
		entries []*catalog.Entry
		err     error
	)
	if path := c.QueryParam("path"); path != "" {
		entries, err = s.catalog.FindByPath(path)
	} else {
		entries, err = s.catalog.All()
	}
	if err != nil {
		return fmt.Errorf("failed to list catalog entries: %w", err)
	}
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleDeleteEntry(c echo.Context) error {
	if s.catalog == nil {
		return echo.NewHTTPError(http.StatusNotFound, "catalog is disabled")
	}

	id := c.Param("id")
	if err := s.catalog.Delete(id); err != nil {
		if catalog.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("entry %s not found", id))
		}
		return fmt.Errorf("failed to delete catalog entry %s: %w", id, err)
	}
	slog.Info("Server: catalog entry deleted", "id", id)
	return c.NoContent(http.StatusNoContent)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

func contentType(kind metadata.Format) string {
	if kind == metadata.FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

func outputName(uploadName string, kind metadata.Format) string {
	base := strings.TrimSuffix(filepath.Base(uploadName), filepath.Ext(uploadName))
	if base == "" || base == "." {
		base = "image"
	}
	if kind == metadata.FormatPNG {
		return base + ".png"
	}
	return base + ".jpg"
}
