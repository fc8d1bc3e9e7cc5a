// Package asset stores images placed on templates (logos, stamps, signatures).
package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/typeid"
)

const maxUploadSize = 5 << 20 // 5MB

// MaxElementSide bounds the suggested element size in canvas units.
const MaxElementSide = 200

// UploadResponse is returned from the upload endpoint. Element is a ready
// image element sized to fit MaxElementSide; the client places it with an
// element.create operation.
type UploadResponse struct {
	ID      string      `json:"id"`
	URL     string      `json:"url"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Name    string      `json:"name"`
	Element element.Ref `json:"element"`
}

type Handler struct {
	dir string
}

// NewHandler creates a handler storing files in dir.
func NewHandler(dir string) (*Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Handler{dir: dir}, nil
}

// Upload handles POST /assets/upload (multipart form with a "file" field).
// Images are re-encoded as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large (max 5MB)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		writeError(w, http.StatusBadRequest, "only PNG and JPEG images are supported")
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image")
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	if err := h.save(filename, img); err != nil {
		slog.Error("save asset", "error", err, "asset", assetID)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	url := "/assets/" + filename
	src, _ := json.Marshal(map[string]string{"src": url, "fit": "contain"})
	resp := UploadResponse{
		ID:     assetID,
		URL:    url,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Name:   header.Filename,
		Element: element.Ref{
			Kind:    element.KindImage,
			Name:    header.Filename,
			Size:    FitSize(bounds.Dx(), bounds.Dy(), MaxElementSide),
			Visible: true,
			Data:    src,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) save(filename string, img image.Image) error {
	path := filepath.Join(h.dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}

// Serve returns an http.Handler for stored files. Asset ids are unique, so
// files are immutable.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// FitSize scales a w×h pixel image so its longer side is at most maxSide,
// keeping the aspect ratio. Smaller images keep their size.
func FitSize(w, h int, maxSide float64) geometry.Size {
	size := geometry.Size{Width: float64(w), Height: float64(h)}
	longest := max(size.Width, size.Height)
	if longest <= maxSide {
		return size
	}
	scale := maxSide / longest
	return geometry.Size{Width: size.Width * scale, Height: size.Height * scale}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
