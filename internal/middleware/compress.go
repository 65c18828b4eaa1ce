package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

const defaultCompressMinSize = 1024

var compressibleTypes = []string{
	"application/json",
	"application/javascript",
	"application/xml",
	"image/svg+xml",
	"text/",
}

// Compress brotli-encodes JSON and text responses of at least minSize bytes
// for clients that accept it. Spreadsheets and images are already compressed
// and go out untouched; streams and WebSocket upgrades are never wrapped.
func Compress(quality, minSize int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minSize <= 0 {
		minSize = defaultCompressMinSize
	}

	return func(c *gin.Context) {
		if !wantsBrotli(c) {
			c.Next()
			return
		}
		c.Header("Vary", "Accept-Encoding")

		cw := &compressWriter{ResponseWriter: c.Writer, quality: quality, minSize: minSize}
		c.Writer = cw
		defer func() {
			if err := cw.close(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

func wantsBrotli(c *gin.Context) bool {
	r := c.Request
	if r.Method == http.MethodHead {
		return false
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return false
	}
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

func compressible(contentType string) bool {
	for _, t := range compressibleTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// compressWriter holds the first minSize bytes back so small bodies and
// non-compressible content types can be sent as-is.
type compressWriter struct {
	gin.ResponseWriter
	quality int
	minSize int
	buf     []byte
	br      *brotli.Writer
	decided bool
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if w.decided {
		if w.br != nil {
			return w.br.Write(p)
		}
		return w.ResponseWriter.Write(p)
	}
	w.buf = append(w.buf, p...)
	if len(w.buf) < w.minSize {
		return len(p), nil
	}
	if err := w.decide(true); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *compressWriter) Flush() {
	if !w.decided {
		_ = w.decide(false)
	}
	if w.br != nil {
		_ = w.br.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *compressWriter) decide(large bool) error {
	w.decided = true
	h := w.Header()
	if large && h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type")) {
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		w.br = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
		_, err := w.br.Write(w.buf)
		w.buf = nil
		return err
	}
	var err error
	if len(w.buf) > 0 {
		_, err = w.ResponseWriter.Write(w.buf)
	}
	w.buf = nil
	return err
}

func (w *compressWriter) close() error {
	if !w.decided {
		if err := w.decide(false); err != nil {
			return err
		}
	}
	if w.br != nil {
		return w.br.Close()
	}
	return nil
}
