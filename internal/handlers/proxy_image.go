package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxProxyImage    = 20 << 20
)

// ProxyImage downloads ?url and hands it back as an attachment so the
// browser can save generated images hosted on other origins.
func (h *Handler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	raw := queryParam(r, "url")
	if raw == "" {
		writeAppError(w, apperr.NewValidation("url", "URL is required"), "")
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeAppError(w, apperr.NewValidation("url", "URL must be an absolute http(s) URL"), "")
		return
	}

	data, contentType, err := h.fetchImage(r, u.String())
	if err != nil {
		log.Printf("[ProxyImage] error url=%s err=%v", u.Redacted(), err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="generated-image.jpg"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fetchImage(r *http.Request, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	res, err := h.imageClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("Failed to fetch image: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", fmt.Errorf("Failed to fetch image: %s", http.StatusText(res.StatusCode))
	}
	ct := res.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("Invalid content type: %s", ct)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxProxyImage+1))
	if err != nil {
		return nil, "", fmt.Errorf("Failed to fetch image: %v", err)
	}
	if len(data) > maxProxyImage {
		return nil, "", fmt.Errorf("Image is larger than %d bytes", maxProxyImage)
	}
	return data, ct, nil
}
