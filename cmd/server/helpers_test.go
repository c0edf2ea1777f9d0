package main

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/damacus/iron-transfer/internal/config"
	"github.com/damacus/iron-transfer/internal/middleware"
	"github.com/damacus/iron-transfer/internal/services"
	"github.com/damacus/iron-transfer/internal/session"
	"github.com/damacus/iron-transfer/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: storage.BackendMemory, Bucket: "files", Folder: "uploads/"},
		Session: config.SessionConfig{Backend: session.BackendMemory, TTL: time.Hour},
		Upload:  config.UploadConfig{MaxBytes: 1 << 20},
	}
}

func newTestServer(store storage.Store) *echo.Echo {
	return newServer(store, session.NewMemoryStore(time.Hour), services.NewCookieSealer(""), testConfig())
}

// browser keeps cookies between requests and sends htmx POSTs with the
// CSRF token, the way the pages do.
type browser struct {
	t       *testing.T
	e       *echo.Echo
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, e *echo.Echo) *browser {
	return &browser{t: t, e: e, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}
	if req.Method == http.MethodPost {
		req.Header.Set("HX-Request", "true")
		if token, ok := b.cookies[middleware.CSRFCookieName]; ok {
			req.Header.Set("X-CSRF-Token", token.Value)
		}
	}

	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) upload(name, content string) *httptest.ResponseRecorder {
	b.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(b.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return b.do(req)
}
