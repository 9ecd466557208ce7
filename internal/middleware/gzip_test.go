package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &buf
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()

	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(res.Body)
		require.NoError(t, err)
		defer zr.Close()
		r = zr
	}

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(body)
}

// echoForm отвечает JSON с полученным значением поля amount.
func echoForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"amount":"` + r.PostForm.Get("amount") + `"}`))
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name            string
		handler         http.HandlerFunc
		method          string
		body            io.Reader
		headers         map[string]string
		status          int
		contentEncoding string
		bodyContains    string
	}{
		{
			name:    "json response compressed",
			handler: echoForm,
			method:  http.MethodPost,
			body:    strings.NewReader("amount=45.00"),
			headers: map[string]string{
				"Accept-Encoding": "gzip, deflate",
				"Content-Type":    "application/x-www-form-urlencoded",
			},
			status:          http.StatusOK,
			contentEncoding: "gzip",
			bodyContains:    `{"amount":"45.00"}`,
		},
		{
			name:    "gzipped form body decompressed",
			handler: echoForm,
			method:  http.MethodPost,
			body:    gzipped(t, "amount=12.50"),
			headers: map[string]string{
				"Content-Encoding": "gzip",
				"Content-Type":     "application/x-www-form-urlencoded",
			},
			status:       http.StatusOK,
			bodyContains: `{"amount":"12.50"}`,
		},
		{
			name: "html login page compressed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<form></form>"))
			},
			method:          http.MethodGet,
			headers:         map[string]string{"Accept-Encoding": "gzip"},
			status:          http.StatusOK,
			contentEncoding: "gzip",
			bodyContains:    "<form></form>",
		},
		{
			name:            "client without gzip gets plain json",
			handler:         echoForm,
			method:          http.MethodGet,
			headers:         map[string]string{},
			status:          http.StatusOK,
			contentEncoding: "",
			bodyContains:    `{"amount":""}`,
		},
		{
			name: "plain text left alone",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Not Found", http.StatusNotFound)
			},
			method:       http.MethodGet,
			headers:      map[string]string{"Accept-Encoding": "gzip"},
			status:       http.StatusNotFound,
			bodyContains: "Not Found",
		},
		{
			name:         "broken gzip body rejected",
			handler:      echoForm,
			method:       http.MethodPost,
			body:         strings.NewReader("not gzip"),
			headers:      map[string]string{"Content-Encoding": "gzip"},
			status:       http.StatusBadRequest,
			bodyContains: "Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/dashboard/invoices", tt.body)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			GzipMiddleware(tt.handler).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			require.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.contentEncoding, res.Header.Get("Content-Encoding"))
			assert.Contains(t, readBody(t, res), tt.bodyContains)
		})
	}
}

func TestGzipMiddleware_RedirectPassesThrough(t *testing.T) {
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard/invoices", http.StatusSeeOther)
	}))

	req := httptest.NewRequest(http.MethodPost, "/dashboard/invoices", strings.NewReader("amount=1"))
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/dashboard/invoices", res.Header.Get("Location"))
	assert.Empty(t, res.Header.Get("Content-Encoding"))
}

func TestGzipMiddleware_EventStreamFlushedUncompressed(t *testing.T) {
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("event: loading\ndata: {}\n\n"))

		f, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("writer %T does not implement http.Flusher", w)
			return
		}
		f.Flush()
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard/invoices/stream", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.True(t, rec.Flushed)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "event: loading\ndata: {}\n\n", rec.Body.String())
}

func TestGzipMiddleware_FlushSendsCompressedChunk(t *testing.T) {
	var before, after int
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"part":1}`))

		sent := w.(*compressWriter).w.(*httptest.ResponseRecorder).Body
		before = sent.Len()
		w.(http.Flusher).Flush()
		after = sent.Len()
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard/invoices", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Greater(t, after, before, "flush must push compressed bytes before the handler returns")
	assert.True(t, rec.Flushed)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	res := rec.Result()
	defer res.Body.Close()
	assert.Equal(t, `{"part":1}`, readBody(t, res))
}
