package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/scandraw/internal/feature"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New("ftp://example.com")
	require.Error(t, err)
	_, err = New("http://")
	require.Error(t, err)
	c, err := New("http://localhost:8000/")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/upload/", c.endpoint("/upload/"))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"message": "Scan-Drawing API is running", "engine": " Qwen 2.5 VL (Cloud) "}`)
	})
	res, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Qwen 2.5 VL (Cloud)", res.Engine)
}

func TestHealthFailsOnNon2xx(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Health(context.Background())
	var se *ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.Status)
}

func TestHealthTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = c.Health(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestHealthHonoursContextTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Health(ctx)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadSendsSingleFilePart(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File, 1)
		files := r.MultipartForm.File["file"]
		assert.Len(t, files, 1)
		assert.Equal(t, "part.pdf", files[0].Filename)
		assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))
		f, err := files[0].Open()
		assert.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4 body", string(data))

		_, _ = io.WriteString(w, `{"results": [
			{"type": "Dimension", "subtype": "Linear", "value": "50", "tolerance": "±0.1", "page": 1, "original_text": "50 ± 0.1"},
			{"type": "GD&T", "subtype": "Position", "value": "Ø0.25", "datum": "A, B", "page": 1, "original_text": "[⌖|Ø0.25|A|B]"}
		]}`)
	})
	c.SetToken("tok")

	got, err := c.Upload(context.Background(), "/tmp/drawings/part.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, feature.KindDimension, got[0].Type)
	require.Equal(t, "A, B", got[1].Datum)
}

func TestUploadErrorMessagePriority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", http.StatusBadRequest, `{"detail": "bad file", "message": "ignored"}`, "bad file"},
		{"message", http.StatusInternalServerError, `{"message": "x"}`, "x"},
		{"list detail", http.StatusUnprocessableEntity, `{"detail": [{"msg": "field required"}, {"msg": "too big"}]}`, "field required; too big"},
		{"neither", http.StatusBadGateway, `<html>oops</html>`, "request failed: 502 Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Upload(context.Background(), "a.png", "image/png", strings.NewReader("x"))
			require.Error(t, err)
			require.Contains(t, ErrorMessage(err), tc.want)
		})
	}
}

func TestUploadMissingResults(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok": true}`)
	})
	_, err := c.Upload(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.ErrorIs(t, err, feature.ErrNoResults)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		switch r.PostForm.Get("username") {
		case "ok@example.com":
			assert.Equal(t, "secret", r.PostForm.Get("password"))
			_, _ = io.WriteString(w, `{"access_token": "abc", "token_type": "bearer"}`)
		case "pending@example.com":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"detail": "Account pending approval by Administrator."}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	tok, err := c.Login(context.Background(), "ok@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "abc", tok)

	_, err = c.Login(context.Background(), "pending@example.com", "secret")
	require.ErrorIs(t, err, ErrAuthPending)
	require.Contains(t, ErrorMessage(err), "pending approval")

	_, err = c.Login(context.Background(), "nobody@example.com", "secret")
	require.ErrorIs(t, err, ErrAuthInvalid)
	require.Equal(t, "Invalid email or password.", ErrorMessage(err))
}

func TestRegister(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "taken@example.com") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail": "Email already registered"}`)
			return
		}
		if strings.Contains(string(body), "broken@example.com") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message": "db down"}`)
			return
		}
		_, _ = io.WriteString(w, `{"email": "new@example.com", "is_active": false}`)
	})

	require.NoError(t, c.Register(context.Background(), "new@example.com", "secret1"))

	err := c.Register(context.Background(), "taken@example.com", "secret1")
	require.Equal(t, "Email already registered", ErrorMessage(err))

	err = c.Register(context.Background(), "broken@example.com", "secret1")
	require.Equal(t, "Registration failed. Try again.", ErrorMessage(err))
}

func TestErrorMessageTransportText(t *testing.T) {
	t.Parallel()

	err := errors.Join(ErrTransport, errors.New("dial tcp: connection refused"))
	require.Contains(t, ErrorMessage(err), "connection refused")
	require.Empty(t, ErrorMessage(nil))
}
