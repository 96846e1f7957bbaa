package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	body, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	for i := 0; i < MaxRedirects; i++ {
		next := fmt.Sprintf("/r%d", i+1)
		if i == MaxRedirects-1 {
			next = "/final"
		}
		mux.Handle(fmt.Sprintf("/r%d", i), http.RedirectHandler(next, http.StatusFound))
	}
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL+"/r0")
	require.NoError(t, err)
	assert.Equal(t, "done", body)
}

func TestFetch_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL)

	var se *HTTPStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(Options{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), url)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, url, ne.URL)
}

func TestFetch_TLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer srv.Close()

	// self-signed 인증서 → 기본 설정에서는 실패해야 한다
	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), srv.URL)
	var ne *NetworkError
	require.True(t, errors.As(err, &ne), "expected NetworkError, got %v", err)

	body, err := New(Options{Timeout: time.Second, AllowInsecureTLS: true}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "secure", body)
}
