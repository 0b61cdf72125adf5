package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "hello world" {
		t.Errorf("body = %q, want hello world", body)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := NewHTTPFetcher(time.Second)
		f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
		_, err := f.Fetch(context.Background(), srv.URL)
		srv.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		var fe *Error
		if !errors.As(err, &fe) {
			t.Fatalf("status %d: error %T is not a *Error", status, err)
		}
		if fe.Status != status {
			t.Errorf("got status %d in error, want %d", fe.Status, status)
		}
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing is listening anymore

	f := NewHTTPFetcher(time.Second)
	_, err := f.Fetch(context.Background(), url)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error %T is not a *Error", err)
	}
	if fe.Err == nil || fe.Status != 0 {
		t.Errorf("transport failure should carry Err and no status, got %+v", fe)
	}
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	f := NewHTTPFetcher(50 * time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("fetch did not respect its timeout")
	}
}

func TestFetchContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	f := NewHTTPFetcher(time.Minute)
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected cancellation error")
	}
}
