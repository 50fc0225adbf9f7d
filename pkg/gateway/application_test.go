package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func invokeHandler(t *testing.T, h http.HandlerFunc, req *Request) (*Emitted, error) {
	t.Helper()
	if req == nil {
		req = &Request{Method: "GET", Path: "/"}
	}
	call, err := NewCallContext(req, DefaultServerInfo)
	if err != nil {
		t.Fatalf("NewCallContext failed: %v", err)
	}
	return NewHandlerApplication(h).Invoke(context.Background(), call)
}

func TestHandlerApplication(t *testing.T) {
	t.Run("RecordsStatusHeadersAndChunks", func(t *testing.T) {
		emitted, err := invokeHandler(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "a=1")
			w.Header().Add("Set-Cookie", "b=2")
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, "hello ")
			_, _ = io.WriteString(w, "world")
			// Mutations after the status line are not part of the response
			w.Header().Set("X-Late", "1")
		}, nil)
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}

		if emitted.StatusCode != http.StatusCreated {
			t.Errorf("Expected 201, got %d", emitted.StatusCode)
		}
		wantHeaders := []HeaderPair{
			{Name: "Content-Type", Value: "text/plain"},
			{Name: "Set-Cookie", Value: "a=1"},
			{Name: "Set-Cookie", Value: "b=2"},
		}
		if diff := cmp.Diff(wantHeaders, emitted.Headers); diff != "" {
			t.Errorf("Headers mismatch (-want +got):\n%s", diff)
		}
		wantChunks := [][]byte{[]byte("hello "), []byte("world")}
		if diff := cmp.Diff(wantChunks, emitted.Chunks); diff != "" {
			t.Errorf("Chunks mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ImplicitOK", func(t *testing.T) {
		emitted, err := invokeHandler(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if emitted.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", emitted.StatusCode)
		}
	})

	t.Run("SeesRequestBody", func(t *testing.T) {
		req := &Request{Method: "POST", Path: "/echo", Body: TextBody("ping")}
		emitted, err := invokeHandler(t, func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			_, _ = w.Write(data)
		}, req)
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if string(emitted.Chunks[0]) != "ping" {
			t.Errorf("Expected ping, got %q", emitted.Chunks[0])
		}
	})

	t.Run("SecondWriteHeaderFails", func(t *testing.T) {
		_, err := invokeHandler(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.WriteHeader(http.StatusTeapot)
		}, nil)
		if !errors.Is(err, ErrResponseAlreadyStarted) {
			t.Errorf("Expected ErrResponseAlreadyStarted, got %v", err)
		}
		if KindOf(err) != KindApplication {
			t.Errorf("Expected application kind, got %s", KindOf(err))
		}
	})

	t.Run("PanicBecomesError", func(t *testing.T) {
		_, err := invokeHandler(t, func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}, nil)
		if !errors.Is(err, ErrApplicationPanic) {
			t.Fatalf("Expected ErrApplicationPanic, got %v", err)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Errorf("Expected panic value in error, got %v", err)
		}
	})

	t.Run("NilHandler", func(t *testing.T) {
		call, _ := NewCallContext(&Request{Method: "GET", Path: "/"}, DefaultServerInfo)
		_, err := (&HandlerApplication{}).Invoke(context.Background(), call)
		if !errors.Is(err, ErrNoApplication) {
			t.Errorf("Expected ErrNoApplication, got %v", err)
		}
	})
}
