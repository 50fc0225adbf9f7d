package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(handlers...)
	router.Any("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(SubjectKey)})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := newEngine(CORS("https://app.test"))

	w := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.test" {
		t.Errorf("Expected configured origin, got %q", got)
	}

	w = serve(router, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}

	w = serve(newEngine(CORS("")), httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin by default, got %q", got)
	}
}

func TestRequestID(t *testing.T) {
	router := newEngine()

	w := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(router, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected inbound request ID to be reused, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	router := newEngine(Recovery())

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Internal server error") {
		t.Errorf("Expected JSON error body, got %s", w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		requests int
		limited  int
	}{
		{name: "Disabled", rps: 0, burst: 0, requests: 5, limited: 0},
		{name: "BurstOfTwo", rps: 0.001, burst: 2, requests: 5, limited: 3},
		{name: "BurstFloor", rps: 0.001, burst: 0, requests: 3, limited: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newEngine(RateLimiter(tt.rps, tt.burst))

			limited := 0
			for i := 0; i < tt.requests; i++ {
				w := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))
				if w.Code == http.StatusTooManyRequests {
					limited++
				}
			}
			if limited != tt.limited {
				t.Errorf("Expected %d limited requests, got %d", tt.limited, limited)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newEngine(SecurityHeaders()), httptest.NewRequest(http.MethodGet, "/ping", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestContentTypeValidation(t *testing.T) {
	router := newEngine(ContentTypeValidation("application/json"))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{name: "GetSkipsValidation", method: http.MethodGet, want: http.StatusOK},
		{name: "Missing", method: http.MethodPost, want: http.StatusBadRequest},
		{name: "Allowed", method: http.MethodPost, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "Unsupported", method: http.MethodPost, contentType: "text/xml", want: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ping", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if w := serve(router, req); w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/bind", func(c *gin.Context) {
		_ = c.Error(io.ErrUnexpectedEOF).SetType(gin.ErrorTypeBind)
	})
	router.GET("/private", func(c *gin.Context) {
		_ = c.Error(io.ErrClosedPipe)
	})

	if w := serve(router, httptest.NewRequest(http.MethodGet, "/bind", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bind error, got %d", w.Code)
	}
	w := serve(router, httptest.NewRequest(http.MethodGet, "/private", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for private error, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), io.ErrClosedPipe.Error()) {
		t.Error("Private error message leaked into response")
	}
}

func TestAuthService(t *testing.T) {
	auth := NewAuthService(&AuthConfig{Secret: "secret"})

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := auth.GenerateToken("deployer")
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			t.Fatalf("ValidateToken failed: %v", err)
		}
		if claims.Subject != "deployer" || claims.Issuer != "serverless-bridge" {
			t.Errorf("Unexpected claims %+v", claims.RegisteredClaims)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthService(&AuthConfig{Secret: "other"})
		token, _ := other.GenerateToken("deployer")
		if _, err := auth.ValidateToken(token); err == nil {
			t.Error("Expected error for token signed with another secret")
		}
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewAuthService(&AuthConfig{Secret: "secret", Issuer: "someone-else"})
		token, _ := other.GenerateToken("deployer")
		if _, err := auth.ValidateToken(token); err == nil {
			t.Error("Expected error for foreign issuer")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		claims := &InvokeClaims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "serverless-bridge",
			Subject:   "deployer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if _, err := auth.ValidateToken(token); err == nil {
			t.Error("Expected error for expired token")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		if NewAuthService(&AuthConfig{}).Enabled() {
			t.Error("Expected service without secret to be disabled")
		}
		var nilService *AuthService
		if nilService.Enabled() {
			t.Error("Expected nil service to be disabled")
		}
	})
}

func TestAuthentication(t *testing.T) {
	auth := NewAuthService(&AuthConfig{Secret: "secret"})
	router := newEngine(Authentication(auth))
	token, _ := auth.GenerateToken("deployer")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "Missing", header: "", want: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "Garbage", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "Valid", header: "Bearer " + token, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(router, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), "deployer") {
				t.Errorf("Expected subject in context, got %s", w.Body.String())
			}
		})
	}

	t.Run("DisabledPassesThrough", func(t *testing.T) {
		w := serve(newEngine(Authentication(nil)), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})
}
