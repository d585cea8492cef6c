package httpkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubVerifier struct {
	principal Principal
	err       error
}

func (s stubVerifier) VerifyToken(raw string) (Principal, error) {
	if raw != "good" {
		return Principal{}, errors.New("bad token")
	}
	return s.principal, s.err
}

func newTestEngine(verifier TokenVerifier, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/secure", AuthRequired(verifier), RequireRole(roles...), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id.UserID().String(), "role": id.Role()})
	})
	return engine
}

func TestAuthRequiredRejectsMissingAndInvalidTokens(t *testing.T) {
	engine := newTestEngine(stubVerifier{}, "customer")

	for _, header := range []string{"", "Bearer ", "Bearer nope", "Token good"} {
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireRoleChecksPrincipalRole(t *testing.T) {
	userID := uuid.New()
	engine := newTestEngine(stubVerifier{principal: Principal{UserID: userID, Role: "customer"}}, "technician", "admin")

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on technician route, got %d", rec.Code)
	}
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID := uuid.New()
	engine := newTestEngine(stubVerifier{principal: Principal{UserID: userID, Role: "admin"}}, "admin")

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["user"] != userID.String() || body["role"] != "admin" {
		t.Fatalf("unexpected identity %v", body)
	}
}

func TestHandleErrorMapsKindsToCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("confirm: %w", apperr.PaymentNotVerified("booking fee not settled")), http.StatusUnprocessableEntity, "payment_not_verified"},
		{apperr.AlreadyInspected("inspection exists"), http.StatusConflict, "already_inspected"},
		{errors.New("driver exploded"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		if !HandleError(c, tc.err) {
			t.Fatalf("expected error to be handled")
		}
		if rec.Code != tc.wantStatus {
			t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
		}
		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tc.wantCode {
			t.Fatalf("expected code %q, got %q", tc.wantCode, body.Code)
		}
	}
}

func TestRequestLoggerReportsInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	engine := gin.New()
	engine.Use(RequestLogger(log))
	engine.GET("/broken", func(c *gin.Context) { HandleError(c, errors.New("connection refused")) })
	engine.GET("/missing", func(c *gin.Context) { HandleError(c, apperr.NotFound("appointment not found")) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))
	out := buf.String()
	if !strings.Contains(out, `"msg":"http_error"`) || !strings.Contains(out, "connection refused") {
		t.Fatalf("expected an http_error line with the cause, got %s", out)
	}

	buf.Reset()
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	out = buf.String()
	if !strings.Contains(out, `"msg":"http_request"`) || strings.Contains(out, "http_error") {
		t.Fatalf("expected a plain request line for a 404, got %s", out)
	}
}
