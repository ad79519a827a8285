package apierror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sashabaranov/go-openai"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"typed error", apierror.BadRequest("bad"), http.StatusBadRequest},
		{"wrapped typed error", fmt.Errorf("ctx: %w", apierror.Forbidden("no")), http.StatusForbidden},
		{"expired token", fmt.Errorf("parse: %w", jwt.ErrTokenExpired), http.StatusUnauthorized},
		{"malformed token", jwt.ErrTokenMalformed, http.StatusUnauthorized},
		{"no documents", mongo.ErrNoDocuments, http.StatusNotFound},
		{"ai rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, http.StatusTooManyRequests},
		{"ai other", &openai.APIError{HTTPStatusCode: 500, Message: "boom"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apierror.Classify(tt.err)
			if got.StatusCode != tt.status {
				t.Errorf("Classify(%v) status = %d, want %d", tt.err, got.StatusCode, tt.status)
			}
		})
	}
}

func TestWrite_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	apierror.Write(rec, zap.NewNop(), apierror.BadRequest("Task already completed"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var env apierror.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Error("success should be false")
	}
	if env.StatusCode != http.StatusBadRequest {
		t.Errorf("statusCode = %d", env.StatusCode)
	}
	if env.Message != "Task already completed" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestWrite_RateLimitSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	apierror.Write(rec, zap.NewNop(), &openai.APIError{HTTPStatusCode: 429})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	apierror.OK(rec, "done", map[string]string{"id": "1"})

	var env apierror.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.StatusCode != http.StatusOK || env.Message != "done" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}
