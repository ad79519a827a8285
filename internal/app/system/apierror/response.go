// internal/app/system/apierror/response.go
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sashabaranov/go-openai"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
}

// defaultRetryAfter is suggested when the AI provider rate-limits us without
// saying how long to wait.
const defaultRetryAfter = 30 * time.Second

// OK writes a success envelope with status 200.
func OK(w http.ResponseWriter, msg string, data any) {
	JSON(w, http.StatusOK, msg, data)
}

// Created writes a success envelope with status 201.
func Created(w http.ResponseWriter, msg string, data any) {
	JSON(w, http.StatusCreated, msg, data)
}

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, msg string, data any) {
	writeEnvelope(w, Envelope{Message: msg, StatusCode: status, Success: true, Data: data})
}

// Write is the centralized error writer. Every handler hands its errors here.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	e := Classify(err)
	if e.StatusCode >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	if e.StatusCode == http.StatusTooManyRequests {
		if d, ok := e.Data.(map[string]any); ok {
			if secs, ok := d["retryAfter"].(int); ok {
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
		}
	}
	writeEnvelope(w, Envelope{Message: e.Message, StatusCode: e.StatusCode, Data: e.Data})
}

// Classify maps any error onto an *Error. Identity-token and AI-provider
// failures get their own statuses; unknown errors become a generic 500.
func Classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Unauthorized("Session expired, please sign in again")
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return Unauthorized("Invalid session token")
	case errors.Is(err, mongo.ErrNoDocuments):
		return NotFound("Resource not found")
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		if oaiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return TooManyRequests("AI provider rate limit reached, try again later").
				WithData(map[string]any{"retryAfter": int(defaultRetryAfter.Seconds())})
		}
		return New(http.StatusBadGateway, "AI provider request failed")
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return TooManyRequests("AI provider rate limit reached, try again later").
				WithData(map[string]any{"retryAfter": int(defaultRetryAfter.Seconds())})
		}
		return New(http.StatusBadGateway, "AI provider request failed")
	}

	return Internal("Internal server error")
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
