// Adapts typed handler functions to http.Handler.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/jsonstore/internal/server/dto"
	"github.com/maruel/jsonstore/internal/server/ratelimit"
)

// Config is the per-request configuration shared by all wrapped handlers.
type Config struct {
	// Version is reported by the health endpoint.
	Version string
	// MaxRequestBodyBytes limits request bodies. 0 means unlimited.
	MaxRequestBodyBytes int64
	// RateLimits maps requests to limiters. nil disables rate limiting.
	RateLimits *ratelimit.Config
}

// statusCoder is implemented by responses that are not 200 OK.
type statusCoder interface {
	HTTPStatus() int
}

// locator is implemented by responses that set the Location header.
type locator interface {
	Location() string
}

// Wrap wraps a handler function to work as an http.Handler.
//
// The function must have signature func(context.Context, *In) (*Out, error)
// and *In must implement dto.Validatable. The request body is decoded as JSON
// into In, then fields tagged path:"name" and query:"name" are populated.
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var ok bool
		if w, ok = checkRateLimit(w, r, cfg); !ok {
			return
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg) {
			return
		}
		if err := populatePathParams(r, input); err != nil {
			handleValidationError(ctx, w, err)
			return
		}
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// checkRateLimit consumes a token for the client and wraps the response
// writer with the rate limit headers. Returns false if the request was
// rejected and the response written.
func checkRateLimit(w http.ResponseWriter, r *http.Request, cfg *Config) (http.ResponseWriter, bool) {
	if cfg == nil {
		return w, true
	}
	tier := cfg.RateLimits.Match(r.Method, r.URL.Path)
	if tier == nil {
		return w, true
	}
	result := tier.Limiter.Allow(ratelimit.Key(tier, ClientIP(r)))
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		slog.WarnContext(r.Context(), "Rate limited", "tier", tier.Name, "ip", ClientIP(r))
		apiErr := dto.RateLimitExceeded(int(result.RetryAfter.Seconds()))
		writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
		return w, false
	}
	return w, true
}

// readAndDecodeBody reads the request body with size limit and decodes JSON
// into input. Returns false if an error occurred and was written to the
// response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *Config) bool {
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			apiErr := dto.PayloadTooLarge(maxBytesErr.Limit)
			writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		apiErr := dto.BadRequest("failed to read request body")
		writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	d := json.NewDecoder(bytes.NewReader(body))
	d.DisallowUnknownFields()
	if err := d.Decode(input); err != nil {
		slog.WarnContext(ctx, "Failed to decode request body", "err", err)
		writeErrorResponseWithCode(w, http.StatusBadRequest, dto.ErrorCodeInvalidFormat, "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		var ewsErr dto.ErrorWithStatus
		if !errors.As(err, &ewsErr) {
			ewsErr = dto.Internal("internal error")
		}
		statusCode := ewsErr.StatusCode()
		errorCode := ewsErr.Code()
		message := ewsErr.Error()
		details := ewsErr.Details()
		if details == nil {
			details = make(map[string]any)
		}
		if statusCode >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		} else {
			slog.DebugContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		}
		writeErrorResponseWithCode(w, statusCode, errorCode, message, details)
		return
	}

	status := http.StatusOK
	if s, ok := any(output).(statusCoder); ok {
		status = s.HTTPStatus()
	}
	if l, ok := any(output).(locator); ok {
		w.Header().Set("Location", l.Location())
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// populatePathParams sets fields tagged path:"name" from r.PathValue. Fields
// implementing encoding.TextUnmarshaler, like uuid.UUID, are parsed and a
// parse failure is reported as INVALID_FORMAT.
func populatePathParams(r *http.Request, input any) error {
	elem, ok := structElem(input)
	if !ok {
		return nil
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := r.PathValue(tag)
		if paramValue == "" {
			continue
		}
		if !setField(elem.Field(i), paramValue) {
			return dto.InvalidFormat(tag, paramValue)
		}
	}
	return nil
}

// populateQueryParams sets fields tagged query:"name" from the URL query.
// Malformed values leave the field unset.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structElem(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		if paramValue := query.Get(tag); paramValue != "" {
			setField(elem.Field(i), paramValue)
		}
	}
}

func structElem(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return val.Elem(), true
}

// setField assigns s to v according to v's type. Returns false if s could not
// be parsed.
func setField(v reflect.Value, s string) bool {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s)) == nil
		}
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return false
		}
		v.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false
		}
		v.SetBool(b)
	default:
		return false
	}
	return true
}

func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	details := make(map[string]any)

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		if d := ewsErr.Details(); d != nil {
			details = d
		}
	}
	slog.DebugContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error:   dto.ErrorDetails{Code: code, Message: message},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
