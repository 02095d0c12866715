// Package apperr carries machine-readable error codes through the service and
// maps them onto HTTP statuses at the boundary.
package apperr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is a dotted identifier whose last segment is the failure reason.
type Code string

const (
	CodeRequestInvalid    Code = "request.invalid"
	CodeAuthUnauthorized  Code = "auth.token.unauthorized"
	CodeAuthForbidden     Code = "auth.subject.forbidden"
	CodeIdentityInvalid   Code = "auth.identity.invalid"
	CodeProfileNotFound   Code = "store.profile.not_found"
	CodeUserNotFound      Code = "store.user.not_found"
	CodeStoreInvalidInput Code = "store.field.invalid_input"
	CodeStoreDatabase     Code = "store.database.failure"
	CodeProviderConfig    Code = "provider.config.invalid"
	CodeProviderUpstream  Code = "provider.upstream.failure"
	CodeProviderTimeout   Code = "provider.upstream.timeout"
	CodeProviderResponse  Code = "provider.response.invalid"
	CodeExportFailure     Code = "export.render.failure"
	CodeInternal          Code = "server.internal.failure"
)

func New(code Code, msg string, kv ...any) error {
	return oops.Code(code).With(kv...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(kv...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

// FieldsOf returns the structured context attached along the error chain.
func FieldsOf(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func HTTPStatus(err error) int {
	code := CodeOf(err)
	switch reason(code) {
	case "not_found":
		return http.StatusNotFound
	case "invalid", "invalid_input":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "timeout":
		return http.StatusGatewayTimeout
	}
	if strings.HasPrefix(string(code), "provider.") {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func reason(code Code) string {
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
