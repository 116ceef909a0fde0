package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrConfiguration      = errors.New("configuration error")
	ErrUpstreamOverloaded = errors.New("upstream overloaded")
	ErrUpstreamEmpty      = errors.New("upstream returned no content")
	ErrUpstream           = errors.New("upstream failure")
	ErrNetwork            = errors.New("network failure")
	ErrTimeout            = errors.New("timed out")
)

// Validation failures the user can correct in the form.
var (
	ErrEmptyQuery    = fmt.Errorf("%w: query is empty", ErrValidation)
	ErrEmptyPassword = fmt.Errorf("%w: password is empty", ErrValidation)
)

// Error envelope codes shared by the gateway and the client.
const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeBadRequest   = "bad_request"
	CodeMethod       = "method_not_allowed"
	CodeConfig       = "configuration"
	CodeOverloaded   = "overloaded"
	CodeEmpty        = "upstream_empty"
	CodeUpstream     = "upstream"
	CodeNetwork      = "network"
	CodeTimeout      = "timeout"
	CodeInternal     = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrValidation, CodeValidation},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrBadRequest, CodeBadRequest},
	{ErrMethodNotAllowed, CodeMethod},
	{ErrConfiguration, CodeConfig},
	{ErrUpstreamOverloaded, CodeOverloaded},
	{ErrUpstreamEmpty, CodeEmpty},
	{ErrUpstream, CodeUpstream},
	{ErrNetwork, CodeNetwork},
	{ErrTimeout, CodeTimeout},
}

// Code returns the envelope code for err, or CodeInternal when err is not
// part of the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode is the inverse of Code. Unknown codes map to ErrUpstream.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return ErrUpstream
}

// Message converts any error into the sentence shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyPassword):
		return "Please enter the password."
	case errors.Is(err, ErrValidation):
		return "Please enter your question."
	case errors.Is(err, ErrUnauthorized):
		return "Incorrect password."
	case errors.Is(err, ErrBadRequest):
		return "The strategist could not read your question. Please rephrase it and try again."
	case errors.Is(err, ErrConfiguration):
		return "Configuration Error: Missing API Key. Please check the GEMINI_API_KEY setting of the gateway."
	case errors.Is(err, ErrUpstreamOverloaded):
		return "The strategist is overwhelmed with requests. Please wait a moment and try again."
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The strategist is taking too long to respond. Please try again or check your connection."
	case errors.Is(err, ErrNetwork):
		return "The strategist cannot be reached. Check your internet connection and try again."
	default:
		return "The strategist is silent. Check your internet connection and try again."
	}
}

// Detail strips the taxonomy prefix, leaving the message that came with
// the error, e.g. "Query is required" for a wrapped ErrBadRequest.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	for _, c := range codes {
		if errors.Is(err, c.err) {
			if rest, ok := strings.CutPrefix(s, c.err.Error()+": "); ok {
				return rest
			}
			break
		}
	}
	return s
}
