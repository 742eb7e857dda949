package services

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

var (
	tracer     = otel.Tracer("julianmorley.ca/con-plar/storefront/pkg/services")
	failureKey = attribute.Key("storefront.failure")
)

type Kind int

const (
	NotFound Kind = iota + 1
	ValidationFailed
	UpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ValidationFailed:
		return "validation_failed"
	case UpstreamFailure:
		return "upstream_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure is the error side of a Result. Message is shown to clients as is.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Result carries either a value or a Failure, never both.
type Result[T any] struct {
	Value T
	Err   *Failure
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{Err: &Failure{Kind: kind, Message: message}}
}

func FailWith[T any](f *Failure) Result[T] {
	return Result[T]{Err: f}
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// classify maps store errors onto the failure kinds. notFound is the
// message used for models.ErrNotFound.
func classify(err error, notFound string) *Failure {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &Failure{Kind: NotFound, Message: notFound}
	case errors.Is(err, models.ErrNotInCart):
		return &Failure{Kind: NotFound, Message: models.ErrNotInCart.Error()}
	case errors.Is(err, models.ErrDuplicateCode):
		return &Failure{Kind: ValidationFailed, Message: models.ErrDuplicateCode.Error()}
	default:
		return &Failure{Kind: UpstreamFailure, Message: err.Error()}
	}
}

func record(span trace.Span, f *Failure) {
	if f == nil {
		return
	}
	span.SetStatus(codes.Error, f.Message)
	span.SetAttributes(failureKey.String(f.Kind.String()))
}
