package backend

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

const tracerName = "github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"

type traced struct {
	next   Store
	tracer trace.Tracer
	kind   string
}

// Traced wraps s so that every call records a span named after the operation.
func Traced(s Store, kind string) Store {
	return &traced{next: s, tracer: otel.Tracer(tracerName), kind: kind}
}

func (t *traced) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("backend.kind", t.kind))
	return t.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *traced) ListProducts(ctx context.Context, page model.Page) ([]model.Product, int, error) {
	ctx, span := t.start(ctx, "ListProducts",
		attribute.Int("page.offset", page.Offset),
		attribute.Int("page.limit", page.Limit),
	)
	products, total, err := t.next.ListProducts(ctx, page)
	span.SetAttributes(attribute.Int("products.returned", len(products)), attribute.Int("products.total", total))
	end(span, err)
	return products, total, err
}

func (t *traced) InsertWaitlist(ctx context.Context, entry model.WaitlistEntry) error {
	ctx, span := t.start(ctx, "InsertWaitlist",
		attribute.Int64("product.id", entry.ProductID),
		attribute.String("product.size", entry.Size),
	)
	err := t.next.InsertWaitlist(ctx, entry)
	end(span, err)
	return err
}

func (t *traced) Ping(ctx context.Context) error {
	ctx, span := t.start(ctx, "Ping")
	err := t.next.Ping(ctx)
	end(span, err)
	return err
}

func (t *traced) Close() error { return t.next.Close() }
