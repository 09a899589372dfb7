package processing

import (
	"context"

	"fmarket_nav/internal/bound"
	"fmarket_nav/internal/config"
	"fmarket_nav/internal/reconcile"
)

// boundedSink applies the read and write bounds of a ResilienceConfig to
// every call of the wrapped sink.
type boundedSink struct {
	sink       reconcile.Sink
	resilience config.ResilienceConfig
}

func (b boundedSink) ReadAll(ctx context.Context) ([][]string, error) {
	return bound.Call(ctx, b.resilience.SheetRead, b.sink.ReadAll)
}

func (b boundedSink) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	return bound.Do(ctx, b.resilience.SheetWrite, func(ctx context.Context) error {
		return b.sink.UpdateRow(ctx, row, values)
	})
}

func (b boundedSink) AppendRow(ctx context.Context, values []interface{}) error {
	return bound.Do(ctx, b.resilience.SheetWrite, func(ctx context.Context) error {
		return b.sink.AppendRow(ctx, values)
	})
}
