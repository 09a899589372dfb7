package reconcile

import (
	"context"

	"github.com/rs/zerolog/log"
)

// BuildIndex maps each key in the existing data rows to its 1-based sheet
// address. dataOffset is the number of rows above the first data row. Rows
// shorter than Columns are skipped; for duplicate keys the last row wins.
func BuildIndex(dataRows [][]string, dataOffset int) map[Key]int {
	index := make(map[Key]int, len(dataRows))
	for i, row := range dataRows {
		if len(row) < Columns {
			continue
		}
		key := Key{Fund: row[colFund], NAVDate: row[colNAVDate]}
		index[key] = i + dataOffset + 1
	}
	log.Debug().
		Int("rows", len(dataRows)).
		Int("keys", len(index)).
		Msg("Built existing key index")
	return index
}

// Plan decides, for each batch row, whether it overwrites an existing row or
// is appended. existing is the full sheet content; a non-empty sheet's first
// row is the header. An empty sheet gets a header op first.
//
// Appended rows are not indexed, so two batch rows sharing a key against a
// sheet without that key both append.
func Plan(existing [][]string, batch []SheetRow) []Op {
	ops := make([]Op, 0, len(batch)+1)

	var dataRows [][]string
	if len(existing) > 0 {
		dataRows = existing[1:]
	} else {
		ops = append(ops, Op{Kind: OpHeader})
	}

	index := BuildIndex(dataRows, 1)

	for _, row := range batch {
		if addr, ok := index[row.Key()]; ok {
			ops = append(ops, Op{Kind: OpUpdate, Row: addr, Data: row})
			continue
		}
		ops = append(ops, Op{Kind: OpAppend, Data: row})
	}

	return ops
}

// Apply executes ops in order against sink. The first failing write stops the
// batch; the returned Result counts what was applied before it.
func Apply(ctx context.Context, sink Sink, ops []Op) (Result, error) {
	var res Result

	for _, op := range ops {
		switch op.Kind {
		case OpHeader:
			if err := sink.AppendRow(ctx, headerValues()); err != nil {
				return res, &SinkError{Op: "append header", Err: err}
			}
			res.HeaderWritten = true
			log.Debug().Msg("Wrote header row")

		case OpUpdate:
			if err := sink.UpdateRow(ctx, op.Row, op.Data.Values()); err != nil {
				return res, &SinkError{Op: "update", Row: op.Row, Err: err}
			}
			res.Updated++
			log.Debug().
				Int("row", op.Row).
				Str("fund", op.Data.Fund).
				Str("nav_date", op.Data.NAVDate).
				Float64("nav", op.Data.NAV).
				Msg("Updated row")

		case OpAppend:
			if err := sink.AppendRow(ctx, op.Data.Values()); err != nil {
				return res, &SinkError{Op: "append", Err: err}
			}
			res.Appended++
			log.Debug().
				Str("fund", op.Data.Fund).
				Str("nav_date", op.Data.NAVDate).
				Float64("nav", op.Data.NAV).
				Msg("Appended row")
		}
	}

	return res, nil
}

// Sync reads the sink, plans the batch against it and applies the plan.
func Sync(ctx context.Context, sink Sink, batch []SheetRow) (Result, error) {
	existing, err := sink.ReadAll(ctx)
	if err != nil {
		return Result{}, &SinkError{Op: "read", Err: err}
	}
	log.Debug().Int("rows", len(existing)).Msg("Retrieved existing sheet data")

	ops := Plan(existing, batch)
	res, err := Apply(ctx, sink, ops)
	if err != nil {
		log.Error().
			Err(err).
			Int("updated", res.Updated).
			Int("appended", res.Appended).
			Msg("Sheet sync aborted")
		return res, err
	}

	log.Info().
		Int("updated", res.Updated).
		Int("appended", res.Appended).
		Bool("header_written", res.HeaderWritten).
		Msg("Sheet sync complete")

	return res, nil
}

func headerValues() []interface{} {
	values := make([]interface{}, len(Header))
	for i, h := range Header {
		values[i] = h
	}
	return values
}
