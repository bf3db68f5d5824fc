package offline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// WriteResult reports how a mutation was handled. Queued=true means the
// data was captured locally and will reach the store on the next sync
// pass; callers surface that as "saved, will sync", not as a failure.
type WriteResult struct {
	Queued      bool   `json:"queued"`
	OperationID string `json:"operation_id,omitempty"`
}

// Writer is the universal safety net for mutations: attempt the store
// directly while online, queue on any failure or while offline.
type Writer struct {
	store   Store
	applier OpApplier
	online  func() bool
}

func NewWriter(store Store, applier OpApplier, online func() bool) *Writer {
	return &Writer{store: store, applier: applier, online: online}
}

func (w *Writer) Insert(ctx context.Context, table string, payload map[string]interface{}) (WriteResult, error) {
	return w.write(ctx, table, KindInsert, payload)
}

func (w *Writer) Update(ctx context.Context, table string, payload map[string]interface{}) (WriteResult, error) {
	return w.write(ctx, table, KindUpdate, payload)
}

func (w *Writer) Delete(ctx context.Context, table string, payload map[string]interface{}) (WriteResult, error) {
	return w.write(ctx, table, KindDelete, payload)
}

func (w *Writer) write(ctx context.Context, table string, kind Kind, payload map[string]interface{}) (WriteResult, error) {
	if _, ok := entityKinds[table]; !ok {
		return WriteResult{}, fmt.Errorf("unsupported table %q", table)
	}

	op := Operation{Table: table, Kind: kind, Payload: payload}

	if w.online != nil && w.online() {
		err := w.applier.Apply(ctx, op)
		if err == nil {
			return WriteResult{}, nil
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"table": table,
			"kind":  kind,
		}).Warn("Direct write failed, queueing operation")
	}

	id, err := w.store.Enqueue(ctx, op)
	if err != nil {
		return WriteResult{}, fmt.Errorf("enqueue %s %s: %w", kind, table, err)
	}
	return WriteResult{Queued: true, OperationID: id}, nil
}
