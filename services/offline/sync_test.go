package offline

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeApplier records replayed operations and can fail selected ones.
type fakeApplier struct {
	applied []Operation
	failIDs map[string]bool
}

func (f *fakeApplier) Apply(_ context.Context, op Operation) error {
	if f.failIDs[op.ID] {
		return fmt.Errorf("remote rejected operation %s", op.ID)
	}
	f.applied = append(f.applied, op)
	return nil
}

func enqueueAt(t *testing.T, store Store, id string, ts time.Time, table string, kind Kind, payload map[string]interface{}) {
	t.Helper()
	if _, err := store.Enqueue(context.Background(), Operation{
		ID:        id,
		Table:     table,
		Kind:      kind,
		Payload:   payload,
		Timestamp: ts,
	}); err != nil {
		t.Fatalf("enqueue %s: %v", id, err)
	}
}

func TestMemoryStoreOrdersByTimestamp(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Enqueue out of order on purpose.
	enqueueAt(t, store, "b", base.Add(2*time.Second), TablePayments, KindUpdate, map[string]interface{}{"student_id": 1, "month": "2025-03"})
	enqueueAt(t, store, "a", base, TablePayments, KindInsert, map[string]interface{}{"student_id": 1, "month": "2025-03"})
	enqueueAt(t, store, "c", base.Add(4*time.Second), TableAttendance, KindDelete, map[string]interface{}{"id": 9})

	ops, err := store.ListUnsynced(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}
	for i, want := range []string{"a", "b", "c"} {
		if ops[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, ops[i].ID)
		}
	}
}

func TestMemoryStoreBreaksTimestampTiesByID(t *testing.T) {
	store := NewMemoryStore()
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Same instant; map iteration order must not leak into replay order.
	enqueueAt(t, store, "op-c", ts, TableAttendance, KindInsert, map[string]interface{}{"student_id": 3, "date": "2025-03-10"})
	enqueueAt(t, store, "op-a", ts, TableAttendance, KindInsert, map[string]interface{}{"student_id": 1, "date": "2025-03-10"})
	enqueueAt(t, store, "op-b", ts, TableAttendance, KindInsert, map[string]interface{}{"student_id": 2, "date": "2025-03-10"})

	for attempt := 0; attempt < 5; attempt++ {
		ops, err := store.ListUnsynced(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i, want := range []string{"op-a", "op-b", "op-c"} {
			if ops[i].ID != want {
				t.Fatalf("attempt %d position %d: expected %s, got %s", attempt, i, want, ops[i].ID)
			}
		}
	}
}

func TestMemoryStoreMarkAndPurge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	enqueueAt(t, store, "a", base, TableAttendance, KindInsert, map[string]interface{}{"student_id": 1, "date": "2025-03-10"})
	enqueueAt(t, store, "b", base.Add(time.Second), TableAttendance, KindInsert, map[string]interface{}{"student_id": 2, "date": "2025-03-10"})

	if err := store.MarkSynced(ctx, "a"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	count, err := store.CountUnsynced(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unsynced after mark, got %d", count)
	}

	// Purging twice must be safe.
	if err := store.PurgeSynced(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if err := store.PurgeSynced(ctx); err != nil {
		t.Fatalf("second purge: %v", err)
	}

	ops, err := store.ListUnsynced(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "b" {
		t.Fatalf("expected only b to remain, got %v", ops)
	}
}

func TestSyncAllReplaysInOrderAndDrainsQueue(t *testing.T) {
	store := NewMemoryStore()
	applier := &fakeApplier{}
	engine := NewEngine(store, applier, func() bool { return true })
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// insert A, update A, delete B — causal order must be preserved.
	enqueueAt(t, store, "op1", base, TableAttendance, KindInsert, map[string]interface{}{"student_id": 1, "date": "2025-03-10", "present": true})
	enqueueAt(t, store, "op2", base.Add(time.Second), TableAttendance, KindUpdate, map[string]interface{}{"student_id": 1, "date": "2025-03-10", "present": false})
	enqueueAt(t, store, "op3", base.Add(2*time.Second), TablePayments, KindDelete, map[string]interface{}{"id": 7})

	report := engine.SyncAll(context.Background())
	if report.Skipped {
		t.Fatalf("unexpected skip: %s", report.SkipReason)
	}
	if report.SuccessCount != 3 || report.FailCount != 0 {
		t.Fatalf("expected 3/0, got %d/%d", report.SuccessCount, report.FailCount)
	}
	if len(applier.applied) != 3 {
		t.Fatalf("expected 3 applied operations, got %d", len(applier.applied))
	}
	for i, want := range []string{"op1", "op2", "op3"} {
		if applier.applied[i].ID != want {
			t.Fatalf("replay position %d: expected %s, got %s", i, want, applier.applied[i].ID)
		}
	}

	count, err := store.CountUnsynced(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue after sync, got %d", count)
	}
	if engine.LastSync().IsZero() {
		t.Fatal("expected last-sync timestamp to be recorded")
	}
}

func TestSyncAllFailureKeepsOperationQueued(t *testing.T) {
	store := NewMemoryStore()
	applier := &fakeApplier{failIDs: map[string]bool{"bad": true}}
	engine := NewEngine(store, applier, func() bool { return true })
	base := time.Now().UTC()

	enqueueAt(t, store, "good", base, TableAttendance, KindInsert, map[string]interface{}{"student_id": 1, "date": "2025-03-10"})
	enqueueAt(t, store, "bad", base.Add(time.Second), TablePayments, KindInsert, map[string]interface{}{"student_id": 1, "month": "2025-03"})
	enqueueAt(t, store, "after", base.Add(2*time.Second), TableAttendance, KindInsert, map[string]interface{}{"student_id": 2, "date": "2025-03-10"})

	report := engine.SyncAll(context.Background())
	if report.SuccessCount != 2 || report.FailCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", report.SuccessCount, report.FailCount)
	}

	// One failure must not abort the rest of the queue.
	if len(applier.applied) != 2 {
		t.Fatalf("expected 2 applied, got %d", len(applier.applied))
	}

	ops, err := store.ListUnsynced(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "bad" {
		t.Fatalf("expected bad to remain queued, got %v", ops)
	}

	// The next pass retries it.
	applier.failIDs = nil
	report = engine.SyncAll(context.Background())
	if report.SuccessCount != 1 {
		t.Fatalf("expected retry to succeed, got %+v", report)
	}
}

func TestSyncAllSkipsWhileOffline(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, &fakeApplier{}, func() bool { return false })

	report := engine.SyncAll(context.Background())
	if !report.Skipped || report.SkipReason != "offline" {
		t.Fatalf("expected offline skip, got %+v", report)
	}
}

func TestWriterFallsBackToQueueOnFailure(t *testing.T) {
	store := NewMemoryStore()
	applier := &fakeApplier{failIDs: map[string]bool{"": true}} // fail every direct write (ops have no ID yet)
	online := true
	writer := NewWriter(store, applier, func() bool { return online })
	ctx := context.Background()

	// Online but store rejects: operation must be captured, not surfaced.
	res, err := writer.Insert(ctx, TablePayments, map[string]interface{}{"student_id": 1, "month": "2025-03", "paid": true})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !res.Queued || res.OperationID == "" {
		t.Fatalf("expected queued result, got %+v", res)
	}

	// Offline: straight to the queue without touching the applier.
	online = false
	applierCalls := len(applier.applied)
	res, err = writer.Update(ctx, TablePayments, map[string]interface{}{"student_id": 1, "month": "2025-03", "paid": false})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.Queued {
		t.Fatalf("expected queued result, got %+v", res)
	}
	if len(applier.applied) != applierCalls {
		t.Fatal("offline write must not hit the store")
	}

	count, err := store.CountUnsynced(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 queued operations, got %d", count)
	}

	// Unknown tables are rejected outright.
	if _, err := writer.Insert(ctx, "mystery_table", map[string]interface{}{"id": 1}); err == nil {
		t.Fatal("expected error for unsupported table")
	}
}

func TestConcurrentSyncGuard(t *testing.T) {
	store := NewMemoryStore()
	block := make(chan struct{})
	applier := &blockingApplier{release: block, started: make(chan struct{})}
	engine := NewEngine(store, applier, func() bool { return true })

	enqueueAt(t, store, "slow", time.Now().UTC(), TableAttendance, KindInsert, map[string]interface{}{"student_id": 1, "date": "2025-03-10"})

	done := make(chan Report, 1)
	go func() { done <- engine.SyncAll(context.Background()) }()

	<-applier.started
	second := engine.SyncAll(context.Background())
	if !second.Skipped || second.SkipReason != "sync already in progress" {
		t.Fatalf("expected in-progress skip, got %+v", second)
	}

	close(block)
	first := <-done
	if first.SuccessCount != 1 {
		t.Fatalf("expected first pass to complete, got %+v", first)
	}
}

type blockingApplier struct {
	release <-chan struct{}
	started chan struct{}
	once    bool
}

func (b *blockingApplier) Apply(_ context.Context, _ Operation) error {
	if !b.once {
		b.once = true
		close(b.started)
	}
	<-b.release
	return nil
}
