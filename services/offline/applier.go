package offline

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Supported target tables. The set is closed: an operation naming any
// other table is rejected instead of being dispatched dynamically.
const (
	TableStudents          = "students"
	TableAttendance        = "attendance_records"
	TablePayments          = "payments"
	TableExamResults       = "exam_results"
	TableLessonSheets      = "lesson_sheets"
	TableLessonRecitations = "lesson_recitations"
)

// entityKind describes how rows of one table are addressed during replay.
// naturalKey identifies a row when the payload carries no database id,
// which is the normal case for entities created while offline.
type entityKind struct {
	table      string
	naturalKey []string
}

var entityKinds = map[string]entityKind{
	TableStudents:          {table: TableStudents, naturalKey: []string{"code"}},
	TableAttendance:        {table: TableAttendance, naturalKey: []string{"student_id", "date"}},
	TablePayments:          {table: TablePayments, naturalKey: []string{"student_id", "month"}},
	TableExamResults:       {table: TableExamResults, naturalKey: []string{"exam_id", "student_id"}},
	TableLessonSheets:      {table: TableLessonSheets, naturalKey: []string{"lesson_id", "student_id"}},
	TableLessonRecitations: {table: TableLessonRecitations, naturalKey: []string{"lesson_id", "student_id"}},
}

// OpApplier replays one queued operation against the authoritative store.
type OpApplier interface {
	Apply(ctx context.Context, op Operation) error
}

// Applier replays operations with GORM. One handler per operation kind;
// the database's uniqueness constraints remain the conflict arbiter.
type Applier struct {
	db *gorm.DB
}

func NewApplier(db *gorm.DB) *Applier {
	return &Applier{db: db}
}

func (a *Applier) Apply(ctx context.Context, op Operation) error {
	kind, ok := entityKinds[op.Table]
	if !ok {
		return fmt.Errorf("unsupported table %q", op.Table)
	}
	switch op.Kind {
	case KindInsert:
		return a.applyInsert(ctx, kind, op)
	case KindUpdate:
		return a.applyUpdate(ctx, kind, op)
	case KindDelete:
		return a.applyDelete(ctx, kind, op)
	default:
		return fmt.Errorf("unsupported operation kind %q", op.Kind)
	}
}

func (a *Applier) applyInsert(ctx context.Context, kind entityKind, op Operation) error {
	values := clonePayload(op.Payload)
	delete(values, "id") // the store assigns ids
	if len(values) == 0 {
		return fmt.Errorf("empty payload for insert into %s", kind.table)
	}
	return a.db.WithContext(ctx).Table(kind.table).Create(values).Error
}

func (a *Applier) applyUpdate(ctx context.Context, kind entityKind, op Operation) error {
	values := clonePayload(op.Payload)
	delete(values, "id")

	tx, err := a.scope(ctx, kind, op.Payload)
	if err != nil {
		return err
	}
	for _, col := range kind.naturalKey {
		delete(values, col)
	}
	if len(values) == 0 {
		return nil
	}
	res := tx.Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update matched no row in %s", kind.table)
	}
	return nil
}

func (a *Applier) applyDelete(ctx context.Context, kind entityKind, op Operation) error {
	tx, err := a.scope(ctx, kind, op.Payload)
	if err != nil {
		return err
	}
	return tx.Delete(nil).Error
}

// scope builds the row selector: the database id when the payload has one,
// otherwise the table's natural key.
func (a *Applier) scope(ctx context.Context, kind entityKind, payload map[string]interface{}) (*gorm.DB, error) {
	tx := a.db.WithContext(ctx).Table(kind.table)
	if id, ok := payload["id"]; ok && id != nil {
		return tx.Where("id = ?", id), nil
	}
	for _, col := range kind.naturalKey {
		v, ok := payload[col]
		if !ok || v == nil {
			return nil, fmt.Errorf("payload for %s missing id and natural key column %q", kind.table, col)
		}
		tx = tx.Where(col+" = ?", v)
	}
	return tx, nil
}

func clonePayload(payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
