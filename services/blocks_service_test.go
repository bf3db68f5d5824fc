package services

import (
	"testing"

	"studenttrack_go/models"
)

func TestNextBlockState(t *testing.T) {
	t.Run("first freeze inserts a new active row", func(t *testing.T) {
		block, isUpdate := nextBlockState(nil, 7, "missed 3 sessions", "absent_3_month")
		if isUpdate {
			t.Fatal("expected insert, got update")
		}
		if !block.IsActive || block.StudentID != 7 || block.BlockType != "freeze" {
			t.Fatalf("unexpected block: %+v", block)
		}
		if block.Reason != "missed 3 sessions" || block.TriggeredByRuleCode != "absent_3_month" {
			t.Fatalf("unexpected block: %+v", block)
		}
	})

	t.Run("re-freeze updates the existing row in place", func(t *testing.T) {
		existing := &models.StudentBlock{
			BaseModel: models.BaseModel{ID: 42},
			StudentID: 7,
			IsActive:  true,
			BlockType: "freeze",
			Reason:    "old reason",
		}
		block, isUpdate := nextBlockState(existing, 7, "new reason", "payment_1_5")
		if !isUpdate {
			t.Fatal("expected update, got insert")
		}
		if block.ID != 42 {
			t.Fatalf("expected existing row id 42, got %d", block.ID)
		}
		if block.Reason != "new reason" || block.TriggeredByRuleCode != "payment_1_5" {
			t.Fatalf("unexpected block: %+v", block)
		}
	})

	t.Run("freeze after unfreeze reactivates the historical row", func(t *testing.T) {
		existing := &models.StudentBlock{
			BaseModel: models.BaseModel{ID: 9},
			StudentID: 3,
			IsActive:  false,
			Reason:    "lifted",
		}
		block, isUpdate := nextBlockState(existing, 3, "frozen again", "")
		if !isUpdate || !block.IsActive {
			t.Fatalf("expected reactivated update, got isUpdate=%v block=%+v", isUpdate, block)
		}
	})
}

func TestBlockCacheLookup(t *testing.T) {
	s := &BlocksService{active: map[uint]models.StudentBlock{}}
	s.rebuild([]models.StudentBlock{
		{BaseModel: models.BaseModel{ID: 1}, StudentID: 5, IsActive: true, Reason: "unpaid fees"},
		{BaseModel: models.BaseModel{ID: 2}, StudentID: 6, IsActive: false, Reason: "lifted"},
	})

	if !s.IsBlocked(5) {
		t.Fatal("expected student 5 to be blocked")
	}
	if s.IsBlocked(6) {
		t.Fatal("inactive block must not count as blocked")
	}
	if s.IsBlocked(99) {
		t.Fatal("unknown student must not be blocked")
	}

	block, ok := s.ActiveBlock(5)
	if !ok || block.Reason != "unpaid fees" {
		t.Fatalf("unexpected active block: %+v ok=%v", block, ok)
	}

	// Rebuild with the block lifted; the cache must drop the entry.
	s.rebuild([]models.StudentBlock{
		{BaseModel: models.BaseModel{ID: 1}, StudentID: 5, IsActive: false, Reason: "unpaid fees"},
	})
	if s.IsBlocked(5) {
		t.Fatal("expected student 5 to be unblocked after rebuild")
	}
}
