package services

import (
	"context"
	"testing"

	"studenttrack_go/models"
)

// Register and Refund must reject frozen students before touching the
// database; the services here are built with no database handle, so any
// attempted write would panic.
func TestPaymentPathsRejectBlockedStudents(t *testing.T) {
	blocks := &BlocksService{active: map[uint]models.StudentBlock{}}
	blocks.rebuild([]models.StudentBlock{
		{StudentID: 12, IsActive: true, Reason: "frozen pending parent meeting"},
	})
	payments := &PaymentService{blocks: blocks}

	res, err := payments.Register(context.Background(), 12, "2025-03", 500)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Outcome != PaymentBlocked {
		t.Fatalf("expected blocked outcome, got %s", res.Outcome)
	}
	if res.BlockReason != "frozen pending parent meeting" {
		t.Fatalf("expected block reason to be carried, got %q", res.BlockReason)
	}
	if res.Payment != nil {
		t.Fatal("blocked registration must not produce a payment row")
	}

	res, err = payments.Refund(context.Background(), 12, "2025-03")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if res.Outcome != PaymentBlocked {
		t.Fatalf("expected blocked outcome, got %s", res.Outcome)
	}
}

func TestGradingBatchSkipsBlockedStudentsOnly(t *testing.T) {
	blocks := &BlocksService{active: map[uint]models.StudentBlock{}}
	blocks.rebuild([]models.StudentBlock{
		{StudentID: 2, IsActive: true, Reason: "homework decision pending"},
	})
	grading := &GradingService{blocks: blocks}

	// Only the blocked student's entry is submitted; it must be skipped
	// with the reason and without any write attempt.
	results := grading.EnterExamResults(context.Background(), 1, []ScoreEntry{
		{StudentID: 2, Score: 80},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != EntryBlocked {
		t.Fatalf("expected skipped_blocked, got %s", results[0].Status)
	}
	if results[0].Reason != "homework decision pending" {
		t.Fatalf("expected reason to be carried, got %q", results[0].Reason)
	}
}
