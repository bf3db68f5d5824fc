package services

import (
	"context"
	"fmt"

	"studenttrack_go/database"
	"studenttrack_go/models"
	"studenttrack_go/services/offline"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreEntry is one student's row in a batched grade submission.
type ScoreEntry struct {
	StudentID      uint   `json:"student_id"`
	Score          int    `json:"score"`
	Note           string `json:"note"`
	HomeworkStatus string `json:"homework_status,omitempty"` // lesson sheets only
}

// EntryStatus classifies the outcome of one entry within a batch.
type EntryStatus string

const (
	EntrySaved   EntryStatus = "saved"
	EntryBlocked EntryStatus = "skipped_blocked"
	EntryQueued  EntryStatus = "queued"
	EntryError   EntryStatus = "error"
)

// EntryResult reports the outcome per student. A blocked student is
// skipped; the rest of the batch continues.
type EntryResult struct {
	StudentID uint        `json:"student_id"`
	Status    EntryStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"`
}

// GradingService owns exam result and lesson score entry.
type GradingService struct {
	db     *gorm.DB
	blocks *BlocksService
	writer *offline.Writer
}

func NewGradingService(blocks *BlocksService, writer *offline.Writer) *GradingService {
	return &GradingService{db: database.GetDB(), blocks: blocks, writer: writer}
}

// EnterExamResults upserts one score row per (exam, student).
func (s *GradingService) EnterExamResults(ctx context.Context, examID uint, entries []ScoreEntry) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		if block, ok := s.blocks.ActiveBlock(entry.StudentID); ok {
			results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntryBlocked, Reason: block.Reason})
			continue
		}

		row := models.ExamResult{
			ExamID:    examID,
			StudentID: entry.StudentID,
			Score:     entry.Score,
			Note:      entry.Note,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "note", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			results = append(results, s.queueScore(ctx, offline.TableExamResults, map[string]interface{}{
				"exam_id":    examID,
				"student_id": entry.StudentID,
				"score":      entry.Score,
				"note":       entry.Note,
			}, entry.StudentID))
			continue
		}
		results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntrySaved})
	}
	return results
}

// EnterLessonSheets upserts homework/score rows per (lesson, student).
func (s *GradingService) EnterLessonSheets(ctx context.Context, lessonID uint, entries []ScoreEntry) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		if block, ok := s.blocks.ActiveBlock(entry.StudentID); ok {
			results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntryBlocked, Reason: block.Reason})
			continue
		}

		homework := entry.HomeworkStatus
		if homework == "" {
			homework = models.HomeworkUnknown
		}
		score := entry.Score
		row := models.LessonSheet{
			LessonID:       lessonID,
			StudentID:      entry.StudentID,
			HomeworkStatus: homework,
			Score:          &score,
			Note:           entry.Note,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"homework_status", "score", "note", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			results = append(results, s.queueScore(ctx, offline.TableLessonSheets, map[string]interface{}{
				"lesson_id":       lessonID,
				"student_id":      entry.StudentID,
				"homework_status": homework,
				"score":           entry.Score,
				"note":            entry.Note,
			}, entry.StudentID))
			continue
		}
		results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntrySaved})
	}
	return results
}

// EnterRecitations upserts recitation scores per (lesson, student).
func (s *GradingService) EnterRecitations(ctx context.Context, lessonID uint, entries []ScoreEntry) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		if block, ok := s.blocks.ActiveBlock(entry.StudentID); ok {
			results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntryBlocked, Reason: block.Reason})
			continue
		}

		row := models.LessonRecitation{
			LessonID:  lessonID,
			StudentID: entry.StudentID,
			Score:     entry.Score,
			Note:      entry.Note,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "note", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			results = append(results, s.queueScore(ctx, offline.TableLessonRecitations, map[string]interface{}{
				"lesson_id":  lessonID,
				"student_id": entry.StudentID,
				"score":      entry.Score,
				"note":       entry.Note,
			}, entry.StudentID))
			continue
		}
		results = append(results, EntryResult{StudentID: entry.StudentID, Status: EntrySaved})
	}
	return results
}

func (s *GradingService) queueScore(ctx context.Context, table string, payload map[string]interface{}, studentID uint) EntryResult {
	res, err := s.writer.Insert(ctx, table, payload)
	if err != nil {
		return EntryResult{StudentID: studentID, Status: EntryError, Reason: err.Error()}
	}
	return EntryResult{StudentID: studentID, Status: EntryQueued, Reason: fmt.Sprintf("queued as %s", res.OperationID)}
}
