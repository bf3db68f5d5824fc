package services

import (
	"errors"
	"sync"

	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BlocksService maintains the freeze state: at most one active block per
// student, full transition history retained. Payment and grading write
// paths consult it before every mutation.
type BlocksService struct {
	db *gorm.DB

	mu     sync.RWMutex
	active map[uint]models.StudentBlock
}

func NewBlocksService() *BlocksService {
	s := &BlocksService{db: database.GetDB(), active: make(map[uint]models.StudentBlock)}
	if err := s.Reload(); err != nil {
		logrus.WithError(err).Warn("Failed to load active blocks; cache starts empty")
	}
	return s
}

// Reload re-reads every active block so dependent views stay consistent.
// Called after each freeze/unfreeze.
func (s *BlocksService) Reload() error {
	var blocks []models.StudentBlock
	if err := s.db.Where("is_active = ?", true).Find(&blocks).Error; err != nil {
		return err
	}
	s.rebuild(blocks)
	return nil
}

// rebuild derives the O(1) lookup map from the active block set. By the
// single-active-block invariant there is at most one entry per student.
func (s *BlocksService) rebuild(blocks []models.StudentBlock) {
	next := make(map[uint]models.StudentBlock, len(blocks))
	for _, b := range blocks {
		if b.IsActive {
			next[b.StudentID] = b
		}
	}
	s.mu.Lock()
	s.active = next
	s.mu.Unlock()
}

// nextBlockState computes the row a freeze produces: the existing active
// block updated in place when there is one, a fresh row otherwise.
func nextBlockState(existing *models.StudentBlock, studentID uint, reason, ruleCode string) (models.StudentBlock, bool) {
	if existing != nil {
		block := *existing
		block.IsActive = true
		block.Reason = reason
		block.TriggeredByRuleCode = ruleCode
		return block, true
	}
	return models.StudentBlock{
		StudentID:           studentID,
		IsActive:            true,
		BlockType:           "freeze",
		Reason:              reason,
		TriggeredByRuleCode: ruleCode,
	}, false
}

// Freeze places (or refreshes) the administrative hold on a student.
// Re-freezing updates the existing active block rather than inserting a
// second one.
func (s *BlocksService) Freeze(studentID uint, reason, ruleCode string) (*models.StudentBlock, error) {
	var existing models.StudentBlock
	var existingPtr *models.StudentBlock
	err := s.db.Where("student_id = ? AND is_active = ?", studentID, true).First(&existing).Error
	switch {
	case err == nil:
		existingPtr = &existing
	case errors.Is(err, gorm.ErrRecordNotFound):
		existingPtr = nil
	default:
		return nil, err
	}

	block, isUpdate := nextBlockState(existingPtr, studentID, reason, ruleCode)
	if isUpdate {
		err = s.db.Model(&models.StudentBlock{}).Where("id = ?", block.ID).
			Updates(map[string]interface{}{
				"is_active":              true,
				"reason":                 block.Reason,
				"triggered_by_rule_code": block.TriggeredByRuleCode,
			}).Error
	} else {
		err = s.db.Create(&block).Error
	}
	if err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"student_id": studentID,
		"rule_code":  ruleCode,
	}).Info("Student frozen")
	return &block, nil
}

// Unfreeze lifts the hold. A student with no active block is a no-op; the
// deactivated row stays in history.
func (s *BlocksService) Unfreeze(studentID uint) error {
	var existing models.StudentBlock
	err := s.db.Where("student_id = ? AND is_active = ?", studentID, true).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.StudentBlock{}).Where("id = ?", existing.ID).
		Update("is_active", false).Error; err != nil {
		return err
	}
	logrus.WithField("student_id", studentID).Info("Student unfrozen")
	return s.Reload()
}

// IsBlocked reports whether the student has an active block.
func (s *BlocksService) IsBlocked(studentID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[studentID]
	return ok
}

// ActiveBlock returns the student's active block, if any.
func (s *BlocksService) ActiveBlock(studentID uint) (models.StudentBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.active[studentID]
	return block, ok
}

// History lists every freeze/unfreeze row for a student, newest first.
func (s *BlocksService) History(studentID uint) ([]models.StudentBlock, error) {
	var blocks []models.StudentBlock
	err := s.db.Where("student_id = ?", studentID).Order("created_at DESC").Find(&blocks).Error
	return blocks, err
}

// DeleteHistorical removes one inactive historical row. Active blocks can
// only be lifted through Unfreeze.
func (s *BlocksService) DeleteHistorical(blockID uint) error {
	res := s.db.Where("id = ? AND is_active = ?", blockID, false).Delete(&models.StudentBlock{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("block not found or still active")
	}
	return nil
}
