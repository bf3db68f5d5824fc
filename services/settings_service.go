package services

import (
	"sync"

	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsService manages the single AppSettings row. The row is loaded
// once at startup and cached; controllers and services read the cached
// copy instead of hitting the database per request.
type SettingsService struct {
	db *gorm.DB

	mu      sync.RWMutex
	current models.AppSettings
}

func NewSettingsService() *SettingsService {
	return &SettingsService{db: database.GetDB()}
}

// Load fetches the settings row, creating it with defaults when the
// table is empty. Safe to call again to refresh the cache.
func (s *SettingsService) Load() (models.AppSettings, error) {
	var settings models.AppSettings
	err := s.db.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.AppSettings{}
		if err = s.db.Create(&settings).Error; err != nil {
			return settings, err
		}
		logrus.Info("created default app settings")
	} else if err != nil {
		return settings, err
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return settings, nil
}

// Current returns the cached settings.
func (s *SettingsService) Current() models.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// UpdateInput carries the editable settings fields. Pointers distinguish
// "not sent" from "set to empty".
type UpdateInput struct {
	CenterName     *string `json:"center_name"`
	CountryCode    *string `json:"country_code"`
	Timezone       *string `json:"timezone"`
	SweepHour      *int    `json:"sweep_hour"`
	AbsenceMessage *string `json:"absence_message"`
	PaymentMessage *string `json:"payment_message"`
}

// Update applies the given fields and refreshes the cache.
func (s *SettingsService) Update(in UpdateInput) (models.AppSettings, error) {
	s.mu.Lock()
	settings := s.current
	s.mu.Unlock()

	if in.CenterName != nil {
		settings.CenterName = *in.CenterName
	}
	if in.CountryCode != nil {
		settings.CountryCode = *in.CountryCode
	}
	if in.Timezone != nil {
		settings.Timezone = *in.Timezone
	}
	if in.SweepHour != nil {
		settings.SweepHour = *in.SweepHour
	}
	if in.AbsenceMessage != nil {
		settings.AbsenceMessage = *in.AbsenceMessage
	}
	if in.PaymentMessage != nil {
		settings.PaymentMessage = *in.PaymentMessage
	}

	if err := s.db.Save(&settings).Error; err != nil {
		return settings, err
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return settings, nil
}
