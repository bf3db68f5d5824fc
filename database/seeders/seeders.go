package seeders

import (
	"log"

	"studenttrack_go/database"
	"studenttrack_go/models"
	"studenttrack_go/services/alerts"
	"studenttrack_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedAlertRules()
	SeedOwner()
	SeedSettings()

	log.Println("Database seeding completed successfully!")
}

// ruleDescriptions supplements the registry metadata for the admin UI.
var ruleDescriptions = map[string]string{
	alerts.RuleAbsent2Consecutive: "Student missed the last two scheduled days in a row",
	alerts.RuleAbsent3Month:       "Student accumulated three or more absences in the current month",
	alerts.RulePayment1To5:        "Current month unpaid during days 1-5",
	alerts.RuleHomeworkRequired:   "Latest lesson sheet reports homework as not done",
	alerts.RulePerformanceBelow50: "Monthly score average fell below 50 percent",
	alerts.RuleExamAbsence:        "Exam scheduled today for the student's grade",
}

// SeedAlertRules inserts one row per registry entry. Code, title and
// severity come straight from the registry so the stored rows cannot
// drift from the evaluation logic. Existing rows keep their is_active
// state; only missing codes are added.
func SeedAlertRules() {
	for _, entry := range alerts.Registry() {
		rule := models.AlertRule{
			Code:        entry.Code,
			Title:       entry.Title,
			Description: ruleDescriptions[entry.Code],
			Severity:    entry.Severity,
			IsActive:    true,
		}
		var count int64
		database.DB.Model(&models.AlertRule{}).Where("code = ?", rule.Code).Count(&count)
		if count > 0 {
			continue
		}
		if err := database.DB.Create(&rule).Error; err != nil {
			log.Printf("Error seeding alert rule %s: %v", rule.Code, err)
		}
	}

	log.Println("Alert rules seeded successfully")
}

// SeedOwner creates the initial owner account when no users exist.
func SeedOwner() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	password, err := utils.HashPassword("owner123")
	if err != nil {
		log.Printf("Error hashing owner password: %v", err)
		return
	}

	owner := models.User{
		Username: "owner",
		Password: password,
		Name:     "Center Owner",
		Role:     "owner",
		Status:   "active",
	}

	if err := database.DB.Create(&owner).Error; err != nil {
		log.Printf("Error seeding owner user: %v", err)
		return
	}

	log.Println("Owner user seeded successfully (change the default password)")
}

// SeedSettings ensures the single settings row exists.
func SeedSettings() {
	var count int64
	database.DB.Model(&models.AppSettings{}).Count(&count)
	if count > 0 {
		return
	}

	if err := database.DB.Create(&models.AppSettings{}).Error; err != nil {
		log.Printf("Error seeding app settings: %v", err)
		return
	}

	log.Println("App settings seeded successfully")
}
