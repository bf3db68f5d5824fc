package controllers

import (
	"time"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services"

	"github.com/gofiber/fiber/v2"
)

type GradingController struct {
	grading *services.GradingService
}

func NewGradingController(grading *services.GradingService) *GradingController {
	return &GradingController{grading: grading}
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// ExamRequest represents the create exam request body
type ExamRequest struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level" validate:"required"`
	Date       string `json:"date" validate:"required"`
	MaxScore   int    `json:"max_score"`
}

// GetExams lists exams, optionally filtered by grade level
func (gc *GradingController) GetExams(c *fiber.Ctx) error {
	query := database.DB.Order("date DESC")
	if grade := c.Query("grade_level"); grade != "" {
		query = query.Where("grade_level = ?", grade)
	}

	var exams []models.Exam
	if err := query.Find(&exams).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch exams",
		})
	}
	return c.JSON(fiber.Map{"exams": exams})
}

// GetExam returns an exam with its results
func (gc *GradingController) GetExam(c *fiber.Ctx) error {
	id := c.Params("id")

	var exam models.Exam
	if err := database.DB.Preload("Results").Preload("Results.Student").First(&exam, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Exam not found",
		})
	}
	return c.JSON(fiber.Map{"exam": exam})
}

// CreateExam creates a new exam
func (gc *GradingController) CreateExam(c *fiber.Ctx) error {
	var req ExamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.GradeLevel == "" || !validDate(req.Date) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name, grade_level and date (YYYY-MM-DD) are required",
		})
	}

	exam := models.Exam{
		Name:       req.Name,
		GradeLevel: req.GradeLevel,
		Date:       req.Date,
		MaxScore:   req.MaxScore,
	}
	if exam.MaxScore <= 0 {
		exam.MaxScore = 100
	}

	if err := database.DB.Create(&exam).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create exam",
		})
	}

	middleware.LogActivity(c, "CREATE", "exams", exam.ID, fiber.Map{"name": exam.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"exam": exam})
}

// ScoreBatchRequest represents a batch score entry body
type ScoreBatchRequest struct {
	Entries []services.ScoreEntry `json:"entries" validate:"required"`
}

// EnterExamResults upserts scores for an exam. Entries for blocked
// students are skipped and reported, the rest of the batch proceeds.
func (gc *GradingController) EnterExamResults(c *fiber.Ctx) error {
	examID, err := c.ParamsInt("id")
	if err != nil || examID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid exam ID",
		})
	}

	var exam models.Exam
	if err := database.DB.First(&exam, examID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Exam not found",
		})
	}

	var req ScoreBatchRequest
	if err := c.BodyParser(&req); err != nil || len(req.Entries) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entries are required",
		})
	}

	results := gc.grading.EnterExamResults(c.Context(), exam.ID, req.Entries)

	middleware.LogActivity(c, "CREATE", "exam_results", exam.ID, fiber.Map{"entries": len(req.Entries)})

	return c.JSON(fiber.Map{"results": results})
}

// LessonRequest represents the create lesson request body
type LessonRequest struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel string `json:"grade_level" validate:"required"`
	Date       string `json:"date" validate:"required"`
}

// GetLessons lists lessons, optionally filtered by grade level
func (gc *GradingController) GetLessons(c *fiber.Ctx) error {
	query := database.DB.Order("date DESC")
	if grade := c.Query("grade_level"); grade != "" {
		query = query.Where("grade_level = ?", grade)
	}

	var lessons []models.Lesson
	if err := query.Find(&lessons).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch lessons",
		})
	}
	return c.JSON(fiber.Map{"lessons": lessons})
}

// CreateLesson creates a new lesson
func (gc *GradingController) CreateLesson(c *fiber.Ctx) error {
	var req LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.GradeLevel == "" || !validDate(req.Date) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name, grade_level and date (YYYY-MM-DD) are required",
		})
	}

	lesson := models.Lesson{
		Name:       req.Name,
		GradeLevel: req.GradeLevel,
		Date:       req.Date,
	}

	if err := database.DB.Create(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create lesson",
		})
	}

	middleware.LogActivity(c, "CREATE", "lessons", lesson.ID, fiber.Map{"name": lesson.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"lesson": lesson})
}

// GetLessonScores returns sheets and recitations for a lesson
func (gc *GradingController) GetLessonScores(c *fiber.Ctx) error {
	lessonID, err := c.ParamsInt("id")
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var lesson models.Lesson
	if err := database.DB.First(&lesson, lessonID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
		})
	}

	var sheets []models.LessonSheet
	var recitations []models.LessonRecitation
	database.DB.Preload("Student").Where("lesson_id = ?", lesson.ID).Find(&sheets)
	database.DB.Preload("Student").Where("lesson_id = ?", lesson.ID).Find(&recitations)

	return c.JSON(fiber.Map{
		"lesson":      lesson,
		"sheets":      sheets,
		"recitations": recitations,
	})
}

// EnterLessonSheets upserts homework/sheet scores for a lesson
func (gc *GradingController) EnterLessonSheets(c *fiber.Ctx) error {
	lessonID, err := c.ParamsInt("id")
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var lesson models.Lesson
	if err := database.DB.First(&lesson, lessonID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
		})
	}

	var req ScoreBatchRequest
	if err := c.BodyParser(&req); err != nil || len(req.Entries) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entries are required",
		})
	}

	results := gc.grading.EnterLessonSheets(c.Context(), lesson.ID, req.Entries)

	middleware.LogActivity(c, "CREATE", "lesson_sheets", lesson.ID, fiber.Map{"entries": len(req.Entries)})

	return c.JSON(fiber.Map{"results": results})
}

// EnterRecitations upserts recitation scores for a lesson
func (gc *GradingController) EnterRecitations(c *fiber.Ctx) error {
	lessonID, err := c.ParamsInt("id")
	if err != nil || lessonID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var lesson models.Lesson
	if err := database.DB.First(&lesson, lessonID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
		})
	}

	var req ScoreBatchRequest
	if err := c.BodyParser(&req); err != nil || len(req.Entries) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "entries are required",
		})
	}

	results := gc.grading.EnterRecitations(c.Context(), lesson.ID, req.Entries)

	middleware.LogActivity(c, "CREATE", "lesson_recitations", lesson.ID, fiber.Map{"entries": len(req.Entries)})

	return c.JSON(fiber.Map{"results": results})
}

// StudentScores returns a student's exam results and lesson scores
func (gc *GradingController) StudentScores(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var examResults []models.ExamResult
	var sheets []models.LessonSheet
	var recitations []models.LessonRecitation
	database.DB.Preload("Exam").Where("student_id = ?", id).Find(&examResults)
	database.DB.Preload("Lesson").Where("student_id = ?", id).Find(&sheets)
	database.DB.Preload("Lesson").Where("student_id = ?", id).Find(&recitations)

	return c.JSON(fiber.Map{
		"exam_results": examResults,
		"sheets":       sheets,
		"recitations":  recitations,
	})
}
