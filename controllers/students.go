package controllers

import (
	"errors"
	"strings"
	"time"

	"studenttrack_go/database"
	"studenttrack_go/middleware"
	"studenttrack_go/models"
	"studenttrack_go/services/offline"
	"studenttrack_go/storage"
	"studenttrack_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

type StudentController struct {
	writer  *offline.Writer
	storage *storage.StorageService
}

func NewStudentController(writer *offline.Writer, storage *storage.StorageService) *StudentController {
	return &StudentController{writer: writer, storage: storage}
}

// GetStudents returns students, optionally filtered by group, grade or active flag
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	query := database.DB.Preload("Group").Order("name ASC")

	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}
	if grade := c.Query("grade_level"); grade != "" {
		query = query.Where("grade_level = ?", grade)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{"students": students})
}

// GetStudent returns a single student by ID
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id := c.Params("id")

	var student models.Student
	if err := database.DB.Preload("Group").First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	return c.JSON(fiber.Map{"student": student})
}

// GetStudentByCode resolves a student from a scanned or typed code
func (sc *StudentController) GetStudentByCode(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))

	var student models.Student
	if err := database.DB.Preload("Group").Where("code = ?", code).First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	return c.JSON(fiber.Map{"student": student})
}

// CreateStudentRequest represents the create student request body
type CreateStudentRequest struct {
	Name         string `json:"name" validate:"required"`
	GradeLevel   string `json:"grade_level" validate:"required"`
	GroupID      *uint  `json:"group_id"`
	ParentPhone  string `json:"parent_phone" validate:"required"`
	StudentPhone string `json:"student_phone"`
	MonthlyFee   int    `json:"monthly_fee"`
}

// CreateStudent registers a new student with a generated code. The code
// is regenerated on the rare collision with an existing one.
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var req CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.ParentPhone) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and parent phone are required",
		})
	}

	student := models.Student{
		Name:         utils.SanitizeString(req.Name),
		GradeLevel:   req.GradeLevel,
		GroupID:      req.GroupID,
		ParentPhone:  req.ParentPhone,
		StudentPhone: req.StudentPhone,
		MonthlyFee:   req.MonthlyFee,
		RegisteredAt: time.Now(),
		Active:       true,
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		code, genErr := utils.GenerateStudentCode(8)
		if genErr != nil {
			err = genErr
			break
		}
		student.Code = code
		err = database.DB.Create(&student).Error
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create student",
		})
	}

	middleware.LogActivity(c, "CREATE", "students", student.ID, fiber.Map{"code": student.Code})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"student": student})
}

// UpdateStudentRequest represents the update student request body
type UpdateStudentRequest struct {
	Name         *string `json:"name"`
	GradeLevel   *string `json:"grade_level"`
	GroupID      *uint   `json:"group_id"`
	ParentPhone  *string `json:"parent_phone"`
	StudentPhone *string `json:"student_phone"`
	MonthlyFee   *int    `json:"monthly_fee"`
	Active       *bool   `json:"active"`
}

// UpdateStudent updates a student's profile. The write goes through the
// offline writer so edits survive a database outage.
func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var req UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	payload := map[string]interface{}{"id": uint(id)}
	if req.Name != nil {
		payload["name"] = utils.SanitizeString(*req.Name)
	}
	if req.GradeLevel != nil {
		payload["grade_level"] = *req.GradeLevel
	}
	if req.GroupID != nil {
		payload["group_id"] = *req.GroupID
	}
	if req.ParentPhone != nil {
		payload["parent_phone"] = *req.ParentPhone
	}
	if req.StudentPhone != nil {
		payload["student_phone"] = *req.StudentPhone
	}
	if req.MonthlyFee != nil {
		payload["monthly_fee"] = *req.MonthlyFee
	}
	if req.Active != nil {
		payload["active"] = *req.Active
	}
	if len(payload) == 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	result, err := sc.writer.Update(c.Context(), offline.TableStudents, payload)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update student",
		})
	}

	middleware.LogActivity(c, "UPDATE", "students", uint(id), payload)

	if result.Queued {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message":      "Update queued for sync",
			"operation_id": result.OperationID,
		})
	}

	var student models.Student
	database.DB.Preload("Group").First(&student, id)
	return c.JSON(fiber.Map{"student": student})
}

// DeactivateStudent marks a student inactive without losing history
func (sc *StudentController) DeactivateStudent(c *fiber.Ctx) error {
	id := c.Params("id")

	var student models.Student
	if err := database.DB.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	if err := database.DB.Model(&student).Update("active", false).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deactivate student",
		})
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, fiber.Map{"active": false})

	return c.JSON(fiber.Map{"message": "Student deactivated", "student": student})
}

// GetStudentQR returns the student's code as a QR PNG. With ?upload=true
// the image is also stored on S3 and the URL returned.
func (sc *StudentController) GetStudentQR(c *fiber.Ctx) error {
	id := c.Params("id")

	var student models.Student
	if err := database.DB.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	png, err := qrcode.Encode(student.Code, qrcode.Medium, 512)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate QR code",
		})
	}

	if c.Query("upload") == "true" && sc.storage != nil {
		url, err := sc.storage.UploadQRCode(png, student.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to upload QR code",
			})
		}
		return c.JSON(fiber.Map{"qr_url": url, "code": student.Code})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// UploadStudentPhoto stores a profile photo on S3 and saves its URL
func (sc *StudentController) UploadStudentPhoto(c *fiber.Ctx) error {
	id := c.Params("id")

	var student models.Student
	if err := database.DB.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	if sc.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "File storage is not configured",
		})
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing photo file",
		})
	}

	url, err := sc.storage.UploadStudentPhoto(file, student.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if student.PhotoURL != "" {
		// Old photo is replaced; removal failure is not fatal.
		_ = sc.storage.DeleteFile(student.PhotoURL)
	}

	if err := database.DB.Model(&student).Update("photo_url", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save photo URL",
		})
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, fiber.Map{"photo_url": url})

	return c.JSON(fiber.Map{"photo_url": url})
}
