package controllers

import (
	"studenttrack_go/middleware"
	"studenttrack_go/services/offline"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	engine *offline.Engine
	store  offline.Store
}

func NewSyncController(engine *offline.Engine, store offline.Store) *SyncController {
	return &SyncController{engine: engine, store: store}
}

// Status reports the queue depth and the last completed sync
func (sc *SyncController) Status(c *fiber.Ctx) error {
	pending, err := sc.engine.Pending(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read queue",
		})
	}

	resp := fiber.Map{
		"pending": pending,
		"syncing": sc.engine.Syncing(),
	}
	if last := sc.engine.LastSync(); !last.IsZero() {
		resp["last_sync"] = last
	}

	return c.JSON(resp)
}

// PendingOperations lists the queued operations in replay order
func (sc *SyncController) PendingOperations(c *fiber.Ctx) error {
	ops, err := sc.store.ListUnsynced(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read queue",
		})
	}
	return c.JSON(fiber.Map{"operations": ops})
}

// Trigger runs a sync pass immediately
func (sc *SyncController) Trigger(c *fiber.Ctx) error {
	report := sc.engine.SyncAll(c.Context())

	middleware.LogActivity(c, "CREATE", "sync_runs", 0, fiber.Map{
		"skipped":   report.Skipped,
		"succeeded": report.SuccessCount,
		"failed":    report.FailCount,
	})

	if report.Skipped {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"skipped": true,
			"reason":  report.SkipReason,
		})
	}

	return c.JSON(fiber.Map{
		"succeeded":   report.SuccessCount,
		"failed":      report.FailCount,
		"finished_at": report.FinishedAt,
	})
}
