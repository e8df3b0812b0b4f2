package handlers

import (
	"strconv"

	"github.com/bitbridge/backend/internal/levelcurve"
	"github.com/bitbridge/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	defaultLevelTableSize = 20
	maxLevelTableSize     = 200
)

// LevelEntry is one row of the XP requirement table.
type LevelEntry struct {
	Level      int   `json:"level"`
	XPRequired int64 `json:"xp_required"`
}

// LevelProgress returns level and progress-bar data for an XP total
// GET /api/levels/progress?xp=N
func LevelProgress(c *gin.Context) {
	xp, err := strconv.ParseInt(c.Query("xp"), 10, 64)
	if err != nil || xp < 0 {
		response.BadRequest(c, "xp must be a non-negative integer")
		return
	}

	response.Success(c, levelcurve.ProgressToNextLevel(xp))
}

// LevelTable lists the XP required for levels 1..max
// GET /api/levels/table?max=N
func LevelTable(c *gin.Context) {
	size := defaultLevelTableSize
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "max must be a positive integer")
			return
		}
		size = n
	}
	if size > maxLevelTableSize {
		size = maxLevelTableSize
	}

	table := make([]LevelEntry, 0, size)
	for level := 1; level <= size; level++ {
		table = append(table, LevelEntry{Level: level, XPRequired: levelcurve.XPRequiredForLevel(level)})
	}
	response.Success(c, table)
}
