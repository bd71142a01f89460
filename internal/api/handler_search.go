package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-records-backend/internal/mw"
)

type machineSearchRequest struct {
	FactoryNumber string `json:"factory_number"`
}

// SearchMachine handles POST /api/machines/search. Authenticated callers
// get the full record; anonymous callers get the reduced public view.
func (h *Handler) SearchMachine(c *gin.Context) {
	var req machineSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FactoryNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "factory_number is required",
		})
		return
	}

	machine, err := h.store.MachineByFactoryNumber(c.Request.Context(), req.FactoryNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "no machine with this factory number",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}

	if _, authenticated := mw.CurrentUser(c); authenticated {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"data":        fullMachineView(machine),
			"user_status": "authorized",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"data":        publicMachineView(machine),
		"user_status": "unauthorized",
	})
}
