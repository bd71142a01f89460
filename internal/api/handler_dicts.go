package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-records-backend/internal/model"
)

type dictEntryRequest struct {
	Entity      *model.EntityType `json:"entity"`
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
}

// ListDictEntries handles GET /api/dict-entries. Visible to every
// authenticated user; responses are cached since they are identical for
// all of them.
func (h *Handler) ListDictEntries(c *gin.Context) {
	params, ok := parseListParams(c, "entity", "name")
	if !ok {
		return
	}

	query := h.store.DB().WithContext(c.Request.Context()).Model(&model.DictionaryEntry{})
	if value, ok := params.Filters["entity"]; ok {
		entity := model.EntityType(value)
		if !entity.Valid() {
			fieldError(c, "entity", "unknown entity type \""+value+"\"")
			return
		}
		query = query.Where("entity = ?", entity)
	}
	if value, ok := params.Filters["name"]; ok {
		query = query.Where("LOWER(name) LIKE ?", containsPattern(value))
	}

	var entries []model.DictionaryEntry
	err := query.Order("entity, name").
		Limit(params.Limit).Offset(params.Offset).
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve dictionary entries"})
		return
	}

	views := make([]dictEntryView, 0, len(entries))
	for i := range entries {
		views = append(views, dictEntryToView(&entries[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) loadDictEntry(c *gin.Context) (*model.DictionaryEntry, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fieldError(c, "id", "must be an integer")
		return nil, false
	}

	var entry model.DictionaryEntry
	if err := h.store.DB().WithContext(c.Request.Context()).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "dictionary entry")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return nil, false
	}
	return &entry, true
}

// GetDictEntry handles GET /api/dict-entries/:id.
func (h *Handler) GetDictEntry(c *gin.Context) {
	entry, ok := h.loadDictEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dictEntryToView(entry))
}

// CreateDictEntry handles POST /api/dict-entries (manager/superadmin only).
func (h *Handler) CreateDictEntry(c *gin.Context) {
	var req dictEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Entity == nil || !req.Entity.Valid() {
		fieldError(c, "entity", "must be one of the fixed entity types")
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		fieldError(c, "name", "value is required")
		return
	}
	name := strings.TrimSpace(*req.Name)
	if len(name) > 100 {
		fieldError(c, "name", "must not exceed 100 characters")
		return
	}

	entry := model.DictionaryEntry{Entity: *req.Entity, Name: name}
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if err := h.store.DB().WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
		writeSaveError(c, err)
		return
	}

	h.dictCache.Flush()
	c.JSON(http.StatusCreated, dictEntryToView(&entry))
}

// UpdateDictEntry handles PUT /api/dict-entries/:id (manager/superadmin only).
func (h *Handler) UpdateDictEntry(c *gin.Context) {
	entry, ok := h.loadDictEntry(c)
	if !ok {
		return
	}

	var req dictEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Entity != nil {
		if !req.Entity.Valid() {
			fieldError(c, "entity", "must be one of the fixed entity types")
			return
		}
		entry.Entity = *req.Entity
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			fieldError(c, "name", "value is required")
			return
		}
		if len(name) > 100 {
			fieldError(c, "name", "must not exceed 100 characters")
			return
		}
		entry.Name = name
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Save(entry).Error; err != nil {
		writeSaveError(c, err)
		return
	}

	h.dictCache.Flush()
	c.JSON(http.StatusOK, dictEntryToView(entry))
}

// DeleteDictEntry handles DELETE /api/dict-entries/:id. Entries referenced
// by any machine, maintenance or claim row are protected.
func (h *Handler) DeleteDictEntry(c *gin.Context) {
	entry, ok := h.loadDictEntry(c)
	if !ok {
		return
	}

	references, err := h.store.EntryReferenceCount(c.Request.Context(), entry.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if references > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "dictionary entry is referenced by existing records and cannot be deleted",
		})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(&model.DictionaryEntry{}, entry.ID).Error; err != nil {
		writeSaveError(c, err)
		return
	}

	h.dictCache.Flush()
	c.Status(http.StatusNoContent)
}
