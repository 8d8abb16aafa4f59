package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finora/internal/models"
)

// ClassifyRequest asks for a category for a description.
type ClassifyRequest struct {
	Description string `json:"description" binding:"required,max=500"`
	Direction   string `json:"direction" binding:"required,direction"`
}

// LearnRequest teaches the classifier that a description belongs to a
// category.
type LearnRequest struct {
	Description string `json:"description" binding:"required,max=500"`
	CategoryID  string `json:"category_id" binding:"required"`
}

// ClassifyHandler exposes the owner's classification engine.
type ClassifyHandler struct{}

// NewClassifyHandler creates a new ClassifyHandler
func NewClassifyHandler() *ClassifyHandler {
	return &ClassifyHandler{}
}

// Classify returns the best category, or null when nothing matches.
// @Summary     Classify a description
// @Description Get the best scoring category, or null when nothing matches
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ClassifyRequest true "Description and direction"
// @Success     200 {object} map[string]interface{} "Category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /classify [post]
func (h *ClassifyHandler) Classify(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	cat, ok := s.Classifier.Classify(req.Description, models.RecordKind(req.Direction))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"category": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

// Suggest returns up to three scored categories, best first.
// @Summary     Suggest categories
// @Description Get up to three scored categories, best first
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ClassifyRequest true "Description and direction"
// @Success     200 {object} map[string]interface{} "Suggestions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /classify/suggest [post]
func (h *ClassifyHandler) Suggest(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": s.Classifier.Suggest(req.Description, models.RecordKind(req.Direction))})
}

// Learn adds keywords from a confirmed description.
// @Summary     Learn keywords
// @Description Add keywords from a description to a category
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body LearnRequest true "Description and category"
// @Success     200 {object} map[string][]string "Keywords added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /classify/learn [post]
func (h *ClassifyHandler) Learn(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LearnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	added, err := s.Classifier.Learn(req.Description, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// GetCategories lists categories, filtered by ?direction= when given.
// @Summary     List categories
// @Tags        classify
// @Produce     json
// @Security    BearerAuth
// @Param       direction query string false "Filter by direction (income/expense)"
// @Success     200 {object} map[string]interface{} "Categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /classify/categories [get]
func (h *ClassifyHandler) GetCategories(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": s.Classifier.Categories(models.RecordKind(c.Query("direction")))})
}

// GetKeywords returns one category's keywords.
// @Summary     Get category keywords
// @Tags        classify
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} map[string][]string "Keywords"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /classify/categories/{id}/keywords [get]
func (h *ClassifyHandler) GetKeywords(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	keywords, err := s.Classifier.Keywords(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}
