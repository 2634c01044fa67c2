package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	"github.com/gin-gonic/gin"
)

type createElementRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type updateElementRequest struct {
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type checkAvailabilityRequest struct {
	ElementIDs []string `json:"element_ids"`
}

func (s *Server) CreateElement(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	var req createElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.elementSvc.Create(c.Request.Context(), act, elementdomain.CreateRequest{
		Kind:  elementdomain.ElementKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateElement(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.elementSvc.Update(c.Request.Context(), act, elementdomain.UpdateRequest{
		ID:       id,
		Title:    req.Title,
		Body:     req.Body,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteElement(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.elementSvc.Delete(c.Request.Context(), act, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ReleaseElement(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.elementSvc.Release(c.Request.Context(), act, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"released": true}})
}

func (s *Server) GetElementByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.elementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListElements(c *gin.Context) {
	resp, pageInfo, err := s.elementSvc.List(c.Request.Context(), elementdomain.ListRequest{
		Kind:      elementdomain.ElementKind(strings.ToUpper(strings.TrimSpace(c.Query("kind")))),
		Status:    elementdomain.ElementStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		PageToken: c.Query("page_token"),
		PageSize:  queryInt(c, "page_size", 20),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "page_info": pageInfo})
}

// CheckElementAvailability filters candidate lists for the UI. The answer is
// advisory: a claim can still lose the race afterwards.
func (s *Server) CheckElementAvailability(c *gin.Context) {
	var req checkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids := make([]snowflake.ID, 0, len(req.ElementIDs))
	for _, raw := range req.ElementIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("element_ids", "invalid_id", "invalid identifier"))
			return
		}
		ids = append(ids, id)
	}

	available, err := s.elementSvc.CheckAvailability(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"available": available}})
}

func (s *Server) PickRandomElement(c *gin.Context) {
	kind := elementdomain.ElementKind(strings.ToUpper(strings.TrimSpace(c.Query("kind"))))

	resp, err := s.elementSvc.PickRandomAvailable(c.Request.Context(), kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PickRandomGrid(c *gin.Context) {
	resp, err := s.elementSvc.PickRandomGrid(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
