package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"github.com/gin-gonic/gin"
)

type submitReportRequest struct {
	GroupID        string   `json:"group_id"`
	Description    string   `json:"description"`
	Highlights     *string  `json:"highlights,omitempty"`
	SessionID      *string  `json:"session_id,omitempty"`
	ParticipantIDs []string `json:"participant_ids"`
}

type updateReportRequest struct {
	Description *string `json:"description,omitempty"`
	Highlights  *string `json:"highlights,omitempty"`
}

type moderateReportRequest struct {
	Action          string `json:"action"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type attachPlanRequest struct {
	ContinuedFromReportID *string `json:"continued_from_report_id,omitempty"`
	PlanText              string  `json:"plan_text"`
	MonsterID             string  `json:"monster_id"`
	LocationTextID        string  `json:"location_text_id"`
	MainEventTextID       string  `json:"main_event_text_id"`
	SideEventTextID       string  `json:"side_event_text_id"`
}

func (s *Server) SubmitReport(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}

	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	groupID, err := snowflake.ParseString(strings.TrimSpace(req.GroupID))
	if err != nil || groupID == 0 {
		AbortWithError(c, newValidationError("group_id", "invalid_id", "invalid identifier"))
		return
	}
	participantIDs, ok := parseIDList(c, "participant_ids", req.ParticipantIDs)
	if !ok {
		return
	}
	sessionID, ok := parseOptionalID(c, "session_id", req.SessionID)
	if !ok {
		return
	}

	resp, err := s.reportSvc.Submit(c.Request.Context(), act, reportdomain.SubmitRequest{
		GroupID:        groupID,
		Description:    req.Description,
		Highlights:     req.Highlights,
		SessionID:      sessionID,
		ParticipantIDs: participantIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateReport(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.Update(c.Request.Context(), act, reportdomain.UpdateRequest{
		ID:          id,
		Description: req.Description,
		Highlights:  req.Highlights,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ModerateReport(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req moderateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.Moderate(c.Request.Context(), act, reportdomain.ModerateRequest{
		ID:              id,
		Action:          reportdomain.ModerationAction(strings.ToLower(strings.TrimSpace(req.Action))),
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelReport(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.reportSvc.Cancel(c.Request.Context(), act, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReportByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReports(c *gin.Context) {
	resp, pageInfo, err := s.reportSvc.List(c.Request.Context(), reportdomain.ListRequest{
		GroupID:   queryID(c, "group_id"),
		MasterID:  queryID(c, "master_id"),
		Status:    reportdomain.ReportStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		PageToken: c.Query("page_token"),
		PageSize:  queryInt(c, "page_size", 20),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "page_info": pageInfo})
}

func (s *Server) AttachReportPlan(c *gin.Context) {
	act, ok := mustActor(c)
	if !ok {
		return
	}
	reportID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req attachPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	continuedFrom, ok := parseOptionalID(c, "continued_from_report_id", req.ContinuedFromReportID)
	if !ok {
		return
	}
	monsterID, ok := bodyID(c, "monster_id", req.MonsterID)
	if !ok {
		return
	}
	locationTextID, ok := bodyID(c, "location_text_id", req.LocationTextID)
	if !ok {
		return
	}
	mainEventTextID, ok := bodyID(c, "main_event_text_id", req.MainEventTextID)
	if !ok {
		return
	}
	sideEventTextID, ok := bodyID(c, "side_event_text_id", req.SideEventTextID)
	if !ok {
		return
	}

	resp, err := s.reportSvc.AttachPlan(c.Request.Context(), act, reportdomain.AttachPlanRequest{
		ReportID:              reportID,
		ContinuedFromReportID: continuedFrom,
		PlanText:              req.PlanText,
		MonsterID:             monsterID,
		LocationTextID:        locationTextID,
		MainEventTextID:       mainEventTextID,
		SideEventTextID:       sideEventTextID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReportPlan(c *gin.Context) {
	reportID, ok := pathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.reportSvc.GetPlan(c.Request.Context(), reportID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func parseIDList(c *gin.Context, field string, raw []string) ([]snowflake.ID, bool) {
	ids := make([]snowflake.ID, 0, len(raw))
	for _, item := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(item))
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError(field, "invalid_id", "invalid identifier"))
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func parseOptionalID(c *gin.Context, field string, raw *string) (*snowflake.ID, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	id, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(field, "invalid_id", "invalid identifier"))
		return nil, false
	}
	return &id, true
}

func bodyID(c *gin.Context, field, raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(field, "invalid_id", "invalid identifier"))
		return 0, false
	}
	return id, true
}
