package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/applytrack/internal/emailparse"
	"github.com/amishk599/applytrack/internal/model"
)

type parseRequest struct {
	Text string `json:"text" binding:"required"`
}

type parseResponse struct {
	Result emailparse.Result          `json:"result"`
	Scores []emailparse.CategoryScore `json:"scores"`
}

type ingestRequest struct {
	Text   string `json:"text" binding:"required"`
	Source string `json:"source" binding:"max=255"`
}

type ingestResponse struct {
	Application model.Application `json:"application"`
	From        model.Status      `json:"from,omitempty"`
	Created     bool              `json:"created"`
	Changed     bool              `json:"changed"`
}

type createRequest struct {
	Company        string `json:"company" binding:"required,max=255"`
	Role           string `json:"role" binding:"required,max=255"`
	Status         string `json:"status"`
	Source         string `json:"source" binding:"max=255"`
	Location       string `json:"location" binding:"max=255"`
	Notes          string `json:"notes"`
	AppliedDate    string `json:"applied_date" binding:"omitempty,datetime=2006-01-02"`
	NextActionDate string `json:"next_action_date" binding:"omitempty,datetime=2006-01-02"`
}

// patchRequest uses pointers so absent fields are left alone and "" clears.
type patchRequest struct {
	Company        *string `json:"company" binding:"omitempty,max=255"`
	Role           *string `json:"role" binding:"omitempty,max=255"`
	Source         *string `json:"source" binding:"omitempty,max=255"`
	Location       *string `json:"location" binding:"omitempty,max=255"`
	Notes          *string `json:"notes"`
	AppliedDate    *string `json:"applied_date"`
	NextActionDate *string `json:"next_action_date"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Detail string `json:"detail" binding:"max=500"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) parseEmail(c *gin.Context) {
	var req parseRequest
	if !bind(c, &req) {
		return
	}
	res, scores := emailparse.Explain(req.Text)
	c.JSON(http.StatusOK, parseResponse{Result: res, Scores: scores})
}

func (s *Server) ingestEmail(c *gin.Context) {
	var req ingestRequest
	if !bind(c, &req) {
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	tr, err := s.ingester.Ingest(c.Request.Context(), req.Text, source)
	var ie *model.IncompleteError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ie.Error(), "missing": ie.Missing})
		return
	case err != nil:
		s.internalError(c, "ingest email", err)
		return
	}

	code := http.StatusOK
	if tr.Created {
		code = http.StatusCreated
	}
	c.JSON(code, ingestResponse{
		Application: tr.Application,
		From:        tr.From,
		Created:     tr.Created,
		Changed:     tr.Changed(),
	})
}

func (s *Server) listApplications(c *gin.Context) {
	var status model.Status
	if raw := c.Query("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + raw})
			return
		}
		status = st
	}

	apps, err := s.store.ListApplications(status)
	if err != nil {
		s.internalError(c, "list applications", err)
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

func (s *Server) createApplication(c *gin.Context) {
	var req createRequest
	if !bind(c, &req) {
		return
	}
	var status model.Status
	if req.Status != "" {
		st, ok := model.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
			return
		}
		status = st
	}

	app, err := s.ingester.Add(c.Request.Context(), model.Application{
		Company:        req.Company,
		Role:           req.Role,
		Status:         status,
		Source:         req.Source,
		Location:       req.Location,
		Notes:          req.Notes,
		AppliedDate:    req.AppliedDate,
		NextActionDate: req.NextActionDate,
	})
	if err != nil {
		s.storeError(c, "create application", err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (s *Server) editApplication(c *gin.Context) {
	var req patchRequest
	if !bind(c, &req) {
		return
	}
	patch := model.ApplicationPatch(req)
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	app, err := s.ingester.Edit(c.Param("id"), patch)
	if err != nil {
		s.storeError(c, "edit application", err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) getApplication(c *gin.Context) {
	app, err := s.store.GetApplication(c.Param("id"))
	if err != nil {
		s.storeError(c, "get application", err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) updateStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
		return
	}
	detail := req.Detail
	if detail == "" {
		detail = "manual update"
	}

	id := c.Param("id")
	if err := s.store.UpdateStatus(id, status, detail); err != nil {
		s.storeError(c, "update status", err)
		return
	}
	app, err := s.store.GetApplication(id)
	if err != nil {
		s.storeError(c, "get application", err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) deleteApplication(c *gin.Context) {
	if err := s.store.DeleteApplication(c.Param("id")); err != nil {
		s.storeError(c, "delete application", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listEvents(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetApplication(id); err != nil {
		s.storeError(c, "get application", err)
		return
	}
	events, err := s.store.ListEvents(id)
	if err != nil {
		s.internalError(c, "list events", err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// bind decodes the JSON body into req, writing 413 or 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "an application with this company and role already exists"})
	case errors.Is(err, model.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.internalError(c, op, err)
	}
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
