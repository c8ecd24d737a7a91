package handler

import (
	"net/http"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/response"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/cursolab/campus-backend/internal/validator"
	"github.com/cursolab/campus-backend/internal/viewmodel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnrollmentHandler serves enrollment queries, mutations and the cached overview.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
	overview          *viewmodel.EnrollmentList
	log               zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService, overview *viewmodel.EnrollmentList, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		overview:          overview,
		log:               log.With().Str("component", "enrollment_handler").Logger(),
	}
}

type listEnrollmentsQuery struct {
	StudentID   string `form:"student_id" binding:"omitempty,uuid"`
	CourseID    string `form:"course_id" binding:"omitempty,uuid"`
	StudentName string `form:"student_name" binding:"max=100"`
	Term        string `form:"term" binding:"max=20"`
	Passing     bool   `form:"passing"`
}

// List godoc
// GET /api/v1/enrollments
// Filters combine; results are newest first.
func (h *EnrollmentHandler) List(c *gin.Context) {
	var q listEnrollmentsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	filter := model.EnrollmentFilter{
		StudentID:           optionalUUID(q.StudentID),
		CourseID:            optionalUUID(q.CourseID),
		StudentNameContains: q.StudentName,
		Term:                q.Term,
		PassingOnly:         q.Passing,
	}

	enrollments, err := h.enrollmentService.List(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// Passing godoc
// GET /api/v1/enrollments/passing
func (h *EnrollmentHandler) Passing(c *gin.Context) {
	enrollments, err := h.enrollmentService.ListPassing(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// Overview godoc
// GET /api/v1/enrollments/overview
// Returns the cached lists as of the last reload.
func (h *EnrollmentHandler) Overview(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"overview": h.overview.Snapshot()})
}

// ReloadOverview godoc
// POST /api/v1/enrollments/overview/reload
// A failed reload still answers with the snapshot, flagged as stale.
func (h *EnrollmentHandler) ReloadOverview(c *gin.Context) {
	_ = h.overview.Reload(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"overview": h.overview.Snapshot()})
}

func (h *EnrollmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Get(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req model.EnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	e := enrollmentFromRequest(&req)
	if err := h.enrollmentService.Create(c.Request.Context(), e); err != nil {
		failFromError(c, h.log, err)
		return
	}
	h.respondDetail(c, http.StatusCreated, e.ID)
}

func (h *EnrollmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.EnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	e := enrollmentFromRequest(&req)
	e.ID = id
	if err := h.enrollmentService.Update(c.Request.Context(), e); err != nil {
		failFromError(c, h.log, err)
		return
	}
	h.respondDetail(c, http.StatusOK, id)
}

func (h *EnrollmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.enrollmentService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// respondDetail re-reads the enrollment so the response carries the
// student and course as stored now.
func (h *EnrollmentHandler) respondDetail(c *gin.Context, status int, id uuid.UUID) {
	detail, err := h.enrollmentService.Get(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, status, gin.H{"enrollment": detail})
}

func enrollmentFromRequest(req *model.EnrollmentRequest) *model.Enrollment {
	e := &model.Enrollment{Term: req.Term, Grade: req.Grade}
	if req.StudentID != nil {
		e.StudentID = optionalUUID(*req.StudentID)
	}
	if req.CourseID != nil {
		e.CourseID = optionalUUID(*req.CourseID)
	}
	return e
}

// optionalUUID parses s, returning nil for an empty or malformed value.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
