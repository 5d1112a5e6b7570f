package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seminar-ops/scheduling-api/internal/dto"
	"github.com/seminar-ops/scheduling-api/internal/service"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
	"github.com/seminar-ops/scheduling-api/pkg/response"
)

// TrainerHandler handles trainer endpoints.
type TrainerHandler struct {
	service *service.TrainerService
}

// NewTrainerHandler constructs a trainer handler.
func NewTrainerHandler(svc *service.TrainerService) *TrainerHandler {
	return &TrainerHandler{service: svc}
}

// List godoc
// @Summary List trainers
// @Tags Trainers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trainers [get]
func (h *TrainerHandler) List(c *gin.Context) {
	trainers, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainers, nil)
}

// Get godoc
// @Summary Get trainer by id with assigned courses
// @Tags Trainers
// @Produce json
// @Param id path int true "Trainer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainers/{id} [get]
func (h *TrainerHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create trainer
// @Tags Trainers
// @Accept json
// @Produce json
// @Param payload body dto.TrainerRequest true "Trainer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trainers [post]
func (h *TrainerHandler) Create(c *gin.Context) {
	var req dto.TrainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trainer payload"))
		return
	}
	trainer, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, trainer)
}

// Update godoc
// @Summary Update trainer
// @Tags Trainers
// @Accept json
// @Produce json
// @Param id path int true "Trainer ID"
// @Param payload body dto.TrainerRequest true "Trainer payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trainers/{id} [put]
func (h *TrainerHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TrainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid trainer payload"))
		return
	}
	trainer, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainer, nil)
}

// Delete godoc
// @Summary Delete trainer
// @Description Removes the trainer and unassigns every course referencing
// @Description them in one transaction. Responds with the number of
// @Description courses that lost their trainer.
// @Tags Trainers
// @Produce json
// @Param id path int true "Trainer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainers/{id} [delete]
func (h *TrainerHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	unassigned, err := h.service.Delete(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unassignedCourses": unassigned}, nil)
}
