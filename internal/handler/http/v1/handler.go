package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/internal/service"
	"github.com/shenikar/safety_dispatch/pkg/e"
	pkgvalidator "github.com/shenikar/safety_dispatch/pkg/validator"
	"github.com/sirupsen/logrus"
)

const (
	codeValidation        = "validation"
	codeNotPermitted      = "not_permitted"
	codeNotFound          = "not_found"
	codeAlreadyActive     = "already_active"
	codeIllegalTransition = "illegal_transition"
	codeInternal          = "internal"
)

type Handler struct {
	reportService    service.ReportService
	alertService     service.AlertService
	responderService service.ResponderService
	contactService   service.ContactService
	logger           *logrus.Logger
	validate         *validator.Validate
	cfg              *config.Config
}

func NewHandler(
	reportService service.ReportService,
	alertService service.AlertService,
	responderService service.ResponderService,
	contactService service.ContactService,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		reportService:    reportService,
		alertService:     alertService,
		responderService: responderService,
		contactService:   contactService,
		logger:           logger,
		validate:         pkgvalidator.New(),
		cfg:              cfg,
	}
}

// respondError отображает ошибки сервисов на HTTP-статусы.
// ErrActorNotPermitted проверяется первым: он оборачивается вместе с ErrIllegalTransition.
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, e.ErrActorNotPermitted):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "actor not permitted", Code: codeNotPermitted})
	case errors.Is(err, e.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeValidation})
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: codeNotFound})
	case errors.Is(err, e.ErrAlreadyActive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "panic alert already active", Code: codeAlreadyActive})
	case errors.Is(err, e.ErrIllegalTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: codeIllegalTransition})
	default:
		log.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: codeInternal})
	}
}

// bind разбирает и проверяет тело запроса; при ошибке ответ уже отправлен
func (h *Handler) bind(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: codeValidation})
		return false
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeValidation})
		return false
	}
	return true
}

func (h *Handler) requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "X-Actor-ID header required", Code: codeValidation})
		return models.Actor{}, false
	}
	return actor, true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param, Code: codeValidation})
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return page, pageSize
}

// @Summary Submit an incident report
// @Description Submit a new incident report. The reporter is taken from X-Actor-ID. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Reporter ID"
// @Param report body CreateReportRequest true "Report submission request"
// @Success 201 {object} ReportResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 429 {object} ErrorResponse "Too many requests"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports [post]
func (h *Handler) submitReport(c *gin.Context) {
	log := h.logger.WithField("method", "submitReport")
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var input CreateReportRequest
	if !h.bind(c, log, &input) {
		return
	}

	report, err := h.reportService.SubmitReport(c.Request.Context(), DTOToReportDraft(input, actor.ID))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToReportResponse(report))
}

// @Summary List reports
// @Description Get a paginated list of reports filtered by reporter, responder and status. Requires API key.
// @Tags Reports
// @Produce json
// @Security ApiKeyAuth
// @Param reporter_id query string false "Reporter ID"
// @Param responder_id query string false "Assigned responder ID"
// @Param status query string false "Status" Enums(pending, in-progress, resolved)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} ReportResponse
// @Failure 400 {object} ErrorResponse "Unknown status"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports [get]
func (h *Handler) listReports(c *gin.Context) {
	log := h.logger.WithField("method", "listReports")
	page, pageSize := pagination(c)

	filter := models.ReportFilter{
		ReporterID:  c.Query("reporter_id"),
		ResponderID: c.Query("responder_id"),
		Status:      models.ReportStatus(c.Query("status")),
		Page:        page,
		PageSize:    pageSize,
	}
	reports, err := h.reportService.ListReports(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToReportResponses(reports))
}

// @Summary Get report by ID
// @Description Get a single report by its ID. Requires API key.
// @Tags Reports
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} ErrorResponse "Invalid report ID"
// @Failure 404 {object} ErrorResponse "Report not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/{id} [get]
func (h *Handler) getReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getReport").WithField("id", id)

	report, err := h.reportService.GetReport(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report))
}

// @Summary Claim a report
// @Description Claim a pending report for the calling volunteer. Exactly one concurrent claimer wins; losing is not an error. Requires API key.
// @Tags Reports
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Responder ID"
// @Param id path string true "Report ID"
// @Success 200 {object} ClaimResponse
// @Failure 400 {object} ErrorResponse "Invalid report ID"
// @Failure 404 {object} ErrorResponse "Report not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/{id}/claim [post]
func (h *Handler) claimReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "claimReport").WithField("id", id)

	outcome, err := h.reportService.ClaimIncident(c.Request.Context(), id, actor.ID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, claimResponse(outcome))
}

// @Summary Resolve a report
// @Description Resolve a report. Allowed for the assigned volunteer or an authority. Requires API key.
// @Tags Reports
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Actor ID"
// @Param X-Actor-Role header string false "Actor role" Enums(reporter, volunteer, authority)
// @Param id path string true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Failure 404 {object} ErrorResponse "Report not found"
// @Failure 409 {object} ErrorResponse "Illegal transition"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/{id}/resolve [post]
func (h *Handler) resolveReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "resolveReport").WithField("id", id)

	report, err := h.reportService.ResolveIncident(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report))
}

// @Summary Change report status
// @Description Apply a status transition. Only resolved is reachable here; in-progress is set by claim. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Actor ID"
// @Param X-Actor-Role header string false "Actor role" Enums(reporter, volunteer, authority)
// @Param id path string true "Report ID"
// @Param status body UpdateStatusRequest true "Target status"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Failure 404 {object} ErrorResponse "Report not found"
// @Failure 409 {object} ErrorResponse "Illegal transition"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reports/{id}/status [patch]
func (h *Handler) updateReportStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "updateReportStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bind(c, log, &input) {
		return
	}

	report, err := h.reportService.Transition(c.Request.Context(), id, models.ReportStatus(input.Status), actor)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report))
}

// @Summary Trigger a panic alert
// @Description Activate a panic alert for the calling reporter. Location is optional. Requires API key.
// @Tags Emergency
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Reporter ID"
// @Param alert body TriggerPanicRequest false "Optional location"
// @Success 201 {object} PanicAlertResponse
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 409 {object} ErrorResponse "Panic alert already active"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /emergency/panic [post]
func (h *Handler) triggerPanic(c *gin.Context) {
	log := h.logger.WithField("method", "triggerPanic")
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var input TriggerPanicRequest
	if c.Request.ContentLength != 0 {
		if !h.bind(c, log, &input) {
			return
		}
	}

	req := models.ActivateAlert{
		ReporterID: actor.ID,
		Location:   optionalLocation(input.Latitude, input.Longitude, input.Address),
	}
	alert, err := h.alertService.TriggerPanic(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToPanicAlertResponse(alert))
}

// @Summary Get panic alert by ID
// @Tags Emergency
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} PanicAlertResponse
// @Failure 400 {object} ErrorResponse "Invalid alert ID"
// @Failure 404 {object} ErrorResponse "Alert not found"
// @Router /emergency/panic/{id} [get]
func (h *Handler) getPanicAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getPanicAlert").WithField("id", id)

	alert, err := h.alertService.GetAlert(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToPanicAlertResponse(alert))
}

// @Summary Get the active panic alert of a reporter
// @Tags Emergency
// @Produce json
// @Security ApiKeyAuth
// @Param reporter_id query string true "Reporter ID"
// @Success 200 {object} PanicAlertResponse
// @Failure 400 {object} ErrorResponse "Reporter required"
// @Failure 404 {object} ErrorResponse "No active alert"
// @Router /emergency/panic/active [get]
func (h *Handler) getActivePanicAlert(c *gin.Context) {
	log := h.logger.WithField("method", "getActivePanicAlert")

	alert, err := h.alertService.GetActiveAlert(c.Request.Context(), c.Query("reporter_id"))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToPanicAlertResponse(alert))
}

// @Summary Resolve a panic alert
// @Description Close an active alert as resolved. Allowed for the reporter or an authority. Requires API key.
// @Tags Emergency
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Actor ID"
// @Param X-Actor-Role header string false "Actor role" Enums(reporter, volunteer, authority)
// @Param id path string true "Alert ID"
// @Success 200 {object} PanicAlertResponse
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Failure 404 {object} ErrorResponse "Alert not found"
// @Failure 409 {object} ErrorResponse "Illegal transition"
// @Router /emergency/panic/{id}/resolve [post]
func (h *Handler) resolvePanicAlert(c *gin.Context) {
	h.closePanicAlert(c, "resolvePanicAlert", models.AlertResolved)
}

// @Summary Mark a panic alert as false alarm
// @Description Close an active alert as a false alarm. Allowed for the reporter or an authority. Requires API key.
// @Tags Emergency
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Actor ID"
// @Param X-Actor-Role header string false "Actor role" Enums(reporter, volunteer, authority)
// @Param id path string true "Alert ID"
// @Success 200 {object} PanicAlertResponse
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Failure 404 {object} ErrorResponse "Alert not found"
// @Failure 409 {object} ErrorResponse "Illegal transition"
// @Router /emergency/panic/{id}/false-alarm [post]
func (h *Handler) falseAlarmPanicAlert(c *gin.Context) {
	h.closePanicAlert(c, "falseAlarmPanicAlert", models.AlertFalseAlarm)
}

func (h *Handler) closePanicAlert(c *gin.Context, method string, next models.AlertStatus) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", method).WithField("id", id)

	alert, err := h.alertService.TransitionAlert(c.Request.Context(), id, next, actor)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToPanicAlertResponse(alert))
}

// @Summary Acknowledge a panic alert
// @Description Attach the calling responder to an active alert while the responder limit allows. Requires API key.
// @Tags Emergency
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Responder ID"
// @Param id path string true "Alert ID"
// @Success 200 {object} ClaimResponse
// @Failure 404 {object} ErrorResponse "Alert not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /emergency/panic/{id}/acknowledge [post]
func (h *Handler) acknowledgePanicAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "acknowledgePanicAlert").WithField("id", id)

	outcome, err := h.alertService.AcknowledgeAlert(c.Request.Context(), id, actor.ID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, claimResponse(outcome))
}

// @Summary Set responder availability
// @Description Toggle availability of the calling responder, optionally updating location. Requires API key.
// @Tags Responders
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "Responder ID, must match the path"
// @Param id path string true "Responder ID"
// @Param availability body AvailabilityRequest true "Availability"
// @Success 200 {object} ResponderResponse
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Router /responders/{id}/availability [put]
func (h *Handler) setAvailability(c *gin.Context) {
	responderID := c.Param("id")
	log := h.logger.WithField("method", "setAvailability").WithField("id", responderID)
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	if actor.ID != responderID {
		h.respondError(c, log, e.ErrActorNotPermitted)
		return
	}

	var input AvailabilityRequest
	if !h.bind(c, log, &input) {
		return
	}

	location := optionalLocation(input.Latitude, input.Longitude, "")
	responder, err := h.responderService.SetAvailability(c.Request.Context(), responderID, *input.Available, location)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToResponderResponse(responder))
}

// @Summary Reports assigned to a responder
// @Tags Responders
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Responder ID"
// @Param status query string false "Status" Enums(in-progress, resolved)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} ReportResponse
// @Router /responders/{id}/reports [get]
func (h *Handler) responderReports(c *gin.Context) {
	log := h.logger.WithField("method", "responderReports")
	page, pageSize := pagination(c)

	filter := models.ReportFilter{
		ResponderID: c.Param("id"),
		Status:      models.ReportStatus(c.Query("status")),
		Page:        page,
		PageSize:    pageSize,
	}
	reports, err := h.reportService.ListReports(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToReportResponses(reports))
}

// contactOwner разрешает работу с контактами только самому пользователю или службам
func (h *Handler) contactOwner(c *gin.Context, log *logrus.Entry) (string, bool) {
	userID := c.Param("id")
	actor, ok := h.requireActor(c)
	if !ok {
		return "", false
	}
	if actor.ID != userID && !actor.IsAuthority() {
		h.respondError(c, log, e.ErrActorNotPermitted)
		return "", false
	}
	return userID, true
}

// @Summary List emergency contacts
// @Tags Contacts
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "User ID or authority"
// @Param id path string true "User ID"
// @Success 200 {array} ContactResponse
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Router /users/{id}/contacts [get]
func (h *Handler) listContacts(c *gin.Context) {
	log := h.logger.WithField("method", "listContacts")
	userID, ok := h.contactOwner(c, log)
	if !ok {
		return
	}

	contacts, err := h.contactService.ListContacts(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToContactResponses(contacts))
}

// @Summary Add an emergency contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "User ID or authority"
// @Param id path string true "User ID"
// @Param contact body CreateContactRequest true "Contact"
// @Success 201 {object} ContactResponse
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Router /users/{id}/contacts [post]
func (h *Handler) addContact(c *gin.Context) {
	log := h.logger.WithField("method", "addContact")
	userID, ok := h.contactOwner(c, log)
	if !ok {
		return
	}

	var input CreateContactRequest
	if !h.bind(c, log, &input) {
		return
	}

	contact, err := h.contactService.AddContact(c.Request.Context(), models.EmergencyContact{
		UserID:       userID,
		Name:         input.Name,
		PhoneNumber:  input.PhoneNumber,
		Relationship: input.Relationship,
	})
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToContactResponse(contact))
}

// @Summary Delete an emergency contact
// @Tags Contacts
// @Security ApiKeyAuth
// @Param X-Actor-ID header string true "User ID or authority"
// @Param id path string true "User ID"
// @Param contactId path string true "Contact ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse "Actor not permitted"
// @Failure 404 {object} ErrorResponse "Contact not found"
// @Router /users/{id}/contacts/{contactId} [delete]
func (h *Handler) deleteContact(c *gin.Context) {
	log := h.logger.WithField("method", "deleteContact")
	userID, ok := h.contactOwner(c, log)
	if !ok {
		return
	}

	if err := h.contactService.DeleteContact(c.Request.Context(), userID, c.Param("contactId")); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
