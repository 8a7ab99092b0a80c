package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check доступен без ключа
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("", APIKeyAuthMiddleware(h.cfg, h.logger), ActorMiddleware(h.logger))

	// Отчеты об инцидентах
	reports := protected.Group("/reports")
	{
		reports.POST("", RateLimitMiddleware(h.cfg.RateLimitRPS, h.cfg.RateLimitBurst, h.logger), h.submitReport)
		reports.GET("", h.listReports)
		reports.GET("/:id", h.getReport)
		reports.POST("/:id/claim", h.claimReport)
		reports.POST("/:id/resolve", h.resolveReport)
		reports.PATCH("/:id/status", h.updateReportStatus)
	}

	// Тревожная кнопка
	alerts := protected.Group("/emergency/panic")
	{
		alerts.POST("", h.triggerPanic)
		alerts.GET("/active", h.getActivePanicAlert)
		alerts.GET("/:id", h.getPanicAlert)
		alerts.POST("/:id/resolve", h.resolvePanicAlert)
		alerts.POST("/:id/false-alarm", h.falseAlarmPanicAlert)
		alerts.POST("/:id/acknowledge", h.acknowledgePanicAlert)
	}

	// Волонтеры
	responders := protected.Group("/responders")
	{
		responders.PUT("/:id/availability", h.setAvailability)
		responders.GET("/:id/reports", h.responderReports)
	}

	// Экстренные контакты
	users := protected.Group("/users")
	{
		users.GET("/:id/contacts", h.listContacts)
		users.POST("/:id/contacts", h.addContact)
		users.DELETE("/:id/contacts/:contactId", h.deleteContact)
	}
}
