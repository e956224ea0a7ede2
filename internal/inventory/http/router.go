package http

import "github.com/gin-gonic/gin"

// Register attaches inventory admin routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/agents", h.createAgent)
	rg.POST("/projects", h.createProject)

	rg.POST("/configs", h.createConfig)
	rg.GET("/configs", h.listConfigs)
	rg.GET("/configs/:id", h.getConfig)
	rg.PUT("/configs/:id/columns", h.upsertColumnMapping)
	rg.PATCH("/configs/:id/active", h.setActive)
	rg.GET("/configs/:id/changes", h.listChanges)
	rg.POST("/configs/:id/scan", h.scanConfig)

	rg.POST("/scan", h.triggerRun)
}
