package audit

import "github.com/gin-gonic/gin"

// AuditModule implements the app.Module interface for the audit reports.
type AuditModule struct {
	pageHandler *ReportPageHandler
}

// NewModule creates a new AuditModule with the given handler.
// Panics if ph is nil.
func NewModule(ph *ReportPageHandler) *AuditModule {
	if ph == nil {
		panic("audit.NewModule: pageHandler must not be nil")
	}
	return &AuditModule{pageHandler: ph}
}

// RegisterRoutes registers the report page routes.
func (m *AuditModule) RegisterRoutes(pages *gin.RouterGroup) {
	pages.GET("/reports/:name", m.pageHandler.Show)
	pages.POST("/reports/:name", m.pageHandler.Submit)
	pages.GET("/reports/:name/policy", m.pageHandler.PolicyDocument)
}
