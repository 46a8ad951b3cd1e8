package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// errorTemplates maps HTTP status codes to their error template paths.
var errorTemplates = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusForbidden:           "errors/403.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusMethodNotAllowed:    "errors/405.html",
	http.StatusInternalServerError: "errors/500.html",
}

// errorBody is the JSON error shape shared with the middleware package.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// renderError sends an error response appropriate for the client.
// Browsers get the matching error template (errors/500.html for unmapped
// codes, plain text if rendering panics); JSON clients get errorBody.
func renderError(c *gin.Context, code int, message string) {
	accept := strings.ToLower(c.GetHeader("Accept"))
	// Explicit JSON request; checked first because acceptsHTML also matches */*.
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		c.JSON(code, errorBody{Code: code, Message: message})
		return
	}
	if acceptsHTML(c) {
		renderHTMLErrorPage(c, code)
		return
	}
	c.JSON(code, errorBody{Code: code, Message: message})
}

func renderHTMLErrorPage(c *gin.Context, code int) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("%d %s", code, http.StatusText(code))))
		}
	}()

	tmpl, ok := errorTemplates[code]
	if !ok {
		tmpl = errorTemplates[http.StatusInternalServerError]
	}
	c.HTML(code, tmpl, gin.H{"Status": code, "StatusText": http.StatusText(code)})
}

// acceptsHTML matches text/html, */* (browser default), and an empty Accept.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}
