package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// abortWithError stops the chain with status. Browsers get the matching
// errors/<status>.html page, other clients a JSON body. A missing renderer or
// template degrades to plain text.
func abortWithError(c *gin.Context, status int, message string) {
	c.Abort()

	if !acceptsHTML(c) {
		c.JSON(status, gin.H{"code": status, "message": message})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.Data(status, "text/plain; charset=utf-8", []byte(strconv.Itoa(status)+" "+http.StatusText(status)))
		}
	}()
	c.HTML(status, "errors/"+strconv.Itoa(status)+".html", gin.H{})
}

// acceptsHTML reports whether the client asked for HTML.
func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
