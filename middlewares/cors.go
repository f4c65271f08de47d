package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// CORS allows any origin and the headers the Supabase client sends. The
// allow headers are set on every response, with or without an Origin.
// Preflight requests get a bare 200.
func CORS() gin.HandlerFunc {
	handler := cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              corsAllowHeaders,
		ExposeHeaders:             []string{"Content-Length"},
		OptionsResponseStatusCode: http.StatusOK,
	})
	allowHeaders := strings.Join(corsAllowHeaders, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		handler(c)
	}
}
