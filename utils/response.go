package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func JSONError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": gin.H{"message": message}})
}

// JSONErrorCode carries a machine-readable code next to the message. extra is merged
// into the error object.
func JSONErrorCode(c *gin.Context, status int, code, message string, extra gin.H) {
	body := gin.H{"code": code, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, gin.H{"success": false, "error": body})
}
