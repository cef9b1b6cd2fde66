package api

import "github.com/gin-gonic/gin"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func fail(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message, Details: details}})
}
