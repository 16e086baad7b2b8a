package rest

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coverline/backend/pkg/auth"
	"github.com/coverline/backend/pkg/constants"
	"github.com/coverline/backend/pkg/errors"
)

// GetActorFromContext extracts the authenticated actor from gin.Context.
// Returns the zero session and false when the middleware did not run.
func GetActorFromContext(c *gin.Context) (auth.ActorSession, bool) {
	actorInterface, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return auth.ActorSession{}, false
	}
	actor, ok := actorInterface.(auth.ActorSession)
	return actor, ok
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	errorCode := errors.GetErrorCode(err)
	message := err.Error()

	if code >= 500 {
		log.Printf("❌ ERROR [%d] %s %s: %s", code, c.Request.Method, c.Request.URL.Path, message)
	}

	c.JSON(code, gin.H{
		constants.ResponseError: message,
		constants.FieldMessage:  message,
		"code":                  errorCode,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleActionEnvelope executes a state-changing action and returns a success message
// Response: { constants.FieldMessage: successMsg }
func HandleActionEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.FieldMessage: successMsg})
}
