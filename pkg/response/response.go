package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
	"github.com/noah-isme/lawmon-api/pkg/middleware/requestid"
)

const (
	metaKey      = "response_meta"
	startedAtKey = "response_started_at"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// MarkStart records when request processing began so responses can report their latency.
func MarkStart(c *gin.Context) {
	c.Set(startedAtKey, time.Now())
}

// SetMeta attaches a metadata entry to the response being built.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, _ := c.Get(metaKey)
	typed, ok := meta.(map[string]interface{})
	if !ok {
		typed = make(map[string]interface{})
		c.Set(metaKey, typed)
	}
	typed[key] = value
}

// Meta returns the metadata collected for the response, including the request ID and latency.
func Meta(c *gin.Context) map[string]interface{} {
	out := make(map[string]interface{})
	if raw, exists := c.Get(metaKey); exists {
		if typed, ok := raw.(map[string]interface{}); ok {
			for k, v := range typed {
				out[k] = v
			}
		}
	}
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	if raw, exists := c.Get(startedAtKey); exists {
		if started, ok := raw.(time.Time); ok {
			out["processing_time_ms"] = time.Since(started).Milliseconds()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// JSON sends a success response carrying the collected metadata.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, Envelope{Data: data, Meta: Meta(c)})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	env := Envelope{Error: appErr}
	if id := requestid.Value(c); id != "" {
		env.Meta = map[string]interface{}{"request_id": id}
	}
	c.JSON(appErr.Status, env)
}

// Attachment sends a downloadable file body.
func Attachment(c *gin.Context, filename, contentType string, payload []byte) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}
