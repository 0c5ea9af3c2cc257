package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type initiateRequest struct {
	FileName    string `json:"fileName" validate:"required,max=1024"`
	ContentType string `json:"contentType" validate:"required,max=255"`
	FileSize    int64  `json:"fileSize" validate:"gte=0"`
	OwnerID     string `json:"ownerId" validate:"max=255"`
}

type initiateMultipartRequest struct {
	FileName    string `json:"fileName" validate:"required,max=1024"`
	ContentType string `json:"contentType" validate:"required,max=255"`
	FileSize    int64  `json:"fileSize" validate:"required,gt=0"`
	OwnerID     string `json:"ownerId" validate:"max=255"`
}

type confirmRequest struct {
	// IncludeDownloadURL defaults to true when omitted.
	IncludeDownloadURL *bool `json:"includeDownloadUrl"`
}

type completedPart struct {
	PartNumber int32  `json:"partNumber" validate:"gte=1"`
	ETag       string `json:"etag" validate:"required"`
}

type completeMultipartRequest struct {
	Parts []completedPart `json:"parts" validate:"required,min=1,dive"`
}

func (c completeMultipartRequest) toModel() []models.CompletedPart {
	parts := make([]models.CompletedPart, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, models.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	return parts
}

type downloadURLResponse struct {
	SessionID   string    `json:"sessionId"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type deleteResponse struct {
	SessionID string `json:"sessionId"`
	Deleted   bool   `json:"deleted"`
}

type healthResponse struct {
	Status            string `json:"status"`
	StorageConfigured bool   `json:"storageConfigured"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func (s *Server) decode(r *http.Request, dst interface{}, allowEmpty bool) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return common.Validation("invalid request body")
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return common.Validation("%s", describeField(verrs[0]))
		}
		return common.Validation("invalid request body")
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
