package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "video-narrator/pkg/errors"
)

// Response is the envelope of every API reply. Error 0 means success.
type Response struct {
	Error  int32  `json:"error"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Error: 0,
		Msg:   "success",
		Data:  data,
	})
}

// FromError converts an error to a Response. Errors that are not an
// AppError report CodeUnknown.
func FromError(err error) Response {
	if err == nil {
		return Response{
			Error: 0,
			Msg:   "success",
		}
	}

	var detail string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Detail
	}

	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: detail,
		Data:   nil,
	}
}

func ErrorResponse(c *gin.Context, err error) {
	c.JSON(200, FromError(err))
}
