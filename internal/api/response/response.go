package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Коды ошибок в теле ответа.
const (
	CodeOK              = 0
	CodeInvalidParams   = 10001
	CodeUnauthenticated = 10002
	CodeTooManyRequests = 10004
	CodeNotFound        = 20001
	CodeSlotConflict    = 30001
	CodeInternal        = 50000
)

// Response — единый конверт ответа.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Details string `json:"details,omitempty"`
}

type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

type PageData struct {
	List       any        `json:"list"`
	Pagination Pagination `json:"pagination"`
}

// SlotError — слот, из-за которого операция не прошла.
type SlotError struct {
	SlotID string `json:"slot_id"`
	Reason string `json:"reason,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: CodeOK, Message: "success", Data: data})
}

func OKPage(c *gin.Context, list any, p Pagination) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    PageData{List: list, Pagination: p},
	})
}

func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{Code: code, Message: message})
}

func ErrorWithData(c *gin.Context, httpStatus int, code int, message string, data any) {
	c.JSON(httpStatus, Response{Code: code, Message: message, Data: data})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeInvalidParams, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthenticated, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict 409 с id слота и причиной.
func Conflict(c *gin.Context, slotID, reason, message string) {
	ErrorWithData(c, http.StatusConflict, CodeSlotConflict, message, SlotError{SlotID: slotID, Reason: reason})
}

func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
