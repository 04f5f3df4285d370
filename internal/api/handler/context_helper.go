package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/middleware"
	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/service"
)

const dateLayout = "2006-01-02"

// MustGetUserID достаёт id пользователя, положенный middleware.Identity.
// При false ответ уже записан.
func MustGetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		response.Unauthorized(c, "unauthenticated")
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		response.Unauthorized(c, "unauthenticated")
		return uuid.Nil, false
	}
	return id, true
}

// uuidParam разбирает path-параметр name.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// uuidQuery разбирает обязательный query-параметр name.
func uuidQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		response.BadRequest(c, name+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// dateQuery разбирает необязательную дату YYYY-MM-DD; nil, если параметра нет.
func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		response.BadRequest(c, name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

// intQuery возвращает целый query-параметр или def.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// writeError переводит ошибку ядра в HTTP-ответ. Внутренние ошибки пишутся в logger.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	e, ok := service.AsError(err)
	if !ok || e.Kind == service.KindInternal {
		_ = c.Error(err)
		logger.Error("internal error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err),
		)
		response.InternalError(c)
		return
	}

	var data any
	if e.SlotID != uuid.Nil {
		data = response.SlotError{SlotID: e.SlotID.String(), Reason: string(e.Reason)}
	}

	switch e.Kind {
	case service.KindInvalidInput:
		response.ErrorWithData(c, http.StatusBadRequest, response.CodeInvalidParams, e.Message, data)
	case service.KindNotFound:
		response.ErrorWithData(c, http.StatusNotFound, response.CodeNotFound, e.Message, data)
	case service.KindConflict:
		response.Conflict(c, e.SlotID.String(), string(e.Reason), e.Message)
	default:
		response.InternalError(c)
	}
}
