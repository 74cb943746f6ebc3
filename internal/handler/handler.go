// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"net/http"

	playground "github.com/go-playground/validator/v10"

	"github.com/zhiban/zhiban/internal/repository"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/scheduler/engine"
)

// Handler 排班服务处理器
type Handler struct {
	engine     *engine.Engine
	rosters    *repository.RosterRepository
	carryovers *repository.CarryoverRepository
	validate   *playground.Validate
}

// New 创建处理器
// rosters/carryovers 为 nil 时持久化端点返回 503
func New(eng *engine.Engine, rosters *repository.RosterRepository, carryovers *repository.CarryoverRepository) *Handler {
	return &Handler{
		engine:     eng,
		rosters:    rosters,
		carryovers: carryovers,
		validate:   playground.New(playground.WithRequiredStructEnabled()),
	}
}

// respondJSON 输出 JSON 响应
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Msg("写入响应失败")
	}
}

// errorBody 统一的错误响应体
type errorBody struct {
	Error   bool                   `json:"error"`
	Code    errors.Code            `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// respondError 按错误码映射 HTTP 状态输出错误
func respondError(w http.ResponseWriter, err error) {
	body := errorBody{
		Error:   true,
		Code:    errors.GetCode(err),
		Message: err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		body.Message = appErr.Message
		body.Details = appErr.Details
		body.Fields = appErr.Fields
	}
	respondJSON(w, errors.GetHTTPStatus(err), body)
}

// validationError 把结构体校验失败翻译成字段级错误
func (h *Handler) validationError(err error) error {
	verrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.CodeValidationFail, "请求校验失败")
	}
	out := &errors.ValidationErrors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), fe.Tag())
	}
	return out.ToAppError()
}

// requireStore 持久化依赖检查
func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.rosters == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: true, Code: errors.CodeInternal, Message: "持久化未启用",
		})
		return false
	}
	return true
}
