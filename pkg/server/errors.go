package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/farmassist/pkg/service/mcp"
	"github.com/m-mizutani/farmassist/pkg/usecase/chat"
)

const (
	apologyInvalid   = "Sorry, I could not understand the request. Please send a non-empty query."
	apologyTools     = "Sorry, the farm tools are unavailable right now. Please try again later."
	apologyTimeout   = "Sorry, it took too long to prepare an answer. Please try again."
	apologyAssistant = "Sorry, the assistant is unavailable right now. Please try again later."
	apologyInternal  = "Sorry, something went wrong while answering. Please try again."
)

// errorResponse maps a chat error to a status code and a message safe to show to the user
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		return http.StatusBadRequest, apologyInvalid
	case errors.Is(err, mcp.ErrToolServerUnreachable):
		return http.StatusServiceUnavailable, apologyTools
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apologyTimeout
	case errors.Is(err, chat.ErrDecision):
		return http.StatusBadGateway, apologyAssistant
	case errors.Is(err, chat.ErrToolLoopExceeded):
		return http.StatusInternalServerError, apologyInternal
	default:
		return http.StatusInternalServerError, apologyInternal
	}
}
