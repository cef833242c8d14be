package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qbdsync/backend/internal/application/qbwc"
	"github.com/qbdsync/backend/internal/domain/shared"
	"github.com/qbdsync/backend/internal/infrastructure/logger"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Web Connector callbacks
const (
	ActionServerVersion      = "serverVersion"
	ActionClientVersion      = "clientVersion"
	ActionAuthenticate       = "authenticate"
	ActionSendRequestXML     = "sendRequestXML"
	ActionReceiveResponseXML = "receiveResponseXML"
	ActionGetLastError       = "getLastError"
	ActionConnectionError    = "connectionError"
	ActionCloseConnection    = "closeConnection"
)

const soapContentType = "text/xml; charset=utf-8"

// WebConnector is the protocol state machine behind the SOAP endpoint
type WebConnector interface {
	ServerVersion() string
	ClientVersion(version string) string
	Authenticate(ctx context.Context, username, password string) (qbwc.AuthResult, error)
	SendRequestXML(ctx context.Context, ticket string) (string, error)
	ReceiveResponseXML(ctx context.Context, in qbwc.ResponseInput) (int, error)
	GetLastError(ctx context.Context, ticket string) (string, error)
	ConnectionError(ctx context.Context, ticket, hresult, message string) (string, error)
	CloseConnection(ctx context.Context, ticket string) (string, error)
}

// QBWCHandler serves the QuickBooks Web Connector SOAP endpoint. Domain
// errors are answered in-band the way the Web Connector expects; anything
// else becomes a SOAP fault.
type QBWCHandler struct {
	connector WebConnector
	logger    *zap.Logger
}

// NewQBWCHandler creates a new QBWCHandler
func NewQBWCHandler(connector WebConnector, logger *zap.Logger) *QBWCHandler {
	return &QBWCHandler{connector: connector, logger: logger}
}

// Serve handles POST /qbwc
func (h *QBWCHandler) Serve(c *gin.Context) {
	call, err := decodeCall(c.Request.Body)
	if err != nil {
		h.logger.Warn("Rejecting malformed SOAP request", zap.Error(err))
		h.fault(c, faultClient, err.Error())
		return
	}
	action := call.Action()
	c.Set(middleware.SOAPActionKey, action)

	ctx := c.Request.Context()
	var response callResponse

	switch action {
	case ActionServerVersion:
		response = newStringResponse(action, h.connector.ServerVersion())

	case ActionClientVersion:
		response = newStringResponse(action, h.connector.ClientVersion(call.Version))

	case ActionAuthenticate:
		res, err := h.connector.Authenticate(ctx, call.UserName, call.Password)
		if err != nil {
			h.serverFault(c, action, err)
			return
		}
		response = newArrayResponse(action, res.Ticket, res.Status)

	case ActionSendRequestXML:
		doc, err := h.connector.SendRequestXML(ctx, call.Ticket)
		if err != nil && !isDomainError(err) {
			h.serverFault(c, action, err)
			return
		}
		// an empty request makes the Web Connector ask getLastError
		response = newStringResponse(action, doc)

	case ActionReceiveResponseXML:
		percent, err := h.connector.ReceiveResponseXML(ctx, qbwc.ResponseInput{
			Ticket:   call.Ticket,
			Response: call.Response,
			HResult:  call.HResult,
			Message:  call.Message,
		})
		if err != nil {
			if !isDomainError(err) {
				h.serverFault(c, action, err)
				return
			}
			percent = qbwc.ProgressFailed
		}
		response = newIntResponse(action, percent)

	case ActionGetLastError:
		message, err := h.connector.GetLastError(ctx, call.Ticket)
		if err != nil {
			if !isDomainError(err) {
				h.serverFault(c, action, err)
				return
			}
			message = err.Error()
		}
		response = newStringResponse(action, message)

	case ActionConnectionError:
		status, err := h.connector.ConnectionError(ctx, call.Ticket, call.HResult, call.Message)
		if err != nil {
			if !isDomainError(err) {
				h.serverFault(c, action, err)
				return
			}
			status = qbwc.ConnectionErrorDone
		}
		response = newStringResponse(action, status)

	case ActionCloseConnection:
		status, err := h.connector.CloseConnection(ctx, call.Ticket)
		if err != nil {
			if !isDomainError(err) {
				h.serverFault(c, action, err)
				return
			}
			status = err.Error()
		}
		response = newStringResponse(action, status)

	default:
		h.fault(c, faultClient, "unknown operation "+action)
		return
	}

	h.write(c, http.StatusOK, response)
}

func isDomainError(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr)
}

func (h *QBWCHandler) serverFault(c *gin.Context, action string, err error) {
	logger.L(c.Request.Context()).Error("Web Connector callback failed",
		zap.String("soap_action", action),
		zap.Error(err))
	_ = c.Error(err)
	h.fault(c, faultServer, "internal server error")
}

// fault answers with a SOAP 1.1 fault, which travels with HTTP 500
func (h *QBWCHandler) fault(c *gin.Context, code, message string) {
	h.write(c, http.StatusInternalServerError, soapFault{Code: code, String: message})
}

func (h *QBWCHandler) write(c *gin.Context, status int, content any) {
	body, err := encodeEnvelope(content)
	if err != nil {
		h.logger.Error("Failed to encode SOAP response", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, soapContentType, body)
}
