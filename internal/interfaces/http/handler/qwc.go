package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/realm"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/qbdsync/backend/internal/interfaces/http/middleware"
)

// RealmLookup resolves a realm by id or schema name
type RealmLookup interface {
	Lookup(ctx context.Context, identifier string) (*realm.Realm, error)
}

// QWCHandler serves the connector descriptor a QuickBooks user imports
// into the Web Connector.
type QWCHandler struct {
	BaseHandler
	realms   RealmLookup
	defaults config.QBWCConfig
}

// NewQWCHandler creates a new QWCHandler
func NewQWCHandler(realms RealmLookup, defaults config.QBWCConfig) *QWCHandler {
	return &QWCHandler{realms: realms, defaults: defaults}
}

// QWCQuery holds the per-download overrides of the configured defaults
type QWCQuery struct {
	AppName          string `form:"app_name" binding:"omitempty,max=100"`
	AppDescription   string `form:"app_description" binding:"omitempty,max=255"`
	FileID           string `form:"file_id" binding:"omitempty,uuid"`
	OwnerID          string `form:"owner_id" binding:"omitempty,uuid"`
	RunEveryNMinutes *int   `form:"run_every_n_minutes" binding:"omitempty,min=0,max=1440"`
}

// Download handles GET /qbwc/realms/:id/qwc
func (h *QWCHandler) Download(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	tokenRealm, ok := h.realmID(c)
	if !ok {
		return
	}
	// a token only ever reveals its own realm
	if tokenRealm != id {
		h.NotFound(c, "Realm not found")
		return
	}

	var q QWCQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	r, err := h.realms.Lookup(c.Request.Context(), id.String())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	body, err := h.descriptor(c, r, q).Marshal()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.qwc"`, r.SchemaName))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *QWCHandler) descriptor(c *gin.Context, r *realm.Realm, q QWCQuery) qbxml.ConnectorDescriptor {
	d := h.defaults
	desc := qbxml.ConnectorDescriptor{
		AppName:        firstNonEmpty(q.AppName, d.AppName),
		AppID:          d.AppID,
		AppURL:         firstNonEmpty(d.AppURL, requestEndpoint(c)),
		AppDescription: firstNonEmpty(q.AppDescription, d.AppDescription, r.Name),
		AppSupport:     firstNonEmpty(d.AppSupport, requestEndpoint(c)),
		UserName:       r.ID.String(),
		OwnerID:        braced(firstNonEmpty(q.OwnerID, d.OwnerID)),
		FileID:         braced(firstNonEmpty(q.FileID, d.FileID, uuid.NewString())),
		QBType:         firstNonEmpty(d.QBType, qbxml.QBTypeFinancial),
	}

	minutes := d.RunEveryNMinutes
	if q.RunEveryNMinutes != nil {
		minutes = *q.RunEveryNMinutes
	}
	if minutes > 0 {
		desc.Scheduler = &qbxml.Scheduler{RunEveryNMinutes: minutes}
	}
	return desc
}

// requestEndpoint rebuilds the SOAP endpoint from the incoming request
func requestEndpoint(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host + "/qbwc"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// braced formats a GUID the way the Web Connector stores it
func braced(id string) string {
	if id == "" || id[0] == '{' {
		return id
	}
	return "{" + id + "}"
}
