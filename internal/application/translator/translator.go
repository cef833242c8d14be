// Package translator converts domain records into qbXML requests and applies
// qbXML responses back onto domain records.
package translator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/domain/qbd"
	"github.com/qbdsync/backend/internal/domain/qbxml"
	"github.com/qbdsync/backend/internal/domain/queue"
	"github.com/qbdsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CodeQBXMLStatus marks tasks QuickBooks rejected with a non-success status
const CodeQBXMLStatus = "QBXML_STATUS"

// Outcome summarizes what a response changed locally
type Outcome struct {
	Created int
	Updated int
	Skipped int
}

// handler translates one resource type. It is the accessor behind a
// RecordRef tag.
type handler interface {
	load(ctx context.Context, recs qbd.Records, realmID, id uuid.UUID) (qbd.Record, error)
	addPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error)
	modPayload(ctx context.Context, recs qbd.Records, rec qbd.Record) (any, error)
	apply(ctx context.Context, recs qbd.Records, rec qbd.Record, rs *qbxml.Response) error
	importAll(ctx context.Context, recs qbd.Records, realmID uuid.UUID, rs *qbxml.Response) (Outcome, error)
}

// Translator is the registry of resource handlers
type Translator struct {
	handlers map[qbd.ResourceType]handler
	logger   *zap.Logger
}

// New creates a Translator with every supported resource registered
func New(logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Translator{
		handlers: make(map[qbd.ResourceType]handler),
		logger:   logger,
	}
	t.handlers[qbd.ResourceCustomer] = customerHandler{}
	t.handlers[qbd.ResourceInvoice] = invoiceHandler{logger: logger}
	t.handlers[qbd.ResourceItemService] = itemServiceHandler{}
	t.handlers[qbd.ResourceAccount] = accountHandler{}
	return t
}

// Supports reports whether a resource type has a registered handler
func (t *Translator) Supports(resource qbd.ResourceType) bool {
	_, ok := t.handlers[resource]
	return ok
}

// Resolve loads the record a task points at
func (t *Translator) Resolve(ctx context.Context, recs qbd.Records, realmID uuid.UUID, ref qbd.RecordRef) (qbd.Record, error) {
	h, ok := t.handlers[ref.Type]
	if !ok {
		return nil, shared.NewUnsupportedOperationError("no translator registered for %s", ref.Type)
	}
	rec, err := h.load(ctx, recs, realmID, ref.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewLookupError("%s %s does not exist", ref.Type, ref.ID)
		}
		return nil, err
	}
	return rec, nil
}

// BuildRequest produces the qbXML request for a task. Lookup and
// unsupported-operation errors are returned before any XML is built.
func (t *Translator) BuildRequest(ctx context.Context, recs qbd.Records, task *queue.Task) (qbxml.Request, error) {
	h, ok := t.handlers[task.Resource]
	if !ok {
		return qbxml.Request{}, shared.NewUnsupportedOperationError("no translator registered for %s", task.Resource)
	}
	requestID := task.ID.String()

	if task.Operation == queue.OperationQueryAll {
		return qbxml.NewQueryRequest(requestID, task.Resource.String()), nil
	}
	if !task.Operation.IsValid() {
		return qbxml.Request{}, shared.NewUnsupportedOperationError("unknown operation %q", task.Operation)
	}
	if task.Record == nil {
		return qbxml.Request{}, shared.NewLookupError("%s %s has no record reference", task.Operation, task.Resource)
	}

	rec, err := t.Resolve(ctx, recs, task.RealmID, *task.Record)
	if err != nil {
		return qbxml.Request{}, err
	}
	ext := rec.External()
	if task.Operation.RequiresExternalIdentity() && !ext.IsQBDObjCreated() {
		return qbxml.Request{}, shared.NewLookupError("%s %s is not yet created in QuickBooks", task.Resource, rec.GetID())
	}

	switch task.Operation {
	case queue.OperationAdd:
		if ext.IsQBDObjCreated() {
			t.logger.Info("record already exists in QuickBooks, sending modify",
				zap.String("task_id", requestID),
				zap.String("resource", task.Resource.String()))
			return t.modRequest(ctx, h, recs, rec, requestID)
		}
		body, err := h.addPayload(ctx, recs, rec)
		if err != nil {
			return qbxml.Request{}, err
		}
		return qbxml.Request{ID: requestID, Type: task.Resource.String() + "Add", Body: body}, nil

	case queue.OperationMod:
		return t.modRequest(ctx, h, recs, rec, requestID)

	case queue.OperationDelete:
		if task.Resource.IsTransaction() {
			return qbxml.NewTxnDelRequest(requestID, qbxml.TxnDel{
				TxnDelType: task.Resource.String(),
				TxnID:      ext.ListIDOrEmpty(),
			}), nil
		}
		return qbxml.NewListDelRequest(requestID, qbxml.ListDel{
			ListDelType: task.Resource.String(),
			ListID:      ext.ListIDOrEmpty(),
		}), nil

	case queue.OperationVoid:
		if !task.Resource.IsTransaction() {
			return qbxml.Request{}, shared.NewUnsupportedOperationError("%s cannot be voided", task.Resource)
		}
		return qbxml.NewTxnVoidRequest(requestID, qbxml.TxnVoid{
			TxnVoidType: task.Resource.String(),
			TxnID:       ext.ListIDOrEmpty(),
		}), nil
	}

	return qbxml.Request{}, shared.NewUnsupportedOperationError("unknown operation %q", task.Operation)
}

func (t *Translator) modRequest(ctx context.Context, h handler, recs qbd.Records, rec qbd.Record, requestID string) (qbxml.Request, error) {
	body, err := h.modPayload(ctx, recs, rec)
	if err != nil {
		return qbxml.Request{}, err
	}
	return qbxml.Request{ID: requestID, Type: rec.Resource().String() + "Mod", Body: body}, nil
}

// ApplyResponse maps a response onto local records. A rejected status is
// returned as an error the caller records on the task; a stale EditSequence
// is reported as shared.ErrConcurrencyConflict.
func (t *Translator) ApplyResponse(ctx context.Context, recs qbd.Records, task *queue.Task, rs *qbxml.Response) (Outcome, error) {
	h, ok := t.handlers[task.Resource]
	if !ok {
		return Outcome{}, shared.NewUnsupportedOperationError("no translator registered for %s", task.Resource)
	}
	if err := statusError(rs); err != nil {
		return Outcome{}, err
	}

	if task.Operation == queue.OperationQueryAll {
		if err := expectType(rs, task.Resource.String()+"Query"); err != nil {
			return Outcome{}, err
		}
		return h.importAll(ctx, recs, task.RealmID, rs)
	}
	if task.Record == nil {
		return Outcome{}, shared.NewLookupError("%s %s has no record reference", task.Operation, task.Resource)
	}

	rec, err := t.Resolve(ctx, recs, task.RealmID, *task.Record)
	if err != nil {
		return Outcome{}, err
	}
	ext := rec.External()

	switch task.Operation {
	case queue.OperationAdd, queue.OperationMod:
		if rs.Type() != task.Resource.String()+"Add" && rs.Type() != task.Resource.String()+"Mod" {
			return Outcome{}, shared.NewProtocolError("expected %s response, got %s", task.Resource, rs.XMLName.Local)
		}
		if err := h.apply(ctx, recs, rec, rs); err != nil {
			return Outcome{}, err
		}
	case queue.OperationDelete:
		expected := "ListDel"
		if task.Resource.IsTransaction() {
			expected = "TxnDel"
		}
		if err := expectType(rs, expected); err != nil {
			return Outcome{}, err
		}
		ext.ClearExternalState()
	case queue.OperationVoid:
		if err := expectType(rs, "TxnVoid"); err != nil {
			return Outcome{}, err
		}
		ext.InvalidateEditSequence()
	default:
		return Outcome{}, shared.NewUnsupportedOperationError("unknown operation %q", task.Operation)
	}

	if err := save(ctx, recs, rec); err != nil {
		return Outcome{}, err
	}
	return Outcome{Updated: 1}, nil
}

func statusError(rs *qbxml.Response) error {
	err := rs.Err()
	if err == nil {
		return nil
	}
	var statusErr *qbxml.StatusError
	if errors.As(err, &statusErr) && statusErr.IsStaleEditSequence() {
		return shared.NewConcurrencyConflictError("%s", statusErr.Error())
	}
	return shared.NewDomainError(CodeQBXMLStatus, err.Error())
}

func expectType(rs *qbxml.Response, want string) error {
	if rs.Type() != want {
		return shared.NewProtocolError("expected %sRs, got %s", want, rs.XMLName.Local)
	}
	return nil
}

func save(ctx context.Context, recs qbd.Records, rec qbd.Record) error {
	switch r := rec.(type) {
	case *qbd.Customer:
		return recs.Customers().Save(ctx, r)
	case *qbd.Invoice:
		return recs.Invoices().Save(ctx, r)
	case *qbd.ItemService:
		return recs.ItemServices().Save(ctx, r)
	case *qbd.ServiceAccount:
		return recs.Accounts().Save(ctx, r)
	default:
		return fmt.Errorf("save: unsupported record type %T", rec)
	}
}

// boolOr dereferences an optional wire boolean
func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
