package entity

import "time"

// Acciones de auditoría emitidas por el núcleo.
const (
	AuditActionTransactionRecorded = "transaction.recorded"
	AuditActionLedgerLinked        = "ledger.linked"
	AuditActionLedgerUpdated       = "ledger.updated"
	AuditActionLedgerDeactivated   = "ledger.deactivated"
	AuditActionProductCreated      = "product.created"
	AuditActionUserCreated         = "user.created"
)

// AuditEvent evento de auditoría con instantáneas antes/después.
type AuditEvent struct {
	ID         string
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	StoreID    string
	Before     map[string]any
	After      map[string]any
	Changes    map[string]any
	Metadata   map[string]any
	CreatedAt  time.Time
}
