package store

// Audit delivery statuses.
const (
	AuditStatusPending   = "pending"
	AuditStatusDelivered = "delivered"
	AuditStatusDLQ       = "dlq"
)

// AuditDelivery is one queued audit event awaiting dispatch to the
// configured sink. The worker owns the sink URL and secret; the queue only
// carries the event itself.
type AuditDelivery struct {
	ID            string
	BusinessID    string
	Action        string
	Payload       []byte
	Status        string
	Attempts      int
	NextAttemptAt string // RFC3339
	LastError     string
	ResponseCode  int
	CreatedAt     string
	UpdatedAt     string
}
