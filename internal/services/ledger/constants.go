package ledger

import "time"

// Default configuration values
const (
	DefaultListPageSize   = 20
	MaxListPageSize       = 100
	DefaultGatewayTimeout = 15 * time.Second
)

// Callback dispositions recorded in telemetry. The transport answer to
// the gateway is always "accepted"; these distinguish what actually
// happened afterwards.
const (
	DispositionProcessed         = "processed"
	DispositionAlreadyResolved   = "already_resolved"
	DispositionStillPending      = "still_pending"
	DispositionUnknownReference  = "unknown_reference"
	DispositionForeignDomain     = "foreign_domain"
	DispositionRejectedSignature = "rejected_signature"
	DispositionMalformed         = "malformed"
	DispositionInternalError     = "internal_error"
)
