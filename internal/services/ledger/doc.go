/*
Package ledger is the reconciliation engine: the orchestrator that keeps
the internally-recorded wallet balance consistent with the payment
gateway's externally-reported outcomes.

It is the only component that talks to both the ledger store and the
gateway adapter. Money movement always follows the same shape: a
transaction row is created, the external side (if any) runs, and a single
idempotent commit resolves the row and the balance together.

Deposit lifecycle:

	svc.InitiateDeposit(...)        -> PENDING row + hosted checkout URL
	webhook or svc.SyncTransactionStatus(...)
	                                -> PENDING -> COMPLETED | FAILED

Purchases, refunds and adjustments have no external step and complete
synchronously. "Insufficient balance" and "wallet frozen" are expected
business outcomes returned as structured results, not errors.

Webhook callbacks are always accepted at the transport level; the
disposition (processed, ignored, rejected signature) is recorded in
telemetry instead of being surfaced to the gateway, which would only
trigger retry storms.
*/
package ledger
