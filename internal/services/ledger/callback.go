package ledger

import (
	"context"
	"errors"
	"log"
	"strings"

	"qirsh/internal/models"
	"qirsh/internal/repositories"
	"qirsh/internal/services/gateway"
)

// Domain tags a correlation-id numbering scheme. The gateway quotes one
// merchant reference per callback; its prefix decides which domain owns
// the resolution.
type Domain string

const (
	DomainWalletTransaction Domain = "wallet_transaction"
	DomainUnknown           Domain = "unknown"
)

// CallbackHandler resolves a verified callback for one domain and
// returns the disposition for telemetry.
type CallbackHandler func(ctx context.Context, cb *gateway.Callback) string

type domainEntry struct {
	prefix string
	domain Domain
	handle CallbackHandler
}

// DomainTable dispatches callbacks by the declared numbering domain of
// their correlation id. Resolution happens once, at the boundary; no
// prefix checks leak into the handlers.
type DomainTable struct {
	entries []domainEntry
}

// NewDomainTable creates an empty dispatch table.
func NewDomainTable() *DomainTable {
	return &DomainTable{}
}

// Register binds a correlation-id prefix to a domain handler.
func (t *DomainTable) Register(prefix string, domain Domain, handler CallbackHandler) {
	t.entries = append(t.entries, domainEntry{prefix: prefix, domain: domain, handle: handler})
}

// Resolve finds the owning domain for a correlation id.
func (t *DomainTable) Resolve(reference string) (Domain, CallbackHandler, bool) {
	for _, e := range t.entries {
		if strings.HasPrefix(reference, e.prefix+"-") {
			return e.domain, e.handle, true
		}
	}
	return DomainUnknown, nil, false
}

// RegisterCallbackDomain lets collaborators that share the gateway account
// (purchase orders, invoices) claim their own numbering prefixes.
func (s *service) RegisterCallbackDomain(prefix string, domain Domain, handler CallbackHandler) {
	s.domains.Register(prefix, domain, handler)
}

// HandleCallback processes a raw gateway webhook. The transport answer is
// always "accepted" so the gateway never retry-storms us; the real
// disposition goes to logs and metrics.
func (s *service) HandleCallback(ctx context.Context, rawPayload []byte, signature string) CallbackResult {
	cb, err := s.gateway.ParseCallback(rawPayload)
	if err != nil {
		log.Printf("callback: malformed payload: %v", err)
		s.metrics.RecordCallback(string(DomainUnknown), DispositionMalformed)
		return CallbackResult{Accepted: true, Disposition: DispositionMalformed}
	}

	if !s.gateway.VerifySignature(cb.Fields(), signature) {
		// Security event: logged distinctly from processing failures, and
		// the payload is never acted on.
		log.Printf("SECURITY: callback signature mismatch for reference %s (gateway id %s)", cb.OrderReference, cb.ExternalID)
		s.metrics.RecordCallback(string(DomainUnknown), DispositionRejectedSignature)
		return CallbackResult{Accepted: true, Disposition: DispositionRejectedSignature, Reference: cb.OrderReference}
	}

	domain, handle, ok := s.domains.Resolve(cb.OrderReference)
	if !ok {
		log.Printf("callback: reference %s belongs to no registered domain", cb.OrderReference)
		s.metrics.RecordCallback(string(DomainUnknown), DispositionForeignDomain)
		return CallbackResult{Accepted: true, Disposition: DispositionForeignDomain, Reference: cb.OrderReference}
	}

	disposition := handle(ctx, cb)
	s.metrics.RecordCallback(string(domain), disposition)
	return CallbackResult{Accepted: true, Disposition: disposition, Reference: cb.OrderReference}
}

// resolveWalletCallback applies a verified callback to the wallet ledger.
// Duplicates and webhook/sync races are settled by the commit's row lock:
// whoever loses observes the terminal record and writes nothing.
func (s *service) resolveWalletCallback(ctx context.Context, cb *gateway.Callback) string {
	record, err := s.repo.GetTransactionByNumber(ctx, cb.OrderReference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			log.Printf("callback: no wallet transaction for reference %s", cb.OrderReference)
			return DispositionUnknownReference
		}
		log.Printf("callback: lookup failed for %s: %v", cb.OrderReference, err)
		return DispositionInternalError
	}

	if cb.Pending && !cb.Success {
		// Intermediate notification; the transaction stays PENDING.
		return DispositionStillPending
	}

	outcome := repositories.CommitOutcome{Status: models.TransactionStatusCompleted}
	if cb.ExternalID != "" {
		externalID := cb.ExternalID
		outcome.ExternalID = &externalID
	}
	if !cb.Success {
		outcome.Status = models.TransactionStatusFailed
		outcome.FailureReason = cb.ErrorMessage
		if outcome.FailureReason == "" {
			outcome.FailureReason = "gateway reported failure"
		}
	}

	resolved, applied, err := s.repo.Commit(ctx, record.ID, outcome)
	if err != nil {
		log.Printf("callback: commit failed for %s: %v", cb.OrderReference, err)
		return DispositionInternalError
	}
	if !applied {
		log.Printf("callback: %s already resolved as %s, duplicate ignored", cb.OrderReference, resolved.Status)
		return DispositionAlreadyResolved
	}

	s.afterTerminal(ctx, resolved)
	return DispositionProcessed
}
