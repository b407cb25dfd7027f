package model

import (
	"time"
)

// ContractStatus is derived from signature coverage, never set directly.
type ContractStatus string

// ContractStatus constants
const (
	StatusDraft           ContractStatus = "draft"
	StatusPartiallySigned ContractStatus = "partially_signed"
	StatusSigned          ContractStatus = "signed"
)

// Audit events
const (
	EventCreated   = "created"
	EventSigned    = "signed"
	EventFinalized = "finalized"
)

// Party is a signer attached to a contract at creation time.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Signature is the captured assent of one party. ImageKey references the PNG
// in artifact storage.
type Signature struct {
	PartyID   string    `json:"partyId"`
	ImageKey  string    `json:"imageKey"`
	TypedName string    `json:"typedName"`
	SignedAt  time.Time `json:"signedAt"`
	IP        string    `json:"ip"`
}

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	At    time.Time         `json:"at"`
	Actor string            `json:"actor,omitempty"`
	Event string            `json:"event"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Contract represents a workspace-scoped contract and its signing state
type Contract struct {
	ID          string            `json:"id"`
	WorkspaceID string            `json:"workspaceId"`
	Title       string            `json:"title"`
	TemplateKey TemplateKey       `json:"templateKey"`
	Fields      map[string]string `json:"fields"`
	Parties     []Party           `json:"parties"`
	// Signatures is keyed by party id; at most one live signature per party.
	Signatures    map[string]Signature `json:"signatures"`
	Status        ContractStatus       `json:"status"`
	PDFKey        string               `json:"pdfKey,omitempty"`
	ContentDigest string               `json:"contentDigest,omitempty"`
	FinalizedAt   *time.Time           `json:"finalizedAt,omitempty"`
	Audit         []AuditEntry         `json:"audit"`
	Version       int64                `json:"version"`
	CreatedBy     string               `json:"createdBy"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// ComputeStatus derives the contract status from signature and party counts.
func ComputeStatus(signatureCount, partyCount int) ContractStatus {
	switch {
	case signatureCount <= 0:
		return StatusDraft
	case signatureCount >= partyCount:
		return StatusSigned
	default:
		return StatusPartiallySigned
	}
}

// FindParty returns the party with the given id.
func (c *Contract) FindParty(partyID string) (Party, bool) {
	for _, p := range c.Parties {
		if p.ID == partyID {
			return p, true
		}
	}
	return Party{}, false
}

// UpsertSignature stores sig under its party id, replacing any prior
// signature for that party. The replaced signature is returned if present.
func (c *Contract) UpsertSignature(sig Signature) (previous Signature, replaced bool) {
	if c.Signatures == nil {
		c.Signatures = make(map[string]Signature)
	}
	previous, replaced = c.Signatures[sig.PartyID]
	c.Signatures[sig.PartyID] = sig
	return previous, replaced
}

// RecomputeStatus sets Status from the signatures of known parties.
func (c *Contract) RecomputeStatus() {
	signed := 0
	for _, p := range c.Parties {
		if _, ok := c.Signatures[p.ID]; ok {
			signed++
		}
	}
	c.Status = ComputeStatus(signed, len(c.Parties))
}

// AppendAudit records an event.
func (c *Contract) AppendAudit(at time.Time, actor, event string, meta map[string]string) {
	c.Audit = append(c.Audit, AuditEntry{At: at, Actor: actor, Event: event, Meta: meta})
}

// Clone returns a deep copy of c.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	if c.Fields != nil {
		out.Fields = make(map[string]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v
		}
	}
	out.Parties = append([]Party(nil), c.Parties...)
	if c.Signatures != nil {
		out.Signatures = make(map[string]Signature, len(c.Signatures))
		for k, v := range c.Signatures {
			out.Signatures[k] = v
		}
	}
	if c.FinalizedAt != nil {
		t := *c.FinalizedAt
		out.FinalizedAt = &t
	}
	if c.Audit != nil {
		out.Audit = make([]AuditEntry, len(c.Audit))
		for i, e := range c.Audit {
			out.Audit[i] = e
			if e.Meta != nil {
				out.Audit[i].Meta = make(map[string]string, len(e.Meta))
				for k, v := range e.Meta {
					out.Audit[i].Meta[k] = v
				}
			}
		}
	}
	return &out
}
