package tracker

import (
	"time"

	"hop-convert/pkg/types"
)

// Status represents the state of a tracked transaction
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusReplaced  Status = "replaced"
	StatusDropped   Status = "dropped"
)

// IsTerminal reports whether no further status change is expected
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// TxArgs describes the transfer a transaction belongs to
type TxArgs struct {
	NetworkSlug         string
	DestNetworkSlug     string
	Token               types.Token
	IsCanonicalTransfer bool
}

// Record is the display model of a submitted transaction
type Record struct {
	ID                  string    `json:"id"`
	Hash                string    `json:"hash"`
	NetworkSlug         string    `json:"network_slug"`
	DestNetworkSlug     string    `json:"dest_network_slug"`
	TokenSymbol         string    `json:"token_symbol"`
	IsCanonicalTransfer bool      `json:"is_canonical_transfer"`
	Nonce               uint64    `json:"nonce"`
	Status              Status    `json:"status"`
	BlockNumber         uint64    `json:"block_number,omitempty"`
	ReplacedBy          string    `json:"replaced_by,omitempty"`
	Replaces            string    `json:"replaces,omitempty"`
	Finalized           bool      `json:"finalized"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Outcome is the result of watching a transaction until it settles
type Outcome struct {
	Status      Status
	Record      *Record
	Replacement *Record
}
