package models

import "time"

// LedgerEventType enumerates the events external observers (indexers, the
// NFT metadata renderer) can rebuild a read model from.
type LedgerEventType string

const (
	EventInvestmentMinted    LedgerEventType = "investment_minted"
	EventInvestmentMintedNFT LedgerEventType = "investment_minted_nft"
	EventInvestmentBurned    LedgerEventType = "investment_burned"
	EventTokensClaimed       LedgerEventType = "tokens_claimed"
	EventTokensDistributed   LedgerEventType = "tokens_distributed"
	EventSignatureConsumed   LedgerEventType = "signature_consumed"
	EventStaked              LedgerEventType = "staked"
	EventRedeemed            LedgerEventType = "redeemed"
	EventCooldownStarted     LedgerEventType = "cooldown_started"
	EventRewardsClaimed      LedgerEventType = "rewards_claimed"
	EventRegistryUpdated     LedgerEventType = "registry_updated"
)

// LedgerEvent is an append-only record of a completed ledger mutation.
// IDs are UUIDv7, so insertion order is recoverable from the id alone.
type LedgerEvent struct {
	ID         string          `gorm:"primaryKey" json:"id"`
	Type       LedgerEventType `gorm:"index;not null" json:"type"`
	Actor      string          `gorm:"index" json:"actor"`
	Recipient  string          `json:"recipient,omitempty"`
	PositionID *uint           `gorm:"index" json:"position_id,omitempty"`
	Amount     int64           `json:"amount"`
	OccurredAt int64           `gorm:"not null" json:"occurred_at"`
	Payload    string          `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
