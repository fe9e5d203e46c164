// ABOUTME: Store interface, domain types, and error kinds for wallet metadata persistence
// ABOUTME: Defines Wallet, Network, Session, Transaction structs and the Store interface

package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnauthorized is returned when an operation requiring a user scope is
// called on a store handle without an auth context, or when the caller does
// not own the targeted row.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing id, or a
// delete is blocked by a referencing row.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned when an entity fails a referential or codec
// check before it reaches the database.
var ErrValidation = errors.New("validation failed")

// WalletStatus constants for the wallet allocation lifecycle
const (
	WalletStatusAllocated = "allocated" // party exists on the ledger
	WalletStatusPending   = "pending"   // allocation submitted, not yet confirmed
	WalletStatusDisabled  = "disabled"  // kept for history, excluded from signing
)

// Wallet binds a ledger party identifier to signing material on one network.
// The same PartyID may exist on several networks as independent rows; the
// natural key is (PartyID, NetworkID).
type Wallet struct {
	PartyID              string
	NetworkID            string
	Primary              bool
	Hint                 string
	PublicKey            string
	Namespace            string
	SigningProviderID    string
	Status               string // "allocated", "pending", "disabled"
	ExternalTxID         string
	TopologyTransactions []string
	Reason               string
}

// WalletFilter narrows GetWallets results. A nil dimension applies no
// restriction; both dimensions combine as a logical AND.
type WalletFilter struct {
	NetworkIDs         []string
	SigningProviderIDs []string
}

// WalletPatch carries the mutable fields UpdateWallet applies by PartyID.
type WalletPatch struct {
	PartyID      string
	Status       string
	ExternalTxID string
}

// LedgerAPI holds the endpoints a network's ledger is reachable at.
type LedgerAPI struct {
	BaseURL      string
	AdminGrpcURL string
}

// Network is a configured ledger/synchronizer endpoint. OwnerUserID empty
// means the network is global (visible to every user).
type Network struct {
	ID                 string
	Name               string
	SynchronizerID     string
	Description        string
	LedgerAPI          LedgerAPI
	IdentityProviderID string
	OwnerUserID        string
}

// Session is the currently active network + credential pair for a user.
// At most one session row exists per user.
type Session struct {
	ID          string
	NetworkID   string
	AccessToken string
}

// TxStatus constants for the submitted-transaction lifecycle
const (
	TxStatusPending  = "pending"
	TxStatusSigned   = "signed"
	TxStatusExecuted = "executed"
	TxStatusFailed   = "failed"
)

// Transaction is a submitted-transaction record, keyed by CommandID per user.
type Transaction struct {
	CommandID               string
	Status                  string // "pending", "signed", "executed", "failed"
	PreparedTransaction     string
	PreparedTransactionHash string
	Payload                 json.RawMessage // optional, opaque
}

// Store is the sole mutation/query surface over the five entity
// collections. Per-user operations are scoped by the auth context the
// handle was derived with and fail with ErrUnauthorized without one.
type Store interface {
	// Wallets
	GetWallets(ctx context.Context, filter WalletFilter) ([]Wallet, error)
	GetPrimaryWallet(ctx context.Context) (*Wallet, error)
	SetPrimaryWallet(ctx context.Context, partyID string) error
	AddWallet(ctx context.Context, wallet Wallet) error
	UpdateWallet(ctx context.Context, patch WalletPatch) error
	RemoveWallet(ctx context.Context, partyID string) error

	// Sessions
	GetSession(ctx context.Context) (*Session, error)
	SetSession(ctx context.Context, session Session) error
	RemoveSession(ctx context.Context) error

	// Identity providers (global collection)
	AddIdp(ctx context.Context, idp Idp) error
	UpdateIdp(ctx context.Context, idp Idp) error
	RemoveIdp(ctx context.Context, id string) error
	ListIdps(ctx context.Context) ([]Idp, error)
	GetIdp(ctx context.Context, id string) (Idp, error)

	// Networks
	AddNetwork(ctx context.Context, network Network) error
	UpdateNetwork(ctx context.Context, network Network) error
	RemoveNetwork(ctx context.Context, id string) error
	ListNetworks(ctx context.Context) ([]Network, error)
	GetNetwork(ctx context.Context, id string) (*Network, error)
	GetCurrentNetwork(ctx context.Context) (*Network, error)

	// Transactions
	SetTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, commandID string) (*Transaction, error)
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// Close releases the underlying database handle.
	Close() error
}
