// ABOUTME: SQL-backed Store implementation with per-user scoping and transactional invariants
// ABOUTME: Every multi-row mutation runs inside a single database transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/2389/wallet-store/internal/auth"
)

// Column lists shared between selects and scans. Order matters; the scan
// helpers below read positionally.
var (
	idpColumns = []string{
		"id", "type", "issuer", "config_url", "audience",
		"client_id", "client_secret", "admin_client_id", "admin_client_secret",
	}
	walletColumns = []string{
		"party_id", "network_id", `"primary"`, "hint", "public_key",
		"namespace", "signing_provider_id", "status", "external_tx_id",
		"topology_transactions", "reason", "user_id",
	}
	networkColumns = []string{
		"id", "name", "synchronizer_id", "description",
		"ledger_api_base_url", "ledger_api_admin_grpc_url",
		"identity_provider_id", "user_id",
	}
	transactionColumns = []string{
		"command_id", "status", "prepared_transaction",
		"prepared_transaction_hash", "payload", "user_id",
	}
)

// SQLStore implements Store over a relational database. A store handle is
// either unauthenticated (global collections only) or derived with
// WithAuthContext to scope per-user operations.
type SQLStore struct {
	db      *DB
	logger  *slog.Logger
	authCtx *auth.Context
}

// Compile-time interface check
var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over an opened database. The schema must
// already be migrated; see Migrator.
func NewSQLStore(db *DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// WithAuthContext returns a handle scoped to the given user. The receiver
// is not modified; handles share the underlying database.
func (s *SQLStore) WithAuthContext(ac *auth.Context) *SQLStore {
	clone := *s
	clone.authCtx = ac
	return &clone
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// assertConnected resolves the calling user from the handle's auth context,
// falling back to one carried on the request context.
func (s *SQLStore) assertConnected(ctx context.Context) (string, error) {
	if s.authCtx != nil && s.authCtx.UserID != "" {
		return s.authCtx.UserID, nil
	}
	if ac := auth.FromContext(ctx); ac != nil && ac.UserID != "" {
		return ac.UserID, nil
	}
	return "", fmt.Errorf("no user in scope: %w", ErrUnauthorized)
}

// currentUser is the optional variant of assertConnected for operations
// that work both authenticated and not.
func (s *SQLStore) currentUser(ctx context.Context) string {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return ""
	}
	return userID
}

// --- wallets ---

// GetWallets lists the caller's wallets, optionally narrowed by network
// and signing provider. Filter dimensions combine as a logical AND.
func (s *SQLStore) GetWallets(ctx context.Context, filter WalletFilter) ([]Wallet, error) {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return nil, err
	}

	q := s.db.builder().
		Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("network_id", "party_id")
	if len(filter.NetworkIDs) > 0 {
		q = q.Where(sq.Eq{"network_id": filter.NetworkIDs})
	}
	if len(filter.SigningProviderIDs) > 0 {
		q = q.Where(sq.Eq{"signing_provider_id": filter.SigningProviderIDs})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building wallet query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying wallets: %w", err)
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// GetPrimaryWallet returns the caller's primary wallet, or ErrNotFound
// when the user has none.
func (s *SQLStore) GetPrimaryWallet(ctx context.Context) (*Wallet, error) {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := s.db.builder().
		Select(walletColumns...).
		From("wallets").
		Where(sq.Eq{"user_id": userID, `"primary"`: 1}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building primary wallet query: %w", err)
	}

	w, err := scanWallet(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no primary wallet: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SetPrimaryWallet marks the caller's wallet with the given party id as
// primary, demoting any previous primary in the same transaction. A party
// held on several networks promotes exactly one row; the lowest network id
// is chosen so the pick is deterministic.
func (s *SQLStore) SetPrimaryWallet(ctx context.Context, partyID string) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	targetQ, targetArgs, err := s.db.builder().
		Select("network_id").
		From("wallets").
		Where(sq.Eq{"party_id": partyID, "user_id": userID}).
		OrderBy("network_id").
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("building target query: %w", err)
	}
	var networkID string
	err = tx.QueryRowContext(ctx, targetQ, targetArgs...).Scan(&networkID)
	if errors.Is(err, sql.ErrNoRows) {
		// Rollback keeps the previous primary intact.
		return fmt.Errorf("wallet %q: %w", partyID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolving wallet: %w", err)
	}

	clearQ, clearArgs, err := s.db.builder().
		Update("wallets").
		Set(`"primary"`, 0).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building primary clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQ, clearArgs...); err != nil {
		return fmt.Errorf("clearing primary flag: %w", err)
	}

	set, setArgs, err := s.db.builder().
		Update("wallets").
		Set(`"primary"`, 1).
		Where(sq.Eq{"party_id": partyID, "network_id": networkID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building primary set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, set, setArgs...); err != nil {
		return fmt.Errorf("setting primary flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing primary change: %w", err)
	}

	s.logger.Debug("set primary wallet", "party_id", partyID, "network_id", networkID, "user_id", userID)
	return nil
}

// AddWallet inserts a wallet, or updates it in place when one already
// exists for the same (party, network) pair; in that case ownership moves
// to the caller. The user's first wallet always becomes primary.
func (s *SQLStore) AddWallet(ctx context.Context, wallet Wallet) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	existsQ, existsArgs, err := s.db.builder().
		Select("user_id", `"primary"`).
		From("wallets").
		Where(sq.Eq{"party_id": wallet.PartyID, "network_id": wallet.NetworkID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building existence query: %w", err)
	}
	var (
		exists          bool
		existingOwner   string
		existingPrimary int64
	)
	err = tx.QueryRowContext(ctx, existsQ, existsArgs...).Scan(&existingOwner, &existingPrimary)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("checking existing wallet: %w", err)
	default:
		exists = true
	}

	// Re-adding the caller's own primary without claiming the flag must
	// not demote it.
	if exists && existingOwner == userID && existingPrimary != 0 {
		wallet.Primary = true
	}

	countQ, countArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("wallets").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building count query: %w", err)
	}
	var owned int
	if err := tx.QueryRowContext(ctx, countQ, countArgs...).Scan(&owned); err != nil {
		return fmt.Errorf("counting wallets: %w", err)
	}
	if owned == 0 {
		wallet.Primary = true
	}

	if wallet.Status == "" {
		wallet.Status = WalletStatusAllocated
	}
	row, err := encodeWallet(wallet, userID)
	if err != nil {
		return err
	}

	if wallet.Primary {
		clearQ, clearArgs, err := s.db.builder().
			Update("wallets").
			Set(`"primary"`, 0).
			Where(sq.Eq{"user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building primary clear: %w", err)
		}
		if _, err := tx.ExecContext(ctx, clearQ, clearArgs...); err != nil {
			return fmt.Errorf("clearing primary flag: %w", err)
		}
	}

	if exists {
		update, updateArgs, err := s.db.builder().
			Update("wallets").
			Set(`"primary"`, row.Primary).
			Set("hint", row.Hint).
			Set("public_key", row.PublicKey).
			Set("namespace", row.Namespace).
			Set("signing_provider_id", row.SigningProviderID).
			Set("status", row.Status).
			Set("external_tx_id", row.ExternalTxID).
			Set("topology_transactions", row.TopologyTransactions).
			Set("reason", row.Reason).
			Set("user_id", row.UserID).
			Where(sq.Eq{"party_id": row.PartyID, "network_id": row.NetworkID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building wallet update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, update, updateArgs...); err != nil {
			return fmt.Errorf("updating wallet: %w", err)
		}
	} else {
		insert, insertArgs, err := s.db.builder().
			Insert("wallets").
			Columns(walletColumns...).
			Values(row.PartyID, row.NetworkID, row.Primary, row.Hint,
				row.PublicKey, row.Namespace, row.SigningProviderID,
				row.Status, row.ExternalTxID, row.TopologyTransactions,
				row.Reason, row.UserID).
			ToSql()
		if err != nil {
			return fmt.Errorf("building wallet insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			return fmt.Errorf("inserting wallet: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing wallet: %w", err)
	}

	s.logger.Debug("added wallet",
		"party_id", wallet.PartyID,
		"network_id", wallet.NetworkID,
		"primary", wallet.Primary,
		"user_id", userID)
	return nil
}

// UpdateWallet applies the non-empty patch fields to the caller's wallet
// rows with the given party id.
func (s *SQLStore) UpdateWallet(ctx context.Context, patch WalletPatch) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}
	if patch.PartyID == "" {
		return fmt.Errorf("wallet patch requires a party id: %w", ErrValidation)
	}
	if patch.Status == "" && patch.ExternalTxID == "" {
		return fmt.Errorf("wallet patch has no fields to apply: %w", ErrValidation)
	}

	q := s.db.builder().
		Update("wallets").
		Where(sq.Eq{"party_id": patch.PartyID, "user_id": userID})
	if patch.Status != "" {
		q = q.Set("status", patch.Status)
	}
	if patch.ExternalTxID != "" {
		q = q.Set("external_tx_id", patch.ExternalTxID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building wallet patch: %w", err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patching wallet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("wallet %q: %w", patch.PartyID, ErrNotFound)
	}
	return nil
}

// RemoveWallet deletes the caller's wallet rows with the given party id.
// Removing a nonexistent wallet is a no-op.
func (s *SQLStore) RemoveWallet(ctx context.Context, partyID string) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}

	query, args, err := s.db.builder().
		Delete("wallets").
		Where(sq.Eq{"party_id": partyID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building wallet delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	s.logger.Debug("removed wallet", "party_id", partyID, "user_id", userID)
	return nil
}

// --- sessions ---

// GetSession returns the caller's active session, or ErrNotFound.
func (s *SQLStore) GetSession(ctx context.Context) (*Session, error) {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := s.db.builder().
		Select("id", "network_id", "access_token").
		From("sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	var session Session
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&session.ID, &session.NetworkID, &session.AccessToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// SetSession replaces the caller's session. The delete and insert run in
// one transaction so at most one session row ever exists per user.
func (s *SQLStore) SetSession(ctx context.Context, session Session) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	del, delArgs, err := s.db.builder().
		Delete("sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("deleting previous session: %w", err)
	}

	insert, insertArgs, err := s.db.builder().
		Insert("sessions").
		Columns("id", "network_id", "access_token", "user_id").
		Values(session.ID, session.NetworkID, session.AccessToken, userID).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}

	s.logger.Debug("set session", "network_id", session.NetworkID, "user_id", userID)
	return nil
}

// RemoveSession deletes the caller's session if one exists.
func (s *SQLStore) RemoveSession(ctx context.Context) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}

	query, args, err := s.db.builder().
		Delete("sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// --- identity providers ---

// AddIdp inserts a new identity provider. An existing id fails with
// ErrConflict.
func (s *SQLStore) AddIdp(ctx context.Context, idp Idp) error {
	row, err := encodeIdp(idp)
	if err != nil {
		return err
	}
	if row.ID == "" {
		return fmt.Errorf("identity provider requires an id: %w", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	existsQ, existsArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("idps").
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building existence query: %w", err)
	}
	var exists int
	if err := tx.QueryRowContext(ctx, existsQ, existsArgs...).Scan(&exists); err != nil {
		return fmt.Errorf("checking existing identity provider: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("identity provider %q already exists: %w", row.ID, ErrConflict)
	}

	insert, insertArgs, err := s.db.builder().
		Insert("idps").
		Columns(idpColumns...).
		Values(row.ID, row.Type, row.Issuer, row.ConfigURL, row.Audience,
			row.ClientID, row.ClientSecret, row.AdminClientID, row.AdminClientSecret).
		ToSql()
	if err != nil {
		return fmt.Errorf("building identity provider insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("inserting identity provider: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing identity provider: %w", err)
	}

	s.logger.Debug("added identity provider", "id", row.ID, "type", row.Type)
	return nil
}

// UpdateIdp replaces an identity provider's configuration by id.
func (s *SQLStore) UpdateIdp(ctx context.Context, idp Idp) error {
	row, err := encodeIdp(idp)
	if err != nil {
		return err
	}

	query, args, err := s.db.builder().
		Update("idps").
		Set("type", row.Type).
		Set("issuer", row.Issuer).
		Set("config_url", row.ConfigURL).
		Set("audience", row.Audience).
		Set("client_id", row.ClientID).
		Set("client_secret", row.ClientSecret).
		Set("admin_client_id", row.AdminClientID).
		Set("admin_client_secret", row.AdminClientSecret).
		Where(sq.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building identity provider update: %w", err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating identity provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("identity provider %q: %w", row.ID, ErrNotFound)
	}
	return nil
}

// RemoveIdp deletes an identity provider. Deletion is blocked with
// ErrConflict while any network still references it.
func (s *SQLStore) RemoveIdp(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	refQ, refArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("networks").
		Where(sq.Eq{"identity_provider_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building reference query: %w", err)
	}
	var refs int
	if err := tx.QueryRowContext(ctx, refQ, refArgs...).Scan(&refs); err != nil {
		return fmt.Errorf("counting referencing networks: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("identity provider %q is referenced by %d network(s): %w", id, refs, ErrConflict)
	}

	del, delArgs, err := s.db.builder().
		Delete("idps").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building identity provider delete: %w", err)
	}
	result, err := tx.ExecContext(ctx, del, delArgs...)
	if err != nil {
		return fmt.Errorf("deleting identity provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("identity provider %q: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Debug("removed identity provider", "id", id)
	return nil
}

// ListIdps returns every identity provider ordered by id.
func (s *SQLStore) ListIdps(ctx context.Context) ([]Idp, error) {
	query, args, err := s.db.builder().
		Select(idpColumns...).
		From("idps").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building identity provider query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying identity providers: %w", err)
	}
	defer rows.Close()

	var idps []Idp
	for rows.Next() {
		idp, err := scanIdp(rows)
		if err != nil {
			return nil, err
		}
		idps = append(idps, idp)
	}
	return idps, rows.Err()
}

// GetIdp returns one identity provider by id, or ErrNotFound.
func (s *SQLStore) GetIdp(ctx context.Context, id string) (Idp, error) {
	query, args, err := s.db.builder().
		Select(idpColumns...).
		From("idps").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building identity provider query: %w", err)
	}

	idp, err := scanIdp(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity provider %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return idp, nil
}

// --- networks ---

// AddNetwork inserts a network. The referenced identity provider must
// exist. An authenticated caller owns the network; otherwise it is global.
func (s *SQLStore) AddNetwork(ctx context.Context, network Network) error {
	if network.ID == "" {
		return fmt.Errorf("network requires an id: %w", ErrValidation)
	}
	if network.IdentityProviderID == "" {
		return fmt.Errorf("network %q requires an identity provider: %w", network.ID, ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	existsQ, existsArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("networks").
		Where(sq.Eq{"id": network.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building existence query: %w", err)
	}
	var exists int
	if err := tx.QueryRowContext(ctx, existsQ, existsArgs...).Scan(&exists); err != nil {
		return fmt.Errorf("checking existing network: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("network %q already exists: %w", network.ID, ErrConflict)
	}

	idpQ, idpArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("idps").
		Where(sq.Eq{"id": network.IdentityProviderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building identity provider query: %w", err)
	}
	var idpCount int
	if err := tx.QueryRowContext(ctx, idpQ, idpArgs...).Scan(&idpCount); err != nil {
		return fmt.Errorf("checking identity provider: %w", err)
	}
	if idpCount == 0 {
		return fmt.Errorf("network %q references unknown identity provider %q: %w",
			network.ID, network.IdentityProviderID, ErrValidation)
	}

	var owner any
	if userID := s.currentUser(ctx); userID != "" {
		owner = userID
	}

	insert, insertArgs, err := s.db.builder().
		Insert("networks").
		Columns(networkColumns...).
		Values(network.ID, network.Name, network.SynchronizerID,
			network.Description, network.LedgerAPI.BaseURL,
			network.LedgerAPI.AdminGrpcURL, network.IdentityProviderID, owner).
		ToSql()
	if err != nil {
		return fmt.Errorf("building network insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("inserting network: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing network: %w", err)
	}

	s.logger.Debug("added network", "id", network.ID, "global", owner == nil)
	return nil
}

// UpdateNetwork replaces the mutable fields of a visible network by id.
// Ownership does not change.
func (s *SQLStore) UpdateNetwork(ctx context.Context, network Network) error {
	query, args, err := s.db.builder().
		Update("networks").
		Set("name", network.Name).
		Set("synchronizer_id", network.SynchronizerID).
		Set("description", network.Description).
		Set("ledger_api_base_url", network.LedgerAPI.BaseURL).
		Set("ledger_api_admin_grpc_url", network.LedgerAPI.AdminGrpcURL).
		Set("identity_provider_id", network.IdentityProviderID).
		Where(sq.Eq{"id": network.ID}).
		Where(s.networkVisibility(ctx)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building network update: %w", err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating network: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("network %q: %w", network.ID, ErrNotFound)
	}
	return nil
}

// RemoveNetwork deletes a network the caller owns. Global networks have no
// owner and cannot be removed through this operation.
func (s *SQLStore) RemoveNetwork(ctx context.Context, id string) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	ownerQ, ownerArgs, err := s.db.builder().
		Select("user_id").
		From("networks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building owner query: %w", err)
	}
	var owner sql.NullString
	err = tx.QueryRowContext(ctx, ownerQ, ownerArgs...).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("network %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("querying network owner: %w", err)
	}
	if !owner.Valid || owner.String != userID {
		return fmt.Errorf("network %q does not belong to the caller: %w", id, ErrUnauthorized)
	}

	del, delArgs, err := s.db.builder().
		Delete("networks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building network delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("deleting network: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Debug("removed network", "id", id, "user_id", userID)
	return nil
}

// ListNetworks returns the networks visible to the caller: global ones
// always, plus the caller's own when authenticated.
func (s *SQLStore) ListNetworks(ctx context.Context) ([]Network, error) {
	query, args, err := s.db.builder().
		Select(networkColumns...).
		From("networks").
		Where(s.networkVisibility(ctx)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building network query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying networks: %w", err)
	}
	defer rows.Close()

	var networks []Network
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, err
		}
		networks = append(networks, n)
	}
	return networks, rows.Err()
}

// GetNetwork returns one visible network by id, or ErrNotFound.
func (s *SQLStore) GetNetwork(ctx context.Context, id string) (*Network, error) {
	query, args, err := s.db.builder().
		Select(networkColumns...).
		From("networks").
		Where(sq.Eq{"id": id}).
		Where(s.networkVisibility(ctx)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building network query: %w", err)
	}

	n, err := scanNetwork(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("network %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetCurrentNetwork resolves the caller's session to its network.
func (s *SQLStore) GetCurrentNetwork(ctx context.Context) (*Network, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetNetwork(ctx, session.NetworkID)
}

// networkVisibility is the shared predicate for which network rows the
// caller may see: global rows, plus rows the caller owns.
func (s *SQLStore) networkVisibility(ctx context.Context) sq.Sqlizer {
	if userID := s.currentUser(ctx); userID != "" {
		return sq.Or{sq.Eq{"user_id": nil}, sq.Eq{"user_id": userID}}
	}
	return sq.Eq{"user_id": nil}
}

// --- transactions ---

// SetTransaction inserts or replaces the caller's transaction record for
// its command id.
func (s *SQLStore) SetTransaction(ctx context.Context, transaction Transaction) error {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return err
	}
	if transaction.CommandID == "" {
		return fmt.Errorf("transaction requires a command id: %w", ErrValidation)
	}
	if transaction.Status == "" {
		transaction.Status = TxStatusPending
	}
	row := encodeTransaction(transaction, userID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	existsQ, existsArgs, err := s.db.builder().
		Select("COUNT(*)").
		From("transactions").
		Where(sq.Eq{"command_id": row.CommandID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building existence query: %w", err)
	}
	var exists int
	if err := tx.QueryRowContext(ctx, existsQ, existsArgs...).Scan(&exists); err != nil {
		return fmt.Errorf("checking existing transaction: %w", err)
	}

	if exists > 0 {
		update, updateArgs, err := s.db.builder().
			Update("transactions").
			Set("status", row.Status).
			Set("prepared_transaction", row.PreparedTransaction).
			Set("prepared_transaction_hash", row.PreparedTransactionHash).
			Set("payload", row.Payload).
			Where(sq.Eq{"command_id": row.CommandID, "user_id": userID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building transaction update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, update, updateArgs...); err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}
	} else {
		insert, insertArgs, err := s.db.builder().
			Insert("transactions").
			Columns(transactionColumns...).
			Values(row.CommandID, row.Status, row.PreparedTransaction,
				row.PreparedTransactionHash, row.Payload, row.UserID).
			ToSql()
		if err != nil {
			return fmt.Errorf("building transaction insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction record: %w", err)
	}

	s.logger.Debug("set transaction",
		"command_id", row.CommandID,
		"status", row.Status,
		"user_id", userID)
	return nil
}

// GetTransaction returns the caller's transaction record by command id.
func (s *SQLStore) GetTransaction(ctx context.Context, commandID string) (*Transaction, error) {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := s.db.builder().
		Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"command_id": commandID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building transaction query: %w", err)
	}

	var row transactionRow
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&row.CommandID, &row.Status, &row.PreparedTransaction,
		&row.PreparedTransactionHash, &row.Payload, &row.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %q: %w", commandID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}

	transaction := decodeTransaction(row)
	return &transaction, nil
}

// ListTransactions returns the caller's transaction records ordered by
// command id.
func (s *SQLStore) ListTransactions(ctx context.Context) ([]Transaction, error) {
	userID, err := s.assertConnected(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := s.db.builder().
		Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("command_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building transaction query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var row transactionRow
		if err := rows.Scan(&row.CommandID, &row.Status, &row.PreparedTransaction,
			&row.PreparedTransactionHash, &row.Payload, &row.UserID); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, decodeTransaction(row))
	}
	return transactions, rows.Err()
}

// --- scan helpers ---

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(r rowScanner) (Wallet, error) {
	var row walletRow
	err := r.Scan(&row.PartyID, &row.NetworkID, &row.Primary, &row.Hint,
		&row.PublicKey, &row.Namespace, &row.SigningProviderID, &row.Status,
		&row.ExternalTxID, &row.TopologyTransactions, &row.Reason, &row.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Wallet{}, err
	}
	if err != nil {
		return Wallet{}, fmt.Errorf("scanning wallet: %w", err)
	}
	return decodeWallet(row)
}

func scanIdp(r rowScanner) (Idp, error) {
	var row idpRow
	err := r.Scan(&row.ID, &row.Type, &row.Issuer, &row.ConfigURL,
		&row.Audience, &row.ClientID, &row.ClientSecret,
		&row.AdminClientID, &row.AdminClientSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning identity provider: %w", err)
	}
	return decodeIdp(row)
}

func scanNetwork(r rowScanner) (Network, error) {
	var n Network
	var owner sql.NullString
	err := r.Scan(&n.ID, &n.Name, &n.SynchronizerID, &n.Description,
		&n.LedgerAPI.BaseURL, &n.LedgerAPI.AdminGrpcURL,
		&n.IdentityProviderID, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Network{}, err
	}
	if err != nil {
		return Network{}, fmt.Errorf("scanning network: %w", err)
	}
	if owner.Valid {
		n.OwnerUserID = owner.String
	}
	return n, nil
}
