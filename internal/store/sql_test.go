// ABOUTME: Behavioral tests for the SQL store over an in-memory database
// ABOUTME: Covers primary-wallet invariants, upserts, scoping, guards, and session replace

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/2389/wallet-store/internal/auth"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(ConnConfig{Kind: BackendMemory})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := NewMigrator(db, logger).Up(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func newTestStore(t *testing.T, userID string) *SQLStore {
	t.Helper()
	db := newTestDB(t)
	return newUserStore(db, userID)
}

func newUserStore(db *DB, userID string) *SQLStore {
	s := NewSQLStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if userID == "" {
		return s
	}
	return s.WithAuthContext(&auth.Context{UserID: userID})
}

func seedNetwork(t *testing.T, s *SQLStore, idpID, networkID string) {
	t.Helper()
	ctx := context.Background()
	err := s.AddIdp(ctx, OAuthIdp{
		IdentityProviderID: idpID,
		Issuer:             "https://issuer.example",
		ConfigURL:          "https://issuer.example/.well-known/openid-configuration",
		ClientID:           "client",
	})
	if err != nil && !errors.Is(err, ErrConflict) {
		t.Fatalf("adding idp: %v", err)
	}
	err = s.AddNetwork(ctx, Network{
		ID:                 networkID,
		Name:               "Test Network",
		SynchronizerID:     "sync::" + networkID,
		IdentityProviderID: idpID,
	})
	if err != nil && !errors.Is(err, ErrConflict) {
		t.Fatalf("adding network: %v", err)
	}
}

func TestAddWallet_FirstBecomesPrimary(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	primary, err := s.GetPrimaryWallet(ctx)
	if err != nil {
		t.Fatalf("getting primary: %v", err)
	}
	if primary.PartyID != "party1" {
		t.Errorf("primary is %q, want party1", primary.PartyID)
	}
}

func TestAddWallet_SinglePrimaryInvariant(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding first wallet: %v", err)
	}
	if err := s.AddWallet(ctx, Wallet{PartyID: "party2", NetworkID: "net1", Primary: true}); err != nil {
		t.Fatalf("adding second wallet: %v", err)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	primaries := 0
	for _, w := range wallets {
		if w.Primary {
			primaries++
			if w.PartyID != "party2" {
				t.Errorf("primary is %q, want party2", w.PartyID)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("found %d primary wallets, want exactly 1", primaries)
	}
}

func TestSetPrimaryWallet(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}
	if err := s.AddWallet(ctx, Wallet{PartyID: "party2", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	if err := s.SetPrimaryWallet(ctx, "party2"); err != nil {
		t.Fatalf("setting primary: %v", err)
	}
	primary, err := s.GetPrimaryWallet(ctx)
	if err != nil {
		t.Fatalf("getting primary: %v", err)
	}
	if primary.PartyID != "party2" {
		t.Errorf("primary is %q, want party2", primary.PartyID)
	}

	// Unknown party leaves the current primary untouched.
	err = s.SetPrimaryWallet(ctx, "party9")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	primary, err = s.GetPrimaryWallet(ctx)
	if err != nil {
		t.Fatalf("getting primary after failed set: %v", err)
	}
	if primary.PartyID != "party2" {
		t.Errorf("primary changed to %q after failed set", primary.PartyID)
	}
}

func TestSetPrimaryWallet_PartyOnTwoNetworks(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")
	seedNetwork(t, s, "idp1", "net2")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet on net1: %v", err)
	}
	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net2"}); err != nil {
		t.Fatalf("adding wallet on net2: %v", err)
	}
	if err := s.AddWallet(ctx, Wallet{PartyID: "party2", NetworkID: "net1", Primary: true}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	if err := s.SetPrimaryWallet(ctx, "party1"); err != nil {
		t.Fatalf("setting primary: %v", err)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	primaries := 0
	for _, w := range wallets {
		if w.Primary {
			primaries++
			if w.PartyID != "party1" {
				t.Errorf("primary is %q, want party1", w.PartyID)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("found %d primary wallets, want exactly 1", primaries)
	}
}

func TestAddWallet_ReAddKeepsPrimary(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1", Hint: "first"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	// Re-adding the same wallet without claiming the flag must keep it.
	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1", Hint: "edited"}); err != nil {
		t.Fatalf("re-adding wallet: %v", err)
	}

	primary, err := s.GetPrimaryWallet(ctx)
	if err != nil {
		t.Fatalf("getting primary: %v", err)
	}
	if primary.PartyID != "party1" || primary.Hint != "edited" {
		t.Errorf("primary = %+v, want party1 with the edited hint", primary)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	primaries := 0
	for _, w := range wallets {
		if w.Primary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("found %d primary wallets, want exactly 1", primaries)
	}
}

func TestAddWallet_UpsertMovesOwnership(t *testing.T) {
	db := newTestDB(t)
	alice := newUserStore(db, "alice")
	bob := newUserStore(db, "bob")
	ctx := context.Background()
	seedNetwork(t, alice, "idp1", "net1")

	if err := alice.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1", Hint: "from-alice"}); err != nil {
		t.Fatalf("alice adding wallet: %v", err)
	}
	if err := bob.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1", Hint: "from-bob"}); err != nil {
		t.Fatalf("bob adding wallet: %v", err)
	}

	bobWallets, err := bob.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing bob's wallets: %v", err)
	}
	if len(bobWallets) != 1 || bobWallets[0].Hint != "from-bob" {
		t.Errorf("bob's wallets = %+v, want one wallet with hint from-bob", bobWallets)
	}

	aliceWallets, err := alice.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing alice's wallets: %v", err)
	}
	if len(aliceWallets) != 0 {
		t.Errorf("alice still sees %d wallets after ownership moved", len(aliceWallets))
	}
}

func TestAddWallet_SamePartyOnTwoNetworks(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")
	seedNetwork(t, s, "idp1", "net2")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet on net1: %v", err)
	}
	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net2"}); err != nil {
		t.Fatalf("adding wallet on net2: %v", err)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("got %d wallets, want 2 independent rows", len(wallets))
	}

	filtered, err := s.GetWallets(ctx, WalletFilter{NetworkIDs: []string{"net2"}})
	if err != nil {
		t.Fatalf("filtering wallets: %v", err)
	}
	if len(filtered) != 1 || filtered[0].NetworkID != "net2" {
		t.Errorf("filtered = %+v, want only the net2 wallet", filtered)
	}
}

func TestGetWallets_ScopedPerUser(t *testing.T) {
	db := newTestDB(t)
	alice := newUserStore(db, "alice")
	bob := newUserStore(db, "bob")
	unauth := newUserStore(db, "")
	ctx := context.Background()
	seedNetwork(t, alice, "idp1", "net1")

	if err := alice.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	bobWallets, err := bob.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing bob's wallets: %v", err)
	}
	if len(bobWallets) != 0 {
		t.Errorf("bob sees %d of alice's wallets", len(bobWallets))
	}

	if _, err := unauth.GetWallets(ctx, WalletFilter{}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUpdateWallet(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1", Status: WalletStatusPending}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}

	err := s.UpdateWallet(ctx, WalletPatch{PartyID: "party1", Status: WalletStatusAllocated, ExternalTxID: "tx-1"})
	if err != nil {
		t.Fatalf("patching wallet: %v", err)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	if wallets[0].Status != WalletStatusAllocated || wallets[0].ExternalTxID != "tx-1" {
		t.Errorf("patched wallet = %+v", wallets[0])
	}

	err = s.UpdateWallet(ctx, WalletPatch{PartyID: "party9", Status: WalletStatusDisabled})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	err = s.UpdateWallet(ctx, WalletPatch{PartyID: "party1"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for empty patch, got %v", err)
	}
}

func TestRemoveWallet_Idempotent(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if err := s.AddWallet(ctx, Wallet{PartyID: "party1", NetworkID: "net1"}); err != nil {
		t.Fatalf("adding wallet: %v", err)
	}
	if err := s.RemoveWallet(ctx, "party1"); err != nil {
		t.Fatalf("removing wallet: %v", err)
	}
	if err := s.RemoveWallet(ctx, "party1"); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
}

func TestSessionReplace(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")
	seedNetwork(t, s, "idp1", "net2")

	if err := s.SetSession(ctx, Session{NetworkID: "net1", AccessToken: "tok1"}); err != nil {
		t.Fatalf("setting session: %v", err)
	}
	first, err := s.GetSession(ctx)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	if first.ID == "" {
		t.Error("session id should be generated when empty")
	}

	if err := s.SetSession(ctx, Session{NetworkID: "net2", AccessToken: "tok2"}); err != nil {
		t.Fatalf("replacing session: %v", err)
	}
	second, err := s.GetSession(ctx)
	if err != nil {
		t.Fatalf("getting replaced session: %v", err)
	}
	if second.NetworkID != "net2" || second.AccessToken != "tok2" {
		t.Errorf("session = %+v, want net2/tok2", second)
	}

	if err := s.RemoveSession(ctx); err != nil {
		t.Fatalf("removing session: %v", err)
	}
	if _, err := s.GetSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestRemoveIdp_BlockedWhileReferenced(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	err := s.RemoveIdp(ctx, "idp1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict while referenced, got %v", err)
	}

	if err := s.RemoveNetwork(ctx, "net1"); err != nil {
		t.Fatalf("removing network: %v", err)
	}
	if err := s.RemoveIdp(ctx, "idp1"); err != nil {
		t.Errorf("remove after dereference failed: %v", err)
	}
	if err := s.RemoveIdp(ctx, "idp1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddNetwork_Guards(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	err := s.AddNetwork(ctx, Network{ID: "net1", IdentityProviderID: "idp1"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate id, got %v", err)
	}

	err = s.AddNetwork(ctx, Network{ID: "net2", IdentityProviderID: "idp9"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown idp, got %v", err)
	}
}

func TestListNetworks_GlobalAndOwned(t *testing.T) {
	db := newTestDB(t)
	unauth := newUserStore(db, "")
	alice := newUserStore(db, "alice")
	bob := newUserStore(db, "bob")
	ctx := context.Background()

	// Seeded without auth, so net-global is visible to everyone.
	seedNetwork(t, unauth, "idp1", "net-global")
	if err := alice.AddNetwork(ctx, Network{ID: "net-alice", IdentityProviderID: "idp1"}); err != nil {
		t.Fatalf("alice adding network: %v", err)
	}

	aliceNets, err := alice.ListNetworks(ctx)
	if err != nil {
		t.Fatalf("listing alice's networks: %v", err)
	}
	if len(aliceNets) != 2 {
		t.Errorf("alice sees %d networks, want 2", len(aliceNets))
	}

	bobNets, err := bob.ListNetworks(ctx)
	if err != nil {
		t.Fatalf("listing bob's networks: %v", err)
	}
	if len(bobNets) != 1 || bobNets[0].ID != "net-global" {
		t.Errorf("bob sees %+v, want only net-global", bobNets)
	}

	if _, err := bob.GetNetwork(ctx, "net-alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob resolving alice's network: expected ErrNotFound, got %v", err)
	}
	if err := bob.RemoveNetwork(ctx, "net-alice"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("bob removing alice's network: expected ErrUnauthorized, got %v", err)
	}
}

func TestRemoveNetwork_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	unauth := newUserStore(db, "")
	alice := newUserStore(db, "alice")
	ctx := context.Background()

	seedNetwork(t, unauth, "idp1", "net-global")
	if err := alice.AddNetwork(ctx, Network{ID: "net-alice", IdentityProviderID: "idp1"}); err != nil {
		t.Fatalf("alice adding network: %v", err)
	}

	if err := unauth.RemoveNetwork(ctx, "net-global"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unauthenticated remove: expected ErrUnauthorized, got %v", err)
	}
	if err := alice.RemoveNetwork(ctx, "net-global"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("removing global network: expected ErrUnauthorized, got %v", err)
	}
	if err := alice.RemoveNetwork(ctx, "net-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("removing missing network: expected ErrNotFound, got %v", err)
	}
	if err := alice.RemoveNetwork(ctx, "net-alice"); err != nil {
		t.Errorf("removing own network: %v", err)
	}
}

func TestGetCurrentNetwork(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()
	seedNetwork(t, s, "idp1", "net1")

	if _, err := s.GetCurrentNetwork(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound without session, got %v", err)
	}

	if err := s.SetSession(ctx, Session{NetworkID: "net1", AccessToken: "tok"}); err != nil {
		t.Fatalf("setting session: %v", err)
	}
	network, err := s.GetCurrentNetwork(ctx)
	if err != nil {
		t.Fatalf("getting current network: %v", err)
	}
	if network.ID != "net1" {
		t.Errorf("current network is %q, want net1", network.ID)
	}
}

func TestTransactions(t *testing.T) {
	db := newTestDB(t)
	alice := newUserStore(db, "alice")
	bob := newUserStore(db, "bob")
	ctx := context.Background()

	err := alice.SetTransaction(ctx, Transaction{
		CommandID:               "cmd-1",
		PreparedTransaction:     "prepared",
		PreparedTransactionHash: "hash",
	})
	if err != nil {
		t.Fatalf("setting transaction: %v", err)
	}

	got, err := alice.GetTransaction(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("getting transaction: %v", err)
	}
	if got.Status != TxStatusPending {
		t.Errorf("status defaulted to %q, want pending", got.Status)
	}

	err = alice.SetTransaction(ctx, Transaction{CommandID: "cmd-1", Status: TxStatusExecuted})
	if err != nil {
		t.Fatalf("updating transaction: %v", err)
	}
	got, err = alice.GetTransaction(ctx, "cmd-1")
	if err != nil {
		t.Fatalf("getting updated transaction: %v", err)
	}
	if got.Status != TxStatusExecuted {
		t.Errorf("status is %q, want executed", got.Status)
	}

	list, err := alice.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("listing transactions: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d transactions, want 1 after replace", len(list))
	}

	if _, err := bob.GetTransaction(ctx, "cmd-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob reading alice's transaction: expected ErrNotFound, got %v", err)
	}
}

func TestIdpCRUD(t *testing.T) {
	s := newTestStore(t, "alice")
	ctx := context.Background()

	idp := SelfSignedIdp{
		IdentityProviderID: "idp-self",
		Issuer:             "https://self.example",
		ClientID:           "client",
		ClientSecret:       "secret",
	}
	if err := s.AddIdp(ctx, idp); err != nil {
		t.Fatalf("adding idp: %v", err)
	}
	if err := s.AddIdp(ctx, idp); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate, got %v", err)
	}

	idp.Issuer = "https://self2.example"
	if err := s.UpdateIdp(ctx, idp); err != nil {
		t.Fatalf("updating idp: %v", err)
	}

	got, err := s.GetIdp(ctx, "idp-self")
	if err != nil {
		t.Fatalf("getting idp: %v", err)
	}
	ss, ok := got.(SelfSignedIdp)
	if !ok {
		t.Fatalf("decoded variant is %T, want SelfSignedIdp", got)
	}
	if ss.Issuer != "https://self2.example" {
		t.Errorf("issuer is %q after update", ss.Issuer)
	}

	if err := s.UpdateIdp(ctx, OAuthIdp{IdentityProviderID: "idp-missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetIdp(ctx, "idp-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// The full lifecycle a wallet client walks through on first use.
func TestWalletLifecycleScenario(t *testing.T) {
	s := newTestStore(t, "operator::1220abc")
	ctx := context.Background()

	err := s.AddIdp(ctx, OAuthIdp{
		IdentityProviderID: "idp1",
		Issuer:             "https://auth.example",
		ConfigURL:          "https://auth.example/.well-known/openid-configuration",
		Audience:           "https://ledger.example",
		ClientID:           "wallet-client",
		Admin:              &AdminCredentials{ClientID: "admin", ClientSecret: "admin-secret"},
	})
	if err != nil {
		t.Fatalf("adding idp: %v", err)
	}
	err = s.AddNetwork(ctx, Network{
		ID:                 "network1",
		Name:               "DevNet",
		SynchronizerID:     "sync::network1",
		LedgerAPI:          LedgerAPI{BaseURL: "https://ledger.example", AdminGrpcURL: "ledger.example:5002"},
		IdentityProviderID: "idp1",
	})
	if err != nil {
		t.Fatalf("adding network: %v", err)
	}

	if err := s.SetSession(ctx, Session{NetworkID: "network1", AccessToken: "jwt"}); err != nil {
		t.Fatalf("setting session: %v", err)
	}

	err = s.AddWallet(ctx, Wallet{
		PartyID:           "party1",
		NetworkID:         "network1",
		Hint:              "main",
		SigningProviderID: "internal",
		Status:            WalletStatusPending,
	})
	if err != nil {
		t.Fatalf("adding first wallet: %v", err)
	}
	err = s.AddWallet(ctx, Wallet{
		PartyID:           "party2",
		NetworkID:         "network1",
		Hint:              "secondary",
		SigningProviderID: "internal",
	})
	if err != nil {
		t.Fatalf("adding second wallet: %v", err)
	}

	// First wallet was promoted; the second add must not steal the flag.
	primary, err := s.GetPrimaryWallet(ctx)
	if err != nil {
		t.Fatalf("getting primary: %v", err)
	}
	if primary.PartyID != "party1" {
		t.Errorf("primary is %q, want party1", primary.PartyID)
	}

	err = s.UpdateWallet(ctx, WalletPatch{PartyID: "party1", Status: WalletStatusAllocated, ExternalTxID: "alloc-1"})
	if err != nil {
		t.Fatalf("confirming allocation: %v", err)
	}

	network, err := s.GetCurrentNetwork(ctx)
	if err != nil {
		t.Fatalf("resolving current network: %v", err)
	}
	if network.LedgerAPI.BaseURL != "https://ledger.example" {
		t.Errorf("ledger api = %q", network.LedgerAPI.BaseURL)
	}

	err = s.SetTransaction(ctx, Transaction{
		CommandID:               "cmd-1",
		Status:                  TxStatusSigned,
		PreparedTransaction:     "cABC",
		PreparedTransactionHash: "1220ff",
	})
	if err != nil {
		t.Fatalf("recording transaction: %v", err)
	}

	wallets, err := s.GetWallets(ctx, WalletFilter{SigningProviderIDs: []string{"internal"}})
	if err != nil {
		t.Fatalf("listing wallets: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("got %d wallets, want 2", len(wallets))
	}
	for _, w := range wallets {
		if w.PartyID == "party1" && w.Status != WalletStatusAllocated {
			t.Errorf("party1 status = %q after confirmation", w.Status)
		}
	}
}
