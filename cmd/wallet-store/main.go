// ABOUTME: Entry point for the wallet-store CLI
// ABOUTME: Runs migrations, seeds configured entities, and inspects stored metadata

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/wallet-store/internal/auth"
	"github.com/2389/wallet-store/internal/config"
	"github.com/2389/wallet-store/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
              _ _      _            _
__      _____| | | ___| |_      ___| |_ ___  _ __ ___
\ \ /\ / / _' | | |/ _ \ __|____/ __| __/ _ \| '__/ _ \
 \ V  V / (_| | | |  __/ ||_____\__ \ || (_) | | |  __/
  \_/\_/ \__,_|_|_|\___|\__|    |___/\__\___/|_|  \___|
`

// getConfigPath returns the path to the wallet-store config file.
// Priority: WALLET_STORE_CONFIG env var > XDG_CONFIG_HOME/wallet-store/config.yaml > ~/.config/wallet-store/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("WALLET_STORE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "wallet-store", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: wallet-store <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  migrate [up|down|status]  Apply, revert, or inspect schema migrations")
		fmt.Println("  seed                      Insert configured idps and networks")
		fmt.Println("  idps                      List identity providers")
		fmt.Println("  networks                  List networks")
		fmt.Println("  wallets                   List wallets (requires WALLET_STORE_TOKEN)")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, os.Args[2:])
	case "seed":
		err = runSeed(ctx)
	case "idps":
		err = runIdps(ctx)
	case "networks":
		err = runNetworks(ctx)
	case "wallets":
		err = runWallets(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore loads config, opens the database, and builds the store plus a
// logger. Callers own closing the returned db.
func openStore(ctx context.Context, applyMigrations bool) (*store.DB, *store.SQLStore, *config.Config, *slog.Logger, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	db, err := store.Open(cfg.ConnConfig())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if applyMigrations {
		if err := store.NewMigrator(db, logger).Up(ctx); err != nil {
			db.Close()
			return nil, nil, nil, nil, fmt.Errorf("migrating: %w", err)
		}
	}

	return db, store.NewSQLStore(db, logger), cfg, logger, nil
}

func runMigrate(ctx context.Context, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	db, _, _, logger, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := store.NewMigrator(db, logger)
	green := color.New(color.FgGreen)

	switch direction {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			return err
		}
		green.Println("✓ Migrations applied")
		return nil
	case "down":
		if err := migrator.Down(ctx); err != nil {
			return err
		}
		green.Println("✓ Reverted most recent migration")
		return nil
	case "status":
		applied, err := migrator.Applied(ctx)
		if err != nil {
			return err
		}
		pending, err := migrator.Pending(ctx)
		if err != nil {
			return err
		}
		for _, name := range applied {
			green.Print("  ✓ ")
			fmt.Println(name)
		}
		yellow := color.New(color.FgYellow)
		for _, name := range pending {
			yellow.Print("  ○ ")
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate direction %q (want up, down, or status)", direction)
	}
}

func runSeed(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	db, s, cfg, logger, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	idps, err := cfg.SeedIdps()
	if err != nil {
		return err
	}

	if err := store.Seed(ctx, s, logger, idps, cfg.SeedNetworks()); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Seeded %d identity provider(s), %d network(s)\n", len(idps), len(cfg.Networks))
	return nil
}

func runIdps(ctx context.Context) error {
	db, s, _, _, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	idps, err := s.ListIdps(ctx)
	if err != nil {
		return err
	}
	if len(idps) == 0 {
		fmt.Println("(no identity providers)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE")
	for _, idp := range idps {
		fmt.Fprintf(w, "%s\t%s\n", idp.ID(), idp.Type())
	}
	return w.Flush()
}

func runNetworks(ctx context.Context) error {
	db, s, _, _, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	networks, err := scopedStore(s).ListNetworks(ctx)
	if err != nil {
		return err
	}
	if len(networks) == 0 {
		fmt.Println("(no networks)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSYNCHRONIZER\tIDP\tLEDGER API")
	for _, n := range networks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Name, n.SynchronizerID, n.IdentityProviderID, n.LedgerAPI.BaseURL)
	}
	return w.Flush()
}

func runWallets(ctx context.Context) error {
	db, s, _, _, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	wallets, err := scopedStore(s).GetWallets(ctx, store.WalletFilter{})
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		fmt.Println("(no wallets)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTY\tNETWORK\tPRIMARY\tSTATUS\tSIGNING PROVIDER\tHINT")
	for _, wallet := range wallets {
		primary := ""
		if wallet.Primary {
			primary = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			wallet.PartyID, wallet.NetworkID, primary, wallet.Status,
			wallet.SigningProviderID, wallet.Hint)
	}
	return w.Flush()
}

// scopedStore derives a user-scoped handle when WALLET_STORE_TOKEN carries
// a usable JWT; otherwise the unauthenticated handle is returned.
func scopedStore(s *store.SQLStore) *store.SQLStore {
	token := os.Getenv("WALLET_STORE_TOKEN")
	if token == "" {
		return s
	}
	ac, err := auth.FromToken(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring WALLET_STORE_TOKEN: %v\n", err)
		return s
	}
	return s.WithAuthContext(ac)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
