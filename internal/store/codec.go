// ABOUTME: Pure bidirectional codecs between domain values and flat row representations
// ABOUTME: Tag-dispatched idp variants, boolean-as-integer primary flags, JSON list columns

package store

import (
	"encoding/json"
	"fmt"
)

// Row structs mirror the column layout exactly. Optional sub-fields are
// persisted as empty strings so every column can stay non-nullable.

type idpRow struct {
	ID                string
	Type              string
	Issuer            string
	ConfigURL         string
	Audience          string
	ClientID          string
	ClientSecret      string
	AdminClientID     string
	AdminClientSecret string
}

type walletRow struct {
	PartyID              string
	NetworkID            string
	Primary              int64
	Hint                 string
	PublicKey            string
	Namespace            string
	SigningProviderID    string
	Status               string
	ExternalTxID         string
	TopologyTransactions string
	Reason               string
	UserID               string
}

type transactionRow struct {
	CommandID               string
	Status                  string
	PreparedTransaction     string
	PreparedTransactionHash string
	Payload                 string
	UserID                  string
}

func encodeIdp(idp Idp) (idpRow, error) {
	switch v := idp.(type) {
	case OAuthIdp:
		row := idpRow{
			ID:        v.IdentityProviderID,
			Type:      string(IdpTypeOAuth),
			Issuer:    v.Issuer,
			ConfigURL: v.ConfigURL,
			Audience:  v.Audience,
			ClientID:  v.ClientID,
		}
		fillAdmin(&row, v.Admin)
		return row, nil
	case SelfSignedIdp:
		row := idpRow{
			ID:           v.IdentityProviderID,
			Type:         string(IdpTypeSelfSigned),
			Issuer:       v.Issuer,
			Audience:     v.Audience,
			ClientID:     v.ClientID,
			ClientSecret: v.ClientSecret,
		}
		fillAdmin(&row, v.Admin)
		return row, nil
	case ClientCredentialsIdp:
		row := idpRow{
			ID:           v.IdentityProviderID,
			Type:         string(IdpTypeClientCredentials),
			Issuer:       v.Issuer,
			ConfigURL:    v.ConfigURL,
			Audience:     v.Audience,
			ClientID:     v.ClientID,
			ClientSecret: v.ClientSecret,
		}
		fillAdmin(&row, v.Admin)
		return row, nil
	default:
		return idpRow{}, fmt.Errorf("unknown identity provider variant %T: %w", idp, ErrValidation)
	}
}

func decodeIdp(row idpRow) (Idp, error) {
	switch IdpType(row.Type) {
	case IdpTypeOAuth:
		return OAuthIdp{
			IdentityProviderID: row.ID,
			Issuer:             row.Issuer,
			ConfigURL:          row.ConfigURL,
			Audience:           row.Audience,
			ClientID:           row.ClientID,
			Admin:              adminFromRow(row),
		}, nil
	case IdpTypeSelfSigned:
		return SelfSignedIdp{
			IdentityProviderID: row.ID,
			Issuer:             row.Issuer,
			Audience:           row.Audience,
			ClientID:           row.ClientID,
			ClientSecret:       row.ClientSecret,
			Admin:              adminFromRow(row),
		}, nil
	case IdpTypeClientCredentials:
		return ClientCredentialsIdp{
			IdentityProviderID: row.ID,
			Issuer:             row.Issuer,
			ConfigURL:          row.ConfigURL,
			Audience:           row.Audience,
			ClientID:           row.ClientID,
			ClientSecret:       row.ClientSecret,
			Admin:              adminFromRow(row),
		}, nil
	default:
		return nil, fmt.Errorf("unknown identity provider type %q: %w", row.Type, ErrValidation)
	}
}

func fillAdmin(row *idpRow, admin *AdminCredentials) {
	if admin == nil {
		return
	}
	row.AdminClientID = admin.ClientID
	row.AdminClientSecret = admin.ClientSecret
}

func adminFromRow(row idpRow) *AdminCredentials {
	if row.AdminClientID == "" && row.AdminClientSecret == "" {
		return nil
	}
	return &AdminCredentials{
		ClientID:     row.AdminClientID,
		ClientSecret: row.AdminClientSecret,
	}
}

// IdpParams is the flat, serialization-friendly form of an identity
// provider, used by configuration bootstrap lists.
type IdpParams struct {
	ID                string
	Type              string
	Issuer            string
	ConfigURL         string
	Audience          string
	ClientID          string
	ClientSecret      string
	AdminClientID     string
	AdminClientSecret string
}

// IdpFromParams decodes the flat form into its variant. An unknown Type
// tag fails with ErrValidation naming the tag.
func IdpFromParams(p IdpParams) (Idp, error) {
	return decodeIdp(idpRow{
		ID:                p.ID,
		Type:              p.Type,
		Issuer:            p.Issuer,
		ConfigURL:         p.ConfigURL,
		Audience:          p.Audience,
		ClientID:          p.ClientID,
		ClientSecret:      p.ClientSecret,
		AdminClientID:     p.AdminClientID,
		AdminClientSecret: p.AdminClientSecret,
	})
}

func encodeWallet(w Wallet, userID string) (walletRow, error) {
	topo := ""
	if len(w.TopologyTransactions) > 0 {
		data, err := json.Marshal(w.TopologyTransactions)
		if err != nil {
			return walletRow{}, fmt.Errorf("encoding topology transactions: %w", err)
		}
		topo = string(data)
	}

	primary := int64(0)
	if w.Primary {
		primary = 1
	}

	return walletRow{
		PartyID:              w.PartyID,
		NetworkID:            w.NetworkID,
		Primary:              primary,
		Hint:                 w.Hint,
		PublicKey:            w.PublicKey,
		Namespace:            w.Namespace,
		SigningProviderID:    w.SigningProviderID,
		Status:               w.Status,
		ExternalTxID:         w.ExternalTxID,
		TopologyTransactions: topo,
		Reason:               w.Reason,
		UserID:               userID,
	}, nil
}

func decodeWallet(row walletRow) (Wallet, error) {
	var topo []string
	if row.TopologyTransactions != "" {
		if err := json.Unmarshal([]byte(row.TopologyTransactions), &topo); err != nil {
			return Wallet{}, fmt.Errorf("decoding topology transactions for %q: %w", row.PartyID, err)
		}
	}

	return Wallet{
		PartyID:              row.PartyID,
		NetworkID:            row.NetworkID,
		Primary:              row.Primary != 0,
		Hint:                 row.Hint,
		PublicKey:            row.PublicKey,
		Namespace:            row.Namespace,
		SigningProviderID:    row.SigningProviderID,
		Status:               row.Status,
		ExternalTxID:         row.ExternalTxID,
		TopologyTransactions: topo,
		Reason:               row.Reason,
	}, nil
}

func encodeTransaction(tx Transaction, userID string) transactionRow {
	payload := ""
	if tx.Payload != nil {
		payload = string(tx.Payload)
	}
	return transactionRow{
		CommandID:               tx.CommandID,
		Status:                  tx.Status,
		PreparedTransaction:     tx.PreparedTransaction,
		PreparedTransactionHash: tx.PreparedTransactionHash,
		Payload:                 payload,
		UserID:                  userID,
	}
}

func decodeTransaction(row transactionRow) Transaction {
	var payload json.RawMessage
	if row.Payload != "" {
		payload = json.RawMessage(row.Payload)
	}
	return Transaction{
		CommandID:               row.CommandID,
		Status:                  row.Status,
		PreparedTransaction:     row.PreparedTransaction,
		PreparedTransactionHash: row.PreparedTransactionHash,
		Payload:                 payload,
	}
}
