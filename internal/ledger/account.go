package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// User sub-types
	SubTypeEscrow AccountSubType = iota

	// System sub-types
	SubTypePayoutReserve

	// External sub-types
	SubTypeExternalWallets
	SubTypeExternalBurned
	SubTypeExternalPayouts
)

// AssetID maps asset strings to numeric IDs for performance
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"RWAF": 1, // redemption token (fund share)
		"USDC": 2, // payout asset
	}
	idToAsset = map[AssetID]string{
		1: "RWAF",
		2: "USDC",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking (21 bytes, cache-friendly)
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // UUID for users, name bytes for system accounts
	SubType  AccountSubType
	AssetID  AssetID
}

// NewUserAccountKey creates a key for user accounts
func NewUserAccountKey(userID uuid.UUID, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		EntityID: userID,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewSystemAccountKey creates a key for system accounts
func NewSystemAccountKey(name string, subType AccountSubType, assetID AssetID) AccountKey {
	var entityID [16]byte
	copy(entityID[:], []byte(name))
	return AccountKey{
		Scope:    AccountScopeSystem,
		EntityID: entityID,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeUser:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("user:%s:%s:%s", uid.String(), k.subTypeName(), assetName)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

// ParseAccountPath is the inverse of AccountPath. Snapshots store
// balances keyed by path, so restore needs to rebuild the keys.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")
	if len(parts) < 3 {
		return AccountKey{}, fmt.Errorf("malformed account path: %s", path)
	}

	var key AccountKey
	switch parts[0] {
	case "user":
		if len(parts) != 4 {
			return AccountKey{}, fmt.Errorf("malformed user account path: %s", path)
		}
		uid, err := uuid.Parse(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse user id in %s: %w", path, err)
		}
		key.Scope = AccountScopeUser
		key.EntityID = uid
		parts = parts[2:]
	case "system":
		if len(parts) != 3 {
			return AccountKey{}, fmt.Errorf("malformed system account path: %s", path)
		}
		key.Scope = AccountScopeSystem
		// The path drops the entity name. Only one system account
		// exists per sub-type, so it is recoverable.
		copy(key.EntityID[:], []byte(systemEntityName(parts[1])))
		parts = parts[1:]
	case "external":
		if len(parts) != 3 {
			return AccountKey{}, fmt.Errorf("malformed external account path: %s", path)
		}
		key.Scope = AccountScopeExternal
		parts = parts[1:]
	default:
		return AccountKey{}, fmt.Errorf("unknown account scope: %s", parts[0])
	}

	subType, ok := subTypeFromName(parts[0])
	if !ok {
		return AccountKey{}, fmt.Errorf("unknown account sub-type: %s", parts[0])
	}
	key.SubType = subType

	assetID, ok := GetAssetID(parts[1])
	if !ok {
		return AccountKey{}, fmt.Errorf("unknown asset: %s", parts[1])
	}
	key.AssetID = assetID

	return key, nil
}

func systemEntityName(subType string) string {
	switch subType {
	case "payout_reserve":
		return "fund"
	default:
		return subType
	}
}

func subTypeFromName(name string) (AccountSubType, bool) {
	switch name {
	case "escrow":
		return SubTypeEscrow, true
	case "payout_reserve":
		return SubTypePayoutReserve, true
	case "wallets":
		return SubTypeExternalWallets, true
	case "burned":
		return SubTypeExternalBurned, true
	case "payouts":
		return SubTypeExternalPayouts, true
	default:
		return 0, false
	}
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeEscrow:
		return "escrow"
	case SubTypePayoutReserve:
		return "payout_reserve"
	case SubTypeExternalWallets:
		return "wallets"
	case SubTypeExternalBurned:
		return "burned"
	case SubTypeExternalPayouts:
		return "payouts"
	default:
		return "unknown"
	}
}
