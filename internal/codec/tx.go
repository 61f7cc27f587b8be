package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes; we use JSON-encoded txs routed by
// Type. Every tx that acts on behalf of an account is signed:
// - Nonce: decimal u64, must strictly increase per signer.
// - Signer: account address the tx acts for (the caller identity).
// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// Tx type routes.
const (
	TypeAuthRegisterAccount = "auth/register_account"
	TypeBankMint            = "bank/mint"
	TypeAssetMint           = "asset/mint"
	TypeAssetTransfer       = "asset/transfer"
	TypeStakeAndCreate      = "game/stake_and_create"
	TypeStakeAndJoin        = "game/stake_and_join"
	TypeCompleteGame        = "game/complete"
	TypeCancelGame          = "game/cancel"
	TypeStartSeason         = "admin/start_season"
	TypeWithdrawFees        = "admin/withdraw_fees"
	TypeSetParams           = "admin/set_params"
)

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Assets (devnet issuance stub) ----

type AssetSpec struct {
	Color string `json:"color"` // white|black
	Piece string `json:"piece"` // pawn|knight|bishop|rook|queen|king
}

type AssetMintTx struct {
	To     string      `json:"to"`
	Assets []AssetSpec `json:"assets"`
}

type AssetTransferTx struct {
	To      string `json:"to"`
	AssetID uint64 `json:"assetId"`
}

// ---- Games ----

type StakeAndCreateGameTx struct {
	AssetIDs      []uint64 `json:"assetIds"`
	Color         string   `json:"color"`
	TimePerPlayer uint64   `json:"timePerPlayer"`           // seconds
	TimeIncrement uint64   `json:"timeIncrement,omitempty"` // seconds
	Amount        uint64   `json:"amount"`                  // cash paid into the prize pool
}

type StakeAndJoinGameTx struct {
	GameID   uint64   `json:"gameId"`
	AssetIDs []uint64 `json:"assetIds"`
	Color    string   `json:"color"`
	Amount   uint64   `json:"amount"`
}

type CompleteGameTx struct {
	GameID         uint64 `json:"gameId"`
	ResultDigest   []byte `json:"resultDigest"` // base64 (32 bytes)
	ClaimedAssetID uint64 `json:"claimedAssetId"`
}

type CancelGameTx struct {
	GameID uint64 `json:"gameId"`
}

// ---- Admin ----

type StartSeasonTx struct{}

type WithdrawFeesTx struct {
	To string `json:"to,omitempty"` // defaults to the admin account
}

type SetParamsTx struct {
	EntryFee    uint64 `json:"entryFee,omitempty"`
	MaxDuration uint64 `json:"maxDuration,omitempty"`
}
