package app

import (
	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

func bankMint(tc *txContext, msg codec.BankMintTx) (*abci.ExecTxResult, error) {
	if msg.To == "" || msg.Amount == 0 {
		return nil, ErrInvalidRequest.Wrap("missing to/amount")
	}
	if msg.To == custody.EscrowAccount {
		return nil, ErrInvalidRequest.Wrap("cannot mint into escrow")
	}
	if err := tc.st.Credit(msg.To, msg.Amount); err != nil {
		return nil, ErrInvariant.Wrap(err.Error())
	}
	return okEvent(EventTypeBankMinted, map[string]string{
		"to":     msg.To,
		"amount": u64(msg.Amount),
	}), nil
}

// mintAssets issues chess pieces. It stands in for the external NFT contract
// on devnets.
func mintAssets(tc *txContext, msg codec.AssetMintTx) (*abci.ExecTxResult, error) {
	if msg.To == "" || len(msg.Assets) == 0 {
		return nil, ErrInvalidRequest.Wrap("missing to/assets")
	}
	if msg.To == custody.EscrowAccount {
		return nil, ErrInvalidRequest.Wrap("cannot mint into escrow")
	}
	ids := make([]uint64, 0, len(msg.Assets))
	for _, spec := range msg.Assets {
		a, err := tc.st.MintAsset(msg.To, state.Color(spec.Color), state.Piece(spec.Piece))
		if err != nil {
			return nil, ErrInvalidRequest.Wrap(err.Error())
		}
		ids = append(ids, a.ID)
	}
	return okEvent(EventTypeAssetsMinted, map[string]string{
		"to":       msg.To,
		"assetIds": joinIDs(ids),
	}), nil
}

// transferAsset moves an unstaked piece between accounts. Staked pieces are
// held by escrow and can only move through settlement.
func transferAsset(tc *txContext, caller string, msg codec.AssetTransferTx) (*abci.ExecTxResult, error) {
	if msg.To == "" {
		return nil, ErrInvalidRequest.Wrap("missing to")
	}
	if msg.To == custody.EscrowAccount {
		return nil, ErrInvalidRequest.Wrap("cannot transfer into escrow")
	}
	if tc.st.StakedAssets[msg.AssetID] {
		return nil, ErrAssetAlreadyStaked.Wrapf("asset %d", msg.AssetID)
	}
	owner, err := tc.custody.OwnerOf(msg.AssetID)
	if err != nil {
		return nil, ErrNotOwner.Wrap(err.Error())
	}
	if owner != caller {
		return nil, ErrNotOwner.Wrapf("asset %d owned by %q", msg.AssetID, owner)
	}
	if err := tc.transfer(caller, msg.To, msg.AssetID); err != nil {
		return nil, ErrTransferFailed.Wrap(err.Error())
	}
	return okEvent(EventTypeAssetTransferred, map[string]string{
		"from":    caller,
		"to":      msg.To,
		"assetId": u64(msg.AssetID),
	}), nil
}
