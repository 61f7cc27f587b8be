package app

import (
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

// validateStake checks every precondition of a stake without mutating anything.
func validateStake(tc *txContext, player string, assetIDs []uint64, color state.Color) error {
	if player == "" {
		return ErrInvalidRequest.Wrap("missing player")
	}
	if !color.Valid() {
		return ErrInvalidRequest.Wrapf("invalid color %q", color)
	}
	if e := tc.st.ActiveStake(player); e != nil {
		return ErrAlreadyStaked.Wrapf("%s is staked in game %d", player, e.GameID)
	}
	if len(assetIDs) != state.SetSize {
		return ErrWrongCount.Wrapf("got %d want %d", len(assetIDs), state.SetSize)
	}
	seen := make(map[uint64]struct{}, len(assetIDs))
	for _, id := range assetIDs {
		if _, dup := seen[id]; dup {
			return ErrDuplicateAsset.Wrapf("asset %d", id)
		}
		seen[id] = struct{}{}
	}
	if !tc.custody.HasCompleteMatchedSet(player, color) {
		return ErrIncompleteSet.Wrapf("%s has no complete %s set", player, color)
	}
	for _, id := range assetIDs {
		if tc.st.StakedAssets[id] {
			return ErrAssetAlreadyStaked.Wrapf("asset %d", id)
		}
		owner, err := tc.custody.OwnerOf(id)
		if err != nil {
			return ErrNotOwner.Wrap(err.Error())
		}
		if owner != player {
			return ErrNotOwner.Wrapf("asset %d owned by %q", id, owner)
		}
		c, err := tc.custody.ColorOf(id)
		if err != nil {
			return ErrNotOwner.Wrap(err.Error())
		}
		if c != color {
			return ErrColorMismatch.Wrapf("asset %d is %s, declared %s", id, c, color)
		}
	}
	return nil
}

// stakeAssets escrows the player's pieces and records the stake entry. If any
// single transfer fails, every transfer the tx has applied so far is undone
// before the error is returned.
func stakeAssets(tc *txContext, player string, assetIDs []uint64, color state.Color, gameID uint64) error {
	if err := validateStake(tc, player, assetIDs, color); err != nil {
		return err
	}

	for _, id := range assetIDs {
		if err := tc.transfer(player, custody.EscrowAccount, id); err != nil {
			return transferFailed(ErrTransferFailed.Wrapf("escrow asset %d: %v", id, err), tc.undoTransfers())
		}
	}

	for _, id := range assetIDs {
		tc.st.StakedAssets[id] = true
	}
	tc.st.Stakes[player] = &state.StakeEntry{
		IsStaked: true,
		Color:    color,
		AssetIDs: append([]uint64(nil), assetIDs...),
		StakedAt: tc.now,
		GameID:   gameID,
	}
	return nil
}

// transferFailed keeps the registered ABCI code of cause unless undoing the
// applied transfers itself failed, which is an invariant violation.
func transferFailed(cause error, rollback error) error {
	if rollback != nil {
		return ErrInvariant.Wrapf("%v; %v", cause, rollback)
	}
	return cause
}

// releaseAssets returns every still-staked piece of player's entry to the player
// except exceptID (state.NoAsset releases all). Pieces already unstaked are
// skipped silently. A failed transfer undoes every transfer of the tx.
func releaseAssets(tc *txContext, player string, exceptID uint64) ([]uint64, error) {
	entry := tc.st.Stakes[player]
	if entry == nil {
		return nil, nil
	}
	released := make([]uint64, 0, len(entry.AssetIDs))
	for _, id := range entry.AssetIDs {
		if id == exceptID || !tc.st.StakedAssets[id] {
			continue
		}
		if err := tc.transfer(custody.EscrowAccount, player, id); err != nil {
			return nil, transferFailed(ErrTransferFailed.Wrapf("release asset %d to %s: %v", id, player, err), tc.undoTransfers())
		}
		released = append(released, id)
	}
	for _, id := range released {
		delete(tc.st.StakedAssets, id)
	}
	return released, nil
}

func clearStake(st *state.State, player string) {
	delete(st.Stakes, player)
}
