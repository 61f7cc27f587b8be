package app

import (
	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

func validateTimeControl(p state.Params, timePerPlayer uint64) error {
	if timePerPlayer == 0 {
		return ErrInvalidTimeControl.Wrap("timePerPlayer must be > 0")
	}
	if timePerPlayer > p.MaxDuration/2 {
		return ErrInvalidTimeControl.Wrapf("timePerPlayer %d exceeds half of maxDuration %d", timePerPlayer, p.MaxDuration)
	}
	return nil
}

// escrowCash moves a player's cash contribution into escrow.
func escrowCash(st *state.State, player string, amount uint64) error {
	if st.Balance(player) < amount {
		return ErrInsufficientFunds.Wrapf("%s has %d, needs %d", player, st.Balance(player), amount)
	}
	if err := st.Transfer(player, custody.EscrowAccount, amount); err != nil {
		return ErrInvariant.Wrap(err.Error())
	}
	return nil
}

// payFromEscrow moves cash out of escrow. Escrow always covers every open
// prize pool plus accrued fees, so a shortfall is an invariant violation.
func payFromEscrow(st *state.State, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := st.Transfer(custody.EscrowAccount, to, amount); err != nil {
		return ErrInvariant.Wrapf("escrow payout to %s: %v", to, err)
	}
	return nil
}

func stakedEvent(player string, gameID uint64, color state.Color, ids []uint64) abci.Event {
	return newEvent(EventTypeAssetsStaked, map[string]string{
		"player":   player,
		"gameId":   u64(gameID),
		"color":    string(color),
		"assetIds": joinIDs(ids),
	})
}

func releasedEvent(player string, gameID uint64, ids []uint64) abci.Event {
	return newEvent(EventTypeAssetsReleased, map[string]string{
		"player":   player,
		"gameId":   u64(gameID),
		"assetIds": joinIDs(ids),
	})
}

// stakeAndCreateGame stakes the creator's set, escrows the entry cash and
// opens a game waiting for an opponent.
func (a *BattleChessApp) stakeAndCreateGame(tc *txContext, caller string, msg codec.StakeAndCreateGameTx) (*abci.ExecTxResult, error) {
	release, err := a.guard.enter(playerKey(caller))
	if err != nil {
		return nil, err
	}
	defer release()

	st := tc.st
	color := state.Color(msg.Color)
	if err := validateTimeControl(st.Params, msg.TimePerPlayer); err != nil {
		return nil, err
	}
	if msg.Amount < st.Params.EntryFee {
		return nil, ErrAmountMismatch.Wrapf("amount %d below entry fee %d", msg.Amount, st.Params.EntryFee)
	}

	gameID := st.NextGameID
	if err := stakeAssets(tc, caller, msg.AssetIDs, color, gameID); err != nil {
		return nil, err
	}
	if err := escrowCash(st, caller, msg.Amount); err != nil {
		return nil, err
	}

	nextID, err := addUint64Checked(gameID, 1, "nextGameId")
	if err != nil {
		return nil, err
	}
	st.NextGameID = nextID
	st.Games[gameID] = &state.Game{
		ID:            gameID,
		Player1:       caller,
		Player1Color:  color,
		Player1Amount: msg.Amount,
		PrizePool:     msg.Amount,
		TimePerPlayer: msg.TimePerPlayer,
		TimeIncrement: msg.TimeIncrement,
		MaxDuration:   st.Params.MaxDuration,
		CreatedAt:     tc.now,
		Status:        state.GameCreated,
	}

	tc.afterCommit(func() { a.metrics.gameTransition(string(state.GameCreated)) })
	return okEvents(
		stakedEvent(caller, gameID, color, msg.AssetIDs),
		newEvent(EventTypeGameCreated, map[string]string{
			"gameId":        u64(gameID),
			"player1":       caller,
			"color":         string(color),
			"amount":        u64(msg.Amount),
			"timePerPlayer": u64(msg.TimePerPlayer),
			"timeIncrement": u64(msg.TimeIncrement),
		}),
	), nil
}

// stakeAndJoinGame seats a second player. The joiner must pay at least the
// creator's contribution.
func (a *BattleChessApp) stakeAndJoinGame(tc *txContext, caller string, msg codec.StakeAndJoinGameTx) (*abci.ExecTxResult, error) {
	st := tc.st
	g := st.Games[msg.GameID]
	if g == nil {
		return nil, ErrGameNotFound.Wrapf("game %d", msg.GameID)
	}

	release, err := a.guard.enter(gameKey(g.ID), playerKey(caller))
	if err != nil {
		return nil, err
	}
	defer release()

	if g.Player2 != "" {
		return nil, ErrAlreadyFull.Wrapf("game %d", g.ID)
	}
	if g.Status != state.GameCreated {
		return nil, ErrNotJoinable.Wrapf("game %d is %s", g.ID, g.Status)
	}
	if caller == g.Player1 {
		return nil, ErrInvalidRequest.Wrap("cannot join own game")
	}
	if msg.Amount < g.PrizePool {
		return nil, ErrAmountMismatch.Wrapf("amount %d below required %d", msg.Amount, g.PrizePool)
	}

	color := state.Color(msg.Color)
	if err := stakeAssets(tc, caller, msg.AssetIDs, color, g.ID); err != nil {
		return nil, err
	}
	if err := escrowCash(st, caller, msg.Amount); err != nil {
		return nil, err
	}

	pool, err := addUint64Checked(g.PrizePool, msg.Amount, "prizePool")
	if err != nil {
		return nil, err
	}
	deadline, err := addInt64AndU64Checked(tc.now, g.MaxDuration, "deadline")
	if err != nil {
		return nil, ErrInvariant.Wrap(err.Error())
	}
	g.Player2 = caller
	g.Player2Color = color
	g.Player2Amount = msg.Amount
	g.PrizePool = pool
	g.StartTime = tc.now
	g.Deadline = deadline
	g.Status = state.GameActive

	tc.afterCommit(func() { a.metrics.gameTransition(string(state.GameActive)) })
	return okEvents(
		stakedEvent(caller, g.ID, color, msg.AssetIDs),
		newEvent(EventTypeGameJoined, map[string]string{
			"gameId":    u64(g.ID),
			"player2":   caller,
			"color":     string(color),
			"amount":    u64(msg.Amount),
			"prizePool": u64(g.PrizePool),
			"startTime": i64(g.StartTime),
		}),
	), nil
}

// cancelGame lets the creator withdraw from a game nobody has joined yet. The
// full stake and entry cash go back to the creator.
func (a *BattleChessApp) cancelGame(tc *txContext, caller string, msg codec.CancelGameTx) (*abci.ExecTxResult, error) {
	st := tc.st
	g := st.Games[msg.GameID]
	if g == nil {
		return nil, ErrGameNotFound.Wrapf("game %d", msg.GameID)
	}

	release, err := a.guard.enter(gameKey(g.ID), playerKey(caller))
	if err != nil {
		return nil, err
	}
	defer release()

	if caller != g.Player1 {
		return nil, ErrNotCreator.Wrapf("game %d was created by %s", g.ID, g.Player1)
	}
	if g.Status != state.GameCreated || g.Player2 != "" {
		return nil, ErrNotCancellable.Wrapf("game %d is %s", g.ID, g.Status)
	}

	released, err := releaseAssets(tc, g.Player1, state.NoAsset)
	if err != nil {
		return nil, err
	}
	clearStake(st, g.Player1)
	refund := g.Player1Amount
	if err := payFromEscrow(st, g.Player1, refund); err != nil {
		return nil, err
	}
	g.PrizePool = 0
	g.Status = state.GameCancelled
	g.EndTime = tc.now

	tc.afterCommit(func() {
		a.logger.Info("game cancelled", "gameId", g.ID, "player", g.Player1, "refund", refund)
		a.metrics.gameTransition(string(state.GameCancelled))
	})
	return okEvents(
		releasedEvent(g.Player1, g.ID, released),
		newEvent(EventTypeGameCancelled, map[string]string{
			"gameId": u64(g.ID),
			"player": g.Player1,
			"refund": u64(refund),
		}),
	), nil
}
