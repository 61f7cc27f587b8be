package app

import (
	"crypto/sha256"
	"slices"

	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/rating"
	"battlechess/internal/state"
)

const (
	winPoints  uint64 = 100
	lossPoints uint64 = 10
)

// settlement is everything completeGame will write, computed up front so that
// a rejected completion touches nothing.
type settlement struct {
	winner, loser     string
	platformCut       uint64
	winnerPrize       uint64
	winnerElo         uint64
	loserElo          uint64
	winnerGain        uint64
	winnerPointsAdded uint64
}

func planSettlement(st *state.State, g *state.Game, winner string) (settlement, error) {
	loser := g.Opponent(winner)
	oldWinner, oldLoser := st.Rating(winner), st.Rating(loser)
	newWinner, newLoser := rating.Update(oldWinner, oldLoser)
	gain := newWinner - oldWinner

	pts, err := addUint64Checked(winPoints, gain, "winner points")
	if err != nil {
		return settlement{}, err
	}
	cut, prize := splitPrizePool(g.PrizePool)
	return settlement{
		winner:            winner,
		loser:             loser,
		platformCut:       cut,
		winnerPrize:       prize,
		winnerElo:         newWinner,
		loserElo:          newLoser,
		winnerGain:        gain,
		winnerPointsAdded: pts,
	}, nil
}

func (s settlement) applyStats(st *state.State, g *state.Game) error {
	w := st.StatsFor(s.winner)
	l := st.StatsFor(s.loser)

	var err error
	if w.Wins, err = addUint64Checked(w.Wins, 1, "wins"); err != nil {
		return err
	}
	if w.MatchesPlayed, err = addUint64Checked(w.MatchesPlayed, 1, "matchesPlayed"); err != nil {
		return err
	}
	if w.TotalWon, err = addUint64Checked(w.TotalWon, s.winnerPrize, "totalWon"); err != nil {
		return err
	}
	if w.Points, err = addUint64Checked(w.Points, s.winnerPointsAdded, "points"); err != nil {
		return err
	}
	w.Elo = s.winnerElo

	loserPaid := g.Player1Amount
	if s.loser == g.Player2 {
		loserPaid = g.Player2Amount
	}
	if l.Losses, err = addUint64Checked(l.Losses, 1, "losses"); err != nil {
		return err
	}
	if l.MatchesPlayed, err = addUint64Checked(l.MatchesPlayed, 1, "matchesPlayed"); err != nil {
		return err
	}
	if l.TotalLost, err = addUint64Checked(l.TotalLost, loserPaid, "totalLost"); err != nil {
		return err
	}
	if l.Points, err = addUint64Checked(l.Points, lossPoints, "points"); err != nil {
		return err
	}
	l.Elo = s.loserElo

	if err := st.AddSeasonPoints(st.Season, s.winner, s.winnerPointsAdded); err != nil {
		return ErrInvariant.Wrap(err.Error())
	}
	if err := st.AddSeasonPoints(st.Season, s.loser, lossPoints); err != nil {
		return ErrInvariant.Wrap(err.Error())
	}
	return nil
}

// completeGame settles an active game. Either participant may report the
// result; the first valid report wins and the caller is recorded as winner.
func (a *BattleChessApp) completeGame(tc *txContext, caller string, msg codec.CompleteGameTx) (*abci.ExecTxResult, error) {
	st := tc.st
	g := st.Games[msg.GameID]
	if g == nil {
		return nil, ErrGameNotFound.Wrapf("game %d", msg.GameID)
	}

	release, err := a.guard.enter(gameKey(g.ID), playerKey(g.Player1), playerKey(g.Player2))
	if err != nil {
		return nil, err
	}
	defer release()

	if g.Status != state.GameActive {
		return nil, ErrNotActive.Wrapf("game %d is %s", g.ID, g.Status)
	}
	if caller != g.Player1 && caller != g.Player2 {
		return nil, ErrNotAParticipant.Wrapf("%s in game %d", caller, g.ID)
	}
	if len(msg.ResultDigest) != sha256.Size {
		return nil, ErrInvalidRequest.Wrapf("resultDigest must be %d bytes", sha256.Size)
	}

	winner := caller
	loser := g.Opponent(winner)
	loserStake := st.ActiveStake(loser)
	if loserStake == nil || loserStake.GameID != g.ID || !slices.Contains(loserStake.AssetIDs, msg.ClaimedAssetID) || !st.StakedAssets[msg.ClaimedAssetID] {
		return nil, ErrInvalidClaim.Wrapf("asset %d is not staked by %s in game %d", msg.ClaimedAssetID, loser, g.ID)
	}

	plan, err := planSettlement(st, g, winner)
	if err != nil {
		return nil, err
	}

	g.Status = state.GameCompleted
	g.Winner = winner
	g.ClaimedAssetID = msg.ClaimedAssetID
	g.ResultDigest = append([]byte(nil), msg.ResultDigest...)
	g.EndTime = tc.now

	if err := plan.applyStats(st, g); err != nil {
		return nil, err
	}

	// The claimed piece changes hands; everything else goes home.
	if err := tc.transfer(custody.EscrowAccount, winner, msg.ClaimedAssetID); err != nil {
		return nil, transferFailed(ErrTransferFailed.Wrapf("claimed asset %d: %v", msg.ClaimedAssetID, err), tc.undoTransfers())
	}
	delete(st.StakedAssets, msg.ClaimedAssetID)
	winnerReleased, err := releaseAssets(tc, winner, state.NoAsset)
	if err != nil {
		return nil, err
	}
	loserReleased, err := releaseAssets(tc, loser, msg.ClaimedAssetID)
	if err != nil {
		return nil, err
	}
	clearStake(st, winner)
	clearStake(st, loser)

	fees, err := addUint64Checked(st.PlatformFees, plan.platformCut, "platformFees")
	if err != nil {
		return nil, err
	}
	st.PlatformFees = fees
	if err := payFromEscrow(st, winner, plan.winnerPrize); err != nil {
		return nil, err
	}

	tc.afterCommit(func() {
		a.logger.Info("game settled",
			"height", tc.height,
			"gameId", g.ID,
			"winner", winner,
			"loser", loser,
			"prize", plan.winnerPrize,
			"platformCut", plan.platformCut,
			"claimedAsset", msg.ClaimedAssetID,
		)
		a.metrics.gameTransition(string(state.GameCompleted))
		a.metrics.settled(plan.winnerPrize, plan.platformCut)
	})
	return okEvents(
		releasedEvent(winner, g.ID, winnerReleased),
		releasedEvent(loser, g.ID, loserReleased),
		newEvent(EventTypeGameCompleted, map[string]string{
			"gameId":         u64(g.ID),
			"winner":         winner,
			"loser":          loser,
			"claimedAssetId": u64(msg.ClaimedAssetID),
			"prize":          u64(plan.winnerPrize),
			"platformCut":    u64(plan.platformCut),
			"season":         u64(st.Season),
		}),
		newEvent(EventTypeRatingUpdated, map[string]string{
			"gameId":    u64(g.ID),
			"winner":    winner,
			"winnerElo": u64(plan.winnerElo),
			"gain":      u64(plan.winnerGain),
			"loser":     loser,
			"loserElo":  u64(plan.loserElo),
		}),
	), nil
}
