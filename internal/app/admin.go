package app

import (
	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
)

// startSeason closes the current leaderboard season. Points already earned
// stay attached to the season they were earned in.
func startSeason(tc *txContext) (*abci.ExecTxResult, error) {
	next, err := addUint64Checked(tc.st.Season, 1, "season")
	if err != nil {
		return nil, err
	}
	prev := tc.st.Season
	tc.st.Season = next
	return okEvent(EventTypeSeasonStarted, map[string]string{
		"season":   u64(next),
		"previous": u64(prev),
	}), nil
}

func withdrawFees(tc *txContext, admin string, msg codec.WithdrawFeesTx) (*abci.ExecTxResult, error) {
	st := tc.st
	if st.PlatformFees == 0 {
		return nil, ErrNoFees
	}
	to := msg.To
	if to == "" {
		to = admin
	}
	if to == custody.EscrowAccount {
		return nil, ErrInvalidRequest.Wrap("cannot withdraw into escrow")
	}
	amount := st.PlatformFees
	st.PlatformFees = 0
	if err := payFromEscrow(st, to, amount); err != nil {
		return nil, err
	}
	return okEvent(EventTypePlatformFeesWithdrawn, map[string]string{
		"to":     to,
		"amount": u64(amount),
	}), nil
}

func setParams(tc *txContext, msg codec.SetParamsTx) (*abci.ExecTxResult, error) {
	if msg.EntryFee == 0 && msg.MaxDuration == 0 {
		return nil, ErrInvalidRequest.Wrap("nothing to update")
	}
	if msg.MaxDuration == 1 {
		return nil, ErrInvalidTimeControl.Wrap("maxDuration must be at least 2 seconds")
	}
	p := &tc.st.Params
	if msg.EntryFee != 0 {
		p.EntryFee = msg.EntryFee
	}
	if msg.MaxDuration != 0 {
		p.MaxDuration = msg.MaxDuration
	}
	return okEvent(EventTypeParamsUpdated, map[string]string{
		"entryFee":    u64(p.EntryFee),
		"maxDuration": u64(p.MaxDuration),
	}), nil
}
