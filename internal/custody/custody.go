// Package custody adapts the chess-piece asset registry to the narrow
// ownership interface the staking core depends on.
package custody

import (
	"errors"
	"fmt"

	"battlechess/internal/state"
)

var (
	ErrUnknownAsset = errors.New("custody: unknown asset")
	ErrNotOwner     = errors.New("custody: sender does not own asset")
)

// EscrowAccount is the identity that holds staked pieces and entry cash.
const EscrowAccount = "battlechess/escrow"

// AssetCustody is everything the staking core needs from the asset contract.
type AssetCustody interface {
	OwnerOf(assetID uint64) (string, error)
	Transfer(from, to string, assetID uint64) error
	HasCompleteMatchedSet(player string, color state.Color) bool
	ColorOf(assetID uint64) (state.Color, error)
}

// Ledger is the AssetCustody backed by the chain's own asset table.
type Ledger struct {
	st *state.State
}

var _ AssetCustody = (*Ledger)(nil)

func NewLedger(st *state.State) *Ledger {
	return &Ledger{st: st}
}

func (l *Ledger) asset(id uint64) (*state.Asset, error) {
	a := l.st.Assets[id]
	if a == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	return a, nil
}

func (l *Ledger) OwnerOf(assetID uint64) (string, error) {
	a, err := l.asset(assetID)
	if err != nil {
		return "", err
	}
	return a.Owner, nil
}

func (l *Ledger) ColorOf(assetID uint64) (state.Color, error) {
	a, err := l.asset(assetID)
	if err != nil {
		return "", err
	}
	return a.Color, nil
}

func (l *Ledger) Transfer(from, to string, assetID uint64) error {
	a, err := l.asset(assetID)
	if err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("custody: missing recipient for asset %d", assetID)
	}
	if a.Owner != from {
		return fmt.Errorf("%w: asset=%d owner=%q from=%q", ErrNotOwner, assetID, a.Owner, from)
	}
	a.Owner = to
	return nil
}

// HasCompleteMatchedSet reports whether player currently owns at least one full
// set (8 pawns, 2 knights, 2 bishops, 2 rooks, queen, king) of color.
func (l *Ledger) HasCompleteMatchedSet(player string, color state.Color) bool {
	counts := make(map[state.Piece]int, len(state.SetComposition))
	for _, a := range l.st.Assets {
		if a.Owner == player && a.Color == color {
			counts[a.Piece]++
		}
	}
	for piece, need := range state.SetComposition {
		if counts[piece] < need {
			return false
		}
	}
	return true
}
