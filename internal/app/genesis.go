package app

import (
	"crypto/ed25519"
	"fmt"

	"battlechess/internal/custody"
	"battlechess/internal/state"
)

// Genesis is the app_state carried in the CometBFT genesis document.
type Genesis struct {
	Admin       string            `json:"admin"`
	Params      *GenesisParams    `json:"params,omitempty"`
	Accounts    map[string]uint64 `json:"accounts,omitempty"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // base64 ed25519 pubkeys
}

type GenesisParams struct {
	EntryFee    uint64 `json:"entryFee,omitempty"`
	MaxDuration uint64 `json:"maxDuration,omitempty"`
}

func (g Genesis) Validate() error {
	if g.Admin == "" {
		return fmt.Errorf("genesis admin is required")
	}
	if g.Admin == custody.EscrowAccount {
		return fmt.Errorf("genesis admin %q is reserved", g.Admin)
	}
	if len(g.AccountKeys[g.Admin]) == 0 {
		return fmt.Errorf("genesis admin %q has no account key", g.Admin)
	}
	for addr, pub := range g.AccountKeys {
		if addr == "" {
			return fmt.Errorf("genesis account key with empty address")
		}
		if addr == custody.EscrowAccount {
			return fmt.Errorf("genesis account %q is reserved", addr)
		}
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("genesis account %q: pubKey must be %d bytes", addr, ed25519.PublicKeySize)
		}
	}
	for addr := range g.Accounts {
		if addr == "" {
			return fmt.Errorf("genesis balance with empty address")
		}
		if addr == custody.EscrowAccount {
			return fmt.Errorf("genesis account %q is reserved", addr)
		}
	}
	if g.Params != nil && g.Params.MaxDuration != 0 && g.Params.MaxDuration < 2 {
		return fmt.Errorf("maxDuration must allow a non-zero time per player")
	}
	return nil
}

func (g Genesis) apply(st *state.State) error {
	if err := g.Validate(); err != nil {
		return err
	}
	st.Params.Admin = g.Admin
	if g.Params != nil {
		if g.Params.EntryFee != 0 {
			st.Params.EntryFee = g.Params.EntryFee
		}
		if g.Params.MaxDuration != 0 {
			st.Params.MaxDuration = g.Params.MaxDuration
		}
	}
	for addr, pub := range g.AccountKeys {
		st.AccountKeys[addr] = append([]byte(nil), pub...)
	}
	for addr, bal := range g.Accounts {
		if err := st.Credit(addr, bal); err != nil {
			return fmt.Errorf("genesis account %q: %w", addr, err)
		}
	}
	return nil
}
