package app

import errorsmod "cosmossdk.io/errors"

// Codespace is the ABCI codespace for every error registered below.
const Codespace = "battlechess"

// Precondition failures. They are returned before any state is touched.
var (
	ErrInvalidRequest     = errorsmod.Register(Codespace, 2, "invalid request")
	ErrUnauthorized       = errorsmod.Register(Codespace, 3, "unauthorized")
	ErrAlreadyStaked      = errorsmod.Register(Codespace, 4, "player already staked")
	ErrWrongCount         = errorsmod.Register(Codespace, 5, "wrong number of assets")
	ErrAssetAlreadyStaked = errorsmod.Register(Codespace, 6, "asset already staked")
	ErrNotOwner           = errorsmod.Register(Codespace, 7, "caller does not own asset")
	ErrColorMismatch      = errorsmod.Register(Codespace, 8, "asset color does not match declared color")
	ErrIncompleteSet      = errorsmod.Register(Codespace, 9, "player does not own a complete matched set")
	ErrDuplicateAsset     = errorsmod.Register(Codespace, 10, "duplicate asset id")
	ErrGameNotFound       = errorsmod.Register(Codespace, 11, "game not found")
	ErrAlreadyFull        = errorsmod.Register(Codespace, 12, "game already full")
	ErrNotJoinable        = errorsmod.Register(Codespace, 13, "game not joinable")
	ErrAmountMismatch     = errorsmod.Register(Codespace, 14, "payment below required amount")
	ErrNotActive          = errorsmod.Register(Codespace, 15, "game not active")
	ErrNotAParticipant    = errorsmod.Register(Codespace, 16, "caller is not a participant")
	ErrInvalidClaim       = errorsmod.Register(Codespace, 17, "claimed asset not staked by loser")
	ErrNotCreator         = errorsmod.Register(Codespace, 18, "caller is not the game creator")
	ErrNotCancellable     = errorsmod.Register(Codespace, 19, "game not cancellable")
	ErrInvalidTimeControl = errorsmod.Register(Codespace, 20, "invalid time control")
	ErrInsufficientFunds  = errorsmod.Register(Codespace, 21, "insufficient funds")
	ErrNoFees             = errorsmod.Register(Codespace, 22, "no platform fees to withdraw")
	ErrReentrant          = errorsmod.Register(Codespace, 23, "reentrant call")
)

// Invariant failures. The enclosing tx is aborted and rolled back.
var (
	ErrTransferFailed = errorsmod.Register(Codespace, 40, "asset transfer failed")
	ErrInvariant      = errorsmod.Register(Codespace, 41, "state invariant violated")
)
