package app

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

const txAuthDomainV0 = "battlechess/tx/v0"

func txAuthSignBytesV0(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

func verifyEnvelope(pub []byte, env codec.TxEnvelope) error {
	if len(pub) != ed25519.PublicKeySize {
		return ErrUnauthorized.Wrapf("account %q missing pubKey (auth/register_account required)", env.Signer)
	}
	msg := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

// requireAccountAuth authenticates env as signed by a registered account and
// returns the caller identity.
func requireAccountAuth(st *state.State, env codec.TxEnvelope) (string, error) {
	if err := requireSignedEnvelope(env); err != nil {
		return "", err
	}
	if err := verifyEnvelope(st.AccountKeys[env.Signer], env); err != nil {
		return "", err
	}
	return env.Signer, nil
}

func requireAdminAuth(st *state.State, env codec.TxEnvelope) (string, error) {
	caller, err := requireAccountAuth(st, env)
	if err != nil {
		return "", err
	}
	if st.Params.Admin == "" || caller != st.Params.Admin {
		return "", ErrUnauthorized.Wrapf("%q is not the admin", caller)
	}
	return caller, nil
}

func requireRegisterAccountAuth(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return ErrInvalidRequest.Wrap("missing account")
	}
	if msg.Account == custody.EscrowAccount {
		return ErrInvalidRequest.Wrapf("account %q is reserved", msg.Account)
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return ErrInvalidRequest.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	if existing := st.AccountKeys[msg.Account]; len(existing) != 0 && !bytes.Equal(existing, msg.PubKey) {
		return ErrUnauthorized.Wrapf("account %q already registered with a different key", msg.Account)
	}
	return verifyEnvelope(msg.PubKey, env)
}

// consumeNonce enforces strictly increasing nonces per signer.
func consumeNonce(st *state.State, env codec.TxEnvelope) error {
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return ErrUnauthorized.Wrapf("invalid tx.nonce %q", env.Nonce)
	}
	if n <= st.NonceMax[env.Signer] {
		return ErrUnauthorized.Wrapf("replayed tx.nonce %d (last=%d)", n, st.NonceMax[env.Signer])
	}
	st.NonceMax[env.Signer] = n
	return nil
}
