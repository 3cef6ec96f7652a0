// Package envelope authenticates signed transactions and derives the caller
// identity from the signing key.
package envelope

import (
	"context"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/ed25519"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/json"
	"github.com/UkralStul/agora/internal/ledger"
)

// Envelope is the wire form of a signed transaction. Signature is over the
// exact bytes of Body.
type Envelope struct {
	Body      string `json:"body"`
	PublicKey string `json:"publicKey"` // base64
	Signature string `json:"signature"` // hex
}

// Body is the signed content. The ledger accepts each Nonce once per signer,
// so a captured envelope cannot commit twice.
type Body struct {
	Op    ledger.Op       `json:"op"`
	Args  json.RawMessage `json:"args"`
	Nonce string          `json:"nonce"`
}

// Identity is the caller identity of a public key.
func Identity(pub ed25519.PublicKey) domain.Identity {
	return domain.Identity(hex.EncodeToString(pub))
}

type Opener struct {
	guard Guard
}

func NewOpener(guard Guard) *Opener {
	return &Opener{guard: guard}
}

// Open verifies env and returns the transaction it carries. The guard turns
// away recent replays before they reach the ledger's nonce check.
func (o *Opener) Open(ctx context.Context, env Envelope) (ledger.Tx, error) {
	pub, err := base64.StdEncoding.DecodeString(env.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ledger.Tx{}, domain.Errorf(domain.KindInvalidArgument, "malformed public key")
	}
	sig, err := hex.DecodeString(env.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ledger.Tx{}, domain.Errorf(domain.KindInvalidArgument, "malformed signature")
	}
	if !ed25519.Verify(pub, []byte(env.Body), sig) {
		return ledger.Tx{}, domain.Errorf(domain.KindUnauthorized, "signature does not match body")
	}

	var body Body
	if err := json.Unmarshal([]byte(env.Body), &body); err != nil {
		return ledger.Tx{}, domain.Errorf(domain.KindInvalidArgument, "malformed body: %v", err)
	}
	if body.Op == "" {
		return ledger.Tx{}, domain.Errorf(domain.KindInvalidArgument, "body has no op")
	}
	if body.Nonce == "" {
		return ledger.Tx{}, domain.Errorf(domain.KindInvalidArgument, "body has no nonce")
	}

	if err := o.guard.Claim(ctx, sig); err != nil {
		return ledger.Tx{}, err
	}
	return ledger.Tx{Op: body.Op, Caller: Identity(pub), Args: body.Args, Nonce: body.Nonce}, nil
}

// Seal signs a transaction body with priv.
func Seal(priv ed25519.PrivateKey, op ledger.Op, args any, nonce string) (Envelope, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return Envelope{}, err
	}
	body, err := json.Marshal(Body{Op: op, Args: rawArgs, Nonce: nonce})
	if err != nil {
		return Envelope{}, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	return Envelope{
		Body:      string(body),
		PublicKey: base64.StdEncoding.EncodeToString(pub),
		Signature: hex.EncodeToString(ed25519.Sign(priv, body)),
	}, nil
}
