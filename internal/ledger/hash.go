package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/UkralStul/agora/internal/storage"
)

// ErrBrokenChain means a journal entry does not follow its predecessor.
var ErrBrokenChain = errors.New("ledger: journal hash chain broken")

// HashEntry is SHA3-256 over the previous hash and every field of e except
// Hash itself. Variable-length fields are length-prefixed.
func HashEntry(e storage.Entry) string {
	h := sha3.New256()
	var buf [binary.MaxVarintLen64]byte
	writeUint := func(v uint64) {
		h.Write(buf[:binary.PutUvarint(buf[:], v)])
	}
	writeBytes := func(b []byte) {
		writeUint(uint64(len(b)))
		h.Write(b)
	}

	writeBytes([]byte(e.PrevHash))
	writeUint(e.Seq)
	writeBytes([]byte(e.Op))
	writeBytes([]byte(e.Caller))
	writeBytes(e.Args)
	writeBytes([]byte(e.Nonce))
	writeUint(uint64(e.At.UnixMicro()))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChain checks that entries extend a journal whose last hash is
// prevHash and whose height is entries[0].Seq-1.
func VerifyChain(prevHash string, entries []storage.Entry) error {
	for i, e := range entries {
		if i > 0 && e.Seq != entries[i-1].Seq+1 {
			return errors.Wrapf(ErrBrokenChain, "seq %d follows %d", e.Seq, entries[i-1].Seq)
		}
		if e.PrevHash != prevHash {
			return errors.Wrapf(ErrBrokenChain, "entry %d: previous hash mismatch", e.Seq)
		}
		if HashEntry(e) != e.Hash {
			return errors.Wrapf(ErrBrokenChain, "entry %d: hash mismatch", e.Seq)
		}
		prevHash = e.Hash
	}
	return nil
}
