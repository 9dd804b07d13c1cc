package core

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tolelom/latticenode/crypto"
)

// BlockType identifies a block's wire variant: the four legacy block
// variants (send / receive / open / change) plus the unified state block
// that subsumes them.
type BlockType uint8

const (
	BlockInvalid BlockType = iota
	BlockSend
	BlockReceive
	BlockOpen
	BlockChange
	BlockState
)

// String implements fmt.Stringer for log lines and RPC responses.
func (t BlockType) String() string {
	switch t {
	case BlockSend:
		return "send"
	case BlockReceive:
		return "receive"
	case BlockOpen:
		return "open"
	case BlockChange:
		return "change"
	case BlockState:
		return "state"
	default:
		return "invalid"
	}
}

// On-wire sizes, fixed per block type.
const (
	sendWireSize    = 32 + 32 + BalanceSize + crypto.SignatureSize + 8
	receiveWireSize = 32 + 32 + crypto.SignatureSize + 8
	openWireSize    = 32 + 32 + 32 + crypto.SignatureSize + 8
	changeWireSize  = 32 + 32 + crypto.SignatureSize + 8
	stateWireSize   = 32 + 32 + 32 + BalanceSize + 32 + crypto.SignatureSize + 8
)

// Block is a tagged union over the five wire variants a block-lattice node
// must accept. Only the fields relevant to Type are populated; the rest are
// the zero value. Keeping this a single flat Go type (rather than an
// interface per variant) keeps Validator/Inserter/RollbackPlanner free of
// type switches on every field access.
type Block struct {
	Type BlockType

	// Common to every variant.
	Signature crypto.Signature
	Work      crypto.Work

	// send, receive, change, open: the previous block on this account's
	// chain. Zero for open (it has none).
	Previous Hash

	// send: destination account the funds move to.
	Destination crypto.Account
	// send: balance after debiting the send amount.
	Balance Balance

	// receive: the send block on the source account being received.
	Source Hash

	// open: the account being opened (also implicitly its own Previous).
	Account crypto.Account
	// open, change: representative being (re)declared.
	Representative crypto.Account

	// state: subsumes Account, Previous, Representative, Balance and folds
	// send/receive/open/change/epoch into one shape via Link.
	Link Hash
}

// Root returns the hash this block's proof-of-work is bound to: Previous for
// any non-open block, Account for an open block or an account's first state
// block (neither has a previous, so work is rooted at the account itself).
func (b *Block) Root() Hash {
	if b.Type == BlockOpen {
		return HashFromAccount(b.Account)
	}
	if b.Type == BlockState && b.Previous.IsZero() {
		return HashFromAccount(b.Account)
	}
	return b.Previous
}

// EffectiveClass maps the block to the work-threshold tier it must satisfy
// (spec §4.1 rule 2). Epoch detection for state blocks needs the ledger's
// configured epoch magics, so it is resolved against constants rather than
// guessed from the block alone.
func (b *Block) EffectiveClass(constants LedgerConstants) crypto.BlockClass {
	switch b.Type {
	case BlockSend, BlockReceive:
		return crypto.ClassSendOrReceive
	case BlockChange, BlockOpen:
		return crypto.ClassChangeOrOpen
	case BlockState:
		if constants.IsEpochLink(b.Link) {
			return crypto.ClassEpoch
		}
		return crypto.ClassSendOrReceive
	default:
		return crypto.ClassAny
	}
}

// body returns the exact byte sequence that gets hashed to produce the
// block's identity. Signature and Work are excluded: the former covers this
// hash, the latter is bound to Root(), not the body.
func (b *Block) body() []byte {
	switch b.Type {
	case BlockSend:
		buf := make([]byte, 0, 32+32+BalanceSize)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Destination[:]...)
		buf = append(buf, b.Balance[:]...)
		return buf
	case BlockReceive:
		buf := make([]byte, 0, 32+32)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Source[:]...)
		return buf
	case BlockOpen:
		buf := make([]byte, 0, 32+32+32)
		buf = append(buf, b.Source[:]...)
		buf = append(buf, b.Representative[:]...)
		buf = append(buf, b.Account[:]...)
		return buf
	case BlockChange:
		buf := make([]byte, 0, 32+32)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Representative[:]...)
		return buf
	case BlockState:
		buf := make([]byte, 0, 32+32+32+BalanceSize+32)
		buf = append(buf, b.Account[:]...)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Representative[:]...)
		buf = append(buf, b.Balance[:]...)
		buf = append(buf, b.Link[:]...)
		return buf
	default:
		return nil
	}
}

// ComputeHash derives the block's identity hash: legacy variants hash their
// body directly, state blocks hash it behind the domain-separation
// preamble so no legacy block can ever collide with a state block.
func (b *Block) ComputeHash() Hash {
	body := b.body()
	if b.Type == BlockState {
		return Hash(crypto.StateBlockHash(body))
	}
	return Hash(crypto.LegacyBlockHash(body))
}

// Sign computes the block's hash and signs it with priv, filling Signature.
func (b *Block) Sign(priv crypto.PrivateKey) {
	h := b.ComputeHash()
	b.Signature = crypto.SignBytes(priv, h[:])
}

// Verify checks the block's signature against the given account's public
// key. It does not check proof-of-work; callers combine this with
// WorkThresholds.ValidateWork.
func (b *Block) Verify(pub crypto.PublicKey) error {
	h := b.ComputeHash()
	return crypto.VerifyBytes(pub, h[:], b.Signature[:])
}

// Encode serializes the block to its fixed-width wire form.
func (b *Block) Encode() ([]byte, error) {
	var buf []byte
	switch b.Type {
	case BlockSend:
		buf = make([]byte, 0, sendWireSize)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Destination[:]...)
		buf = append(buf, b.Balance[:]...)
	case BlockReceive:
		buf = make([]byte, 0, receiveWireSize)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Source[:]...)
	case BlockOpen:
		buf = make([]byte, 0, openWireSize)
		buf = append(buf, b.Source[:]...)
		buf = append(buf, b.Representative[:]...)
		buf = append(buf, b.Account[:]...)
	case BlockChange:
		buf = make([]byte, 0, changeWireSize)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Representative[:]...)
	case BlockState:
		buf = make([]byte, 0, stateWireSize)
		buf = append(buf, b.Account[:]...)
		buf = append(buf, b.Previous[:]...)
		buf = append(buf, b.Representative[:]...)
		buf = append(buf, b.Balance[:]...)
		buf = append(buf, b.Link[:]...)
	default:
		return nil, fmt.Errorf("encode: unknown block type %d", b.Type)
	}
	buf = append(buf, b.Signature[:]...)
	var workLE [8]byte
	binary.LittleEndian.PutUint64(workLE[:], uint64(b.Work))
	buf = append(buf, workLE[:]...)
	return buf, nil
}

// DecodeBlock parses a block of the given type from its fixed-width wire
// form. The caller must already know the type; it is not embedded in the
// wire bytes (the store keeps it as a one-byte tag ahead of them).
func DecodeBlock(t BlockType, data []byte) (*Block, error) {
	b := &Block{Type: t}
	var wantLen int
	switch t {
	case BlockSend:
		wantLen = sendWireSize
	case BlockReceive:
		wantLen = receiveWireSize
	case BlockOpen:
		wantLen = openWireSize
	case BlockChange:
		wantLen = changeWireSize
	case BlockState:
		wantLen = stateWireSize
	default:
		return nil, fmt.Errorf("decode: unknown block type %d", t)
	}
	if len(data) != wantLen {
		return nil, fmt.Errorf("decode: %s block must be %d bytes, got %d", t, wantLen, len(data))
	}

	off := 0
	read := func(n int) []byte {
		chunk := data[off : off+n]
		off += n
		return chunk
	}

	switch t {
	case BlockSend:
		copy(b.Previous[:], read(32))
		copy(b.Destination[:], read(32))
		copy(b.Balance[:], read(BalanceSize))
	case BlockReceive:
		copy(b.Previous[:], read(32))
		copy(b.Source[:], read(32))
	case BlockOpen:
		copy(b.Source[:], read(32))
		copy(b.Representative[:], read(32))
		copy(b.Account[:], read(32))
	case BlockChange:
		copy(b.Previous[:], read(32))
		copy(b.Representative[:], read(32))
	case BlockState:
		copy(b.Account[:], read(32))
		copy(b.Previous[:], read(32))
		copy(b.Representative[:], read(32))
		copy(b.Balance[:], read(BalanceSize))
		copy(b.Link[:], read(32))
	}
	copy(b.Signature[:], read(crypto.SignatureSize))
	b.Work = crypto.Work(binary.LittleEndian.Uint64(read(8)))

	return b, nil
}

// blockJSON is the RPC/log-friendly shadow of Block: hex strings instead of
// fixed byte arrays, and only the fields relevant to Type are emitted.
type blockJSON struct {
	Type           string `json:"type"`
	Previous       string `json:"previous,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Balance        string `json:"balance,omitempty"`
	Source         string `json:"source,omitempty"`
	Account        string `json:"account,omitempty"`
	Representative string `json:"representative,omitempty"`
	Link           string `json:"link,omitempty"`
	Signature      string `json:"signature"`
	Work           string `json:"work"`
}

// MarshalJSON renders the block for RPC responses and log output.
func (b *Block) MarshalJSON() ([]byte, error) {
	j := blockJSON{
		Type:      b.Type.String(),
		Signature: fmt.Sprintf("%x", b.Signature[:]),
		Work:      fmt.Sprintf("%016x", uint64(b.Work)),
	}
	switch b.Type {
	case BlockSend:
		j.Previous = b.Previous.Hex()
		j.Destination = b.Destination.Hex()
		j.Balance = b.Balance.String()
	case BlockReceive:
		j.Previous = b.Previous.Hex()
		j.Source = b.Source.Hex()
	case BlockOpen:
		j.Source = b.Source.Hex()
		j.Representative = b.Representative.Hex()
		j.Account = b.Account.Hex()
	case BlockChange:
		j.Previous = b.Previous.Hex()
		j.Representative = b.Representative.Hex()
	case BlockState:
		j.Account = b.Account.Hex()
		j.Previous = b.Previous.Hex()
		j.Representative = b.Representative.Hex()
		j.Balance = b.Balance.String()
		j.Link = b.Link.Hex()
	}
	return json.Marshal(j)
}

// UnmarshalJSON parses the RPC/log-friendly shadow produced by MarshalJSON
// back into a Block, the inverse needed for the `process` RPC method to
// accept a submitted block.
func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	t, err := blockTypeFromString(j.Type)
	if err != nil {
		return err
	}
	*b = Block{Type: t}

	sigBytes, err := hex.DecodeString(j.Signature)
	if err != nil || len(sigBytes) != crypto.SignatureSize {
		return fmt.Errorf("block: invalid signature hex")
	}
	copy(b.Signature[:], sigBytes)

	workVal, err := strconv.ParseUint(j.Work, 16, 64)
	if err != nil {
		return fmt.Errorf("block: invalid work hex: %w", err)
	}
	b.Work = crypto.Work(workVal)

	parseHash := func(s string) (Hash, error) {
		if s == "" {
			return ZeroHash, nil
		}
		return HashFromHex(s)
	}
	parseAccount := func(s string) (crypto.Account, error) {
		if s == "" {
			return crypto.Account{}, nil
		}
		return crypto.AccountFromHex(s)
	}

	switch t {
	case BlockSend:
		if b.Previous, err = parseHash(j.Previous); err != nil {
			return err
		}
		if b.Destination, err = parseAccount(j.Destination); err != nil {
			return err
		}
		if b.Balance, err = BalanceFromString(j.Balance); err != nil {
			return err
		}
	case BlockReceive:
		if b.Previous, err = parseHash(j.Previous); err != nil {
			return err
		}
		if b.Source, err = parseHash(j.Source); err != nil {
			return err
		}
	case BlockOpen:
		if b.Source, err = parseHash(j.Source); err != nil {
			return err
		}
		if b.Representative, err = parseAccount(j.Representative); err != nil {
			return err
		}
		if b.Account, err = parseAccount(j.Account); err != nil {
			return err
		}
	case BlockChange:
		if b.Previous, err = parseHash(j.Previous); err != nil {
			return err
		}
		if b.Representative, err = parseAccount(j.Representative); err != nil {
			return err
		}
	case BlockState:
		if b.Account, err = parseAccount(j.Account); err != nil {
			return err
		}
		if b.Previous, err = parseHash(j.Previous); err != nil {
			return err
		}
		if b.Representative, err = parseAccount(j.Representative); err != nil {
			return err
		}
		if b.Balance, err = BalanceFromString(j.Balance); err != nil {
			return err
		}
		if b.Link, err = parseHash(j.Link); err != nil {
			return err
		}
	default:
		return fmt.Errorf("block: unknown type %q", j.Type)
	}
	return nil
}

// blockTypeFromString is the inverse of BlockType.String.
func blockTypeFromString(s string) (BlockType, error) {
	switch s {
	case "send":
		return BlockSend, nil
	case "receive":
		return BlockReceive, nil
	case "open":
		return BlockOpen, nil
	case "change":
		return BlockChange, nil
	case "state":
		return BlockState, nil
	default:
		return BlockInvalid, fmt.Errorf("block: unknown type %q", s)
	}
}
