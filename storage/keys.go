package storage

import (
	"encoding/binary"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
)

// Key prefixes for the named tables spec §6 requires: accounts, blocks,
// pending, frontiers, confirmation_height, pruned, meta. peers/online_weight
// belong to non-core collaborators and are not modelled here.
const (
	prefixAccount    byte = 'a'
	prefixBlock      byte = 'b'
	prefixPending    byte = 'p'
	prefixFrontier   byte = 'f'
	prefixConfHeight byte = 'c'
	prefixPruned     byte = 'r'
	prefixMeta       byte = 'm'
	prefixOwner      byte = 'o'
	// prefixConsumedBy indexes, for every pending entry a send/state-send
	// has ever created, which block (if any) consumed it — keyed by the
	// pending's source hash. RollbackPlanner uses it to find the consuming
	// block on a foreign account without scanning the whole pending table.
	prefixConsumedBy byte = 'n'
)

const metaSchemaVersionKey = "schema_version"

func accountKey(a crypto.Account) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixAccount
	copy(k[1:], a[:])
	return k
}

func blockKey(h core.Hash) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixBlock
	copy(k[1:], h[:])
	return k
}

func pendingKey(key core.PendingKey) []byte {
	k := make([]byte, 1+crypto.HashSize+crypto.HashSize)
	k[0] = prefixPending
	copy(k[1:], key.Destination[:])
	copy(k[1+crypto.HashSize:], key.SourceHash[:])
	return k
}

func ownerKey(h core.Hash) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixOwner
	copy(k[1:], h[:])
	return k
}

func consumedByKey(sourceHash core.Hash) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixConsumedBy
	copy(k[1:], sourceHash[:])
	return k
}

func frontierKey(h core.Hash) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixFrontier
	copy(k[1:], h[:])
	return k
}

func confHeightKey(a crypto.Account) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixConfHeight
	copy(k[1:], a[:])
	return k
}

func prunedKey(h core.Hash) []byte {
	k := make([]byte, 1+crypto.HashSize)
	k[0] = prefixPruned
	copy(k[1:], h[:])
	return k
}

func metaKey(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = prefixMeta
	copy(k[1:], name)
	return k
}

// encodeAccountInfo serializes AccountInfo into the deterministic
// big-endian layout spec §6 requires for table values.
func encodeAccountInfo(info core.AccountInfo) []byte {
	buf := make([]byte, 32+32+32+core.BalanceSize+8+8+4)
	off := 0
	copy(buf[off:], info.Head[:])
	off += 32
	copy(buf[off:], info.Representative[:])
	off += 32
	copy(buf[off:], info.OpenBlock[:])
	off += 32
	copy(buf[off:], info.Balance[:])
	off += core.BalanceSize
	binary.BigEndian.PutUint64(buf[off:], info.ModifiedEpoch)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], info.BlockCount)
	off += 8
	binary.BigEndian.PutUint32(buf[off:], uint32(info.Epoch))
	return buf
}

func decodeAccountInfo(data []byte) (core.AccountInfo, error) {
	var info core.AccountInfo
	want := 32 + 32 + 32 + core.BalanceSize + 8 + 8 + 4
	if len(data) != want {
		return info, errValueSize("account", want, len(data))
	}
	off := 0
	copy(info.Head[:], data[off:off+32])
	off += 32
	copy(info.Representative[:], data[off:off+32])
	off += 32
	copy(info.OpenBlock[:], data[off:off+32])
	off += 32
	copy(info.Balance[:], data[off:off+core.BalanceSize])
	off += core.BalanceSize
	info.ModifiedEpoch = binary.BigEndian.Uint64(data[off:])
	off += 8
	info.BlockCount = binary.BigEndian.Uint64(data[off:])
	off += 8
	info.Epoch = core.Epoch(binary.BigEndian.Uint32(data[off:]))
	return info, nil
}

func encodePendingInfo(info core.PendingInfo) []byte {
	buf := make([]byte, 32+core.BalanceSize+4)
	off := 0
	copy(buf[off:], info.SourceAccount[:])
	off += 32
	copy(buf[off:], info.Amount[:])
	off += core.BalanceSize
	binary.BigEndian.PutUint32(buf[off:], uint32(info.Epoch))
	return buf
}

func decodePendingInfo(data []byte) (core.PendingInfo, error) {
	var info core.PendingInfo
	want := 32 + core.BalanceSize + 4
	if len(data) != want {
		return info, errValueSize("pending", want, len(data))
	}
	off := 0
	copy(info.SourceAccount[:], data[off:off+32])
	off += 32
	copy(info.Amount[:], data[off:off+core.BalanceSize])
	off += core.BalanceSize
	info.Epoch = core.Epoch(binary.BigEndian.Uint32(data[off:]))
	return info, nil
}

// encodeConsumedBy / decodeConsumedBy pack the consuming block's hash
// alongside the full PendingInfo it consumed, so RollbackPerformer can
// restore the exact pending entry without re-deriving its amount from
// upstream blocks.
func encodeConsumedBy(consumer core.Hash, info core.PendingInfo) []byte {
	buf := make([]byte, crypto.HashSize+32+core.BalanceSize+4)
	off := 0
	copy(buf[off:], consumer[:])
	off += crypto.HashSize
	copy(buf[off:], encodePendingInfo(info))
	return buf
}

func decodeConsumedBy(data []byte) (core.Hash, core.PendingInfo, error) {
	want := crypto.HashSize + 32 + core.BalanceSize + 4
	if len(data) != want {
		return core.Hash{}, core.PendingInfo{}, errValueSize("consumed_by", want, len(data))
	}
	consumer, err := core.HashFromBytes(data[:crypto.HashSize])
	if err != nil {
		return core.Hash{}, core.PendingInfo{}, err
	}
	info, err := decodePendingInfo(data[crypto.HashSize:])
	if err != nil {
		return core.Hash{}, core.PendingInfo{}, err
	}
	return consumer, info, nil
}

func encodeConfirmationHeight(info core.ConfirmationHeightInfo) []byte {
	buf := make([]byte, 8+32)
	binary.BigEndian.PutUint64(buf[:8], info.Height)
	copy(buf[8:], info.Frontier[:])
	return buf
}

func decodeConfirmationHeight(data []byte) (core.ConfirmationHeightInfo, error) {
	var info core.ConfirmationHeightInfo
	if len(data) != 8+32 {
		return info, errValueSize("confirmation_height", 8+32, len(data))
	}
	info.Height = binary.BigEndian.Uint64(data[:8])
	copy(info.Frontier[:], data[8:])
	return info, nil
}

// encodeStoredBlock prefixes an encoded block with its 1-byte type tag so
// the blocks table is self-describing on read (DecodeBlock otherwise needs
// the type out of band).
func encodeStoredBlock(b *core.Block) ([]byte, error) {
	body, err := b.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(b.Type)
	copy(out[1:], body)
	return out, nil
}

func decodeStoredBlock(data []byte) (*core.Block, error) {
	if len(data) < 1 {
		return nil, errValueSize("block", 1, len(data))
	}
	return core.DecodeBlock(core.BlockType(data[0]), data[1:])
}
