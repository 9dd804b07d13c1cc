package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/tolelom/latticenode/crypto"
)

func testAccount(seed byte) crypto.Account {
	var a crypto.Account
	for i := range a {
		a[i] = seed
	}
	return a
}

func testHash(seed byte) Hash {
	var h Hash
	for i := range h {
		h[i] = seed
	}
	return h
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*Block{
		{
			Type:        BlockSend,
			Previous:    testHash(1),
			Destination: testAccount(2),
			Balance:     BalanceFromUint64(1000),
		},
		{
			Type:     BlockReceive,
			Previous: testHash(3),
			Source:   testHash(4),
		},
		{
			Type:           BlockOpen,
			Source:         testHash(5),
			Representative: testAccount(6),
			Account:        testAccount(7),
		},
		{
			Type:           BlockChange,
			Previous:       testHash(8),
			Representative: testAccount(9),
		},
		{
			Type:           BlockState,
			Account:        testAccount(10),
			Previous:       testHash(11),
			Representative: testAccount(12),
			Balance:        BalanceFromUint64(42),
			Link:           testHash(13),
		},
	}

	for _, b := range cases {
		encoded, err := b.Encode()
		if err != nil {
			t.Fatalf("%s: Encode: %v", b.Type, err)
		}
		decoded, err := DecodeBlock(b.Type, encoded)
		if err != nil {
			t.Fatalf("%s: DecodeBlock: %v", b.Type, err)
		}
		if *decoded != *b {
			t.Errorf("%s: round trip mismatch: got %+v want %+v", b.Type, decoded, b)
		}
	}
}

func TestDecodeBlockRejectsWrongLength(t *testing.T) {
	if _, err := DecodeBlock(BlockSend, []byte{1, 2, 3}); err == nil {
		t.Error("expected error decoding truncated send block")
	}
}

func TestDecodeBlockRejectsUnknownType(t *testing.T) {
	if _, err := DecodeBlock(BlockInvalid, nil); err == nil {
		t.Error("expected error decoding unknown block type")
	}
}

func TestComputeHashDeterministic(t *testing.T) {
	b := &Block{
		Type:           BlockState,
		Account:        testAccount(1),
		Previous:       testHash(2),
		Representative: testAccount(3),
		Balance:        BalanceFromUint64(7),
		Link:           testHash(4),
	}
	h1 := b.ComputeHash()
	h2 := b.ComputeHash()
	if h1 != h2 {
		t.Error("ComputeHash should be deterministic")
	}

	other := *b
	other.Balance = BalanceFromUint64(8)
	if other.ComputeHash() == h1 {
		t.Error("changing balance should change the hash")
	}
}

func TestLegacyAndStateHashesNeverCollide(t *testing.T) {
	state := &Block{
		Type:           BlockState,
		Account:        testAccount(1),
		Previous:       testHash(2),
		Representative: testAccount(3),
		Balance:        BalanceFromUint64(7),
		Link:           testHash(4),
	}
	send := &Block{
		Type:        BlockSend,
		Previous:    testHash(2),
		Destination: testAccount(3),
		Balance:     BalanceFromUint64(7),
	}
	if state.ComputeHash() == send.ComputeHash() {
		t.Error("state and legacy block hashes must be domain-separated")
	}
}

func TestBlockSignAndVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	b := &Block{
		Type:           BlockState,
		Account:        pub.Account(),
		Previous:       ZeroHash,
		Representative: pub.Account(),
		Balance:        BalanceFromUint64(100),
		Link:           ZeroHash,
	}
	b.Sign(priv)
	if err := b.Verify(pub); err != nil {
		t.Errorf("valid signature should verify: %v", err)
	}

	tampered := *b
	tampered.Balance = BalanceFromUint64(101)
	if err := tampered.Verify(pub); err == nil {
		t.Error("tampered block should fail verification")
	}
}

func TestBlockRoot(t *testing.T) {
	open := &Block{Type: BlockOpen, Account: testAccount(9)}
	if open.Root() != HashFromAccount(testAccount(9)) {
		t.Error("open block root should be its own account")
	}

	firstState := &Block{Type: BlockState, Account: testAccount(5), Previous: ZeroHash}
	if firstState.Root() != HashFromAccount(testAccount(5)) {
		t.Error("first state block root should be the account")
	}

	chained := &Block{Type: BlockState, Account: testAccount(5), Previous: testHash(7)}
	if chained.Root() != testHash(7) {
		t.Error("non-first state block root should be Previous")
	}

	send := &Block{Type: BlockSend, Previous: testHash(3)}
	if send.Root() != testHash(3) {
		t.Error("send block root should be Previous")
	}
}

func TestBlockJSONRoundTrip(t *testing.T) {
	orig := &Block{
		Type:           BlockState,
		Account:        testAccount(1),
		Previous:       testHash(2),
		Representative: testAccount(3),
		Balance:        BalanceFromUint64(123456789),
		Link:           testHash(4),
		Work:           crypto.Work(0xdeadbeef),
	}
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	orig.Sign(priv)

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded Block
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if decoded != *orig {
		t.Errorf("JSON round trip mismatch: got %+v want %+v", decoded, *orig)
	}
}

func TestBlockJSONRoundTripEachType(t *testing.T) {
	blocks := []*Block{
		{Type: BlockSend, Previous: testHash(1), Destination: testAccount(2), Balance: BalanceFromUint64(5)},
		{Type: BlockReceive, Previous: testHash(3), Source: testHash(4)},
		{Type: BlockOpen, Source: testHash(5), Representative: testAccount(6), Account: testAccount(7)},
		{Type: BlockChange, Previous: testHash(8), Representative: testAccount(9)},
	}
	for _, b := range blocks {
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", b.Type, err)
		}
		var decoded Block
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%s: Unmarshal: %v", b.Type, err)
		}
		if decoded != *b {
			t.Errorf("%s: round trip mismatch: got %+v want %+v", b.Type, decoded, *b)
		}
	}
}

func TestBlockUnmarshalJSONRejectsUnknownType(t *testing.T) {
	var b Block
	err := json.Unmarshal([]byte(`{"type":"bogus","signature":"00","work":"0000000000000000"}`), &b)
	if err == nil {
		t.Error("expected error for unknown block type")
	}
}

func TestBalanceRoundTripAndArithmetic(t *testing.T) {
	a := BalanceFromUint64(1000)
	b := BalanceFromUint64(300)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if sum.String() != "1300" {
		t.Errorf("Add: got %s want 1300", sum)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff.String() != "700" {
		t.Errorf("Sub: got %s want 700", diff)
	}

	if _, err := b.Sub(a); err == nil {
		t.Error("Sub should reject a negative result")
	}

	parsed, err := BalanceFromString("1000")
	if err != nil {
		t.Fatal(err)
	}
	if parsed != a {
		t.Error("BalanceFromString/String round trip mismatch")
	}

	if _, err := BalanceFromString("not-a-number"); err == nil {
		t.Error("expected error for non-numeric balance string")
	}
	if _, err := BalanceFromString("-1"); err == nil {
		t.Error("expected error for negative balance string")
	}

	if ZeroBalance.Cmp(a) >= 0 {
		t.Error("ZeroBalance should compare less than a positive balance")
	}
	if !ZeroBalance.IsZero() {
		t.Error("ZeroBalance.IsZero() should be true")
	}
}

func TestHashFromHexRoundTrip(t *testing.T) {
	h := testHash(0xab)
	roundTripped, err := HashFromHex(h.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if roundTripped != h {
		t.Error("hash hex round trip mismatch")
	}
	if _, err := HashFromHex("zz"); err == nil {
		t.Error("expected error for non-hex hash")
	}
	if _, err := HashFromHex("ab"); err == nil {
		t.Error("expected error for short hash")
	}

	empty, err := HashFromHex("")
	if err != nil || !empty.IsZero() {
		t.Error("empty hash string should decode to the zero hash")
	}
}

func TestHashAccountReinterpretation(t *testing.T) {
	acct := testAccount(0x42)
	h := HashFromAccount(acct)
	if !bytes.Equal(h[:], acct[:]) {
		t.Error("HashFromAccount should preserve bytes")
	}
	if h.AsAccount() != acct {
		t.Error("AsAccount should be the inverse of HashFromAccount")
	}
}
