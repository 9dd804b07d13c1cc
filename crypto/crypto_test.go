package crypto

import "testing"

func TestGenerateKeyPairAndAccount(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if len(pub.Hex()) != 64 {
		t.Errorf("pubkey hex length: got %d want 64", len(pub.Hex()))
	}
	derived := priv.Public()
	if derived.Hex() != pub.Hex() {
		t.Error("derived public key does not match")
	}

	account := pub.Account()
	if account.IsZero() {
		t.Error("derived account should not be zero")
	}
	roundTripped, err := AccountFromHex(account.Hex())
	if err != nil {
		t.Fatalf("AccountFromHex: %v", err)
	}
	if roundTripped != account {
		t.Error("account hex round-trip mismatch")
	}
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("a block's signable root")
	sig := SignBytes(priv, data)
	if err := VerifyBytes(pub, data, sig[:]); err != nil {
		t.Errorf("valid signature failed: %v", err)
	}
	if err := VerifyBytes(pub, []byte("tampered"), sig[:]); err == nil {
		t.Error("tampered data should fail verification")
	}
}

func TestValidateWork(t *testing.T) {
	var root [HashSize]byte
	copy(root[:], []byte("some account or previous root"))

	gen := CPUWorkGenerator{Thresholds: WorkThresholdsStub}
	work, ok := gen.Generate(ClassAny, root, 1_000_000)
	if !ok {
		t.Fatal("failed to find valid work within bound")
	}
	if !WorkThresholdsStub.ValidateWork(ClassAny, root, work) {
		t.Error("generated work should validate against the same root/class")
	}

	var otherRoot [HashSize]byte
	copy(otherRoot[:], []byte("a different root entirely"))
	if WorkThresholdsStub.ValidateWork(ClassAny, otherRoot, work) &&
		Difficulty(work, otherRoot) == Difficulty(work, root) {
		t.Error("work difficulty should depend on root")
	}
}

func TestAccountFromHexRejectsBadInput(t *testing.T) {
	if _, err := AccountFromHex("not-hex"); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := AccountFromHex("ab"); err == nil {
		t.Error("expected error for short input")
	}
}
