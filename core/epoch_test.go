package core

import (
	"testing"

	"github.com/tolelom/latticenode/crypto"
)

func TestEpochForLink(t *testing.T) {
	signerAccount := testAccount(1)
	link := testHash(2)
	constants := LedgerConstants{
		EpochSigners: []EpochSigner{
			{Epoch: Epoch1, Account: signerAccount, Link: link},
		},
	}

	signer, ok := constants.EpochForLink(link)
	if !ok {
		t.Fatal("expected link to resolve to a configured epoch signer")
	}
	if signer.Epoch != Epoch1 || signer.Account != signerAccount {
		t.Errorf("unexpected signer: %+v", signer)
	}

	if !constants.IsEpochLink(link) {
		t.Error("IsEpochLink should report true for a configured link")
	}
	if constants.IsEpochLink(testHash(3)) {
		t.Error("IsEpochLink should report false for an unconfigured link")
	}
}

func TestEffectiveClass(t *testing.T) {
	epochLink := testHash(9)
	constants := LedgerConstants{
		EpochSigners: []EpochSigner{{Epoch: Epoch1, Account: testAccount(1), Link: epochLink}},
	}

	send := &Block{Type: BlockSend}
	if send.EffectiveClass(constants) != crypto.ClassSendOrReceive {
		t.Errorf("send block class: got %v", send.EffectiveClass(constants))
	}

	open := &Block{Type: BlockOpen}
	if open.EffectiveClass(constants) != crypto.ClassChangeOrOpen {
		t.Errorf("open block class: got %v", open.EffectiveClass(constants))
	}

	epochState := &Block{Type: BlockState, Link: epochLink}
	if epochState.EffectiveClass(constants) != crypto.ClassEpoch {
		t.Errorf("epoch-linked state block class: got %v", epochState.EffectiveClass(constants))
	}

	plainState := &Block{Type: BlockState, Link: testHash(1)}
	if plainState.EffectiveClass(constants) != crypto.ClassSendOrReceive {
		t.Errorf("non-epoch state block class: got %v", plainState.EffectiveClass(constants))
	}
}
