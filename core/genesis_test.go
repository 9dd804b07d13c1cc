package core

import "testing"

func TestNewGenesisBlockValid(t *testing.T) {
	constants, priv := DevConstants()
	genesis := constants.GenesisBlock

	if genesis.Type != BlockState {
		t.Errorf("genesis block type: got %s want state", genesis.Type)
	}
	if genesis.Account != constants.GenesisAccount {
		t.Error("genesis block account should match GenesisAccount")
	}
	if genesis.Representative != genesis.Account {
		t.Error("genesis block should be its own representative")
	}
	if !genesis.Previous.IsZero() {
		t.Error("genesis block should have no previous")
	}
	if err := genesis.Verify(priv.Public()); err != nil {
		t.Errorf("genesis block signature should verify: %v", err)
	}

	want := maxU128()
	if genesis.Balance != want {
		t.Errorf("genesis balance: got %s want %s", genesis.Balance, want)
	}
}

func TestDevConstantsProducesDistinctGenesisEachCall(t *testing.T) {
	a, _ := DevConstants()
	b, _ := DevConstants()
	if a.GenesisAccount == b.GenesisAccount {
		t.Error("successive DevConstants() calls should mint distinct genesis keys")
	}
}
