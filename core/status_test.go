package core

import "testing"

func TestBlockStatusIsGap(t *testing.T) {
	gaps := []BlockStatus{StatusGapPrevious, StatusGapSource, StatusGapEpochOpenPending}
	for _, s := range gaps {
		if !s.IsGap() {
			t.Errorf("%s should be a gap status", s)
		}
	}

	nonGaps := []BlockStatus{StatusProgress, StatusFork, StatusBadSignature, StatusInsufficientWork}
	for _, s := range nonGaps {
		if s.IsGap() {
			t.Errorf("%s should not be a gap status", s)
		}
	}
}

func TestBlockStatusStringCoversAllValues(t *testing.T) {
	for s := StatusProgress; s <= StatusInsufficientWork; s++ {
		if s.String() == "unknown" {
			t.Errorf("status %d has no String() case", s)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Status: StatusFork, Hash: testHash(1)}
	want := "fork: " + testHash(1).Hex()
	if err.Error() != want {
		t.Errorf("got %q want %q", err.Error(), want)
	}
}

func TestConfirmationHeightInfoIsCemented(t *testing.T) {
	info := ConfirmationHeightInfo{Height: 5}
	if !info.IsCemented(3) {
		t.Error("height below the cemented frontier should report cemented")
	}
	if !info.IsCemented(5) {
		t.Error("height at the cemented frontier should report cemented")
	}
	if info.IsCemented(6) {
		t.Error("height above the cemented frontier should not report cemented")
	}
}
