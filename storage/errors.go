package storage

import "fmt"

func errValueSize(table string, want, got int) error {
	return fmt.Errorf("storage: corrupt %s value: want %d bytes, got %d", table, want, got)
}
