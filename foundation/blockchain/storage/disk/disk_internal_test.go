package disk

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qrcledger/node/foundation/blockchain/database"
)

func Test_FailedSync(t *testing.T) {
	const (
		success = "\u2713"
		failed  = "\u2717"
	)

	t.Log("Given the need to keep the block file in step with the chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the sync after a write fails.", testID)
		{
			dbPath := filepath.Join(t.TempDir(), "blocks.db")
			d, err := New(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}
			defer d.Close()

			block := database.BlockData{Hash: "one", Header: database.BlockHeader{Number: 1}}

			errSync := errors.New("device gone")
			syncFile = func(*os.File) error { return errSync }
			err = d.Write(block)
			syncFile = (*os.File).Sync

			if !errors.Is(err, errSync) {
				t.Fatalf("\t%s\tTest %d:\tShould return the sync error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould return the sync error.", success, testID)

			info, err := os.Stat(dbPath)
			if err != nil || info.Size() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould truncate the unsynced line: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould truncate the unsynced line.", success, testID)

			if err := d.Write(block); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write the same block again: %v", failed, testID, err)
			}

			var numbers []uint64
			err = d.scan(func(blockData database.BlockData) bool {
				numbers = append(numbers, blockData.Header.Number)
				return true
			})
			if err != nil || len(numbers) != 1 || numbers[0] != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold block 1 once, got %v: %v", failed, testID, numbers, err)
			}
			t.Logf("\t%s\tTest %d:\tShould hold block 1 once.", success, testID)
		}
	}
}

func Test_CorruptLine(t *testing.T) {
	const (
		success = "\u2713"
		failed  = "\u2717"
	)

	t.Log("Given the need to stop reading at a damaged block file.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a line can't be decoded.", testID)
		{
			dbPath := filepath.Join(t.TempDir(), "blocks.db")
			d, err := New(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}
			defer d.Close()

			if err := os.WriteFile(dbPath, []byte("{not json\n"), 0600); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to damage the file: %v", failed, testID, err)
			}

			iter := d.ForEach().(*diskIterator)
			if _, err := iter.Next(); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould return a decode error.", failed, testID)
			}
			if iter.Done() {
				t.Fatalf("\t%s\tTest %d:\tShould not report the end of the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return a decode error.", success, testID)

			if err := iter.file.Close(); !errors.Is(err, os.ErrClosed) {
				t.Fatalf("\t%s\tTest %d:\tShould have closed the file: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould have closed the file.", success, testID)

			if _, err := iter.Next(); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould keep returning the decode error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep returning the decode error.", success, testID)
		}
	}
}
