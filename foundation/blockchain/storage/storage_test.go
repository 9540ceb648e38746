package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/qrcledger/node/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Open(t *testing.T) {
	type table struct {
		backend string
		path    string
	}

	dir := t.TempDir()

	tt := []table{
		{backend: storage.Memory},
		{backend: storage.Disk, path: filepath.Join(dir, "blocks.db")},
		{backend: storage.Bolt, path: filepath.Join(dir, "blocks.bolt")},
		{backend: "BADGER", path: filepath.Join(dir, "badger")},
	}

	t.Log("Given the need to open a storage backend by name.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen opening the %s backend.", testID, tst.backend)
				{
					strg, err := storage.Open(tst.backend, tst.path)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to open the backend: %v", failed, testID, err)
					}
					defer strg.Close()

					iter := strg.ForEach()
					if _, err := iter.Next(); err == nil || !iter.Done() {
						t.Fatalf("\t%s\tTest %d:\tShould start out empty.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould open an empty backend.", success, testID)
				}
			}

			t.Run(tst.backend, f)
		}

		testID := len(tt)
		t.Logf("\tTest %d:\tWhen opening an unknown backend.", testID)
		{
			if _, err := storage.Open("leveldb", ""); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail.", success, testID)
		}
	}
}
