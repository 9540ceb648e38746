package events_test

import (
	"testing"

	"github.com/qrcledger/node/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to broadcast events to receivers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two receivers are registered with different prefixes.", testID)
		{
			evts := events.New()
			all := evts.Acquire("all", "")
			blocks := evts.Acquire("blocks", "viewer:")

			evts.Send("state: SubmitTransaction: tx[1]")
			evts.Send("viewer: block: blk[1]")

			if len(all) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould deliver every event to the empty prefix: got %d", failed, testID, len(all))
			}
			t.Logf("\t%s\tTest %d:\tShould deliver every event to the empty prefix.", success, testID)

			if len(blocks) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould deliver only block events: got %d", failed, testID, len(blocks))
			}
			if msg := <-blocks; msg != "viewer: block: blk[1]" {
				t.Fatalf("\t%s\tTest %d:\tShould get the block event: got %q", failed, testID, msg)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver only block events.", success, testID)

			if err := evts.Release("blocks"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to release: %v", failed, testID, err)
			}
			if err := evts.Release("blocks"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to release twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould release a receiver once.", success, testID)

			evts.Shutdown()
			if evts.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould remove every receiver on shutdown.", failed, testID)
			}
			for range all {
			}
			t.Logf("\t%s\tTest %d:\tShould close every channel on shutdown.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a receiver isn't reading.", testID)
		{
			evts := events.New()
			ch := evts.Acquire("slow", "")
			for range 150 {
				evts.Send("event")
			}

			if len(ch) != 100 {
				t.Fatalf("\t%s\tTest %d:\tShould buffer 100 events and drop the rest: got %d", failed, testID, len(ch))
			}
			t.Logf("\t%s\tTest %d:\tShould buffer 100 events and drop the rest.", success, testID)
		}
	}
}
