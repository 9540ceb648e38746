package worker_test

import (
	"testing"
	"time"

	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/blockchain/genesis"
	"github.com/qrcledger/node/foundation/blockchain/signature"
	"github.com/qrcledger/node/foundation/blockchain/state"
	"github.com/qrcledger/node/foundation/blockchain/storage/memory"
	"github.com/qrcledger/node/foundation/blockchain/worker"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var (
	from = database.Address(signature.Address([]byte("from")))
	to   = database.Address(signature.Address([]byte("to")))
)

func newState(t *testing.T, difficulty uint8) *state.State {
	gen := genesis.Default()
	gen.Difficulty = difficulty

	st, err := state.New(state.Config{Genesis: gen, Storage: memory.New()})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	return st
}

// waitFor polls the condition until it holds or the timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// =============================================================================

func Test_BackgroundMining(t *testing.T) {
	t.Log("Given the need to mine in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen transactions are waiting at startup.", testID)
		{
			st := newState(t, 1)
			for i := range 3 {
				st.SubmitTransaction(database.Tx{From: from, To: to, Amount: decimal.NewFromInt(int64(i + 1))})
			}

			w := worker.Run(st, 50*time.Millisecond, nil)
			defer w.Shutdown()

			ok := waitFor(5*time.Second, func() bool {
				return st.QueryStats().TotalTxCount == 3
			})
			if !ok {
				t.Fatalf("\t%s\tTest %d:\tShould mine the waiting transactions.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mine the waiting transactions.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a transaction arrives after startup.", testID)
		{
			st := newState(t, 1)

			w := worker.Run(st, 50*time.Millisecond, nil)
			defer w.Shutdown()

			st.SubmitTransaction(database.Tx{From: from, To: to, Amount: decimal.NewFromInt(5)})

			ok := waitFor(5*time.Second, func() bool {
				return st.QueryBalance(to, false).Equal(decimal.NewFromInt(5))
			})
			if !ok {
				t.Fatalf("\t%s\tTest %d:\tShould mine the transaction on the next tick.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mine the transaction on the next tick.", success, testID)
		}
	}
}

func Test_ShutdownAbortsMining(t *testing.T) {
	t.Log("Given the need to stop a node that is mining.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the difficulty can't be solved in time.", testID)
		{
			st := newState(t, 64)
			st.SubmitTransaction(database.Tx{From: from, To: to, Amount: decimal.NewFromInt(1)})

			w := worker.Run(st, time.Hour, nil)

			if !waitFor(5*time.Second, st.IsMining) {
				t.Fatalf("\t%s\tTest %d:\tShould start mining.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould start mining.", success, testID)

			done := make(chan struct{})
			go func() {
				w.Shutdown()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould shut down promptly.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould shut down promptly.", success, testID)

			if st.QueryMempoolLength() != 1 || st.QueryStats().ChainHeight != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould requeue the transaction and leave the chain alone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould requeue the transaction and leave the chain alone.", success, testID)
		}
	}
}
