package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/qrcledger/node/business/sys/validate"
	"github.com/qrcledger/node/business/web/errs"
	"github.com/qrcledger/node/business/web/mid"
	"github.com/qrcledger/node/foundation/blockchain/database"
	"github.com/qrcledger/node/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Errors(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
		field  string
	}

	tt := []table{
		{name: "fields", err: validate.FieldErrors{{Field: "sender", Error: "sender is required"}}, status: http.StatusBadRequest, field: "sender"},
		{name: "invalid", err: &database.InvalidTransactionError{Field: "to", Reason: "sending money to yourself"}, status: http.StatusBadRequest, field: "to"},
		{name: "trusted", err: errs.NewTrusted(errors.New("slow down"), http.StatusTooManyRequests), status: http.StatusTooManyRequests},
		{name: "unknown", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	t.Log("Given the need to turn handler errors into responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen a handler returns a %s error.", testID, tst.name)
				{
					app := web.NewApp(make(chan os.Signal, 1), mid.Errors(zap.NewNop().Sugar()), mid.Panics())
					h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						return tst.err
					}
					app.Handle(http.MethodGet, "v1", "/test", h)

					w := httptest.NewRecorder()
					app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/test", nil))

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould receive status %d: got %d", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive status %d.", success, testID, tst.status)

					var resp errs.Response
					if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the response: %v", failed, testID, err)
					}

					if tst.field != "" {
						if _, exists := resp.Fields[tst.field]; !exists {
							t.Fatalf("\t%s\tTest %d:\tShould name the %s field: %v", failed, testID, tst.field, resp.Fields)
						}
						t.Logf("\t%s\tTest %d:\tShould name the %s field.", success, testID, tst.field)
					}

					if tst.status == http.StatusInternalServerError && resp.Error != http.StatusText(http.StatusInternalServerError) {
						t.Fatalf("\t%s\tTest %d:\tShould hide the internal error: got %q", failed, testID, resp.Error)
					}
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Panics(t *testing.T) {
	t.Log("Given the need to recover from a panicking handler.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a handler panics.", testID)
		{
			app := web.NewApp(make(chan os.Signal, 1), mid.Errors(zap.NewNop().Sugar()), mid.Metrics(), mid.Panics())
			h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				panic("boom")
			}
			app.Handle(http.MethodGet, "", "/panic", h)

			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 500: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 500.", success, testID)
		}
	}
}
