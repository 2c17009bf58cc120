package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestTranslate(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{name: "fields", err: database.NewValidationError("", validate.FieldErrors{{Field: "to", Err: "to is a required field"}}), status: http.StatusBadRequest},
		{name: "validation", err: database.NewValidationError("amount", errors.New("insufficient funds")), status: http.StatusBadRequest},
		{name: "notfound", err: fmt.Errorf("block 9: %w", database.ErrNotFound), status: http.StatusNotFound},
		{name: "duplicate", err: fmt.Errorf("tx[1]: %w", state.ErrDuplicateTransaction), status: http.StatusConflict},
		{name: "full", err: fmt.Errorf("tx[1]: %w", state.ErrMempoolFull), status: http.StatusServiceUnavailable},
		{name: "halted", err: state.ErrHalted, status: http.StatusServiceUnavailable},
		{name: "trusted", err: errs.NewTrusted(errors.New("bad index"), http.StatusBadRequest), status: http.StatusBadRequest},
		{name: "unknown", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	t.Log("Given the need to map errors to responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s error.", testID, tst.name)
				{
					resp, status := errs.Translate(tst.err)

					if status != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould get status %d, got %d.", failed, testID, tst.status, status)
					}
					t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tst.status)

					if resp.Error == "" {
						t.Fatalf("\t%s\tTest %d:\tShould have an error message.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have an error message.", success, testID)

					if tst.status == http.StatusInternalServerError && resp.Error == tst.err.Error() {
						t.Fatalf("\t%s\tTest %d:\tShould hide the internal error.", failed, testID)
					}
				}
			}

			t.Run(tst.name, f)
		}
	}
}
