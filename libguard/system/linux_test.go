package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/selfguard/selfguard/internal/testutil"
)

func TestSetNoNewPrivs(t *testing.T) {
	err := testutil.OnDisposableThread(func() error {
		if err := SetNoNewPrivs(); err != nil {
			return err
		}
		nnp, err := NoNewPrivs()
		if err != nil {
			return err
		}
		if !nnp {
			return errors.New("no_new_privs not reported after setting it")
		}
		st, err := CurrentStatus()
		if err != nil {
			return err
		}
		if !st.NoNewPrivs {
			return errors.New("no_new_privs missing from thread status")
		}
		return nil
	})
	require.NoError(t, err)
}
