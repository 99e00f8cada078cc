package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("taken"), http.StatusConflict},
		{State("not ready"), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Status(c.err), c.err.Error())
	}
}

func TestRedirectSurvivesWrapping(t *testing.T) {
	err := Validation("Your cart is empty").WithRedirect("/cart")
	wrapped := fmt.Errorf("create order: %w", err)

	require.Equal(t, "/cart", RedirectOf(wrapped))
	require.Equal(t, KindValidation, KindOf(wrapped))
	require.Equal(t, http.StatusBadRequest, Status(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	require.Empty(t, RedirectOf(errors.New("boom")))
}
