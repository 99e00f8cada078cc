package cart

import (
	"net/http"
	"time"

	"folio/globals"
	"folio/utils"
)

// Owner identifies whose cart an operation targets: an authenticated user id
// or an anonymous cart-session token. Exactly one side is authoritative; the
// user id wins whenever both are present.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Anonymous() bool { return o.UserID == "" }

// ResolveOwner derives the cart owner for this request: authenticated
// identity first, else the anonymous session cookie. Resolution happens once
// here; nothing downstream reads ambient request state.
func ResolveOwner(r *http.Request) Owner {
	o := Owner{UserID: utils.GetUserIDFromRequest(r)}
	if c, err := r.Cookie(globals.CartSessionCookie); err == nil {
		o.SessionID = c.Value
	}
	return o
}

// EnsureSession guarantees an anonymous visitor has a cart-session token,
// minting the cookie on first contact.
func EnsureSession(w http.ResponseWriter, r *http.Request, o Owner) Owner {
	if o.SessionID != "" {
		return o
	}
	o.SessionID = utils.GetUUID()
	http.SetCookie(w, &http.Cookie{
		Name:     globals.CartSessionCookie,
		Value:    o.SessionID,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return o
}
