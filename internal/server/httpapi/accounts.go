package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/ident"
)

// loginPage is the minimal browser login form. Full page rendering lives
// outside this core.
const loginPage = `<!doctype html>
<html><body>
<form method="post" action="/account/login">
<input type="password" name="account" maxlength="64" autocomplete="off">
<input type="submit" value="login">
</form>
</body></html>`

type registerResponse struct {
	Token     string `json:"token"`
	Account   string `json:"account"`
	ShareID   int64  `json:"share_id"`
	Cathedral string `json:"cathedral"`
	NATPort   string `json:"natport"`
}

type initResponse struct {
	Token     string `json:"token"`
	ShareID   int64  `json:"share_id"`
	Cathedral string `json:"cathedral"`
	NATPort   string `json:"natport"`
}

// initDecoy is the body an unknown account key receives: the cathedral
// coordinates every client gets anyway, and nothing that confirms the key.
type initDecoy struct {
	Cathedral string `json:"cathedral"`
	NATPort   string `json:"natport"`
}

type accountView struct {
	ID        int64        `json:"id"`
	Account   string       `json:"account"`
	Flocks    []flockEntry `json:"flocks"`
	FlocksMax int          `json:"flocks_max"`
	Expires   int64        `json:"expires"`
}

func (r *Router) fail(w http.ResponseWriter, err error) {
	r.log.Error("request failed", zap.Error(err))
	writeText(w, http.StatusInternalServerError, "internal error")
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	creds, err := r.sessions.Register(req.Context())
	if err != nil {
		r.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{
		Token:     creds.Token,
		Account:   creds.AccountKey,
		ShareID:   creds.AccountID,
		Cathedral: r.cfg.Cathedral,
		NATPort:   r.cfg.NATPort,
	})
}

func (r *Router) handleInit(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 128))
	if err != nil {
		r.fail(w, err)
		return
	}
	creds, err := r.sessions.Init(req.Context(), string(body))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeJSON(w, http.StatusOK, initDecoy{
				Cathedral: r.cfg.Cathedral,
				NATPort:   r.cfg.NATPort,
			})
			return
		}
		r.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		Token:     creds.Token,
		ShareID:   creds.AccountID,
		Cathedral: r.cfg.Cathedral,
		NATPort:   r.cfg.NATPort,
	})
}

func (r *Router) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	writeText(w, http.StatusOK, loginPage)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "bad request")
		return
	}
	account := req.PostFormValue("account")
	if !ident.ValidAccountKey(account) {
		writeText(w, http.StatusBadRequest, "bad request")
		return
	}
	creds, err := r.sessions.Login(req.Context(), account)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Redirect(w, req, "/account/login", http.StatusFound)
			return
		}
		r.fail(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    creds.Token,
		Path:     "/account/",
		HttpOnly: true,
		Secure:   !r.cfg.Dev,
	})
	http.Redirect(w, req, "/account/", http.StatusFound)
}

func (r *Router) handleAccountView(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	flocks, err := r.flocks.List(req.Context(), auth.AccountID)
	if err != nil {
		r.fail(w, err)
		return
	}
	entries := make([]flockEntry, 0, len(flocks))
	for _, f := range flocks {
		entries = append(entries, flockEntry{ID: f.ID})
	}
	writeJSON(w, http.StatusOK, accountView{
		ID:        auth.AccountID,
		Account:   auth.AccountKey,
		Flocks:    entries,
		FlocksMax: auth.FlocksMax,
		Expires:   auth.TimeLeft,
	})
}

func (r *Router) handleAccountAddTime(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	if err := r.sessions.AddTime(req.Context(), auth.AccountID); err != nil {
		r.fail(w, err)
		return
	}
	http.Redirect(w, req, "/account/", http.StatusFound)
}

func (r *Router) handleAccountDelete(w http.ResponseWriter, req *http.Request) {
	auth, _ := AuthFromCtx(req.Context())
	if err := r.sessions.DeleteAccount(req.Context(), auth.AccountID); err != nil {
		r.fail(w, err)
		return
	}
	http.Redirect(w, req, "/account/", http.StatusFound)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "delete",
		Path:     "/account/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
	http.Redirect(w, req, "/account/login", http.StatusFound)
}
