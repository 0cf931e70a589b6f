package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// flashCookie carries one-shot messages across a redirect, e.g. "password
// incorrect" from POST /login to the GET /login that follows.
const flashCookie = "flash"

// maxFlashes bounds the cookie size.
const maxFlashes = 5

// FlashResponse is the body of the form GET endpoints.
type FlashResponse struct {
	Flashes []string `json:"flashes"`
}

// addFlash queues msg for the next request, keeping earlier unread ones.
func addFlash(w http.ResponseWriter, r *http.Request, msg string) {
	msgs := readFlashes(r)
	msgs = append(msgs, msg)
	if len(msgs) > maxFlashes {
		msgs = msgs[len(msgs)-maxFlashes:]
	}

	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the pending messages and clears them.
func popFlashes(w http.ResponseWriter, r *http.Request) []string {
	msgs := readFlashes(r)
	if _, err := r.Cookie(flashCookie); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

func readFlashes(r *http.Request) []string {
	msgs := []string{}
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return msgs
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return msgs
	}
	if err := json.Unmarshal(raw, &msgs); err != nil || msgs == nil {
		return []string{}
	}
	return msgs
}

// handleFlashes serves the form GET endpoints: pending flashes as JSON.
func handleFlashes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FlashResponse{Flashes: popFlashes(w, r)})
}
