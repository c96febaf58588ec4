package render

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"unicode/utf8"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

const (
	flashCookie = "bd_flash"
	flashMaxAge = 60
	maxFlashes  = 5
	// maxFlashBytes keeps maxFlashes messages under the 4 KB cookie limit.
	maxFlashBytes = 400
)

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string `json:"t"`
	Message string `json:"m"`
}

// AddFlash queues a notification for the next rendered page, typically
// right before a redirect. Pages rendered in the same response should put
// messages in PageData.Flashes instead.
func AddFlash(w http.ResponseWriter, r *http.Request, typ, msg string) {
	flashes := append(readFlashes(r), Flash{Type: typ, Message: clipFlash(msg)})
	if len(flashes) > maxFlashes {
		flashes = flashes[len(flashes)-maxFlashes:]
	}
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clipFlash shortens msg to at most maxFlashBytes on a rune boundary,
// ending it with an ellipsis.
func clipFlash(msg string) string {
	if len(msg) <= maxFlashBytes {
		return msg
	}
	const ellipsis = "…"
	cut := maxFlashBytes - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + ellipsis
}

// PopFlashes returns the queued notifications and clears the cookie.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
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
	return flashes
}

// readFlashes decodes the cookie. A tampered or stale cookie yields nothing.
func readFlashes(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	valid := flashes[:0]
	for _, f := range flashes {
		if f.Message != "" {
			valid = append(valid, f)
		}
	}
	return valid
}
