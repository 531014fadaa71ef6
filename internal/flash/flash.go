// Package flash implements a cookie-backed one-shot notice queue. Messages
// queued during one request are surfaced on the next rendered page and then
// cleared.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

const cookieName = "flash"

const (
	CategorySuccess = "success"
	CategoryInfo    = "info"
	CategoryDanger  = "danger"
)

type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Add queues a message on top of whatever is already pending.
func Add(w http.ResponseWriter, r *http.Request, category, text string) {
	messages := append(peek(r), Message{Category: category, Text: text})
	set(w, messages)
}

// Take returns all pending messages and clears the queue.
func Take(w http.ResponseWriter, r *http.Request) []Message {
	messages := peek(r)
	if len(messages) > 0 {
		expire(w)
	}
	return messages
}

func peek(r *http.Request) []Message {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var messages []Message
	err = json.Unmarshal(decoded, &messages)
	if err != nil {
		return nil
	}

	return messages
}

func set(w http.ResponseWriter, messages []Message) {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(encoded),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
