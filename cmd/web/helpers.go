package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/justinas/nosurf"

	"github.com/Abdellah421/irrigition-app/internal/i18n"
	"github.com/Abdellah421/irrigition-app/internal/models"
	"github.com/Abdellah421/irrigition-app/internal/relay"
)

// Session keys.
const (
	sessionKeyUserID = "authenticatedUserID"
	sessionKeyLang   = "lang"
)

type contextKey string

const userIDContextKey = contextKey("userID")

// authenticatedUserID returns the id of the logged-in user, or "" when the
// request carries no valid session. Set by the authenticate middleware.
func (app *application) authenticatedUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDContextKey).(string)
	return id
}

type templateData struct {
	CurrentYear     int
	Form            any
	Flash           string
	IsAuthenticated bool
	CSRFToken       string
	Lang            string
	T               map[string]any
	User            *models.User
	Notifications   []string
	Guide           string
	PlantName       string
	Snapshot        relay.Snapshot
}

func (app *application) newTemplateData(r *http.Request) templateData {
	lang := app.sessionManager.GetString(r.Context(), sessionKeyLang)
	if !i18n.Supported(lang) {
		lang = i18n.DefaultLang
	}
	return templateData{
		CurrentYear:     time.Now().Year(),
		Flash:           app.sessionManager.PopString(r.Context(), "flash"),
		IsAuthenticated: app.authenticatedUserID(r) != "",
		CSRFToken:       nosurf.Token(r),
		Lang:            lang,
		T:               i18n.Pack(lang),
	}
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data templateData) {
	ts, ok := app.templateCache[page]
	if !ok {
		app.serverError(w, r, fmt.Errorf("the template %q does not exist", page))
		return
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		app.logger.Error("write json response", "error", err)
	}
}

func (app *application) decodePostForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	if err := app.formDecoder.Decode(dst, r.PostForm); err != nil {
		var invalidDecoderError *form.InvalidDecoderError
		if errors.As(err, &invalidDecoderError) {
			panic(err)
		}
		return err
	}
	return nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}
