package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdellah421/irrigition-app/internal/i18n"
	"github.com/Abdellah421/irrigition-app/internal/models"
	"github.com/Abdellah421/irrigition-app/internal/relay"
	"github.com/Abdellah421/irrigition-app/internal/validator"
)

// guides maps a plant name to its care advice, as shown on the guide page.
var guides = map[string]string{
	"Tomate":  "Arrosez régulièrement, évitez l'excès d'eau.",
	"Menthe":  "Préfère l'ombre partielle et un sol humide.",
	"default": "Consultez les besoins spécifiques de votre plante.",
}

func ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	if app.authenticatedUserID(r) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type userLoginForm struct {
	EmailOrPhone        string `form:"email_or_phone"`
	Password            string `form:"password"`
	validator.Validator `form:"-"`
}

func (app *application) login(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = userLoginForm{}
	app.render(w, r, http.StatusOK, "login.html", data)
}

func (app *application) loginPost(w http.ResponseWriter, r *http.Request) {
	var form userLoginForm
	if err := app.decodePostForm(r, &form); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	form.CheckField(validator.NotBlank(form.EmailOrPhone), "email_or_phone", "This field cannot be blank")
	form.CheckField(validator.NotBlank(form.Password), "password", "This field cannot be blank")
	if !form.Valid() {
		data := app.newTemplateData(r)
		data.Form = form
		app.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		return
	}

	id, err := app.users.Authenticate(form.EmailOrPhone, form.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			form.AddNonFieldError("Identifiants invalides")
			data := app.newTemplateData(r)
			data.Form = form
			app.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		} else {
			app.serverError(w, r, err)
		}
		return
	}

	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Put(r.Context(), sessionKeyUserID, id)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

type userRegisterForm struct {
	Nom                 string `form:"nom"`
	Prenom              string `form:"prenom"`
	Superficie          string `form:"superficie"`
	Plante              string `form:"plante"`
	EmailOrPhone        string `form:"email_or_phone"`
	Password            string `form:"password"`
	validator.Validator `form:"-"`
}

func (app *application) register(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData(r)
	data.Form = userRegisterForm{}
	app.render(w, r, http.StatusOK, "register.html", data)
}

func (app *application) registerPost(w http.ResponseWriter, r *http.Request) {
	var form userRegisterForm
	if err := app.decodePostForm(r, &form); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	form.CheckField(validator.NotBlank(form.Nom), "nom", "This field cannot be blank")
	form.CheckField(validator.NotBlank(form.Prenom), "prenom", "This field cannot be blank")
	form.CheckField(validator.NotBlank(form.EmailOrPhone), "email_or_phone", "This field cannot be blank")
	form.CheckField(validator.NotBlank(form.Password), "password", "This field cannot be blank")
	form.CheckField(validator.MinChars(form.Password, 8), "password", "This field must be at least 8 characters long")
	if !form.Valid() {
		data := app.newTemplateData(r)
		data.Form = form
		app.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		return
	}

	exists, err := app.users.Exists(form.EmailOrPhone)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if exists {
		form.AddNonFieldError("Utilisateur déjà existant")
		data := app.newTemplateData(r)
		data.Form = form
		app.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		return
	}

	// The unique constraint still backstops a race between the check and
	// the insert.
	_, err = app.users.Insert(models.Profile{
		Nom:          form.Nom,
		Prenom:       form.Prenom,
		Superficie:   form.Superficie,
		Plante:       form.Plante,
		EmailOrPhone: form.EmailOrPhone,
		Password:     form.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			form.AddNonFieldError("Utilisateur déjà existant")
			data := app.newTemplateData(r)
			data.Form = form
			app.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		} else {
			app.serverError(w, r, err)
		}
		return
	}

	app.sessionManager.Put(r.Context(), "flash", "Compte créé, veuillez vous connecter")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Remove(r.Context(), sessionKeyUserID)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *application) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := app.authenticatedUserID(r)
	user, err := app.users.Get(userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	notifications, err := app.notifications.Latest(userID, 10)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.User = &user
	data.Notifications = notificationTexts(notifications)
	data.PlantName = user.Plante
	data.Snapshot = app.cache.Snapshot()
	app.render(w, r, http.StatusOK, "dashboard.html", data)
}

type profileForm struct {
	Nom                 string `form:"nom"`
	Prenom              string `form:"prenom"`
	Superficie          string `form:"superficie"`
	Plante              string `form:"plante"`
	validator.Validator `form:"-"`
}

func (app *application) profile(w http.ResponseWriter, r *http.Request) {
	user, err := app.users.Get(app.authenticatedUserID(r))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(r)
	data.User = &user
	data.Form = profileForm{Nom: user.Nom, Prenom: user.Prenom, Superficie: user.Superficie, Plante: user.Plante}
	app.render(w, r, http.StatusOK, "profile.html", data)
}

func (app *application) profilePost(w http.ResponseWriter, r *http.Request) {
	userID := app.authenticatedUserID(r)
	var form profileForm
	if err := app.decodePostForm(r, &form); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	form.CheckField(validator.NotBlank(form.Nom), "nom", "This field cannot be blank")
	form.CheckField(validator.NotBlank(form.Prenom), "prenom", "This field cannot be blank")
	if !form.Valid() {
		user, err := app.users.Get(userID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data := app.newTemplateData(r)
		data.User = &user
		data.Form = form
		app.render(w, r, http.StatusUnprocessableEntity, "profile.html", data)
		return
	}

	err := app.users.UpdateProfile(userID, models.Profile{
		Nom:        form.Nom,
		Prenom:     form.Prenom,
		Superficie: form.Superficie,
		Plante:     form.Plante,
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.sessionManager.Put(r.Context(), "flash", "Profil mis à jour")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (app *application) notificationsPage(w http.ResponseWriter, r *http.Request) {
	notifications, err := app.notifications.Latest(app.authenticatedUserID(r), 50)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(r)
	data.Notifications = notificationTexts(notifications)
	app.render(w, r, http.StatusOK, "notifications.html", data)
}

func (app *application) guide(w http.ResponseWriter, r *http.Request) {
	user, err := app.users.Get(app.authenticatedUserID(r))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	guide, ok := guides[user.Plante]
	if !ok {
		guide = guides["default"]
	}

	data := app.newTemplateData(r)
	data.User = &user
	data.Guide = guide
	app.render(w, r, http.StatusOK, "guide.html", data)
}

type voiceCommandRequest struct {
	Command string `json:"command"`
	Origin  string `json:"origin"`
}

// voiceCommand accepts a recognized phrase from the voice UI or the manual
// buttons and hands it to the commander.
func (app *application) voiceCommand(w http.ResponseWriter, r *http.Request) {
	userID := app.authenticatedUserID(r)
	if userID == "" {
		app.writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "error",
			"message": "Not authenticated",
		})
		return
	}

	var req voiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Invalid request body",
		})
		return
	}

	origin := relay.OriginVoice
	if req.Origin == relay.OriginManual {
		origin = relay.OriginManual
	}

	result := app.commander.Issue(userID, req.Command, origin)
	app.writeJSON(w, http.StatusOK, result)
}

func (app *application) getData(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, app.cache.Snapshot())
}

func (app *application) uploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		app.writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "No image part in the request",
		})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		app.writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "No image selected for uploading",
		})
		return
	}
	if !app.uploads.Allowed(header.Filename) {
		app.writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Allowed image types are -> png, jpg, jpeg, gif",
		})
		return
	}

	filename, err := app.uploads.Save(header.Filename, file)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	// The device uploads without a session; the notification only makes
	// sense when a logged-in user triggered the upload.
	if userID := app.authenticatedUserID(r); userID != "" {
		if err := app.notifications.Append(userID, "Nouvelle image téléchargée: "+filename); err != nil {
			app.logger.Error("append upload notification", "error", err)
		}
	}

	app.hub.Broadcast(relay.EventNewImage, relay.NewImageEvent{Filename: filename})
	app.writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "success",
		"message": "Image successfully uploaded",
	})
}

func (app *application) latestImage(w http.ResponseWriter, r *http.Request) {
	if app.authenticatedUserID(r) == "" {
		app.writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "error",
			"message": "Not authenticated",
		})
		return
	}

	latest, err := app.uploads.Latest()
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	var url *string
	if latest != "" {
		u := "/static/uploads/" + latest
		url = &u
	}
	app.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "success",
		"latest_image_url": url,
	})
}

func (app *application) setLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	if i18n.Supported(lang) {
		app.sessionManager.Put(r.Context(), sessionKeyLang, lang)
	}
	target := r.Referer()
	if target == "" {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (app *application) serveWS(w http.ResponseWriter, r *http.Request) {
	app.hub.ServeWS(w, r, app.authenticatedUserID(r))
}

func notificationTexts(notifications []models.Notification) []string {
	texts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		texts = append(texts, n.Text)
	}
	return texts
}
