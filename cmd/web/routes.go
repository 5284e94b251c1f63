package main

import (
	"net/http"

	"github.com/Abdellah421/irrigition-app/ui"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	// Uploaded images live on disk; everything else under /static/ is
	// embedded. The more specific pattern wins.
	mux.Handle("GET /static/uploads/", http.StripPrefix("/static/uploads/",
		http.FileServer(http.Dir(app.uploads.Dir()))))
	mux.Handle("GET /static/", http.FileServerFS(ui.Files))
	mux.HandleFunc("GET /ping", ping)

	dynamic := alice.New(app.sessionManager.LoadAndSave, app.noSurf, app.authenticate)
	mux.Handle("GET /{$}", dynamic.ThenFunc(app.home))
	mux.Handle("GET /login", dynamic.ThenFunc(app.login))
	mux.Handle("POST /login", dynamic.ThenFunc(app.loginPost))
	mux.Handle("GET /register", dynamic.ThenFunc(app.register))
	mux.Handle("POST /register", dynamic.ThenFunc(app.registerPost))
	mux.Handle("GET /logout", dynamic.ThenFunc(app.logout))
	mux.Handle("GET /set_language/{lang}", dynamic.ThenFunc(app.setLanguage))

	// The device peer polls and posts here without a browser session.
	mux.Handle("GET /get_data", dynamic.ThenFunc(app.getData))
	mux.Handle("POST /upload-image", dynamic.ThenFunc(app.uploadImage))

	protected := dynamic.Append(app.requireAuthentication)
	mux.Handle("GET /dashboard", protected.ThenFunc(app.dashboard))
	mux.Handle("GET /profile", protected.ThenFunc(app.profile))
	mux.Handle("POST /profile", protected.ThenFunc(app.profilePost))
	mux.Handle("GET /notifications", protected.ThenFunc(app.notificationsPage))
	mux.Handle("GET /guide", protected.ThenFunc(app.guide))

	// JSON and websocket endpoints check the session themselves and answer
	// 401 instead of redirecting.
	mux.Handle("POST /voice-command", dynamic.ThenFunc(app.voiceCommand))
	mux.Handle("GET /get_latest_image", dynamic.ThenFunc(app.latestImage))
	mux.Handle("GET /ws", dynamic.ThenFunc(app.serveWS))

	standard := alice.New(app.recoverPanic, app.logRequest, app.securityHeaders, app.enableCORS)
	return standard.Then(mux)
}
