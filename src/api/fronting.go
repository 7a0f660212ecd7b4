package api

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sp2any/src/fleet"
	"sp2any/src/plurality"
	"sp2any/src/secretstore"
)

// frontingPage is the minimal public page the desktop companion's GUI
// shell and any browser can read without authentication. html/template
// auto-escapes every interpolated field, satisfying the "all user-
// controlled text must be HTML-escaped" requirement without hand-rolled
// escaping logic.
var frontingPage = template.Must(template.New("fronting").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.SystemName}} - currently fronting</title></head>
<body>
<h1>{{.SystemName}}</h1>
{{if .Fronters}}
<ul>
{{range .Fronters}}
<li><img src="{{.AvatarURL}}" alt="{{.Name}}" width="32" height="32"> {{.Name}}</li>
{{end}}
</ul>
{{else}}
<p>No one is currently fronting.</p>
{{end}}
</body>
</html>
`))

type frontingPageData struct {
	SystemName string
	Fronters   []plurality.Fronter
}

// FrontingHandler serves GET /fronting/{website_url_name}: a read-only
// consumer of FleetManager.FronterChannelGetMostRecentValue (spec §6).
type FrontingHandler struct {
	Store *secretstore.Store
	Fleet *fleet.Manager
}

func (h FrontingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "websiteURLName")
	userID, err := h.Store.FindUserIDByWebsiteURLName(r.Context(), name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	entries, err := h.Store.GetUser(r.Context(), userID)
	systemName := ""
	if err == nil && entries.SystemName != nil {
		systemName = *entries.SystemName
	}
	fronters, _ := h.Fleet.FronterChannelGetMostRecentValue(userID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = frontingPage.Execute(w, frontingPageData{SystemName: systemName, Fronters: fronters})
}
