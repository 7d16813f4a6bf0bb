package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/querygenie/querygenie/internal/auth"
	"github.com/querygenie/querygenie/internal/database"
	"github.com/querygenie/querygenie/internal/gateway"
	"github.com/querygenie/querygenie/internal/generation"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages serves the server-rendered views: landing, auth, generate+history and
// the legacy history view. They call the same flow and store code as the JSON
// API; templates carry no business rules.
type Pages struct {
	db   *gorm.DB
	auth *auth.Service
	flow *generation.Flow
	tmpl *template.Template
}

func NewPages(db *gorm.DB, authService *auth.Service, flow *generation.Flow) (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing page templates: %w", err)
	}
	return &Pages{db: db, auth: authService, flow: flow, tmpl: tmpl}, nil
}

func (p *Pages) AddRoutes(r chi.Router) {
	r.Get("/", p.Landing)
	r.Get("/auth", p.AuthPage)
	r.Post("/auth/signin-form", p.SignInForm)
	r.Post("/auth/signup-form", p.SignUpForm)
	r.Post("/auth/signout-form", p.SignOutForm)

	// Session-gated pages share the one route guard; missing sessions are
	// redirected to the sign-in entry point.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession("/auth"))
		r.Get("/queries", p.QueriesPage)
		r.Post("/queries/generate", p.GenerateForm)
		r.Get("/history", p.HistoryPage)
	})
}

type navData struct {
	SignedIn bool
	Email    string
}

func (p *Pages) nav(r *http.Request) navData {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		return navData{SignedIn: true, Email: user.Email}
	}
	return navData{}
}

type landingData struct {
	Nav    navData
	Prompt string
}

func (p *Pages) Landing(w http.ResponseWriter, r *http.Request) {
	p.render(w, "landing.html", landingData{Nav: p.nav(r), Prompt: r.URL.Query().Get("prompt")})
}

type authPageData struct {
	Nav            navData
	SignInError    string
	SignUpError    string
	PendingConfirm bool
	Email          string
	DisplayName    string
}

func (p *Pages) AuthPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/queries", http.StatusSeeOther)
		return
	}
	p.render(w, "auth.html", authPageData{Nav: p.nav(r)})
}

func (p *Pages) SignInForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	session, _, err := p.auth.SignIn(r.Context(), email, password)
	if err != nil {
		msg := "sign in failed, please try again"
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNotConfirmed) {
			msg = err.Error()
		}
		p.render(w, "auth.html", authPageData{Nav: p.nav(r), SignInError: msg, Email: email})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiryTime,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/queries", http.StatusSeeOther)
}

func (p *Pages) SignUpForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirm_password")
	displayName := r.PostFormValue("display_name")

	if password != confirm {
		p.render(w, "auth.html", authPageData{
			Nav: p.nav(r), SignUpError: "passwords do not match", Email: email, DisplayName: displayName,
		})
		return
	}

	if _, err := p.auth.SignUp(r.Context(), email, password, displayName); err != nil {
		msg := "sign up failed, please try again"
		if errors.Is(err, auth.ErrEmailTaken) {
			msg = err.Error()
		}
		p.render(w, "auth.html", authPageData{
			Nav: p.nav(r), SignUpError: msg, Email: email, DisplayName: displayName,
		})
		return
	}

	p.render(w, "auth.html", authPageData{Nav: p.nav(r), PendingConfirm: true})
}

func (p *Pages) SignOutForm(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		if err := p.auth.SignOut(r.Context(), cookie.Value); err != nil {
			slog.Error("error signing out", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:    auth.SessionCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

type queryView struct {
	Prompt    string
	Response  string
	CreatedAt time.Time
}

type queriesPageData struct {
	Nav     navData
	Prompt  string
	SQL     string
	Error   string
	Notice  string
	Search  string
	History []queryView
}

func (p *Pages) QueriesPage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	data := queriesPageData{
		Nav:    p.nav(r),
		Prompt: r.URL.Query().Get("prompt"),
		Search: r.URL.Query().Get("search"),
	}
	data.History = p.history(r, user, data.Search, &data.Notice)

	p.render(w, "queries.html", data)
}

func (p *Pages) GenerateForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse form", http.StatusBadRequest)
		return
	}

	user, _ := auth.UserFromContext(r.Context())
	prompt := r.PostFormValue("prompt")

	data := queriesPageData{Nav: p.nav(r), Prompt: prompt}

	output, err := p.flow.Generate(r.Context(), user, prompt)
	switch {
	case errors.Is(err, generation.ErrBlankPrompt):
		data.Error = "describe your database to generate SQL"
	case errors.Is(err, generation.ErrInFlight):
		data.Error = "a generation is already in progress, please wait for it to finish"
	case err != nil:
		var gwErr *gateway.GatewayError
		if errors.As(err, &gwErr) {
			data.Error = "failed to generate SQL: " + gwErr.Error()
		} else {
			slog.Error("error generating SQL", "error", err)
			data.Error = "something went wrong, please try again"
		}
	default:
		data.SQL = output.SQL
		data.Notice = output.Notice
	}

	data.History = p.history(r, user, "", &data.Notice)
	p.render(w, "queries.html", data)
}

func (p *Pages) HistoryPage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	data := queriesPageData{Nav: p.nav(r), Search: r.URL.Query().Get("search")}
	data.History = p.history(r, user, data.Search, &data.Notice)

	p.render(w, "history.html", data)
}

func (p *Pages) history(r *http.Request, user database.User, search string, notice *string) []queryView {
	records, err := database.ListQueries(r.Context(), p.db, user.Id)
	if err != nil {
		slog.Error("error loading query history", "user_id", user.Id, "error", err)
		if *notice == "" {
			*notice = "your history could not be loaded"
		}
		return nil
	}

	search = strings.ToLower(strings.TrimSpace(search))

	views := make([]queryView, 0, len(records))
	for _, record := range records {
		if search != "" && !strings.Contains(strings.ToLower(record.Prompt), search) {
			continue
		}
		views = append(views, queryView{
			Prompt:    record.Prompt,
			Response:  record.Response,
			CreatedAt: record.CreationTime,
		})
	}
	return views
}

func (p *Pages) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("error rendering template", "template", name, "error", err)
	}
}
