package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/printables-app/server/internal/services"
	"github.com/printables-app/server/internal/session"
	"github.com/printables-app/server/internal/token"
)

// usernamePattern restricts usernames to a single safe path component,
// since the username doubles as the file namespace.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// AuthHandler provides the account page flow: landing page, registration,
// email confirmation, login and logout.
type AuthHandler struct {
	users    *services.UserService
	sessions *session.Manager
}

func NewAuthHandler(users *services.UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
	}
}

// AuthRouter registers the account routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, sessions *session.Manager) {
	handler := NewAuthHandler(users, sessions)

	r.Get("/", handler.Home)
	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
	r.Get("/confirm/{token}", handler.Confirm)
}

// Home shows the landing page, or the dashboard for logged-in users.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	render(w, "index.html", pageData{Flash: takeFlash(w, r)})
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	render(w, "register.html", pageData{Flash: takeFlash(w, r)})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "Invalid form submission.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if username == "" || email == "" || password == "" {
		setFlash(w, "All fields are required.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	if !usernamePattern.MatchString(username) {
		setFlash(w, "Username may only contain letters, digits, dots, dashes and underscores.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	if _, err := h.users.Register(r.Context(), username, email, password); err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			setFlash(w, "Username already exists.")
		case errors.Is(err, services.ErrEmailTaken):
			setFlash(w, "Email already registered.")
		default:
			setFlash(w, "Registration failed. Please try again.")
		}
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	setFlash(w, "A confirmation email has been sent. Please check your inbox.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	render(w, "login.html", pageData{Flash: takeFlash(w, r)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrNotVerified) {
			setFlash(w, "Please verify your email before logging in.")
		} else {
			setFlash(w, "Invalid credentials")
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if _, err := h.sessions.Issue(r.Context(), w, user.ID, user.Username); err != nil {
		setFlash(w, "Login failed. Please try again.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	setFlash(w, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Confirm redeems an email-confirmation token.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	tokenString := chi.URLParam(r, "token")

	alreadyVerified, err := h.users.Confirm(r.Context(), tokenString)
	if err != nil {
		if errors.Is(err, token.ErrExpired) || errors.Is(err, token.ErrInvalid) {
			setFlash(w, "The confirmation link is invalid or has expired.")
		} else {
			setFlash(w, "Confirmation failed. Please try again.")
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if alreadyVerified {
		setFlash(w, "Account already verified. Please login.")
	} else {
		setFlash(w, "Your account has been verified. You can now log in.")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
