// Command authgated is a small host application for the authgate library:
// local login/registration, Google/GitHub/Facebook OAuth, session + token
// cookies, and a token-checked /whoami endpoint. Pages are deliberately
// bare; rendering is not the interesting part here.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/gorilla/mux"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tembold/authgate"
	agoauth "github.com/tembold/authgate/oauth2"
	gormstore "github.com/tembold/authgate/stores/gorm"
)

func main() {
	cfg := NewConfig()
	if cfg.Auth.SigningSecret == "" {
		log.Fatal("AUTHGATE_SIGNING_SECRET is required")
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	store, err := gormstore.NewAccountStore(db)
	if err != nil {
		log.Fatalf("failed to migrate account store: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	session, err := newSessionManager(sqlDB, cfg.Auth, store)
	if err != nil {
		log.Fatalf("failed to set up sessions: %v", err)
	}

	tokens := &authgate.TokenIssuer{
		Secret: []byte(cfg.Auth.SigningSecret),
		Issuer: "authgated",
		TTL:    cfg.Auth.TokenTTL,
	}

	gate := authgate.New("authgated", store, session, tokens)
	gate.LoginURL = "/login"

	hasher := &authgate.BcryptHasher{Cost: cfg.Auth.BcryptCost}
	localAuth := &authgate.LocalAuth{
		Verifier:    authgate.NewCredentialsVerifier(store, hasher),
		Store:       store,
		Hasher:      hasher,
		HandleUser:  gate.SaveAccountAndRedirect,
		LoginURL:    "/login",
		RegisterURL: "/register",
	}

	gate.AddAuth("/local", localAuth)
	mountProvider(gate, "/google", cfg.Google, func(p Provider) http.Handler {
		return agoauth.NewGoogleOAuth2(p.ClientID, p.ClientSecret, p.CallbackURL, gate.HandleOAuthUser)
	})
	mountProvider(gate, "/github", cfg.Github, func(p Provider) http.Handler {
		return agoauth.NewGithubOAuth2(p.ClientID, p.ClientSecret, p.CallbackURL, gate.HandleOAuthUser)
	})
	mountProvider(gate, "/facebook", cfg.Facebook, func(p Provider) http.Handler {
		return agoauth.NewFacebookOAuth2(p.ClientID, p.ClientSecret, p.CallbackURL, gate.HandleOAuthUser)
	})

	middleware := &authgate.Middleware{
		Session:  session,
		Tokens:   tokens,
		LoginURL: "/login",
	}

	r := mux.NewRouter()
	// registered before the /auth/ subtree so it wins the match
	r.Handle("/auth/local/register", http.HandlerFunc(localAuth.HandleRegister)).Methods(http.MethodPost)
	r.PathPrefix("/auth/").Handler(http.StripPrefix("/auth", gate.Handler()))
	r.Handle("/secrets", middleware.RequireAccount(http.HandlerFunc(handleSecrets)))
	r.HandleFunc("/login", handleLoginPage)
	r.HandleFunc("/register", handleRegisterPage)
	r.Handle("/", middleware.ExtractAccount(http.HandlerFunc(handleHome)))

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	slog.Info("listening", "addr", addr)
	log.Fatal(http.ListenAndServe(addr, session.LoadAndSave(r)))
}

func newSessionManager(sqlDB *sql.DB, cfg Auth, store authgate.AccountStore) (*authgate.IdentitySession, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	session := authgate.NewIdentitySession(store, cfg.SessionLifetime)
	session.SessionManager.Store = sqlite3store.New(sqlDB)
	session.Cookie.Secure = cfg.SecureCookies
	return session, nil
}

func mountProvider(gate *authgate.AuthGate, prefix string, p Provider, build func(Provider) http.Handler) {
	if !p.Configured() {
		slog.Warn("provider not configured, not mounting", "prefix", prefix)
		return
	}
	gate.AddAuth(prefix, build(p))
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	if accountID := authgate.AccountID(r); accountID != "" {
		fmt.Fprintf(w, "Logged in as account %s. <a href=\"/auth/logout\">Logout</a>", accountID)
		return
	}
	fmt.Fprint(w, `<a href="/login">Login</a> | <a href="/register">Register</a>`)
}

func handleSecrets(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Secrets for account %s", authgate.AccountID(r))
}

func handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<body>
<h1>Login</h1>
<form method="POST" action="/auth/local/">
	<label>Email: <input type="email" name="email" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>
<p><a href="/auth/google/">Login with Google</a></p>
<p><a href="/auth/github/">Login with GitHub</a></p>
<p><a href="/auth/facebook/">Login with Facebook</a></p>
</body>
</html>`)
}

func handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	taken := ""
	if r.URL.Query().Get("taken") != "" {
		taken = "<p>That email is already registered.</p>"
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<body>
<h1>Register</h1>
%s
<form method="POST" action="/auth/local/register">
	<label>Email: <input type="email" name="email" required></label>
	<label>Password: <input type="password" name="password" required minlength="8"></label>
	<button type="submit">Register</button>
</form>
</body>
</html>`, taken)
}
