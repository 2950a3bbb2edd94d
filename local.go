package authgate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
)

// HandleUserFunc is called with the canonical account after any successful
// authentication, to establish session and token and respond
type HandleUserFunc func(authtype string, provider string, account *Account, w http.ResponseWriter, r *http.Request)

// CredentialsVerifier checks an email/password pair and returns the account.
// Expected negatives are ErrAccountNotFound and ErrBadPassword; any other
// error is an internal failure.
type CredentialsVerifier func(email, password string) (*Account, error)

// NewCredentialsVerifier builds a verifier over a store and hasher. Accounts
// created via federation carry a provider marker instead of a password hash
// and reject local login with ErrBadPassword.
func NewCredentialsVerifier(store AccountStore, hasher PasswordHasher) CredentialsVerifier {
	return func(email, password string) (*Account, error) {
		account, err := store.GetAccountByEmail(email)
		if err != nil {
			return nil, err
		}
		if account.Credential.Kind != CredentialKindPassword {
			return nil, ErrBadPassword
		}
		if err := hasher.Verify(password, account.Credential.Value); err != nil {
			return nil, err
		}
		return account, nil
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LocalAuth handles email/password login and registration
type LocalAuth struct {
	// Verifies credentials during login
	Verifier CredentialsVerifier

	// Store and Hasher are used by registration
	Store  AccountStore
	Hasher PasswordHasher

	// Minimum password length for registration. Defaults to 8.
	MinPasswordLength int

	// Form field names
	EmailField    string
	PasswordField string

	// Handler called after successful authentication
	HandleUser HandleUserFunc

	// OnLoginError is called when login fails. If nil, returns JSON error.
	OnLoginError AuthErrorHandler

	// OnRegisterError is called when registration fails (including the
	// email-taken case). If nil, returns JSON error.
	OnRegisterError AuthErrorHandler

	// LoginURL and RegisterURL are used by the default error handling when
	// set: rejections redirect there instead of returning JSON
	LoginURL    string
	RegisterURL string
}

// ServeHTTP handles login requests
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.Verifier == nil {
		http.Error(w, `{"error": "Login not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseCredentials(r)
	if err != nil {
		a.handleLoginError(NewAuthError(ErrCodeMissingField, err.Error(), a.getEmailField()), w, r)
		return
	}

	account, err := a.Verifier(email, password)
	if err != nil {
		if IsRejection(err) {
			// "unknown email" and "wrong password" are reported identically
			a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", a.getPasswordField()), w, r)
			return
		}
		log.Println("error verifying credentials: ", err)
		http.Error(w, `{"error": "Authentication failed"}`, http.StatusInternalServerError)
		return
	}

	a.HandleUser("local", "local", account, w, r)
}

// HandleRegister processes new account registration
func (a *LocalAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil || a.Hasher == nil {
		http.Error(w, `{"error": "Registration not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseCredentials(r)
	if err != nil {
		a.handleRegisterError(NewAuthError(ErrCodeMissingField, err.Error(), a.getEmailField()), w, r)
		return
	}

	if !emailRegex.MatchString(email) {
		a.handleRegisterError(NewAuthError(ErrCodeInvalidEmail, "Invalid email format", a.getEmailField()), w, r)
		return
	}
	if minLen := a.getMinPasswordLength(); len(password) < minLen {
		msg := fmt.Sprintf("Password must be at least %d characters", minLen)
		a.handleRegisterError(NewAuthError(ErrCodeWeakPassword, msg, a.getPasswordField()), w, r)
		return
	}

	hash, err := a.Hasher.Hash(password)
	if err != nil {
		log.Println("error hashing password: ", err)
		http.Error(w, `{"error": "Registration failed"}`, http.StatusInternalServerError)
		return
	}

	// The store's uniqueness constraint is the single authority on taken
	// emails; there is no check-then-insert window here.
	account, err := a.Store.CreateAccount(email, PasswordCredential(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			a.handleRegisterError(NewAuthError(ErrCodeEmailTaken, "Email is already registered", a.getEmailField()), w, r)
			return
		}
		log.Println("error creating account: ", err)
		http.Error(w, `{"error": "Registration failed"}`, http.StatusInternalServerError)
		return
	}

	a.HandleUser("local", "local", account, w, r)
}

func (a *LocalAuth) parseCredentials(r *http.Request) (email, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	emailField := a.getEmailField()
	passwordField := a.getPasswordField()

	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("invalid post body")
		}
		email, _ = data[emailField].(string)
		password, _ = data[passwordField].(string)
	} else {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("error parsing form")
		}
		email = r.FormValue(emailField)
		password = r.FormValue(passwordField)
	}

	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password required")
	}
	return email, password, nil
}

func (a *LocalAuth) getEmailField() string {
	if a.EmailField != "" {
		return a.EmailField
	}
	return "email"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

func (a *LocalAuth) getMinPasswordLength() int {
	if a.MinPasswordLength > 0 {
		return a.MinPasswordLength
	}
	return 8
}

func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	if a.LoginURL != "" {
		http.Redirect(w, r, a.LoginURL, http.StatusFound)
		return
	}
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField {
		statusCode = http.StatusBadRequest
	}
	writeAuthError(w, err, statusCode)
}

func (a *LocalAuth) handleRegisterError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnRegisterError != nil && a.OnRegisterError(err, w, r) {
		return
	}
	// A taken email re-renders registration with a flag rather than failing
	// hard; the default redirect carries it as a query parameter
	if a.RegisterURL != "" {
		target := a.RegisterURL
		if err.Code == ErrCodeEmailTaken {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + "taken=1"
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeAuthError(w, err, http.StatusBadRequest)
}

func writeAuthError(w http.ResponseWriter, err *AuthError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(err)
}
