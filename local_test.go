package authgate_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	oa "github.com/tembold/authgate"
	"github.com/tembold/authgate/stores"
)

func testHasher() oa.PasswordHasher {
	return &oa.BcryptHasher{Cost: bcrypt.MinCost}
}

func TestCredentialsVerifier(t *testing.T) {
	store := stores.NewFSAccountStore(t.TempDir())
	hasher := testHasher()
	hash, err := hasher.Hash("pw123secret")
	if err != nil {
		t.Fatal(err)
	}
	created, err := store.CreateAccount("alice@example.com", oa.PasswordCredential(hash))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateAccount("fed@example.com", oa.ProviderCredential("google")); err != nil {
		t.Fatal(err)
	}

	verify := oa.NewCredentialsVerifier(store, hasher)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct password", "alice@example.com", "pw123secret", nil},
		{"wrong password", "alice@example.com", "wrong", oa.ErrBadPassword},
		{"unknown email", "nobody@example.com", "anything", oa.ErrAccountNotFound},
		{"federated account has no password", "fed@example.com", "anything", oa.ErrBadPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := verify(tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.ID != created.ID {
				t.Errorf("expected account %q, got %q", created.ID, account.ID)
			}
		})
	}
}

func newTestLocalAuth(t *testing.T) (*oa.LocalAuth, *stores.FSAccountStore) {
	t.Helper()
	store := stores.NewFSAccountStore(t.TempDir())
	hasher := testHasher()
	return &oa.LocalAuth{
		Verifier: oa.NewCredentialsVerifier(store, hasher),
		Store:    store,
		Hasher:   hasher,
		HandleUser: func(authtype, provider string, account *oa.Account, w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"success": true, "accountId": account.ID})
		},
	}, store
}

func postForm(handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRegisterFlow(t *testing.T) {
	localAuth, store := newTestLocalAuth(t)

	tests := []struct {
		name           string
		formData       map[string]string
		expectedStatus int
		checkError     string
	}{
		{
			name:           "successful registration",
			formData:       map[string]string{"email": "alice@example.com", "password": "pw123secret"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "duplicate email",
			formData:       map[string]string{"email": "alice@example.com", "password": "otherpassword"},
			expectedStatus: http.StatusBadRequest,
			checkError:     oa.ErrCodeEmailTaken,
		},
		{
			name:           "weak password",
			formData:       map[string]string{"email": "short@example.com", "password": "pass"},
			expectedStatus: http.StatusBadRequest,
			checkError:     oa.ErrCodeWeakPassword,
		},
		{
			name:           "invalid email",
			formData:       map[string]string{"email": "not-an-email", "password": "pw123secret"},
			expectedStatus: http.StatusBadRequest,
			checkError:     oa.ErrCodeInvalidEmail,
		},
		{
			name:           "missing password",
			formData:       map[string]string{"email": "x@example.com"},
			expectedStatus: http.StatusBadRequest,
			checkError:     oa.ErrCodeMissingField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			for k, v := range tt.formData {
				form.Set(k, v)
			}
			rr := postForm(localAuth.HandleRegister, "/auth/register", form)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.checkError != "" && !strings.Contains(rr.Body.String(), tt.checkError) {
				t.Errorf("expected error code %q, got: %s", tt.checkError, rr.Body.String())
			}
		})
	}

	// the duplicate attempt must not have produced a second account
	account, err := store.GetAccountByEmail("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if account.Credential.Kind != oa.CredentialKindPassword {
		t.Errorf("stored credential kind mismatch: %+v", account.Credential)
	}
}

func TestRegisterEmailTakenRedirect(t *testing.T) {
	localAuth, _ := newTestLocalAuth(t)
	localAuth.RegisterURL = "/register"

	form := url.Values{"email": {"dup@example.com"}, "password": {"pw123secret"}}
	if rr := postForm(localAuth.HandleRegister, "/auth/register", form); rr.Code != http.StatusOK {
		t.Fatalf("setup registration failed: %d", rr.Code)
	}

	rr := postForm(localAuth.HandleRegister, "/auth/register", form)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/register?taken=1" {
		t.Errorf("expected taken flag on redirect, got %q", loc)
	}
}

func TestLoginFlow(t *testing.T) {
	localAuth, _ := newTestLocalAuth(t)

	form := url.Values{"email": {"carol@example.com"}, "password": {"pw123secret"}}
	if rr := postForm(localAuth.HandleRegister, "/auth/register", form); rr.Code != http.StatusOK {
		t.Fatalf("setup registration failed: %d", rr.Code)
	}

	tests := []struct {
		name           string
		formData       map[string]string
		expectedStatus int
	}{
		{
			name:           "correct credentials",
			formData:       map[string]string{"email": "carol@example.com", "password": "pw123secret"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			formData:       map[string]string{"email": "carol@example.com", "password": "nope"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown email",
			formData:       map[string]string{"email": "ghost@example.com", "password": "pw123secret"},
			expectedStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			for k, v := range tt.formData {
				form.Set(k, v)
			}
			rr := postForm(localAuth.ServeHTTP, "/auth/login", form)
			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestLoginJSONBody(t *testing.T) {
	localAuth, _ := newTestLocalAuth(t)

	form := url.Values{"email": {"dave@example.com"}, "password": {"pw123secret"}}
	if rr := postForm(localAuth.HandleRegister, "/auth/register", form); rr.Code != http.StatusOK {
		t.Fatalf("setup registration failed: %d", rr.Code)
	}

	body := `{"email": "dave@example.com", "password": "pw123secret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	localAuth.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}
