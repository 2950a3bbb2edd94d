// Package authgate implements an authentication and identity-reconciliation
// core for web applications: local email/password login, delegated login via
// Google, GitHub or Facebook, and two parallel proofs of a completed login —
// a server-side session and a signed bearer token.
//
// # Architecture
//
// Account: the canonical stored identity, keyed by email. An account carries
// exactly one credential, created once: a bcrypt password hash for local
// signups, or a provider marker for accounts first seen via OAuth.
//
// Resolver: normalizes heterogeneous provider profiles into an Account. Each
// provider declares which profile field holds the canonical email; profiles
// lacking it are rejected outright. Accounts are merged across login methods
// purely on email equality, so a local signup and a later Google login with
// the same address land on the same Account.
//
// Session and Token: a completed login establishes both a server-side session
// (via alexedwards/scs, storing only the account id) and a signed JWT carried
// in a cookie. The two expire independently. This is deliberate: the session
// serves interactive page loads, the token serves stateless checks, and
// neither implies the other is still live.
//
// # Basic Usage
//
// Wire a store, session manager and token issuer into an AuthGate:
//
//	store := stores.NewFSAccountStore("/path/to/storage")
//	session := authgate.NewIdentitySession(store, 30*time.Minute)
//	tokens := &authgate.TokenIssuer{Secret: []byte(secret), Issuer: "myapp", TTL: 24 * time.Hour}
//
//	gate := authgate.New("myapp", store, session, tokens)
//
//	localAuth := &authgate.LocalAuth{
//	    Verifier:   authgate.NewCredentialsVerifier(store, authgate.DefaultHasher),
//	    Store:      store,
//	    Hasher:     authgate.DefaultHasher,
//	    HandleUser: gate.SaveAccountAndRedirect,
//	}
//
//	mux := http.NewServeMux()
//	mux.Handle("/auth/login", localAuth)
//	mux.Handle("/auth/register", http.HandlerFunc(localAuth.HandleRegister))
//	mux.Handle("/auth/", http.StripPrefix("/auth", gate.Handler()))
//
// OAuth providers mount the same way via gate.AddAuth and the oauth2
// subpackage; their callbacks resolve the provider profile through the
// gate's Resolver before establishing session and token.
//
// # Store Implementations
//
// The stores package provides a file-backed AccountStore suitable for
// development and tests. stores/gorm provides a GORM-backed store whose
// unique index on email is the uniqueness authority: concurrent signups
// for one address yield exactly one account, the loser seeing ErrEmailTaken.
//
// # Security
//
// Passwords are hashed with bcrypt and never logged, in plaintext or hashed
// form. Sessions hold only the account id and re-fetch the account on every
// request. Tokens are HS256 JWTs verified against a process-wide secret;
// tampering and expiry degrade the request to anonymous, never to a crash.
package authgate
