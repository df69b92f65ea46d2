// Package services holds the OAuth session state machine and the
// collection accessor that sit between the Discogs client and the CLI, TUI
// and web front ends.
//
// # Session Manager
//
// [SessionManager] walks the three-legged OAuth 1.0a handshake:
//
//	Unauthenticated -> TokenCheck -> Authenticated
//	                             \-> RequestingToken -> AwaitingAuthorization -> ExchangingToken -> Authenticated
//
// [SessionManager.Authenticate] tries a stored token pair. Without one it
// returns [shared.ErrAuthorizationRequired] and the caller starts the
// handshake with [SessionManager.Begin]. The returned [models.PendingAuth]
// is the only state that must survive until [SessionManager.Complete]: the
// web app keeps it in the browser session, [SessionManager.ConsoleFlow]
// keeps it on the stack while a [VerifierSource] waits for the user.
//
// # Collection Accessor
//
// [CollectionAccessor] lists folders, folder releases and single releases
// as flat [models.Release] values. Nothing is cached.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrValidation] : consumer key or secret missing
//   - [shared.ErrConnection] : transport or protocol failure, including handshake failures
//   - [shared.ErrAuthState] : callback without verifier, token mismatch, or nothing pending
//   - [shared.ErrNotFound] : folder or release does not exist
//   - [shared.ErrDataShape] : release payload lacks title or artists
package services
