/*
Package auth handles passwords, access tokens and request authentication.

Passwords are hashed with bcrypt (golang.org/x/crypto). Access tokens are
HS256 JWTs carrying the user ID as subject plus role and email claims.

Middleware reads "Authorization: Bearer <token>", verifies the token and
loads the account from storage, so blocking, deletion and role changes take
effect without waiting for the token to expire:

	r.With(mw.Authenticate).Get("/me", me)
	r.With(mw.Optional).Post("/contact", contact)
	r.With(mw.Authenticate, mw.RequireRole(types.RoleAdmin)).Get("/stats", stats)

Handlers read the caller with UserFrom(r.Context()).
*/
package auth
