/*
Package users manages CityFix accounts: citizen registration and login,
profile edits, staff administration and blocking.

# Accounts

There are three roles. Citizens sign up through Register and receive a
session (public user plus access token). Staff and admins are created by
admins, by `cityfix admin create`, or declaratively with `cityfix apply`.

Emails are trimmed, lower-cased and unique across all roles; the store
keeps a users_by_email index that enforces this. Passwords are hashed with
bcrypt through auth.Hasher and must be 6 to 72 bytes. Every user returned
by this package is a Public copy without the password hash.

# Administration

	CreateStaff / UpdateStaff / DeleteStaff   staff accounts only (ErrNotStaff)
	ListStaff / ListCitizens                  newest first
	SetBlocked                                citizens only (ErrNotCitizen)

Deleting a staff member leaves issues with their historical assignee.
Blocking publishes EventUserBlocked; blocked citizens can still sign in and
read, but the issues and messages services refuse their writes.

# Declarative Accounts

Apply creates the account when the email is unknown and otherwise refreshes
the profile of the existing account with the same role. It never changes an
existing password, so re-applying a manifest is safe:

	user, created, err := svc.Apply(types.RoleStaff, users.AccountInput{
		Name:     "Sam",
		Email:    "sam@cityfix.example",
		Password: "initial-secret",
	})
*/
package users
