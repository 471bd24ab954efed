// Package admin implements the operator command line for provisioning
// accounts: creating them and resetting their passwords.
//
// Commands:
//
//	create-account [-delete-enrollment] [-void] [-expires 2006-01-02] [username]
//	set-password [username]
//
// Missing usernames are prompted for. Passwords are always read from the
// terminal without echo and must be entered twice.
package admin
