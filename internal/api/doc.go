// Package api assembles the mail administration REST API: the middleware
// chain, the bearer token guard and the routes for domains, mailboxes,
// aliases and usage statistics.
package api
