// Package auth issues and validates bearer tokens for the HTTP API.
//
// Tokens are HS256-signed JWTs carrying a subject and a Role. There are no
// user accounts: tokens are minted by the operator with
// `graylogic-gather --issue-token` and validated by signature only.
//
// Three roles are defined (viewer → operator → admin) with a static
// role-permission mapping; see HasPermission.
package auth
