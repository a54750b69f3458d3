// Package client talks to the gallery HTTP API and opens the client's local
// SQLite database.
//
// Every API response is the {success, message, data} envelope. Failed calls
// come back as *APIError, which unwraps to the matching error kind from
// package common, so callers can use errors.Is(err, common.ErrNotFound) and
// friends. Transport failures wrap ErrUnavailable.
package client
