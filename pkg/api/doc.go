// Package api defines the request and response messages of the tabsplit RPC
// services. Messages are encoded as JSON; see package apiconnect for the
// service handlers and clients.
package api
