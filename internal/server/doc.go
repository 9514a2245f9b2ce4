// Package server hosts the Fiber HTTP service that exposes configured radio
// resources. It builds the resource registry from config (one fetcher per
// resource, carrying that resource's policy), attaches the request-ID and
// recover middlewares, and dispatches /api requests to the handler registered
// for the resource kind. Diagnostics routes live in the routes subpackage.
package server
