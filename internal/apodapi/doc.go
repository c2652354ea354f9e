// Package apodapi talks to NASA's Astronomy Picture of the Day API.
//
// Client fetches the metadata record for a calendar date and downloads raw
// image bytes. Responses are decoded into a typed Metadata value and
// validated at the boundary, so malformed payloads surface as
// services.ErrRemote before they reach the cache. ParseDate enforces the
// published date range (1995-06-16 through today) for callers that accept
// user input.
package apodapi
