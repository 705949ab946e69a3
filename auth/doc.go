// Package auth implements the platform credential source: an OAuth2 client
// credentials flow with in-process token caching and renewal ahead of expiry.
package auth
