// Package utils provides shared utility functions and constants
package utils

// ContextKeySession is the key used to store the session id in the echo context
const ContextKeySession = "session"

// CookieName is the name of the sealed session cookie
const CookieName = "IronTransfer"

// FlashCookieName carries a one-shot notice to the next page load
const FlashCookieName = "flash"
