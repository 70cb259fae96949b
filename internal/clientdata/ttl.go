package clientdata

import "time"

// TTL constants for cached provider responses.
const (
	TTLSymbolSearch   = 24 * time.Hour     // symbol directory changes rarely
	TTLCompanyProfile = 7 * 24 * time.Hour // company names
)
