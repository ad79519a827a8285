package auth

import "time"

// SetClock overrides the issuer's clock for tests.
func (ti *TokenIssuer) SetClock(now func() time.Time) { ti.now = now }
