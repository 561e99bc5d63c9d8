package generic

import "time"

// Now returns the current UTC time. Package variable so tests can pin it.
var Now = func() time.Time { return time.Now().UTC() }
