package visitors

import "time"

// Hooks for the external visitors_test package.

func SetNow(s *Service, now func() time.Time) { s.now = now }

var ReferrerHost = referrerHost
