package services

import "time"

const (
	KeySession            = "bart:session:%s"
	KeyParticipantSession = "bart:participant:%s:session"
	KeySessionTrials      = "bart:session:%s:trials"
	KeySessionEvents      = "bart:session:%s:events"
	KeyRateLimit          = "bart:ratelimit:%s:%s"

	TTLSession = 24 * time.Hour
	TTLTrials  = 7 * 24 * time.Hour
	TTLEvents  = 7 * 24 * time.Hour

	// A motivated participant can hit space a few times per second; anything
	// past this is a stuck key or a script.
	DefaultRateLimitPumps    = 600 // per minute
	DefaultRateLimitCashouts = 60  // per minute
)
