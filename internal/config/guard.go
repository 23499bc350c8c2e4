package config

import (
	"log"
	"time"
	_ "time/tzdata" // GUARD_TIMEZONE must resolve on hosts without a zoneinfo database
)

// TimestampLayout is the ddMMyyyyHHmmss layout of the Timestamp header.
const TimestampLayout = "02012006150405"

// GuardConfig configures the signed-request guard on the quote API: how far
// a Timestamp header may drift from the server clock, in which zone it is
// written and how long a Ref stays claimed.
type GuardConfig struct {
	Secret    string
	Location  *time.Location
	Tolerance time.Duration
	RefTTL    time.Duration
	RefPrefix string
}

func LoadGuardConfig(secret string) GuardConfig {
	name := envStr("GUARD_TIMEZONE", "Asia/Singapore")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid GUARD_TIMEZONE %q: %v", name, err)
	}
	return GuardConfig{
		Secret:    envStr("GUARD_SECRET", secret),
		Location:  loc,
		Tolerance: envDur("GUARD_TOLERANCE", 10*time.Second),
		RefTTL:    envDur("GUARD_REF_TTL", 10*time.Minute),
		RefPrefix: envStr("GUARD_REF_PREFIX", "ref"),
	}
}
