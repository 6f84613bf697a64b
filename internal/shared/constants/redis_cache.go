package constants

import (
	"fmt"
	"time"
)

// Redis key layout for the flightbook application
// Pattern: flightbook:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour    // 1 hour - for flight listings
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute // 15 minutes - for flight details
	TTL_DYNAMIC_QUICK     = 2 * time.Minute  // 2 minutes - for seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "flightbook"
)

// ================== FLIGHTS MODULE ==================

const (
	CACHE_KEY_FLIGHTS_LIST   = CACHE_PREFIX + ":flights:list"          // + :page:X:limit:Y:origin:A:destination:B
	CACHE_KEY_FLIGHT_DETAIL  = CACHE_PREFIX + ":flights:detail:uuid:"  // + flight-id
	CACHE_KEY_FLIGHT_SEATMAP = CACHE_PREFIX + ":flights:seatmap:uuid:" // + flight-id
)

const (
	TTL_FLIGHT_LIST    = TTL_SEMI_STATIC_SHORT
	TTL_FLIGHT_DETAIL  = TTL_SEMI_STATIC_QUICK
	TTL_FLIGHT_SEATMAP = TTL_DYNAMIC_QUICK
)

// ================== RESERVATIONS MODULE ==================

const (
	// Lease held by the instance currently running the expiry sweep
	LOCK_KEY_RESERVATION_SWEEPER = CACHE_PREFIX + ":reservations:sweeper:lock"
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":rate_limit"
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_FLIGHTS_LIST = CACHE_KEY_FLIGHTS_LIST + ":*"
)

// ================== HELPER FUNCTIONS ==================

// BuildFlightListKey -> "flightbook:flights:list:page:1:limit:10:origin:LHR:destination:JFK"
func BuildFlightListKey(page, limit int, origin, destination string) string {
	return fmt.Sprintf("%s:page:%d:limit:%d:origin:%s:destination:%s", CACHE_KEY_FLIGHTS_LIST, page, limit, origin, destination)
}

func BuildFlightDetailKey(flightID string) string {
	return CACHE_KEY_FLIGHT_DETAIL + flightID
}

func BuildSeatMapKey(flightID string) string {
	return CACHE_KEY_FLIGHT_SEATMAP + flightID
}
