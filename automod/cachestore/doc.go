// Cache for short-lived platform lookups (eg, member hierarchy positions), stored as JSON strings with a fixed TTL and explicit purging.
//
// Includes an interface and implementations using redis and in-process memory. A miss is not an error: Get returns an empty string.
package cachestore
