package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// LiveExamsKey returns the hash holding every live exam entry, keyed by exam ID
func (r *CacheKeyStruct) LiveExamsKey() string {
	return "live:exams"
}

// LiveEventsChannel returns the Redis PubSub channel for live registry changes
func (r *CacheKeyStruct) LiveEventsChannel() string {
	return "live:events"
}

// RateLimitKey returns the counter key for one client within one rate-limited scope
func (r *CacheKeyStruct) RateLimitKey(scope, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, clientIP)
}

var CacheKey = NewCacheKeyStruct()
