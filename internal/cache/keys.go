package cache

// AliasKey returns the cache key holding the resolution payload for an alias.
func AliasKey(alias string) string { return "a:" + alias }

// AdminSessionKey returns the cache key holding an admin session record.
func AdminSessionKey(jti string) string { return "admin:session:" + jti }
