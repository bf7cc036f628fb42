package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "promulher"
)

const (
	RedisKeyAuditStats    = RedisNamespace + ":audit:stats"
	RedisKeyRetentionLock = RedisNamespace + ":lock:retention"
)
