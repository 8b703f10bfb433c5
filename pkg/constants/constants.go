package constants

type ContextKey string

const (
	AppKey      ContextKey = "app"
	LoggerKey   ContextKey = "logger"
	ParamsKey   ContextKey = "params"
	PoolKey     ContextKey = "pool"
	TxKey       ContextKey = "tx"
	TenantIDKey ContextKey = "tenantID"
)
