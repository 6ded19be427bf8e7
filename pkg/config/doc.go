// Package config loads the service configuration from HELPDESK_* environment
// variables and validates it.
//
// Server settings:
//
//	HELPDESK_HOST="0.0.0.0"
//	HELPDESK_PORT="8080"
//	HELPDESK_HEALTH_PORT="9090"
//	HELPDESK_READ_TIMEOUT="15s"
//	HELPDESK_COOKIE_SECURE="true"
//
// Session store:
//
//	HELPDESK_SESSION_STORE="redis"  # memory, redis
//	HELPDESK_SESSION_TTL="8h"
//	HELPDESK_REDIS_URL="redis://localhost:6379/0"
//
// Identity:
//
//	HELPDESK_ORG_DOMAIN="americor.com"
//	HELPDESK_ADMIN_USERS="a@americor.com,b@americor.com"
//	HELPDESK_DEV_FALLBACK="false"   # local development only
//
// Department mappings:
//
//	HELPDESK_DEPARTMENT_MAPPINGS="/etc/helpdesk/departments.yaml"
//	HELPDESK_DEPARTMENT_MAPPINGS_WATCH="true"
//
// Observability:
//
//	HELPDESK_LOG_LEVEL="info"
//	HELPDESK_METRICS_ENABLED="true"
//	HELPDESK_OTEL_ENABLED="false"
//	HELPDESK_OTEL_ENDPOINT="localhost:4317"
package config
