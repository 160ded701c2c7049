// Package config loads the auth service and gateway settings with viper.
//
// Values come from defaults, an optional config file and the environment, in
// increasing precedence. Every key can be set as CARNET_<SECTION>_<KEY>; the
// names the services were historically deployed with (JWT_SECRET,
// JWT_EXPIRES_IN, REFRESH_TOKEN_EXPIRES_IN, REDIS_URL, USER_SERVICE_URL, ...)
// are honoured as well.
package config
