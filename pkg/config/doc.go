/*
Package config loads CityFix server settings.

Sources are layered, later ones winning:

 1. built-in defaults
 2. an optional YAML file passed with --config
 3. environment variables prefixed with CITYFIX_, dots replaced by
    underscores (CITYFIX_AUTH_JWT_SECRET, CITYFIX_PAYMENTS_BOOST_AMOUNT)

Command-line flags for the listen address and data directory are applied
by cmd/cityfix after Load. Example file:

	server:
	  addr: ":8080"
	  trust_proxy: false
	storage:
	  data_dir: /var/lib/cityfix
	auth:
	  jwt_secret: change-me
	  token_ttl: 24h
	quota:
	  free_issue_limit: 3
	payments:
	  stripe_secret_key: sk_test_...
	  premium_amount: 1000
	  boost_amount: 100
*/
package config
