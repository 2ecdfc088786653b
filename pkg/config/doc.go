/*
Package config loads the console configuration from YAML.

A file only needs the keys it changes; everything else keeps the value
from Default. Unknown keys are an error so that typos do not silently fall
back to defaults. Durations use Go syntax ("250ms", "2m").

	log:
	  level: info
	  json: false
	vehicle:
	  url: ws://localhost:8989/
	blobstore:
	  url: http://localhost:8585/
	  timeout: 30s
	  cache: true
	store:
	  throttle: 0s
	  expiration_window: 1m
	  frame_period: 100ms
	busstore:
	  period: 1s
	api:
	  http_addr: 127.0.0.1:9090
	  grpc_addr: 127.0.0.1:9091
	  allowed_ips: [10.0.0.0/8, 127.0.0.1]
	  rate_limit: 20
	data_dir: ./console-data

Command-line flags override the loaded values in cmd/console.
*/
package config
