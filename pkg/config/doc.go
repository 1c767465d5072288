// Package config loads client and coordinator configuration from YAML
// files.
//
// Durations are written as Go duration strings:
//
//	coordinator_address: "10.0.0.5:7650"
//	bypass_identity_check: false
//	handshake_timeout: 5s
//	max_frame_size: 1048576
//	backoff:
//	  flat_count: 5
//	  initial_delay: 1s
//	  max_delay: 30s
//	protocol_log: /var/log/pomegranate/client.plog
//
// Unset fields keep the defaults applied by pkg/connection.
package config
