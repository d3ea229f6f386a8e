package instance

import "os"

// ID names the running process for log correlation: the platform dyno, an
// explicit WORKER_ID, the hostname, or "local".
func ID() string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
