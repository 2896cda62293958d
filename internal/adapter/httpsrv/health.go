package httpsrv

import (
	"net/http"
)

// HealthFunc reports whether the process can serve checks. A nil HealthFunc
// is always healthy.
type HealthFunc func() error

func healthHandler(check HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))

				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
