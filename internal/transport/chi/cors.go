package chi

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS policy. Browsers call the API directly with an anon key, so every
// origin is allowed and the header set is fixed.
var corsOptions = cors.Options{
	AllowedOrigins:     []string{"*"},
	AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	AllowedHeaders:     []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
	OptionsPassthrough: true,
}

// CORSMiddleware applies the CORS policy and answers every OPTIONS request
// with 200 "ok" without reaching the routes.
func CORSMiddleware(next http.Handler) http.Handler {
	return cors.Handler(corsOptions)(answerOptions(next))
}

func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
