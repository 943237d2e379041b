package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware は表示層のオリジンに対するCORSミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定でき、"*" はすべてのオリジンを許可する。
// 許可されたOriginのみをAccess-Control-Allow-Originに反映する。
// 資格情報（Cookie）は受け付けないため、Allow-Credentialsは設定しない。
// OPTIONSプリフライトリクエストには204で応答し、後続のハンドラーを呼ばない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := parseOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); origin != "" && allowed.permits(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Expose-Headers", "Retry-After")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originSet は許可されたオリジンの集合。
type originSet struct {
	any     bool
	origins map[string]struct{}
}

func parseOrigins(value string) originSet {
	set := originSet{origins: make(map[string]struct{})}
	for _, o := range strings.Split(value, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			set.any = true
		default:
			set.origins[o] = struct{}{}
		}
	}
	return set
}

func (s originSet) permits(origin string) bool {
	if s.any {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}
