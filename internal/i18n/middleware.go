package i18n

import "net/http"

// Middleware injects a localizer into every request context. The language
// comes from the lang query parameter, else Accept-Language, else fallback.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pref := fallback
			if q := r.URL.Query().Get("lang"); q != "" {
				pref = q
			} else if h := r.Header.Get("Accept-Language"); h != "" {
				pref = h
			}
			tag := Match(pref)
			ctx := WithLanguage(r.Context(), tag.String())
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
