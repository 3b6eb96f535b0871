package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var jsonUnmarshal = json.Unmarshal

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

type localized struct {
	loc *i18n.Localizer
	tag language.Tag
}

var (
	mu          sync.RWMutex
	bundle      *i18n.Bundle
	defaultLang = language.English
)

// Init loads the translation bundle with lang as the fallback language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", jsonUnmarshal)

	// Load all locale files from embedded FS.
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	mu.Lock()
	bundle, defaultLang = b, tag
	mu.Unlock()
	return nil
}

func currentBundle() *i18n.Bundle {
	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b != nil {
		return b
	}
	if err := Init("en"); err != nil {
		panic(err)
	}
	mu.RLock()
	defer mu.RUnlock()
	return bundle
}

// Languages returns the languages that have a locale file.
func Languages() []language.Tag {
	return currentBundle().LanguageTags()
}

// Match picks the best supported language for the given preferences, which
// may be plain tags or Accept-Language values.
func Match(prefs ...string) language.Tag {
	tags := Languages()
	if len(tags) == 0 {
		return defaultLang
	}
	matcher := language.NewMatcher(tags)
	_, idx := language.MatchStrings(matcher, prefs...)
	return tags[idx]
}

// NewLocalizer creates a localizer for the given language.
func NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(currentBundle(), lang)
}

// WithLanguage stores a localizer for lang in the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	tag := Match(lang)
	return context.WithValue(ctx, ctxKey{}, localized{loc: NewLocalizer(tag.String()), tag: tag})
}

// localizerFromCtx retrieves the localizer from context.
func localizerFromCtx(ctx context.Context) localized {
	if l, ok := ctx.Value(ctxKey{}).(localized); ok {
		return l
	}
	// Fallback: the bundle's default language.
	b := currentBundle()
	mu.RLock()
	tag := defaultLang
	mu.RUnlock()
	return localized{loc: i18n.NewLocalizer(b, tag.String()), tag: tag}
}

// Lang returns the language carried by ctx.
func Lang(ctx context.Context) language.Tag {
	return localizerFromCtx(ctx).tag
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return Td(ctx, msgID, nil)
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	s, err := localizerFromCtx(ctx).loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	s, err := localizerFromCtx(ctx).loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

var dateLayouts = map[string]string{
	"en": "Jan 2, 2006",
	"vi": "02/01/2006",
}

// Date formats a Unix millisecond timestamp as a local calendar date in the
// convention of the context language.
func Date(ctx context.Context, ms int64) string {
	base, _ := Lang(ctx).Base()
	layout, ok := dateLayouts[base.String()]
	if !ok {
		layout = time.DateOnly
	}
	return time.UnixMilli(ms).Format(layout)
}
