package translator

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	LanguageEn = "en"
	LanguageZh = "zh"
)

//go:embed locales/*.toml
var localeFS embed.FS

var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	tag       language.Tag
	logger    *zap.Logger
}

func New(locale string, logger *zap.Logger) (*Translator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}
	for _, name := range files {
		raw, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("translator: read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(raw, path.Base(name)); err != nil {
			return nil, fmt.Errorf("translator: parse %s: %w", name, err)
		}
	}

	tag := Match(locale)
	return &Translator{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), LanguageEn),
		tag:       tag,
		logger:    logger,
	}, nil
}

// Match maps a free-form locale ("zh-CN", "en_US.UTF-8") to a supported tag.
func Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	_, idx, _ := matcher.Match(language.Make(locale))
	return supported[idx]
}

func (t *Translator) Tag() language.Tag {
	return t.tag
}

// T returns the message for id, or id itself when no translation exists.
func (t *Translator) T(id string, data map[string]any) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		t.logger.Warn("translation not found", zap.String("lang", t.tag.String()), zap.String("message_id", id), zap.Error(err))
		return id
	}
	return msg
}

// N is T with plural selection on count. count is also available to the
// template as .Count.
func (t *Translator) N(id string, count int, data map[string]any) string {
	merged := map[string]any{"Count": count}
	for k, v := range data {
		merged[k] = v
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: merged, PluralCount: count})
	if err != nil {
		t.logger.Warn("translation not found", zap.String("lang", t.tag.String()), zap.String("message_id", id), zap.Error(err))
		return id
	}
	return msg
}
