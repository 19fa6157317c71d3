package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	textcatalog "golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the source locale every other locale falls back to.
const BaseLocale = "en"

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*/*.yaml
var localesFS embed.FS

var (
	supportedTags []language.Tag
	tagMatcher    language.Matcher
	builder       = mustLoad(localesFS)
)

func mustLoad(source fs.FS) *textcatalog.Builder {
	loaded, tags, err := load(source)
	if err != nil {
		panic(err)
	}
	supportedTags = tags
	tagMatcher = language.NewMatcher(tags)
	return loaded
}

func load(source fs.FS) (*textcatalog.Builder, []language.Tag, error) {
	paths, err := fs.Glob(source, "locales/*/*.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("glob locale files: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	base := language.Make(BaseLocale)
	loaded := textcatalog.NewBuilder(textcatalog.Fallback(base))
	tags := []language.Tag{base}
	seen := map[string]bool{BaseLocale: true}

	for _, file := range paths {
		data, err := fs.ReadFile(source, file)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", file, err)
		}
		var parsed localeFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", file, err)
		}
		locale := strings.TrimSpace(parsed.Locale)
		if locale != path.Base(path.Dir(file)) {
			return nil, nil, fmt.Errorf("%s: locale %q does not match its directory", file, parsed.Locale)
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: parse locale: %w", file, err)
		}
		for key, text := range parsed.Messages {
			if err := loaded.SetString(tag, key, text); err != nil {
				return nil, nil, fmt.Errorf("%s: set %q: %w", file, key, err)
			}
		}
		if !seen[locale] {
			seen[locale] = true
			tags = append(tags, tag)
		}
	}
	return loaded, tags, nil
}

// Locales returns the supported locales, base first.
func Locales() []string {
	out := make([]string, 0, len(supportedTags))
	for _, tag := range supportedTags {
		out = append(out, tag.String())
	}
	return out
}

// Renderer formats titles and messages for one locale.
type Renderer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewRenderer returns a renderer for the best supported match of locale.
// Unknown or empty locales render in English.
func NewRenderer(locale string) *Renderer {
	tag := supportedTags[0]
	if requested, err := language.Parse(strings.TrimSpace(locale)); err == nil {
		_, index, confidence := tagMatcher.Match(requested)
		if confidence != language.No {
			tag = supportedTags[index]
		}
	}
	return &Renderer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

// Locale reports the locale the renderer resolved to.
func (renderer *Renderer) Locale() string {
	return renderer.tag.String()
}

// Message renders the notification body for kind. Kill messages take the
// respawn delays in minutes as arguments.
func (renderer *Renderer) Message(kind Kind, args ...any) string {
	return renderer.printer.Sprintf(string(kind)+".message", args...)
}

// Title renders the notification title for kind.
func (renderer *Renderer) Title(kind Kind) string {
	return renderer.printer.Sprintf(string(kind) + ".title")
}
