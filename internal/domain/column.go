package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColumnKind tags how a column presents its value.
type ColumnKind string

const (
	ColumnKindText     ColumnKind = "text"
	ColumnKindBadge    ColumnKind = "badge"
	ColumnKindImage    ColumnKind = "image"
	ColumnKindEditable ColumnKind = "editable"
	ColumnKindCustom   ColumnKind = "custom"
)

// DefaultPlaceholder is shown by text columns for nil values.
const DefaultPlaceholder = "—"

// FormatFunc maps a raw value to its display value.
type FormatFunc func(value any, record Record) any

// SaveFunc persists an inline edit.
type SaveFunc func(ctx context.Context, record Record, value any) error

// TextOptions configure text columns.
type TextOptions struct {
	Copyable    bool
	Limit       int
	Placeholder string
}

// BadgeOptions map values to colors and icons.
type BadgeOptions struct {
	Colors map[string]string
	Icons  map[string]string
	Size   string
}

// ImageOptions configure image columns.
type ImageOptions struct {
	Size         string
	Circular     bool
	DefaultImage string
	// NameField names the attribute used for the generated avatar.
	NameField string
}

// EditableOptions configure inline editing.
type EditableOptions struct {
	InputType string
	Options   []Option
	Rules     string
	OnSave    SaveFunc
}

// Column binds a field path to its presentation.
type Column struct {
	Field            string
	Label            string
	Kind             ColumnKind
	Sortable         bool
	Searchable       bool
	Hidden           bool
	HiddenFunc       func() bool
	ResponsiveHidden []string
	Format           FormatFunc
	View             string
	Text             *TextOptions
	Badge            *BadgeOptions
	Image            *ImageOptions
	Editable         *EditableOptions
	Gate             Gate
}

func newColumn(kind ColumnKind, field string) Column {
	return Column{Field: field, Label: Headline(field), Kind: kind}
}

// TextColumn creates a plain text column.
func TextColumn(field string) Column {
	c := newColumn(ColumnKindText, field)
	c.Text = &TextOptions{}
	return c
}

// BadgeColumn creates a column rendered as a colored badge.
func BadgeColumn(field string) Column {
	c := newColumn(ColumnKindBadge, field)
	c.Badge = &BadgeOptions{}
	return c
}

// ImageColumn creates an image column.
func ImageColumn(field string) Column {
	c := newColumn(ColumnKindImage, field)
	c.Image = &ImageOptions{Size: "md", NameField: "name"}
	return c
}

// EditableColumn creates an inline editable column.
func EditableColumn(field string) Column {
	c := newColumn(ColumnKindEditable, field)
	c.Editable = &EditableOptions{InputType: "text"}
	return c
}

// CustomColumn creates a column rendered by a named view.
func CustomColumn(field, view string) Column {
	c := newColumn(ColumnKindCustom, field)
	c.View = view
	return c
}

func (c Column) WithLabel(label string) Column {
	c.Label = label
	return c
}

func (c Column) AsSortable() Column {
	c.Sortable = true
	return c
}

func (c Column) AsSearchable() Column {
	c.Searchable = true
	return c
}

func (c Column) AsHidden() Column {
	c.Hidden = true
	return c
}

// HideWhen computes hidden-ness lazily.
func (c Column) HideWhen(fn func() bool) Column {
	c.HiddenFunc = fn
	return c
}

// HideOn hides the column below the given breakpoints.
func (c Column) HideOn(breakpoints ...string) Column {
	c.ResponsiveHidden = append([]string(nil), breakpoints...)
	return c
}

func (c Column) WithFormat(fn FormatFunc) Column {
	c.Format = fn
	return c
}

func (c Column) WithView(view string) Column {
	c.View = view
	return c
}

func (c Column) WithGate(g Gate) Column {
	c.Gate = g
	return c
}

// WithLimit truncates text values longer than n bytes.
func (c Column) WithLimit(n int) Column {
	opts := c.textOptions()
	opts.Limit = n
	c.Text = &opts
	return c
}

func (c Column) WithPlaceholder(placeholder string) Column {
	opts := c.textOptions()
	opts.Placeholder = placeholder
	c.Text = &opts
	return c
}

func (c Column) AsCopyable() Column {
	opts := c.textOptions()
	opts.Copyable = true
	c.Text = &opts
	return c
}

func (c Column) WithColors(colors map[string]string) Column {
	opts := c.badgeOptions()
	opts.Colors = colors
	c.Badge = &opts
	return c
}

func (c Column) WithIcons(icons map[string]string) Column {
	opts := c.badgeOptions()
	opts.Icons = icons
	c.Badge = &opts
	return c
}

func (c Column) WithDefaultImage(url string) Column {
	opts := c.imageOptions()
	opts.DefaultImage = url
	c.Image = &opts
	return c
}

func (c Column) WithInputType(inputType string) Column {
	opts := c.editableOptions()
	opts.InputType = inputType
	c.Editable = &opts
	return c
}

func (c Column) WithRules(rules string) Column {
	opts := c.editableOptions()
	opts.Rules = rules
	c.Editable = &opts
	return c
}

func (c Column) WithEditOptions(options ...Option) Column {
	opts := c.editableOptions()
	opts.Options = append([]Option(nil), options...)
	c.Editable = &opts
	return c
}

func (c Column) OnSave(fn SaveFunc) Column {
	opts := c.editableOptions()
	opts.OnSave = fn
	c.Editable = &opts
	return c
}

func (c Column) textOptions() TextOptions {
	if c.Text == nil {
		return TextOptions{}
	}
	return *c.Text
}

func (c Column) badgeOptions() BadgeOptions {
	if c.Badge == nil {
		return BadgeOptions{}
	}
	return *c.Badge
}

func (c Column) imageOptions() ImageOptions {
	if c.Image == nil {
		return ImageOptions{Size: "md", NameField: "name"}
	}
	return *c.Image
}

func (c Column) editableOptions() EditableOptions {
	if c.Editable == nil {
		return EditableOptions{InputType: "text"}
	}
	return *c.Editable
}

// IsHidden reports static or computed hidden-ness.
func (c Column) IsHidden() bool {
	if c.HiddenFunc != nil {
		return c.HiddenFunc()
	}
	return c.Hidden
}

// IsEditable reports whether the column accepts inline edits.
func (c Column) IsEditable() bool {
	return c.Kind == ColumnKindEditable
}

// ResponsiveClasses returns the CSS classes hiding the column per breakpoint.
func (c Column) ResponsiveClasses() string {
	if len(c.ResponsiveHidden) == 0 {
		return ""
	}
	classes := make([]string, 0, len(c.ResponsiveHidden))
	for _, bp := range c.ResponsiveHidden {
		classes = append(classes, fmt.Sprintf("hidden %s:table-cell", bp))
	}
	return strings.Join(classes, " ")
}

// Value reads the raw value of the column from record.
func (c Column) Value(record Record) any {
	return record.Value(c.Field)
}

// Display returns the value shown for record.
func (c Column) Display(record Record) any {
	value := c.Value(record)
	if c.Format != nil {
		return c.Format(value, record)
	}
	return c.formatValue(value, record)
}

func (c Column) formatValue(value any, record Record) any {
	switch c.Kind {
	case ColumnKindText:
		opts := c.textOptions()
		if value == nil {
			if opts.Placeholder != "" {
				return opts.Placeholder
			}
			return DefaultPlaceholder
		}
		s := fmt.Sprint(value)
		if opts.Limit > 0 && len(s) > opts.Limit {
			return truncate(s, opts.Limit) + "..."
		}
		return s
	case ColumnKindImage:
		if value != nil && value != "" {
			return value
		}
		opts := c.imageOptions()
		if opts.DefaultImage != "" {
			return opts.DefaultImage
		}
		name := "User"
		if v, ok := record.Attribute(opts.NameField); ok && v != nil && v != "" {
			name = fmt.Sprint(v)
		}
		return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name)
	default:
		return value
	}
}

// BadgeColor returns the configured color for value, "gray" by default.
func (c Column) BadgeColor(value any) string {
	if color, ok := c.badgeOptions().Colors[fmt.Sprint(value)]; ok {
		return color
	}
	return "gray"
}

// BadgeIcon returns the configured icon for value, or "".
func (c Column) BadgeIcon(value any) string {
	return c.badgeOptions().Icons[fmt.Sprint(value)]
}

// Save persists an inline edit through the column callback or a single field
// update on the source.
func (c Column) Save(ctx context.Context, source Source, record Record, value any) error {
	if opts := c.editableOptions(); opts.OnSave != nil {
		return opts.OnSave(ctx, record, value)
	}
	if err := source.Update(ctx, record.ID, c.Field, value); err != nil {
		return fmt.Errorf("failed to update %s on record %s: %w", c.Field, record.ID, err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var titleCaser = cases.Title(language.Und)

// Headline turns a field path into a human label: "user.company_name" becomes
// "User Company Name".
func Headline(field string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(field)
	for i, r := range runes {
		switch {
		case r == '.' || r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return titleCaser.String(strings.Join(words, " "))
}
