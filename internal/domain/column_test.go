package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	company := NewRecord("c1", map[string]any{"name": "Acme"})
	user := NewRecord("u1", map[string]any{"name": "Ada"}).WithRelated("company", One(&company))
	return NewRecord("p1", map[string]any{
		"title":  "A rather long title",
		"status": "draft",
		"avatar": nil,
		"name":   "Grace Hopper",
	}).
		WithRelated("user", One(&user)).
		WithRelated("tags", Many(
			NewRecord("t1", map[string]any{"label": "go"}),
			NewRecord("t2", map[string]any{"label": "sql"}),
		))
}

func TestHeadline(t *testing.T) {
	assert.Equal(t, "User Company Name", Headline("user.company_name"))
	assert.Equal(t, "Created At", Headline("createdAt"))
	assert.Equal(t, "Email", Headline("email"))
}

func TestColumnValueWalksRelations(t *testing.T) {
	record := sampleRecord()

	assert.Equal(t, "Acme", TextColumn("user.company.name").Value(record))
	assert.Equal(t, []any{"go", "sql"}, TextColumn("tags.label").Value(record))
	assert.Nil(t, TextColumn("missing.name").Value(record))
	assert.Equal(t, "p1", TextColumn("id").Value(record))
}

func TestTextColumnDisplay(t *testing.T) {
	record := sampleRecord()

	assert.Equal(t, DefaultPlaceholder, TextColumn("avatar").Display(record))
	assert.Equal(t, "n/a", TextColumn("avatar").WithPlaceholder("n/a").Display(record))
	assert.Equal(t, "A rather...", TextColumn("title").WithLimit(8).Display(record))
	assert.Equal(t, "A rather long title", TextColumn("title").WithLimit(100).Display(record))
}

func TestFormatOverridesKind(t *testing.T) {
	col := TextColumn("status").WithFormat(func(value any, record Record) any {
		return record.ID + ":" + value.(string)
	})
	assert.Equal(t, "p1:draft", col.Display(sampleRecord()))
}

func TestBadgeColumn(t *testing.T) {
	col := BadgeColumn("status").
		WithColors(map[string]string{"published": "green"}).
		WithIcons(map[string]string{"published": "check"})

	assert.Equal(t, "green", col.BadgeColor("published"))
	assert.Equal(t, "gray", col.BadgeColor("draft"))
	assert.Equal(t, "check", col.BadgeIcon("published"))
	assert.Equal(t, "", col.BadgeIcon("draft"))
	assert.Equal(t, "draft", col.Display(sampleRecord()))
}

func TestImageColumnFallbacks(t *testing.T) {
	record := sampleRecord()

	assert.Equal(t, "https://ui-avatars.com/api/?name=Grace+Hopper", ImageColumn("avatar").Display(record))
	assert.Equal(t, "/default.png", ImageColumn("avatar").WithDefaultImage("/default.png").Display(record))

	anonymous := NewRecord("x", nil)
	assert.Equal(t, "https://ui-avatars.com/api/?name=User", ImageColumn("avatar").Display(anonymous))
}

func TestResponsiveClasses(t *testing.T) {
	assert.Equal(t, "", TextColumn("a").ResponsiveClasses())
	assert.Equal(t, "hidden sm:table-cell hidden md:table-cell", TextColumn("a").HideOn("sm", "md").ResponsiveClasses())
}

func TestEditableColumnSave(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord()
	source := &stubSource{}

	require.NoError(t, EditableColumn("title").Save(ctx, source, record, "New"))
	require.Len(t, source.updates, 1)
	assert.Equal(t, stubUpdate{id: "p1", field: "title", value: "New"}, source.updates[0])

	var saved any
	col := EditableColumn("title").OnSave(func(_ context.Context, r Record, value any) error {
		saved = value
		return errors.New("rejected")
	})
	err := col.Save(ctx, source, record, "Other")
	assert.EqualError(t, err, "rejected")
	assert.Equal(t, "Other", saved)
	assert.Len(t, source.updates, 1)
}

func TestColumnHidden(t *testing.T) {
	assert.True(t, TextColumn("a").AsHidden().IsHidden())
	assert.True(t, TextColumn("a").HideWhen(func() bool { return true }).IsHidden())
	assert.False(t, TextColumn("a").IsHidden())
}
