package domain

import "context"

// ActionKind tags how an action is triggered.
type ActionKind string

const (
	ActionKindDirect  ActionKind = "direct"
	ActionKindConfirm ActionKind = "confirm"
	ActionKindModal   ActionKind = "modal"
)

// ModalType selects the modal body.
type ModalType string

const (
	ModalTypeInfo         ModalType = "info"
	ModalTypeForm         ModalType = "form"
	ModalTypeConfirmation ModalType = "confirmation"
)

// Confirmation is the prompt shown before a confirmed action runs.
type Confirmation struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Modal describes the dialog opened by a modal action.
type Modal struct {
	Type        ModalType      `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	View        string         `json:"view,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Size        string         `json:"size"`
}

// NewInfoModal creates an informational modal.
func NewInfoModal(title, description string) Modal {
	return Modal{Type: ModalTypeInfo, Title: title, Description: description, Size: "md"}
}

// NewFormModal creates a modal rendering a form view with data.
func NewFormModal(title, view string, data map[string]any) Modal {
	return Modal{Type: ModalTypeForm, Title: title, View: view, Data: data, Size: "md"}
}

// WithSize returns the modal with a different size.
func (m Modal) WithSize(size string) Modal {
	m.Size = size
	return m
}

// ActionHandler runs an action against one record.
type ActionHandler func(ctx context.Context, record Record) error

// BulkActionHandler runs an action against a record collection.
type BulkActionHandler func(ctx context.Context, records []Record) error

// Action is a per-record operation.
type Action struct {
	Name         string
	Label        string
	Icon         string
	Color        string
	Kind         ActionKind
	Confirmation *Confirmation
	Modal        *Modal
	Handler      ActionHandler
	Gate         Gate
}

// NewAction creates a direct action labelled from its name.
func NewAction(name string) Action {
	return Action{Name: name, Label: Headline(name), Color: "primary", Kind: ActionKindDirect}
}

func (a Action) WithLabel(label string) Action {
	a.Label = label
	return a
}

func (a Action) WithIcon(icon string) Action {
	a.Icon = icon
	return a
}

func (a Action) WithColor(color string) Action {
	a.Color = color
	return a
}

func (a Action) WithHandler(fn ActionHandler) Action {
	a.Handler = fn
	return a
}

func (a Action) WithGate(g Gate) Action {
	a.Gate = g
	return a
}

// RequireConfirmation turns the action into a confirmed action. Empty title
// and text fall back to the defaults.
func (a Action) RequireConfirmation(title, text string) Action {
	a.Kind = ActionKindConfirm
	a.Confirmation = newConfirmation(title, text)
	return a
}

// WithModal turns the action into a modal action.
func (a Action) WithModal(m Modal) Action {
	a.Kind = ActionKindModal
	a.Modal = &m
	return a
}

// Execute runs the handler. A nil handler is a no-op.
func (a Action) Execute(ctx context.Context, record Record) error {
	if a.Handler == nil {
		return nil
	}
	return a.Handler(ctx, record)
}

// BulkAction is an action over the selected records.
type BulkAction struct {
	Name         string
	Label        string
	Icon         string
	Color        string
	Kind         ActionKind
	Confirmation *Confirmation
	Modal        *Modal
	Handler      BulkActionHandler
	Gate         Gate
}

// NewBulkAction creates a direct bulk action labelled from its name.
func NewBulkAction(name string) BulkAction {
	return BulkAction{Name: name, Label: Headline(name), Color: "primary", Kind: ActionKindDirect}
}

func (a BulkAction) WithLabel(label string) BulkAction {
	a.Label = label
	return a
}

func (a BulkAction) WithIcon(icon string) BulkAction {
	a.Icon = icon
	return a
}

func (a BulkAction) WithColor(color string) BulkAction {
	a.Color = color
	return a
}

func (a BulkAction) WithHandler(fn BulkActionHandler) BulkAction {
	a.Handler = fn
	return a
}

func (a BulkAction) WithGate(g Gate) BulkAction {
	a.Gate = g
	return a
}

func (a BulkAction) RequireConfirmation(title, text string) BulkAction {
	a.Kind = ActionKindConfirm
	a.Confirmation = newConfirmation(title, text)
	return a
}

func (a BulkAction) WithModal(m Modal) BulkAction {
	a.Kind = ActionKindModal
	a.Modal = &m
	return a
}

// Execute runs the handler. A nil handler is a no-op.
func (a BulkAction) Execute(ctx context.Context, records []Record) error {
	if a.Handler == nil {
		return nil
	}
	return a.Handler(ctx, records)
}

func newConfirmation(title, text string) *Confirmation {
	if title == "" {
		title = "Really?"
	}
	if text == "" {
		text = "This action cannot be undone."
	}
	return &Confirmation{Title: title, Text: text}
}
