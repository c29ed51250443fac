package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/tablekit/internal/auth"
	"github.com/rpattn/tablekit/internal/domain"
)

// ErrPresetsDisabled is returned by preset operations on a table without
// presets.
var ErrPresetsDisabled = errors.New("presets are not enabled")

// UpdateCell validates value against the column rules and saves it. Only
// editable columns accept edits, and the column gate must authorize the
// record. A missing record or a field without an editable column is a no-op.
func (e *Engine) UpdateCell(ctx context.Context, recordID, field string, value any) error {
	column, ok := e.def.Column(field)
	if !ok || !column.IsEditable() {
		e.logger.Printf("[table] ignoring edit of %s on record %s: no editable column", field, recordID)
		return nil
	}

	record, found, err := e.findRecord(ctx, recordID)
	if err != nil || !found {
		return err
	}
	if err := column.Gate.Check(&record); err != nil {
		return err
	}

	if column.Editable != nil && column.Editable.Rules != "" {
		result := e.validator.Validate(field, value, column.Editable.Rules)
		if !result.IsValid {
			return &domain.ValidationError{Field: field, Messages: result.Messages()}
		}
	}

	if err := column.Save(ctx, e.def.Source(), record, value); err != nil {
		return err
	}
	e.emit(EventCellUpdated, map[string]any{"id": recordID, "field": field, "value": value})
	return nil
}

// ExecuteAction runs a record action after checking its gate. An unknown
// action or a missing record is a no-op.
func (e *Engine) ExecuteAction(ctx context.Context, name, recordID string) error {
	action, ok := e.def.Action(name)
	if !ok {
		e.logger.Printf("[table] ignoring unknown action %q", name)
		return nil
	}
	record, found, err := e.findRecord(ctx, recordID)
	if err != nil || !found {
		return err
	}
	if err := action.Gate.Check(&record); err != nil {
		return err
	}
	if err := action.Execute(ctx, record); err != nil {
		return fmt.Errorf("action %s failed: %w", name, err)
	}
	e.emit(EventActionExecuted, map[string]any{"action": name, "id": recordID})
	return nil
}

// ExecuteBulkAction runs a bulk action on the selected records. Records the
// gate hides or denies are skipped, and an unknown action is a no-op. The
// returned state has an empty selection.
func (e *Engine) ExecuteBulkAction(ctx context.Context, name string, state domain.ViewState) (domain.ViewState, error) {
	action, ok := e.def.BulkAction(name)
	if !ok {
		e.logger.Printf("[table] ignoring unknown bulk action %q", name)
		return state, nil
	}
	if !action.Gate.IsVisible(nil) {
		return state, fmt.Errorf("bulk action %s: %w", name, domain.ErrNotAuthorized)
	}
	if len(state.Selected) == 0 {
		return state, nil
	}

	records, err := e.def.Source().FindMany(ctx, state.Selected)
	if err != nil {
		return state, fmt.Errorf("failed to load selected records: %w", err)
	}
	allowed := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if action.Gate.Check(&record) != nil {
			e.logger.Printf("[table] bulk action %s skipping record %s: not authorized", name, record.ID)
			continue
		}
		allowed = append(allowed, record)
	}

	if err := action.Execute(ctx, allowed); err != nil {
		return state, fmt.Errorf("bulk action %s failed: %w", name, err)
	}
	e.emit(EventBulkActionExecuted, map[string]any{"action": name, "ids": domain.RecordIDs(allowed)})
	return state.ClearSelection(), nil
}

// SelectAllOnPage toggles selection of every record on the current page:
// when all are already selected the selection is cleared.
func (e *Engine) SelectAllOnPage(ctx context.Context, state domain.ViewState) (domain.ViewState, error) {
	state = e.NormalizeState(state)
	result, err := e.pipeline.Run(ctx, e.def, state)
	if err != nil {
		return state, fmt.Errorf("failed to load page for selection: %w", err)
	}
	if state.AllSelected {
		return state.ClearSelection(), nil
	}
	return state.SelectAll(result.Page.IDs()), nil
}

// SavePreset snapshots the state's filters for the owner in ctx.
func (e *Engine) SavePreset(ctx context.Context, name string, state domain.ViewState, makeDefault bool) (domain.FilterPreset, error) {
	owner, err := e.requirePresetOwner(ctx)
	if err != nil {
		return domain.FilterPreset{}, err
	}
	preset, err := e.presets.Save(ctx, owner, e.def.Name(), name, state.Filters, makeDefault)
	if err != nil {
		return domain.FilterPreset{}, err
	}
	e.emit(EventPresetSaved, map[string]any{"id": preset.ID.String(), "name": preset.Name})
	return preset, nil
}

// LoadPreset applies a preset of the owner in ctx to state.
func (e *Engine) LoadPreset(ctx context.Context, id uuid.UUID, state domain.ViewState) (domain.ViewState, error) {
	owner, err := e.requirePresetOwner(ctx)
	if err != nil {
		return state, err
	}
	next, err := e.presets.Load(ctx, owner, id, state)
	if err != nil {
		return state, err
	}
	e.emit(EventPresetLoaded, map[string]any{"id": id.String()})
	return next, nil
}

// DeletePreset removes a preset of the owner in ctx.
func (e *Engine) DeletePreset(ctx context.Context, id uuid.UUID, state domain.ViewState) (domain.ViewState, error) {
	owner, err := e.requirePresetOwner(ctx)
	if err != nil {
		return state, err
	}
	next, err := e.presets.Delete(ctx, owner, id, state)
	if err != nil {
		return state, err
	}
	e.emit(EventPresetDeleted, map[string]any{"id": id.String()})
	return next, nil
}

// findRecord loads the target of an edit or action. A missing record is
// reported as not found rather than as an error.
func (e *Engine) findRecord(ctx context.Context, id string) (domain.Record, bool, error) {
	record, err := e.def.Source().Find(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		e.logger.Printf("[table] ignoring missing record %s", id)
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return record, true, nil
}

func (e *Engine) requirePresetOwner(ctx context.Context) (string, error) {
	if e.presets == nil || !e.def.PresetsEnabled() {
		return "", fmt.Errorf("table %s: %w", e.tableName(), ErrPresetsDisabled)
	}
	return auth.RequireOwner(ctx)
}
