package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// DialogCall records one dialog shown through the substitute.
type DialogCall struct {
	Kind    string
	Message string
}

// Dialogs records dialogs instead of showing them.
type Dialogs struct {
	mu      sync.Mutex
	calls   []DialogCall
	confirm bool
}

// NewDialogs returns a recorder answering confirm dialogs with confirm.
func NewDialogs(confirm bool) *Dialogs {
	return &Dialogs{confirm: confirm}
}

// ShowMessageDialog records the call.
func (d *Dialogs) ShowMessageDialog(ctx context.Context, _ any, message any) error {
	return d.record(ctx, "message", message)
}

// ShowInternalMessageDialog records the call.
func (d *Dialogs) ShowInternalMessageDialog(ctx context.Context, _ any, message any) error {
	return d.record(ctx, "internal-message", message)
}

// ShowConfirmDialog records the call and returns the configured answer.
func (d *Dialogs) ShowConfirmDialog(ctx context.Context, _ any, message any) (bool, error) {
	if err := d.record(ctx, "confirm", message); err != nil {
		return false, err
	}

	return d.confirm, nil
}

// Calls returns the recorded calls in order.
func (d *Dialogs) Calls() []DialogCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.calls)
}

func (d *Dialogs) record(ctx context.Context, kind string, message any) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, DialogCall{Kind: kind, Message: fmt.Sprint(message)})

	return nil
}
