package console

import (
	"context"
	"errors"
)

// DialogState is the lifecycle position of a create or edit dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
)

func (s DialogState) String() string {
	switch s {
	case DialogClosed:
		return "closed"
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// ErrDialogNotOpen is returned when submitting a dialog that is closed or
// already submitting.
var ErrDialogNotOpen = errors.New("dialog is not open")

type draft interface {
	CreateDraft | EditDraft
}

// Dialog owns one draft for the lifetime of the dialog:
//
//	closed -> open -> submitting -> closed   (success)
//	                  submitting -> open     (failure, message set)
//
// Closing or cancelling discards the draft.
type Dialog[D draft] struct {
	op       Operation
	state    DialogState
	draft    D
	message  string
	validate func(D) error
}

// CreateDialog is the create-incident dialog.
type CreateDialog = Dialog[CreateDraft]

// EditDialog is the edit-incident dialog.
type EditDialog = Dialog[EditDraft]

// NewCreateDialog returns a closed create dialog.
func NewCreateDialog() *CreateDialog {
	return &CreateDialog{
		op: OpCreate,
		validate: func(d CreateDraft) error {
			_, err := d.Request()
			return err
		},
	}
}

// NewEditDialog returns a closed edit dialog.
func NewEditDialog() *EditDialog {
	return &EditDialog{
		op: OpUpdate,
		validate: func(d EditDraft) error {
			_, err := d.Request()
			return err
		},
	}
}

// Open shows the dialog seeded with d.
func (dlg *Dialog[D]) Open(d D) {
	dlg.state = DialogOpen
	dlg.draft = d
	dlg.message = ""
}

// Cancel closes the dialog and discards the draft.
func (dlg *Dialog[D]) Cancel() {
	var zero D
	dlg.state = DialogClosed
	dlg.draft = zero
	dlg.message = ""
}

// State returns the current state.
func (dlg *Dialog[D]) State() DialogState {
	return dlg.state
}

// Message is the error shown after a failed submit.
func (dlg *Dialog[D]) Message() string {
	return dlg.message
}

// Draft returns the editable draft, or nil unless the dialog is open.
func (dlg *Dialog[D]) Draft() *D {
	if dlg.state != DialogOpen {
		return nil
	}
	return &dlg.draft
}

// Begin validates the draft and moves to submitting. A validation error
// keeps the dialog open with the message set.
func (dlg *Dialog[D]) Begin() (D, error) {
	if dlg.state != DialogOpen {
		var zero D
		return zero, ErrDialogNotOpen
	}
	if err := dlg.validate(dlg.draft); err != nil {
		dlg.message = UserMessage(dlg.op, err)
		var zero D
		return zero, err
	}
	dlg.state = DialogSubmitting
	dlg.message = ""
	return dlg.draft, nil
}

// Finish ends a submit: success closes and discards the draft, failure
// returns to open with the user message set so the user can retry or
// cancel.
func (dlg *Dialog[D]) Finish(err error) {
	if dlg.state != DialogSubmitting {
		return
	}
	if err == nil {
		dlg.Cancel()
		return
	}
	dlg.state = DialogOpen
	dlg.message = UserMessage(dlg.op, err)
}

// Submit runs Begin, fn and Finish in one call.
func (dlg *Dialog[D]) Submit(ctx context.Context, fn func(context.Context, D) error) error {
	d, err := dlg.Begin()
	if err != nil {
		return err
	}
	err = fn(ctx, d)
	dlg.Finish(err)
	return err
}
