package core

import (
	"context"
	"strings"
)

// Reconciler syncs single lines of a LineStore with the backend. Each line
// goes through its own state machine:
//
//	UNSAVED -> SAVING -> SAVED
//	SAVING  -> ERROR  (retry by saving again)
//	SAVED   -> DELETING -> removed
//	DELETING -> SAVED  (delete failed, line stays with the message)
//
// Calls on different lines are independent; a second call on a line that is
// already in flight is refused with ErrLineBusy. Failures never touch other lines.
type Reconciler struct {
	store    *LineStore
	api      DetailAPI
	parent   func() string
	notifier Notifier
}

// NewReconciler wires a store to a backend. parent returns the header's
// persisted id, or "" while the header is unsaved.
func NewReconciler(store *LineStore, api DetailAPI, parent func() string, notifier Notifier) *Reconciler {
	if notifier == nil {
		notifier = Discard
	}
	return &Reconciler{store: store, api: api, parent: parent, notifier: notifier}
}

// SaveRow validates the line, then creates it (no server reference) or
// updates it (server reference present). A successful create stores the
// server-issued reference on the line in place.
func (r *Reconciler) SaveRow(ctx context.Context, localID int64) error {
	var (
		parentRef string
		class     Classification
	)
	line, err := r.store.begin(localID, LineSaving, func(l DetailLine) error {
		if err := Validate(r.store.Profile(), l); err != nil {
			return err
		}
		parentRef = r.parent()
		if parentRef == "" {
			return &MissingParentError{LocalID: localID}
		}
		class = Classify(l)
		return nil
	})
	if err != nil {
		return r.reject(localID, err)
	}

	fields := line.Fields()
	fields.ParentRef = parentRef

	var serverRef string
	if class == ClassExisting {
		err = r.api.UpdateDetailLine(ctx, line.Ref(), parentRef, fields)
	} else {
		fields.ServerRef = nil
		var created *CreatedLine
		created, err = r.api.CreateDetailLine(ctx, parentRef, fields)
		if err == nil {
			if created == nil || strings.TrimSpace(created.ServerRef) == "" {
				err = &RemoteError{Op: "create detail line", Message: "server returned no line reference"}
			} else {
				serverRef = strings.TrimSpace(created.ServerRef)
			}
		}
	}

	if err != nil {
		rerr := asRemoteError(saveOp(class), err, "failed to save line")
		if r.store.finish(localID, LineError, rerr.Message, "") {
			r.notifier.Notify(Notification{Level: NotifyError, LocalID: localID, Message: rerr.Message})
		}
		return rerr
	}

	if r.store.finish(localID, LineSaved, "", serverRef) {
		r.notifier.Notify(Notification{Level: NotifySuccess, LocalID: localID, Message: "line saved"})
	}
	return nil
}

// DeleteRow removes a line. Lines never persisted are dropped locally without
// a network call; persisted lines are deleted remotely first and stay in place
// if that fails.
func (r *Reconciler) DeleteRow(ctx context.Context, localID int64) error {
	current, ok := r.store.Get(localID)
	if !ok {
		return r.reject(localID, &NotFoundError{LocalID: localID})
	}
	if Classify(current) == ClassNew {
		if err := r.store.Remove(localID); err != nil {
			return r.reject(localID, err)
		}
		r.notifier.Notify(Notification{Level: NotifySuccess, LocalID: localID, Message: "line removed"})
		return nil
	}

	line, err := r.store.begin(localID, LineDeleting, nil)
	if err != nil {
		return r.reject(localID, err)
	}

	if err := r.api.DeleteDetailLine(ctx, line.Ref()); err != nil {
		rerr := asRemoteError("delete detail line", err, "failed to delete line")
		// The row is still persisted, so it settles back to SAVED.
		if r.store.finish(localID, LineSaved, rerr.Message, "") {
			r.notifier.Notify(Notification{Level: NotifyError, LocalID: localID, Message: rerr.Message})
		}
		return rerr
	}

	if r.store.finishRemove(localID) {
		r.notifier.Notify(Notification{Level: NotifySuccess, LocalID: localID, Message: "line deleted"})
	}
	return nil
}

func (r *Reconciler) reject(localID int64, err error) error {
	r.notifier.Notify(Notification{Level: NotifyError, LocalID: localID, Message: UserMessage(err)})
	return err
}

func saveOp(c Classification) string {
	if c == ClassExisting {
		return "update detail line"
	}
	return "create detail line"
}
