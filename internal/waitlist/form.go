// Package waitlist implements the "notify me" form shown for a sold-out size.
package waitlist

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
)

// DefaultConfirmDelay is how long the confirmation stays up before the form closes.
const DefaultConfirmDelay = 2500 * time.Millisecond

var (
	ErrEmailRequired = errors.New("email is required")
	ErrInvalidEmail  = errors.New("email is not a valid address")
	ErrSubmitFailed  = errors.New("could not join the waitlist, try again")
	ErrBusy          = errors.New("submission already in progress")
	ErrClosed        = errors.New("waitlist form is closed")
)

// Inserter writes waitlist rows.
type Inserter interface {
	InsertWaitlist(ctx context.Context, entry model.WaitlistEntry) error
}

type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateConfirmed  State = "confirmed"
	StateClosed     State = "closed"
)

// View is a read-only copy of the form.
type View struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	State       State  `json:"state"`
	Error       string `json:"error,omitempty"`
}

type Form struct {
	ins   Inserter
	delay time.Duration

	productID   int64
	productName string
	size        string

	mu    sync.Mutex
	email string
	phone string
	state State
	err   string
	timer *time.Timer
}

// Open returns a form in the editing state bound to one product and size.
func Open(ins Inserter, productID int64, productName, size string, confirmDelay time.Duration) *Form {
	if confirmDelay <= 0 {
		confirmDelay = DefaultConfirmDelay
	}
	return &Form{
		ins:         ins,
		delay:       confirmDelay,
		productID:   productID,
		productName: productName,
		size:        size,
		state:       StateEditing,
	}
}

// Submit validates the fields and inserts one waitlist row. On success the form is
// confirmed and closes itself after the confirmation delay. On failure it returns to
// editing with the entered values kept.
func (f *Form) Submit(ctx context.Context, email, phone string) error {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return ErrBusy
	case StateConfirmed, StateClosed:
		f.mu.Unlock()
		return ErrClosed
	}
	f.email = email
	f.phone = phone
	entry, err := f.entryLocked()
	if err != nil {
		f.err = err.Error()
		f.mu.Unlock()
		return err
	}
	f.state = StateSubmitting
	f.err = ""
	f.mu.Unlock()

	insertErr := f.ins.InsertWaitlist(ctx, entry)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return ErrClosed
	}
	if insertErr != nil {
		f.state = StateEditing
		f.err = ErrSubmitFailed.Error()
		obs.Logger.WithError(insertErr).WithFields(logrus.Fields{
			"product_id": f.productID,
			"size":       f.size,
		}).Warn("waitlist_submit_failed")
		return errors.Wrap(ErrSubmitFailed, insertErr.Error())
	}
	f.state = StateConfirmed
	f.timer = time.AfterFunc(f.delay, f.autoClose)
	obs.Logger.WithFields(logrus.Fields{
		"product_id": f.productID,
		"size":       f.size,
	}).Info("waitlist_joined")
	return nil
}

func (f *Form) entryLocked() (model.WaitlistEntry, error) {
	email := strings.TrimSpace(f.email)
	if email == "" {
		return model.WaitlistEntry{}, ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.WaitlistEntry{}, ErrInvalidEmail
	}
	entry := model.WaitlistEntry{
		ProductID:   f.productID,
		ProductName: f.productName,
		Size:        f.size,
		Email:       email,
	}
	if phone := strings.TrimSpace(f.phone); phone != "" {
		entry.Phone = &phone
	}
	return entry, nil
}

func (f *Form) autoClose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirmed {
		return
	}
	f.closeLocked()
}

func (f *Form) closeLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.state = StateClosed
	f.email = ""
	f.phone = ""
	f.err = ""
}

// Close dismisses the form and cancels a pending auto-close.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

// Closed reports whether the form has been dismissed.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateClosed
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		ProductID:   f.productID,
		ProductName: f.productName,
		Size:        f.size,
		Email:       f.email,
		Phone:       f.phone,
		State:       f.state,
		Error:       f.err,
	}
}
